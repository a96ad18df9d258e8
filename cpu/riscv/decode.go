// This file is part of LabWired.
//
// LabWired is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// LabWired is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with LabWired.  If not, see <https://www.gnu.org/licenses/>.

package riscv

import "fmt"

// op is a decoded, directly executable instruction, mirroring the
// cpu/arm op closure pattern: operand extraction happens once in decode,
// side effects run against the live Core on every invocation.
type op func(c *Core)

// decode dispatches a 32-bit RV32I instruction word by its opcode field
// (bits 6:0) and, within each opcode, by funct3/funct7, per the base
// instruction formats (R/I/S/B/U/J).
func decode(word uint32) (op, error) {
	opcode := word & 0x7F
	rd := int((word >> 7) & 0x1F)
	funct3 := (word >> 12) & 0x7
	rs1 := int((word >> 15) & 0x1F)
	rs2 := int((word >> 20) & 0x1F)
	funct7 := (word >> 25) & 0x7F

	switch opcode {
	case 0b0110111: // LUI
		imm := word & 0xFFFFF000
		return opLUI(rd, imm), nil

	case 0b0010111: // AUIPC
		imm := word & 0xFFFFF000
		return opAUIPC(rd, imm), nil

	case 0b1101111: // JAL
		imm := decodeJImm(word)
		return opJAL(rd, imm), nil

	case 0b1100111: // JALR
		if funct3 != 0 {
			return nil, fmt.Errorf("unrecognised JALR funct3 %#x", funct3)
		}
		imm := decodeIImm(word)
		return opJALR(rd, rs1, imm), nil

	case 0b1100011: // branches
		imm := decodeBImm(word)
		return decodeBranch(funct3, rs1, rs2, imm)

	case 0b0000011: // loads
		imm := decodeIImm(word)
		return decodeLoad(funct3, rd, rs1, imm)

	case 0b0100011: // stores
		imm := decodeSImm(word)
		return decodeStore(funct3, rs1, rs2, imm)

	case 0b0010011: // immediate arithmetic
		imm := decodeIImm(word)
		shamt := rs2 // bits 24:20, reused as shift amount for slli/srli/srai
		return decodeImmArith(funct3, funct7, rd, rs1, imm, shamt)

	case 0b0110011: // register arithmetic
		return decodeRegArith(funct3, funct7, rd, rs1, rs2)

	case 0b0001111: // FENCE
		return opNOP, nil

	case 0b1110011: // ECALL / EBREAK / CSR
		return decodeSystem(word, funct3, rd, rs1)
	}

	return nil, fmt.Errorf("unrecognised opcode %#04x", opcode)
}

func decodeIImm(word uint32) int32 {
	return int32(word) >> 20
}

func decodeSImm(word uint32) int32 {
	imm := ((word >> 25) << 5) | ((word >> 7) & 0x1F)
	return signExtendN(imm, 12)
}

func decodeBImm(word uint32) int32 {
	bit12 := (word >> 31) & 0x1
	bit11 := (word >> 7) & 0x1
	bits10_5 := (word >> 25) & 0x3F
	bits4_1 := (word >> 8) & 0xF
	imm := bit12<<12 | bit11<<11 | bits10_5<<5 | bits4_1<<1
	return signExtendN(imm, 13)
}

func decodeJImm(word uint32) int32 {
	bit20 := (word >> 31) & 0x1
	bits10_1 := (word >> 21) & 0x3FF
	bit11 := (word >> 20) & 0x1
	bits19_12 := (word >> 12) & 0xFF
	imm := bit20<<20 | bits19_12<<12 | bit11<<11 | bits10_1<<1
	return signExtendN(imm, 21)
}

func signExtendN(v uint32, n uint) int32 {
	shift := 32 - n
	return int32(v<<shift) >> shift
}

func decodeBranch(funct3 uint32, rs1, rs2 int, imm int32) (op, error) {
	switch funct3 {
	case 0b000: // BEQ
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return a == b }), nil
	case 0b001: // BNE
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return a != b }), nil
	case 0b100: // BLT
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return int32(a) < int32(b) }), nil
	case 0b101: // BGE
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return int32(a) >= int32(b) }), nil
	case 0b110: // BLTU
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return a < b }), nil
	case 0b111: // BGEU
		return opBranch(rs1, rs2, imm, func(a, b uint32) bool { return a >= b }), nil
	}
	return nil, fmt.Errorf("unrecognised branch funct3 %#x", funct3)
}

func decodeLoad(funct3 uint32, rd, rs1 int, imm int32) (op, error) {
	switch funct3 {
	case 0b000: // LB
		return opLoad(rd, rs1, imm, func(c *Core, addr uint32) uint32 { return signExtend8(c.read8(addr)) }), nil
	case 0b001: // LH
		return opLoad(rd, rs1, imm, func(c *Core, addr uint32) uint32 { return signExtend16(c.read16(addr)) }), nil
	case 0b010: // LW
		return opLoad(rd, rs1, imm, func(c *Core, addr uint32) uint32 { return c.read32(addr) }), nil
	case 0b100: // LBU
		return opLoad(rd, rs1, imm, func(c *Core, addr uint32) uint32 { return uint32(c.read8(addr)) }), nil
	case 0b101: // LHU
		return opLoad(rd, rs1, imm, func(c *Core, addr uint32) uint32 { return uint32(c.read16(addr)) }), nil
	}
	return nil, fmt.Errorf("unrecognised load funct3 %#x", funct3)
}

func decodeStore(funct3 uint32, rs1, rs2 int, imm int32) (op, error) {
	switch funct3 {
	case 0b000: // SB
		return opStore(rs1, rs2, imm, func(c *Core, addr uint32, v uint32) { c.write8(addr, uint8(v)) }), nil
	case 0b001: // SH
		return opStore(rs1, rs2, imm, func(c *Core, addr uint32, v uint32) { c.write16(addr, uint16(v)) }), nil
	case 0b010: // SW
		return opStore(rs1, rs2, imm, func(c *Core, addr uint32, v uint32) { c.write32(addr, v) }), nil
	}
	return nil, fmt.Errorf("unrecognised store funct3 %#x", funct3)
}

func decodeImmArith(funct3, funct7 uint32, rd, rs1 int, imm int32, shamt int) (op, error) {
	switch funct3 {
	case 0b000: // ADDI
		return opImmArith(rd, rs1, func(a uint32) uint32 { return uint32(int32(a) + imm) }), nil
	case 0b010: // SLTI
		return opImmArith(rd, rs1, func(a uint32) uint32 { return boolToU32(int32(a) < imm) }), nil
	case 0b011: // SLTIU
		return opImmArith(rd, rs1, func(a uint32) uint32 { return boolToU32(a < uint32(imm)) }), nil
	case 0b100: // XORI
		return opImmArith(rd, rs1, func(a uint32) uint32 { return a ^ uint32(imm) }), nil
	case 0b110: // ORI
		return opImmArith(rd, rs1, func(a uint32) uint32 { return a | uint32(imm) }), nil
	case 0b111: // ANDI
		return opImmArith(rd, rs1, func(a uint32) uint32 { return a & uint32(imm) }), nil
	case 0b001: // SLLI
		if funct7 != 0 {
			return nil, fmt.Errorf("unrecognised SLLI funct7 %#x", funct7)
		}
		return opImmArith(rd, rs1, func(a uint32) uint32 { return a << uint(shamt&0x1F) }), nil
	case 0b101: // SRLI / SRAI
		switch funct7 {
		case 0b0000000: // SRLI
			return opImmArith(rd, rs1, func(a uint32) uint32 { return a >> uint(shamt&0x1F) }), nil
		case 0b0100000: // SRAI
			return opImmArith(rd, rs1, func(a uint32) uint32 { return uint32(int32(a) >> uint(shamt&0x1F)) }), nil
		}
		return nil, fmt.Errorf("unrecognised SRLI/SRAI funct7 %#x", funct7)
	}
	return nil, fmt.Errorf("unrecognised immediate-arithmetic funct3 %#x", funct3)
}

func decodeRegArith(funct3, funct7 uint32, rd, rs1, rs2 int) (op, error) {
	switch {
	case funct3 == 0b000 && funct7 == 0b0000000: // ADD
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a + b }), nil
	case funct3 == 0b000 && funct7 == 0b0100000: // SUB
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a - b }), nil
	case funct3 == 0b001 && funct7 == 0b0000000: // SLL
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a << (b & 0x1F) }), nil
	case funct3 == 0b010 && funct7 == 0b0000000: // SLT
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return boolToU32(int32(a) < int32(b)) }), nil
	case funct3 == 0b011 && funct7 == 0b0000000: // SLTU
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return boolToU32(a < b) }), nil
	case funct3 == 0b100 && funct7 == 0b0000000: // XOR
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a ^ b }), nil
	case funct3 == 0b101 && funct7 == 0b0000000: // SRL
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a >> (b & 0x1F) }), nil
	case funct3 == 0b101 && funct7 == 0b0100000: // SRA
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 0x1F)) }), nil
	case funct3 == 0b110 && funct7 == 0b0000000: // OR
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a | b }), nil
	case funct3 == 0b111 && funct7 == 0b0000000: // AND
		return opRegArith(rd, rs1, rs2, func(a, b uint32) uint32 { return a & b }), nil
	}
	return nil, fmt.Errorf("unrecognised register-arithmetic funct3/funct7 %#x/%#x", funct3, funct7)
}

func decodeSystem(word, funct3 uint32, rd, rs1 int) (op, error) {
	if funct3 == 0 {
		switch word >> 20 {
		case 0x000: // ECALL
			return opECALL, nil
		case 0x001: // EBREAK
			return opEBREAK, nil
		case 0x302: // MRET
			return opMRET, nil
		}
		return nil, fmt.Errorf("unrecognised SYSTEM (funct3=0) immediate %#x", word>>20)
	}
	// CSR instructions (CSRRW/CSRRS/CSRRC and immediate forms) reach both
	// the CSRs Core keeps locally (mstatus/mepc/mcause) and the
	// mie/mip/mtvec subset kept on the shared system.State; see opCSR.
	csr := word >> 20
	return opCSR(rd, rs1, uint32(csr), funct3), nil
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
