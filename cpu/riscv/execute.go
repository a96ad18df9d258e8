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

func opLUI(rd int, imm uint32) op {
	return func(c *Core) { c.setReg(rd, imm) }
}

func opAUIPC(rd int, imm uint32) op {
	return func(c *Core) { c.setReg(rd, c.instructionAddr+imm) }
}

func opJAL(rd int, imm int32) op {
	return func(c *Core) {
		c.setReg(rd, c.instructionAddr+4)
		c.PC = uint32(int32(c.instructionAddr) + imm)
	}
}

func opJALR(rd, rs1 int, imm int32) op {
	return func(c *Core) {
		target := uint32(int32(c.reg(rs1))+imm) &^ 1
		c.setReg(rd, c.instructionAddr+4)
		c.PC = target
	}
}

func opBranch(rs1, rs2 int, imm int32, cmp func(a, b uint32) bool) op {
	return func(c *Core) {
		if cmp(c.reg(rs1), c.reg(rs2)) {
			c.PC = uint32(int32(c.instructionAddr) + imm)
		}
	}
}

func opLoad(rd, rs1 int, imm int32, load func(c *Core, addr uint32) uint32) op {
	return func(c *Core) {
		addr := uint32(int32(c.reg(rs1)) + imm)
		v := load(c, addr)
		c.setReg(rd, v)
	}
}

func opStore(rs1, rs2 int, imm int32, store func(c *Core, addr uint32, v uint32)) op {
	return func(c *Core) {
		addr := uint32(int32(c.reg(rs1)) + imm)
		store(c, addr, c.reg(rs2))
	}
}

func opImmArith(rd, rs1 int, f func(a uint32) uint32) op {
	return func(c *Core) { c.setReg(rd, f(c.reg(rs1))) }
}

func opRegArith(rd, rs1, rs2 int, f func(a, b uint32) uint32) op {
	return func(c *Core) { c.setReg(rd, f(c.reg(rs1), c.reg(rs2))) }
}

func opNOP(c *Core) {}

func opECALL(c *Core) {
	c.takeTrap(CauseECallFromMMode)
}

func opEBREAK(c *Core) {
	c.halted = true
}

func opMRET(c *Core) {
	c.mstatus |= mieBit
	c.PC = c.mepc
}

// opCSR models CSR read/modify/write against mstatus/mepc/mcause (kept on
// Core) and mie/mip/mtvec (kept on the shared system.State, since that's
// also where NVIC-equivalent interrupt state lives for the ARM core); a CSR
// number outside that set reads and writes as zero.
func opCSR(rd, rs1 int, csr uint32, funct3 uint32) op {
	return func(c *Core) {
		var cur uint32
		switch csr {
		case 0x300:
			cur = c.mstatus
		case 0x341:
			cur = c.mepc
		case 0x342:
			cur = c.mcause
		case 0x304:
			cur = c.sys.MIE()
		case 0x305:
			cur = c.sys.MTVec()
		case 0x344:
			cur = c.sys.MIP()
		}
		if rd != 0 {
			c.setReg(rd, cur)
		}

		var operand uint32
		if funct3&0x4 != 0 {
			operand = uint32(rs1) // immediate form: rs1 field holds a 5-bit zero-extended immediate
		} else {
			operand = c.reg(rs1)
		}

		var next uint32
		switch funct3 &^ 0x4 {
		case 0b001: // CSRRW
			next = operand
		case 0b010: // CSRRS
			next = cur | operand
		case 0b011: // CSRRC
			next = cur &^ operand
		default:
			return
		}

		switch csr {
		case 0x300:
			c.mstatus = next
		case 0x341:
			c.mepc = next
		case 0x342:
			c.mcause = next
		case 0x304:
			c.sys.SetMIE(next)
		case 0x305:
			c.sys.SetMTVec(next)
		case 0x344:
			c.sys.SetMIP(next)
		}
	}
}
