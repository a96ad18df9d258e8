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

package arm

// This file builds the closures decodeThumb16 hands back to Core.Step.
// Each constructor captures its decoded operands and returns an op that
// reads/mutates live Core state when invoked — the cache stores the
// closure, never the effect, so side effects always observe the Core as
// it stands at execution time (§4.2, decode-cache note).

func opShiftImm(kind shiftType, rd, rs int, imm5 uint) op {
	return func(c *Core) {
		amount := imm5
		if amount == 0 && kind != shiftLSL {
			amount = 32
		}
		result, carry := shiftC(c.Registers[rs], kind, amount, c.Status.Carry)
		c.Registers[rd] = result
		c.Status.setNZ(result)
		c.Status.Carry = carry
	}
}

func opAddSub(rd, rs, rnOrImm int, isImm, isSub bool) op {
	return func(c *Core) {
		a := c.Registers[rs]
		var b uint32
		if isImm {
			b = uint32(rnOrImm)
		} else {
			b = c.Registers[rnOrImm]
		}
		var result uint32
		if isSub {
			result = c.Status.sub(a, b, true)
		} else {
			result = c.Status.addWithCarry(a, b, false, true)
		}
		c.Registers[rd] = result
	}
}

func opImm8(subop uint16, rd int, imm8 uint32) op {
	return func(c *Core) {
		switch subop {
		case 0b00: // MOV
			c.Registers[rd] = imm8
			c.Status.setNZ(imm8)
		case 0b01: // CMP
			c.Status.sub(c.Registers[rd], imm8, true)
		case 0b10: // ADD
			c.Registers[rd] = c.Status.addWithCarry(c.Registers[rd], imm8, false, true)
		case 0b11: // SUB
			c.Registers[rd] = c.Status.sub(c.Registers[rd], imm8, true)
		}
	}
}

func opALU(aluOp uint16, rd, rs int) op {
	return func(c *Core) {
		a := c.Registers[rd]
		b := c.Registers[rs]
		switch aluOp {
		case 0x0: // AND
			r := a & b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		case 0x1: // EOR
			r := a ^ b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		case 0x2: // LSL (register)
			amount := uint(b & 0xFF)
			var result uint32
			var carry bool
			if amount == 0 {
				result, carry = a, c.Status.Carry
			} else {
				result, carry = shiftC(a, shiftLSL, amount, c.Status.Carry)
			}
			c.Registers[rd] = result
			c.Status.setNZ(result)
			c.Status.Carry = carry
		case 0x3: // LSR (register)
			amount := uint(b & 0xFF)
			var result uint32
			var carry bool
			if amount == 0 {
				result, carry = a, c.Status.Carry
			} else {
				result, carry = shiftC(a, shiftLSR, amount, c.Status.Carry)
			}
			c.Registers[rd] = result
			c.Status.setNZ(result)
			c.Status.Carry = carry
		case 0x4: // ASR (register)
			amount := uint(b & 0xFF)
			var result uint32
			var carry bool
			if amount == 0 {
				result, carry = a, c.Status.Carry
			} else {
				result, carry = shiftC(a, shiftASR, amount, c.Status.Carry)
			}
			c.Registers[rd] = result
			c.Status.setNZ(result)
			c.Status.Carry = carry
		case 0x5: // ADC
			c.Registers[rd] = c.Status.addWithCarry(a, b, c.Status.Carry, true)
		case 0x6: // SBC
			c.Registers[rd] = c.Status.addWithCarry(a, ^b, c.Status.Carry, true)
		case 0x7: // ROR (register)
			amount := uint(b & 0xFF)
			var result uint32
			var carry bool
			if amount == 0 {
				result, carry = a, c.Status.Carry
			} else {
				result, carry = shiftC(a, shiftROR, amount, c.Status.Carry)
			}
			c.Registers[rd] = result
			c.Status.setNZ(result)
			c.Status.Carry = carry
		case 0x8: // TST
			c.Status.setNZ(a & b)
		case 0x9: // NEG (RSB #0)
			c.Registers[rd] = c.Status.sub(0, b, true)
		case 0xA: // CMP
			c.Status.sub(a, b, true)
		case 0xB: // CMN
			c.Status.addWithCarry(a, b, false, true)
		case 0xC: // ORR
			r := a | b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		case 0xD: // MUL
			r := a * b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		case 0xE: // BIC
			r := a &^ b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		case 0xF: // MVN
			r := ^b
			c.Registers[rd] = r
			c.Status.setNZ(r)
		}
	}
}

func opHiRegister(op2 uint16, rd, rs int, h1 bool) op {
	return func(c *Core) {
		switch op2 {
		case 0b00: // ADD
			c.Registers[rd] += c.Registers[rs]
			if rd == RPC {
				c.Registers[rd] &^= 1
			}
		case 0b01: // CMP
			c.Status.sub(c.Registers[rd], c.Registers[rs], true)
		case 0b10: // MOV
			c.Registers[rd] = c.Registers[rs]
			if rd == RPC {
				c.Registers[rd] &^= 1
			}
		case 0b11: // BX / BLX: H1 set selects BLX (link), clear selects BX
			target := c.Registers[rs]
			if h1 {
				c.Registers[RLR] = (c.instructionPC + 2) | 1
			}
			c.writePC(target)
		}
	}
}

func opLDRLiteral(rd int, imm8 uint32) op {
	return func(c *Core) {
		base := (c.instructionPC + 4) &^ 3
		c.Registers[rd] = c.read32(base + imm8)
	}
}

func opLoadStoreReg(rd, rn, rm int, isByte, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn] + c.Registers[rm]
		if isLoad {
			if isByte {
				c.Registers[rd] = uint32(c.read8(addr))
			} else {
				c.Registers[rd] = c.read32(addr)
			}
		} else {
			if isByte {
				c.write8(addr, uint8(c.Registers[rd]))
			} else {
				c.write32(addr, c.Registers[rd])
			}
		}
	}
}

func opLoadStoreSignExt(rd, rn, rm int, hs uint16) op {
	return func(c *Core) {
		addr := c.Registers[rn] + c.Registers[rm]
		switch hs {
		case 0b00: // STRH
			c.write16(addr, uint16(c.Registers[rd]))
		case 0b01: // LDRH
			c.Registers[rd] = uint32(c.read16(addr))
		case 0b10: // LDRSB
			c.Registers[rd] = signExtend8(c.read8(addr))
		case 0b11: // LDRSH
			c.Registers[rd] = signExtend16(c.read16(addr))
		}
	}
}

func opLoadStoreImm(rd, rn int, imm uint32, isByte, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn] + imm
		if isLoad {
			if isByte {
				c.Registers[rd] = uint32(c.read8(addr))
			} else {
				c.Registers[rd] = c.read32(addr)
			}
		} else {
			if isByte {
				c.write8(addr, uint8(c.Registers[rd]))
			} else {
				c.write32(addr, c.Registers[rd])
			}
		}
	}
}

func opLoadStoreHalfwordImm(rd, rn int, imm uint32, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn] + imm
		if isLoad {
			c.Registers[rd] = uint32(c.read16(addr))
		} else {
			c.write16(addr, uint16(c.Registers[rd]))
		}
	}
}

func opSPRelative(rd int, imm uint32, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[RSP] + imm
		if isLoad {
			c.Registers[rd] = c.read32(addr)
		} else {
			c.write32(addr, c.Registers[rd])
		}
	}
}

func opLoadAddress(rd int, imm uint32, usesSP bool) op {
	return func(c *Core) {
		if usesSP {
			c.Registers[rd] = c.Registers[RSP] + imm
		} else {
			c.Registers[rd] = (c.instructionPC+4)&^3 + imm
		}
	}
}

func opAddSubSP(imm uint32, negative bool) op {
	return func(c *Core) {
		if negative {
			c.Registers[RSP] -= imm
		} else {
			c.Registers[RSP] += imm
		}
	}
}

func opPushPop(regList uint16, extra, isPop bool) op {
	return func(c *Core) {
		if isPop {
			sp := c.Registers[RSP]
			for r := 0; r < 8; r++ {
				if regList&(1<<uint(r)) != 0 {
					c.Registers[r] = c.read32(sp)
					sp += 4
				}
			}
			if extra {
				pc := c.read32(sp)
				sp += 4
				c.writePC(pc)
			}
			c.Registers[RSP] = sp
		} else {
			count := 0
			for r := 0; r < 8; r++ {
				if regList&(1<<uint(r)) != 0 {
					count++
				}
			}
			if extra {
				count++
			}
			sp := c.Registers[RSP] - uint32(count*4)
			c.Registers[RSP] = sp
			addr := sp
			for r := 0; r < 8; r++ {
				if regList&(1<<uint(r)) != 0 {
					c.write32(addr, c.Registers[r])
					addr += 4
				}
			}
			if extra {
				c.write32(addr, c.Registers[RLR])
			}
		}
	}
}

func opLdmStm(rn int, regList uint16, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn]
		for r := 0; r < 8; r++ {
			if regList&(1<<uint(r)) != 0 {
				if isLoad {
					c.Registers[r] = c.read32(addr)
				} else {
					c.write32(addr, c.Registers[r])
				}
				addr += 4
			}
		}
		// writeback is suppressed when Rn itself is in the load list,
		// per the ARMv7-M pseudocode for LDM.
		if !(isLoad && regList&(1<<uint(rn)) != 0) {
			c.Registers[rn] = addr
		}
	}
}

func opBcc(cond uint8, offset int32) op {
	return func(c *Core) {
		if c.Status.condition(cond) {
			c.Registers[RPC] = uint32(int32(c.instructionPC+4) + offset)
		}
	}
}

func opB(offset int32) op {
	return func(c *Core) {
		c.Registers[RPC] = uint32(int32(c.instructionPC+4) + offset)
	}
}

func opCBxZ(rn int, nonzero bool, offset int32) op {
	return func(c *Core) {
		isZero := c.Registers[rn] == 0
		if isZero == nonzero {
			return
		}
		c.Registers[RPC] = uint32(int32(c.instructionPC+4) + offset)
	}
}

func opSVC(c *Core) {
	c.sys.SetPending(ExcSVCall, true)
}

func opBKPT(c *Core) {
	c.halted = true
}

func opNOP(c *Core) {}

func opIT(firstcond, mask uint8) op {
	return func(c *Core) {
		c.Status.setIT(firstcond<<4 | mask)
		c.justSetIT = true
	}
}
