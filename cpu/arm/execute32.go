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

import "fmt"

func opBL(offset int32) op {
	return func(c *Core) {
		c.Registers[RLR] = (c.instructionPC + 4) | 1
		c.Registers[RPC] = uint32(int32(c.instructionPC+4) + offset)
	}
}

func opBccWide(cond uint8, offset int32) op {
	return func(c *Core) {
		if c.Status.condition(cond) {
			c.Registers[RPC] = uint32(int32(c.instructionPC+4) + offset)
		}
	}
}

func opMOVW(rd int, imm16 uint32) op {
	return func(c *Core) {
		c.Registers[rd] = imm16
	}
}

func opMOVT(rd int, imm16 uint32) op {
	return func(c *Core) {
		c.Registers[rd] = (c.Registers[rd] & 0x0000FFFF) | (imm16 << 16)
	}
}

func opBFI(rd, rn int, lsb, msb uint32) op {
	return func(c *Core) {
		if msb < lsb {
			return
		}
		width := msb - lsb + 1
		mask := uint32((uint64(1)<<width)-1) << lsb
		if rn == 15 {
			// BFC: clear the field instead of inserting from Rn.
			c.Registers[rd] &^= mask
			return
		}
		inserted := (c.Registers[rn] << lsb) & mask
		c.Registers[rd] = (c.Registers[rd] &^ mask) | inserted
	}
}

func opBFX(rd, rn int, lsb, width uint32, signed bool) op {
	return func(c *Core) {
		v := (c.Registers[rn] >> lsb) & uint32((uint64(1)<<width)-1)
		if signed && width < 32 && v&(1<<(width-1)) != 0 {
			v |= ^uint32(0) << width
		}
		c.Registers[rd] = v
	}
}

func opCLZ(rd, rn int) op {
	return func(c *Core) {
		v := c.Registers[rn]
		count := uint32(0)
		for bit := uint32(31); ; bit-- {
			if v&(1<<bit) != 0 {
				break
			}
			count++
			if bit == 0 {
				break
			}
		}
		c.Registers[rd] = count
	}
}

func opRBIT(rd, rn int) op {
	return func(c *Core) {
		v := c.Registers[rn]
		var result uint32
		for i := uint32(0); i < 32; i++ {
			if v&(1<<i) != 0 {
				result |= 1 << (31 - i)
			}
		}
		c.Registers[rd] = result
	}
}

func opREV(rd, rn int) op {
	return func(c *Core) {
		v := c.Registers[rn]
		c.Registers[rd] = v>>24 | (v>>8)&0xFF00 | (v<<8)&0xFF0000 | v<<24
	}
}

func opREV16(rd, rn int) op {
	return func(c *Core) {
		v := c.Registers[rn]
		lo := (v & 0xFFFF)
		hi := (v >> 16) & 0xFFFF
		swap := func(h uint32) uint32 { return (h>>8)&0xFF | (h<<8)&0xFF00 }
		c.Registers[rd] = swap(hi)<<16 | swap(lo)
	}
}

func opREVSH(rd, rn int) op {
	return func(c *Core) {
		v := c.Registers[rn]
		swapped := uint16((v>>8)&0xFF | (v<<8)&0xFF00)
		c.Registers[rd] = signExtend16(swapped)
	}
}

func opMULWide(rd, rn, rm int) op {
	return func(c *Core) {
		c.Registers[rd] = c.Registers[rn] * c.Registers[rm]
	}
}

func opDIV(rd, rn, rm int, signed bool) op {
	return func(c *Core) {
		divisor := c.Registers[rm]
		if divisor == 0 {
			c.Registers[rd] = 0
			return
		}
		if signed {
			c.Registers[rd] = uint32(int32(c.Registers[rn]) / int32(divisor))
		} else {
			c.Registers[rd] = c.Registers[rn] / divisor
		}
	}
}

func opLoadStoreImmWide(rt, rn int, imm12 uint32, isByte, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn] + imm12
		if isLoad {
			if isByte {
				c.Registers[rt] = uint32(c.read8(addr))
			} else {
				c.Registers[rt] = c.read32(addr)
			}
		} else {
			if isByte {
				c.write8(addr, uint8(c.Registers[rt]))
			} else {
				c.write32(addr, c.Registers[rt])
			}
		}
	}
}

func opLoadStoreHalfwordWide(rt, rn int, imm12 uint32, isLoad bool) op {
	return func(c *Core) {
		addr := c.Registers[rn] + imm12
		if isLoad {
			c.Registers[rt] = uint32(c.read16(addr))
		} else {
			c.write16(addr, uint16(c.Registers[rt]))
		}
	}
}

func opLdmStmWide(rn int, regList uint16, isLoad, writeback bool) op {
	return func(c *Core) {
		addr := c.Registers[rn]
		for r := 0; r < NumRegisters; r++ {
			if regList&(1<<uint(r)) != 0 {
				if isLoad {
					if r == RPC {
						c.writePC(c.read32(addr))
					} else {
						c.Registers[r] = c.read32(addr)
					}
				} else {
					c.write32(addr, c.Registers[r])
				}
				addr += 4
			}
		}
		if writeback && !(isLoad && regList&(1<<uint(rn)) != 0) {
			c.Registers[rn] = addr
		}
	}
}

func opStmdbWide(rn int, regList uint16, writeback bool) op {
	return func(c *Core) {
		count := 0
		for r := 0; r < NumRegisters; r++ {
			if regList&(1<<uint(r)) != 0 {
				count++
			}
		}
		addr := c.Registers[rn] - uint32(count*4)
		start := addr
		for r := 0; r < NumRegisters; r++ {
			if regList&(1<<uint(r)) != 0 {
				c.write32(addr, c.Registers[r])
				addr += 4
			}
		}
		if writeback {
			c.Registers[rn] = start
		}
	}
}

func opLdmdbWide(rn int, regList uint16, writeback bool) op {
	return func(c *Core) {
		count := 0
		for r := 0; r < NumRegisters; r++ {
			if regList&(1<<uint(r)) != 0 {
				count++
			}
		}
		addr := c.Registers[rn] - uint32(count*4)
		start := addr
		for r := 0; r < NumRegisters; r++ {
			if regList&(1<<uint(r)) != 0 {
				if r == RPC {
					c.writePC(c.read32(addr))
				} else {
					c.Registers[r] = c.read32(addr)
				}
				addr += 4
			}
		}
		if writeback && regList&(1<<uint(rn)) == 0 {
			c.Registers[rn] = start
		}
	}
}

func opMRS(rd int) op {
	return func(c *Core) {
		c.Registers[rd] = c.Status.packAPSR() | c.Status.packEPSR()
	}
}

func opMSR(rn int) op {
	return func(c *Core) {
		c.Status.unpackAPSR(c.Registers[rn])
	}
}

func opCPS(disable bool) op {
	return func(c *Core) {
		c.sys.SetPriMask(disable)
	}
}

// decodeDataProcessingWide handles the Thumb-2 "data-processing (modified
// immediate)" group (§4.2 wide data processing): AND/TST, BIC, ORR/MOV,
// ORN/MVN, EOR/TEQ, ADD/CMN, ADC, SBC, SUB/CMP, RSB, selected by the 4-bit
// op field at hw1<8:5>, with Rn==1111 or Rd==1111 switching to the
// comparison/move-only variant per the ARMv7-M encoding table.
func decodeDataProcessingWide(hw1, hw2 uint16) (op, error) {
	opField := (hw1 >> 5) & 0xF
	setFlags := hw1&0x10 != 0
	rn := int(hw1 & 0xF)
	rd := int((hw2 >> 8) & 0xF)

	i := uint32((hw1 >> 10) & 0x1)
	imm3 := uint32((hw2 >> 12) & 0x7)
	imm8 := uint32(hw2 & 0xFF)
	imm12 := i<<11 | imm3<<8 | imm8
	imm, carry := thumbExpandImm(imm12)

	switch opField {
	case 0b0000: // AND / TST
		return func(c *Core) {
			result := c.Registers[rn] & imm
			if rd != 15 {
				c.Registers[rd] = result
			}
			if setFlags || rd == 15 {
				c.Status.setNZ(result)
				c.Status.Carry = carry
			}
		}, nil
	case 0b0001: // BIC
		return func(c *Core) {
			result := c.Registers[rn] &^ imm
			c.Registers[rd] = result
			if setFlags {
				c.Status.setNZ(result)
				c.Status.Carry = carry
			}
		}, nil
	case 0b0010: // ORR / MOV
		return func(c *Core) {
			var result uint32
			if rn == 15 {
				result = imm
			} else {
				result = c.Registers[rn] | imm
			}
			c.Registers[rd] = result
			if setFlags {
				c.Status.setNZ(result)
				c.Status.Carry = carry
			}
		}, nil
	case 0b0011: // ORN / MVN
		return func(c *Core) {
			var result uint32
			if rn == 15 {
				result = ^imm
			} else {
				result = c.Registers[rn] | ^imm
			}
			c.Registers[rd] = result
			if setFlags {
				c.Status.setNZ(result)
				c.Status.Carry = carry
			}
		}, nil
	case 0b0100: // EOR / TEQ
		return func(c *Core) {
			result := c.Registers[rn] ^ imm
			if rd != 15 {
				c.Registers[rd] = result
			}
			if setFlags || rd == 15 {
				c.Status.setNZ(result)
				c.Status.Carry = carry
			}
		}, nil
	case 0b1000: // ADD / CMN
		return func(c *Core) {
			result := c.Status.addWithCarry(c.Registers[rn], imm, false, setFlags || rd == 15)
			if rd != 15 {
				c.Registers[rd] = result
			}
		}, nil
	case 0b1010: // ADC
		return func(c *Core) {
			result := c.Status.addWithCarry(c.Registers[rn], imm, c.Status.Carry, setFlags)
			c.Registers[rd] = result
		}, nil
	case 0b1011: // SBC
		return func(c *Core) {
			result := c.Status.addWithCarry(c.Registers[rn], ^imm, c.Status.Carry, setFlags)
			c.Registers[rd] = result
		}, nil
	case 0b1101: // SUB / CMP
		return func(c *Core) {
			result := c.Status.sub(c.Registers[rn], imm, setFlags || rd == 15)
			if rd != 15 {
				c.Registers[rd] = result
			}
		}, nil
	case 0b1110: // RSB
		return func(c *Core) {
			result := c.Status.sub(imm, c.Registers[rn], setFlags)
			c.Registers[rd] = result
		}, nil
	}

	return nil, fmt.Errorf("unsupported wide data-processing op field %#x", opField)
}
