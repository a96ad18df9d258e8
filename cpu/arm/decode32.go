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

// decodeThumb32 decodes a 32-bit Thumb-2 instruction. opcodeWord packs the
// first halfword into bits 31:16 and the second into bits 15:0, matching
// how Core.Step reassembles them. Coverage follows §4.2's named groups
// (wide data processing, load/store, branch/BL, bitfield, misc, system);
// encodings outside that list (coprocessor, SIMD/FP) are not part of this
// core's architected subset and decode as an error, which the stop-
// condition evaluator reports as a decode fault (§4.7).
func decodeThumb32(opcodeWord uint32) (op, error) {
	hw1 := uint16(opcodeWord >> 16)
	hw2 := uint16(opcodeWord)

	op1 := (hw1 >> 11) & 0x3

	switch {
	case hw1&0xF800 == 0xF000 && hw2&0xD000 == 0xD000:
		// BL <label> (T1): the only Thumb-2 branch-with-link encoding
		// valid on a Thumb-only (M-profile) core.
		s := uint32((hw1 >> 10) & 0x1)
		imm10 := uint32(hw1 & 0x3FF)
		j1 := uint32((hw2 >> 13) & 0x1)
		j2 := uint32((hw2 >> 11) & 0x1)
		imm11 := uint32(hw2 & 0x7FF)
		i1 := 1 - (j1 ^ s)
		i2 := 1 - (j2 ^ s)
		imm32raw := s<<24 | i1<<23 | i2<<22 | imm10<<12 | imm11<<1
		offset := signExtendN(imm32raw, 25)
		return opBL(offset), nil

	case hw1&0xF800 == 0xF000 && hw2&0xD000 == 0x8000 && (hw1>>7)&0x7 != 0x7:
		// B<c>.W (T3): conditional wide branch
		cond := uint8((hw1 >> 6) & 0xF)
		s := uint32((hw1 >> 10) & 0x1)
		imm6 := uint32(hw1 & 0x3F)
		j1 := uint32((hw2 >> 13) & 0x1)
		j2 := uint32((hw2 >> 11) & 0x1)
		imm11 := uint32(hw2 & 0x7FF)
		imm32raw := s<<20 | j2<<19 | j1<<18 | imm6<<12 | imm11<<1
		offset := signExtendN(imm32raw, 21)
		return opBccWide(cond, offset), nil

	case hw1&0xF800 == 0xF000 && hw2&0xD000 == 0x9000:
		// B.W (T4): unconditional wide branch
		s := uint32((hw1 >> 10) & 0x1)
		imm10 := uint32(hw1 & 0x3FF)
		j1 := uint32((hw2 >> 13) & 0x1)
		j2 := uint32((hw2 >> 11) & 0x1)
		imm11 := uint32(hw2 & 0x7FF)
		i1 := 1 - (j1 ^ s)
		i2 := 1 - (j2 ^ s)
		imm32raw := s<<24 | i1<<23 | i2<<22 | imm10<<12 | imm11<<1
		offset := signExtendN(imm32raw, 25)
		return opB(offset), nil

	case hw1&0xFBF0 == 0xF2C0:
		// MOVT
		rd := int((hw2 >> 8) & 0xF)
		imm16 := movwImm16(hw1, hw2)
		return opMOVT(rd, imm16), nil

	case hw1&0xFBF0 == 0xF240:
		// MOVW
		rd := int((hw2 >> 8) & 0xF)
		imm16 := movwImm16(hw1, hw2)
		return opMOVW(rd, imm16), nil

	case hw1&0xFFF0 == 0xF360 && hw2&0x8000 == 0:
		// BFI / BFC
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		msb := (hw2 >> 0) & 0x1F
		lsb := uint32((hw2>>12)&0x7)<<2 | uint32((hw2>>6)&0x3)
		return opBFI(rd, rn, uint32(lsb), uint32(msb)), nil

	case hw1&0xFFF0 == 0xF340 && hw2&0x8000 == 0:
		// SBFX
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		widthm1 := uint32(hw2 & 0x1F)
		lsb := uint32((hw2>>12)&0x7)<<2 | uint32((hw2>>6)&0x3)
		return opBFX(rd, rn, lsb, widthm1+1, true), nil

	case hw1&0xFFF0 == 0xF3C0 && hw2&0x8000 == 0:
		// UBFX
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		widthm1 := uint32(hw2 & 0x1F)
		lsb := uint32((hw2>>12)&0x7)<<2 | uint32((hw2>>6)&0x3)
		return opBFX(rd, rn, lsb, widthm1+1, false), nil

	case hw1&0xFFF0 == 0xFAB0 && hw2&0xF0F0 == 0xF080:
		// CLZ
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		return opCLZ(rd, rn), nil

	case hw1&0xFFF0 == 0xFA90 && hw2&0xF0F0 == 0xF0A0:
		// RBIT
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		return opRBIT(rd, rn), nil

	case hw1&0xFFF0 == 0xFA90 && hw2&0xF0F0 == 0xF080:
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		return opREV(rd, rn), nil

	case hw1&0xFFF0 == 0xFA90 && hw2&0xF0F0 == 0xF090:
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		return opREV16(rd, rn), nil

	case hw1&0xFFF0 == 0xFA90 && hw2&0xF0F0 == 0xF0B0:
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		return opREVSH(rd, rn), nil

	case hw1&0xFFF0 == 0xFB00 && hw2&0xF0F0 == 0xF000:
		// MUL (wide form, Rd != Rn*Rm accumulate variant not modelled)
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		rm := int(hw2 & 0xF)
		return opMULWide(rd, rn, rm), nil

	case hw1&0xFFF0 == 0xFB90 && hw2&0xF0F0 == 0xF0F0:
		// SDIV
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		rm := int(hw2 & 0xF)
		return opDIV(rd, rn, rm, true), nil

	case hw1&0xFFF0 == 0xFBB0 && hw2&0xF0F0 == 0xF0F0:
		// UDIV
		rd := int((hw2 >> 8) & 0xF)
		rn := int(hw1 & 0xF)
		rm := int(hw2 & 0xF)
		return opDIV(rd, rn, rm, false), nil

	case hw1&0xFFF0 == 0xF890 && true:
		// LDRB (immediate, T2 12-bit unsigned offset)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreImmWide(rt, rn, imm12, true, true), nil

	case hw1&0xFFF0 == 0xF8B0:
		// LDRH (immediate, T2)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreHalfwordWide(rt, rn, imm12, true), nil

	case hw1&0xFFF0 == 0xF8D0:
		// LDR (immediate, T3 12-bit unsigned offset)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreImmWide(rt, rn, imm12, false, true), nil

	case hw1&0xFFF0 == 0xF880:
		// STRB (immediate, T2)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreImmWide(rt, rn, imm12, true, false), nil

	case hw1&0xFFF0 == 0xF8A0:
		// STRH (immediate, T2)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreHalfwordWide(rt, rn, imm12, false), nil

	case hw1&0xFFF0 == 0xF8C0:
		// STR (immediate, T3)
		rn := int(hw1 & 0xF)
		rt := int((hw2 >> 12) & 0xF)
		imm12 := uint32(hw2 & 0xFFF)
		return opLoadStoreImmWide(rt, rn, imm12, false, false), nil

	case hw1&0xFFD0 == 0xE890:
		// LDM.W / LDMIA.W
		rn := int(hw1 & 0xF)
		writeback := hw1&0x0020 != 0
		regList := hw2
		return opLdmStmWide(rn, regList, true, writeback), nil

	case hw1&0xFFD0 == 0xE880:
		// STM.W / STMIA.W
		rn := int(hw1 & 0xF)
		writeback := hw1&0x0020 != 0
		regList := hw2
		return opLdmStmWide(rn, regList, false, writeback), nil

	case hw1&0xFFD0 == 0xE900:
		// STMDB.W (used by PUSH.W)
		rn := int(hw1 & 0xF)
		writeback := hw1&0x0020 != 0
		regList := hw2
		return opStmdbWide(rn, regList, writeback), nil

	case hw1&0xFFD0 == 0xE910:
		// LDMDB.W
		rn := int(hw1 & 0xF)
		writeback := hw1&0x0020 != 0
		regList := hw2
		return opLdmdbWide(rn, regList, writeback), nil

	case hw1 == 0xF3BF && hw2&0xFF00 == 0x8F00:
		// DMB/DSB/ISB and other hint barriers: no-ops in a single-core,
		// single-threaded model with no instruction prefetch buffering.
		return opNOP, nil

	case hw1 == 0xF3EF:
		// MRS Rd, <spec_reg> - only xPSR read is meaningful here
		rd := int((hw2 >> 8) & 0xF)
		return opMRS(rd), nil

	case hw1&0xFFF0 == 0xF380 && hw2&0xFF00 == 0x8800:
		// MSR <spec_reg>, Rn - accepted and ignored beyond APSR flags,
		// which this core already tracks discretely rather than packed.
		rn := int(hw1 & 0xF)
		return opMSR(rn), nil

	// Note: the register and shifted-register wide data-processing forms
	// (op1==0x1, e.g. AND.W/ORR.W Rd, Rn, Rm, shift) have no case below and
	// fall through to the decode error. Only the modified-immediate group
	// (op1==0x2, case below) is covered; firmware for this subset is
	// expected to stick to narrow 16-bit forms or modified-immediate wide
	// forms for those operations.
	case op1 == 0x2 && hw1&0x0200 == 0 && hw2&0x8000 == 0:
		// wide data-processing (modified immediate): dispatch by the 4-bit
		// op field in hw1<8:5> with the S bit at hw1<4>. The plain
		// 12-bit-immediate sibling group (ADDW/SUBW, hw1<9>==1) is outside
		// this core's supported subset and falls through to a decode error.
		return decodeDataProcessingWide(hw1, hw2)
	}

	return nil, fmt.Errorf("unrecognised 32-bit opcode %#08x", opcodeWord)
}

// movwImm16 reassembles the scattered imm16 field used by MOVW/MOVT
// (imm4:i:imm3:imm8 across hw1 and hw2).
func movwImm16(hw1, hw2 uint16) uint32 {
	imm4 := uint32(hw1 & 0xF)
	i := uint32((hw1 >> 10) & 0x1)
	imm3 := uint32((hw2 >> 12) & 0x7)
	imm8 := uint32(hw2 & 0xFF)
	return imm4<<12 | i<<11 | imm3<<8 | imm8
}
