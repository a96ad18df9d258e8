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

package peripherals

import "github.com/w1ne/labwired-core-sub000/peripheral"

// SysTick register offsets (ARMv7-M architected, §4.5): CTRL, LOAD, VAL,
// CALIB.
const (
	systickOffCTRL  = 0x00
	systickOffLOAD  = 0x04
	systickOffVAL   = 0x08
	systickOffCALIB = 0x0C
)

const (
	systickCTRLENABLE    = 1 << 0
	systickCTRLTICKINT   = 1 << 1
	systickCTRLCLKSOURCE = 1 << 2
	systickCTRLCOUNTFLAG = 1 << 16
)

// exceptionSysTick is the ARMv7-M exception number for SysTick (§3.5).
const exceptionSysTick = 15

// SysTick is the ARMv7-M system timer (§4.5): a 24-bit down-counter that
// reloads from LOAD and, when TICKINT is set, asserts core exception 15 on
// every underflow.
type SysTick struct {
	ctrl uint32
	load uint32
	val  uint32
}

// NewSysTick constructs a reset SysTick.
func NewSysTick() *SysTick {
	s := &SysTick{}
	s.Reset()
	return s
}

func (s *SysTick) Read(offset uint32, side peripheral.AccessKind) uint8 {
	var reg uint32
	switch offset &^ 0x3 {
	case systickOffCTRL:
		reg = s.ctrl
		if side == peripheral.Live {
			// COUNTFLAG is cleared by any read of CTRL (§4.5 W1C-like note).
			s.ctrl &^= systickCTRLCOUNTFLAG
		}
	case systickOffLOAD:
		reg = s.load
	case systickOffVAL:
		reg = s.val
	case systickOffCALIB:
		reg = 0
	default:
		return 0
	}
	return byte(reg >> ((offset & 0x3) * 8))
}

func (s *SysTick) Write(offset uint32, val uint8) {
	base := offset &^ 0x3
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift

	set := func(reg *uint32) {
		*reg = (*reg &^ mask) | uint32(val)<<shift
	}

	switch base {
	case systickOffCTRL:
		set(&s.ctrl)
	case systickOffLOAD:
		set(&s.load)
		s.load &= 0x00FFFFFF
	case systickOffVAL:
		// any write clears VAL and COUNTFLAG (§4.5).
		s.val = 0
		s.ctrl &^= systickCTRLCOUNTFLAG
	}
}

// Tick decrements VAL when enabled, reloading from LOAD and asserting
// SysTick on underflow (§4.5).
func (s *SysTick) Tick() peripheral.TickResult {
	if s.ctrl&systickCTRLENABLE == 0 {
		return peripheral.TickResult{}
	}
	if s.val == 0 {
		s.val = s.load
		s.ctrl |= systickCTRLCOUNTFLAG
		if s.ctrl&systickCTRLTICKINT != 0 {
			return peripheral.TickResult{IRQNumbers: []int{exceptionSysTick}, Cycles: 1}
		}
		return peripheral.TickResult{Cycles: 1}
	}
	s.val--
	return peripheral.TickResult{Cycles: 1}
}

type systickSnapshot struct {
	CTRL, LOAD, VAL uint32
}

func (s *SysTick) Snapshot() any {
	return systickSnapshot{CTRL: s.ctrl, LOAD: s.load, VAL: s.val}
}

func (s *SysTick) Reset() {
	s.ctrl = 0
	s.load = 0
	s.val = 0
}
