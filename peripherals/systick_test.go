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

import (
	"testing"

	"github.com/w1ne/labwired-core-sub000/peripheral"
)

// TestSysTickUnderflowAssertsException15 exercises §8.3 scenario E4: a
// loaded, enabled, TICKINT-set SysTick asserts exception 15 on underflow.
func TestSysTickUnderflowAssertsException15(t *testing.T) {
	s := NewSysTick()
	// LOAD = 3 (byte 0 only needed).
	s.Write(systickOffLOAD, 3)
	s.Write(systickOffCTRL, systickCTRLENABLE|systickCTRLTICKINT)

	r1 := s.Tick() // VAL was 0 at reset: reloads immediately and fires.
	if len(r1.IRQNumbers) != 1 || r1.IRQNumbers[0] != exceptionSysTick {
		t.Fatalf("tick1 IRQNumbers = %v, want [%d]", r1.IRQNumbers, exceptionSysTick)
	}

	for i := 0; i < 3; i++ {
		r := s.Tick()
		if len(r.IRQNumbers) != 0 {
			t.Fatalf("unexpected IRQ on countdown tick %d: %v", i, r.IRQNumbers)
		}
	}

	r5 := s.Tick()
	if len(r5.IRQNumbers) != 1 || r5.IRQNumbers[0] != exceptionSysTick {
		t.Fatalf("tick5 (second underflow) IRQNumbers = %v, want [%d]", r5.IRQNumbers, exceptionSysTick)
	}
}

func TestSysTickDisabledProducesNoTicks(t *testing.T) {
	s := NewSysTick()
	s.Write(systickOffLOAD, 3)
	if r := s.Tick(); r.Cycles != 0 || len(r.IRQNumbers) != 0 {
		t.Fatalf("disabled SysTick produced activity: %+v", r)
	}
}

func TestSysTickCountFlagClearedByReadAndByVALWrite(t *testing.T) {
	s := NewSysTick()
	s.Write(systickOffLOAD, 3)
	s.Write(systickOffCTRL, systickCTRLENABLE)
	s.Tick() // underflows immediately, sets COUNTFLAG

	// COUNTFLAG is bit 16, which lives in byte 2 of CTRL.
	b2 := s.Read(systickOffCTRL+2, peripheral.Live)
	if b2&(systickCTRLCOUNTFLAG>>16) == 0 {
		t.Fatalf("COUNTFLAG not observed set after underflow")
	}
	// Reading CTRL clears COUNTFLAG.
	b2Again := s.Read(systickOffCTRL+2, peripheral.Live)
	if b2Again&(systickCTRLCOUNTFLAG>>16) != 0 {
		t.Fatalf("COUNTFLAG still set after a CTRL read")
	}

	// Writing VAL clears COUNTFLAG as well.
	s.Write(systickOffVAL, 0) // VAL = 0
	s.Tick()                  // underflows again, sets COUNTFLAG
	if b2 := s.Read(systickOffCTRL+2, peripheral.Passive); b2&(systickCTRLCOUNTFLAG>>16) == 0 {
		t.Fatalf("COUNTFLAG not set after second underflow")
	}
	s.Write(systickOffVAL, 0)
	if b2 := s.Read(systickOffCTRL+2, peripheral.Passive); b2&(systickCTRLCOUNTFLAG>>16) != 0 {
		t.Fatalf("COUNTFLAG still set after a VAL write")
	}
}

func TestSysTickResetZeroesRegisters(t *testing.T) {
	s := NewSysTick()
	s.Write(systickOffLOAD, 3)
	s.Write(systickOffCTRL, systickCTRLENABLE)
	s.Reset()
	if s.Read(systickOffCTRL, peripheral.Live) != 0 || s.Read(systickOffLOAD, peripheral.Live) != 0 {
		t.Fatalf("registers not cleared by Reset")
	}
}
