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

func TestTimerOverflowRaisesUIFAndIRQ(t *testing.T) {
	tm := NewTimer(7)
	tm.Write(timerOffARR, 2)   // ARR byte0 = 2
	tm.Write(timerOffARR+1, 0) // ARR byte1 = 0 (reset value is 0xFFFF)
	tm.Write(timerOffCR1, timerCR1CEN)

	if r := tm.Tick(); r.IRQAsserted {
		t.Fatalf("unexpected IRQ on tick1")
	}
	if r := tm.Tick(); r.IRQAsserted {
		t.Fatalf("unexpected IRQ on tick2")
	}
	r := tm.Tick()
	if !r.IRQAsserted {
		t.Fatalf("expected IRQ on tick3 (CNT reached ARR)")
	}
	sr := tm.Read(timerOffSR, peripheral.Passive)
	if sr&timerSRUIF == 0 {
		t.Fatalf("UIF not set after overflow")
	}
}

func TestTimerDisabledDoesNotCount(t *testing.T) {
	tm := NewTimer(-1)
	tm.Write(timerOffARR, 1)
	tm.Tick()
	cnt := tm.Read(timerOffCNT, peripheral.Live)
	if cnt != 0 {
		t.Fatalf("CNT advanced while CEN clear: %#x", cnt)
	}
}

func TestTimerPrescalerDividesTickRate(t *testing.T) {
	tm := NewTimer(-1)
	tm.Write(timerOffPSC, 1) // divide by 2
	tm.Write(timerOffCR1, timerCR1CEN)

	tm.Tick() // prescaleCounter=1, held
	if cnt := tm.Read(timerOffCNT, peripheral.Live); cnt != 0 {
		t.Fatalf("CNT advanced before prescaler elapsed: %#x", cnt)
	}
	tm.Tick() // prescaleCounter=2 > psc(1): counts once
	if cnt := tm.Read(timerOffCNT, peripheral.Live); cnt != 1 {
		t.Fatalf("CNT = %#x after prescaler elapsed, want 1", cnt)
	}
}

func TestTimerUIFClearedByReadAndWriteZero(t *testing.T) {
	tm := NewTimer(-1)
	tm.Write(timerOffARR, 0)
	tm.Write(timerOffARR+1, 0) // clear byte1 too (reset value is 0xFFFF)
	tm.Write(timerOffCR1, timerCR1CEN)
	tm.Tick() // ARR=0, CNT(0)>=ARR(0) immediately -> UIF set

	tm.Read(timerOffSR, peripheral.Live) // read clears UIF
	if sr := tm.Read(timerOffSR, peripheral.Passive); sr&timerSRUIF != 0 {
		t.Fatalf("UIF still set after a live SR read")
	}

	tm.Tick() // CNT(0)>=ARR(0) again -> UIF set
	if sr := tm.Read(timerOffSR, peripheral.Passive); sr&timerSRUIF == 0 {
		t.Fatalf("UIF not set after second overflow")
	}
	tm.Write(timerOffSR, 0) // writing 0 clears UIF
	if sr := tm.Read(timerOffSR, peripheral.Passive); sr&timerSRUIF != 0 {
		t.Fatalf("UIF still set after writing 0 to SR")
	}
}
