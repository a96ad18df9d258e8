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

func TestADCConversionLatchesInputAfterLatency(t *testing.T) {
	a := NewADC(9)
	a.SetInput(0xABC)
	a.Write(adcOffCR2, adcCR2START)

	for i := 0; i < adcConversionCycles-1; i++ {
		r := a.Tick()
		if r.IRQAsserted {
			t.Fatalf("IRQ asserted early on cycle %d", i)
		}
		if sr := a.Read(adcOffSR, peripheral.Passive); sr&adcSRBUSY == 0 {
			t.Fatalf("BUSY not set during conversion on cycle %d", i)
		}
	}

	r := a.Tick()
	if !r.IRQAsserted {
		t.Fatalf("expected IRQ on the cycle the conversion completes")
	}
	got := uint16(a.Read(adcOffDR, peripheral.Live)) | uint16(a.Read(adcOffDR+1, peripheral.Live))<<8
	if got != 0xABC {
		t.Fatalf("DR = %#x, want 0xABC", got)
	}
	sr := a.Read(adcOffSR, peripheral.Passive)
	if sr&adcSRBUSY != 0 || sr&adcSREOC == 0 {
		t.Fatalf("SR = %#x, want BUSY clear and EOC set", sr)
	}
}

func TestADCEOCClearedByLiveRead(t *testing.T) {
	a := NewADC(-1)
	a.Write(adcOffCR2, adcCR2START)
	for i := 0; i < adcConversionCycles; i++ {
		a.Tick()
	}
	a.Read(adcOffSR, peripheral.Live)
	if sr := a.Read(adcOffSR, peripheral.Passive); sr&adcSREOC != 0 {
		t.Fatalf("EOC still set after a live SR read")
	}
}

// TestADCStartIgnoredWhileConverting confirms a second START write while a
// conversion is in flight doesn't restart the countdown: the conversion
// still completes exactly adcConversionCycles ticks after the first START,
// not adcConversionCycles after the second.
func TestADCStartIgnoredWhileConverting(t *testing.T) {
	a := NewADC(-1)
	a.SetInput(1)
	a.Write(adcOffCR2, adcCR2START)
	a.Tick() // one cycle elapsed

	a.Write(adcOffCR2, adcCR2START) // should be a no-op: already converting

	for i := 0; i < adcConversionCycles-1; i++ {
		r := a.Tick()
		if i < adcConversionCycles-2 && r.IRQAsserted {
			t.Fatalf("conversion completed early on cycle %d: restart not ignored", i)
		}
	}
	if sr := a.Read(adcOffSR, peripheral.Passive); sr&adcSREOC == 0 {
		t.Fatalf("conversion did not complete after the expected total cycle count")
	}
}
