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

func signalID(port, pin int, rising bool) int {
	r := 0
	if rising {
		r = 1
	}
	return port<<8 | pin<<1 | r
}

func TestEXTIRisingEdgeLatchesPendingAndIRQ(t *testing.T) {
	afio := NewAFIO() // every line defaults to port A (0)
	e := NewEXTI(40, afio)
	e.Write(extiOffIMR, 0x01)
	e.Write(extiOffRTSR, 0x01)

	e.Signal(signalID(0, 0, true))

	r := e.Tick()
	if len(r.IRQNumbers) != 1 || r.IRQNumbers[0] != 40 {
		t.Fatalf("IRQNumbers = %v, want [40]", r.IRQNumbers)
	}
	if pr := e.Read(extiOffPR, peripheral.Live); pr&0x1 == 0 {
		t.Fatalf("PR bit0 not set after a matching rising-edge signal")
	}
}

func TestEXTIMaskedLineDoesNotLatch(t *testing.T) {
	afio := NewAFIO()
	e := NewEXTI(40, afio)
	e.Write(extiOffRTSR, 0x01) // edge enabled but IMR left clear

	e.Signal(signalID(0, 0, true))
	if pr := e.Read(extiOffPR, peripheral.Live); pr != 0 {
		t.Fatalf("PR = %#x, want 0 (line masked by IMR)", pr)
	}
}

func TestEXTIWrongPortIsIgnored(t *testing.T) {
	afio := NewAFIO()
	afio.Write(0, 0x1) // route line0 to port 1 (B)
	e := NewEXTI(40, afio)
	e.Write(extiOffIMR, 0x01)
	e.Write(extiOffRTSR, 0x01)

	e.Signal(signalID(0, 0, true)) // signal claims port 0 (A)
	if pr := e.Read(extiOffPR, peripheral.Live); pr != 0 {
		t.Fatalf("PR = %#x, want 0 (signal from unrouted port)", pr)
	}
}

func TestEXTIPendingClearedByWriteOneToClear(t *testing.T) {
	afio := NewAFIO()
	e := NewEXTI(40, afio)
	e.Write(extiOffIMR, 0x01)
	e.Write(extiOffRTSR, 0x01)
	e.Signal(signalID(0, 0, true))

	e.Write(extiOffPR, 0x01)
	if pr := e.Read(extiOffPR, peripheral.Live); pr != 0 {
		t.Fatalf("PR = %#x after W1C, want 0", pr)
	}
}

func TestAFIOLineSourceRoundTrip(t *testing.T) {
	a := NewAFIO()
	a.Write(0, 0x21) // nibble0 = line0 -> port1, nibble1 = line1 -> port2
	if got := a.LineSource(0); got != 1 {
		t.Fatalf("LineSource(0) = %d, want 1", got)
	}
	if got := a.LineSource(1); got != 2 {
		t.Fatalf("LineSource(1) = %d, want 2", got)
	}
}
