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

func TestUARTWriteAppendsToOutput(t *testing.T) {
	u := NewUART(-1)
	u.Write(uartOffDR, 'H')
	u.Write(uartOffDR, 'i')
	if got := string(u.Output()); got != "Hi" {
		t.Fatalf("Output() = %q, want %q", got, "Hi")
	}
}

func TestUARTStatusBitsSetAfterWrite(t *testing.T) {
	u := NewUART(-1)
	u.Write(uartOffDR, 'x')
	sr := u.Read(uartOffSR, peripheral.Live)
	if sr&uartSRTXE == 0 || sr&uartSRTC == 0 {
		t.Fatalf("SR = %#x, want TXE and TC set", sr)
	}
}

func TestUARTTicksIRQOnlyWhenWired(t *testing.T) {
	u := NewUART(-1)
	u.Write(uartOffDR, 'x')
	if r := u.Tick(); r.IRQAsserted {
		t.Fatalf("IRQAsserted = true with no IRQ line wired")
	}

	wired := NewUART(5)
	wired.Write(uartOffDR, 'x')
	if r := wired.Tick(); !r.IRQAsserted {
		t.Fatalf("IRQAsserted = false after a transmit with a wired IRQ line")
	}
}

func TestUARTFeedQueuesRXBytes(t *testing.T) {
	u := NewUART(-1)
	u.Feed([]byte("ab"))
	if sr := u.Read(uartOffSR, peripheral.Live); sr&uartSRRXNE == 0 {
		t.Fatalf("RXNE not set after Feed")
	}
	if got := u.Read(uartOffDR, peripheral.Live); got != 'a' {
		t.Fatalf("first DR read = %q, want 'a'", got)
	}
	if got := u.Read(uartOffDR, peripheral.Live); got != 'b' {
		t.Fatalf("second DR read = %q, want 'b'", got)
	}
	if sr := u.Read(uartOffSR, peripheral.Live); sr&uartSRRXNE != 0 {
		t.Fatalf("RXNE still set after queue drained")
	}
}

func TestUARTPassiveReadDoesNotDrainQueue(t *testing.T) {
	u := NewUART(-1)
	u.Feed([]byte("z"))
	u.Read(uartOffDR, peripheral.Passive)
	if got := u.Read(uartOffDR, peripheral.Live); got != 'z' {
		t.Fatalf("passive read drained the RX queue; live read got %q, want 'z'", got)
	}
}

func TestUARTResetClearsOutputAndQueue(t *testing.T) {
	u := NewUART(-1)
	u.Write(uartOffDR, 'x')
	u.Feed([]byte("y"))
	u.Reset()
	if len(u.Output()) != 0 {
		t.Fatalf("Output() not empty after Reset")
	}
	if sr := u.Read(uartOffSR, peripheral.Live); sr != uartSRTXE {
		t.Fatalf("SR = %#x after Reset, want only TXE set", sr)
	}
}
