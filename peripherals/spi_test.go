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

func TestSPIWriteSetsTXE(t *testing.T) {
	s := NewSPI()
	s.Write(spiOffDR, 0xAB)
	if sr := s.Read(spiOffSR, peripheral.Live); sr&spiSRTXE == 0 {
		t.Fatalf("TXE not set after DR write")
	}
}

func TestSPIFullDuplexEcho(t *testing.T) {
	s := NewSPI()
	s.Feed([]byte{0x99})
	s.Write(spiOffDR, 0x11) // firmware shifts out 0x11
	if got := s.Read(spiOffDR, peripheral.Live); got != 0x99 {
		t.Fatalf("DR read = %#x, want the fed echo byte 0x99", got)
	}
	if sr := s.Read(spiOffSR, peripheral.Live); sr&spiSRRXNE != 0 {
		t.Fatalf("RXNE still set after queue drained")
	}
}

func TestSPIResetClearsQueueAndRestoresTXE(t *testing.T) {
	s := NewSPI()
	s.Feed([]byte{0x01})
	s.Reset()
	if sr := s.Read(spiOffSR, peripheral.Live); sr != spiSRTXE {
		t.Fatalf("SR = %#x after Reset, want only TXE", sr)
	}
}
