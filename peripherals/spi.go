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

// SPI register offsets, modelled on the STM32F1 SPI1 layout reduced to the
// status/data subset: CR1 (SPE), SR (TXE, RXNE), DR (shift register).
const (
	spiOffCR1 = 0x00
	spiOffSR  = 0x08
	spiOffDR  = 0x0C
)

const (
	spiCR1SPE = 1 << 6

	spiSRTXE  = 1 << 1
	spiSRRXNE = 1 << 0
)

// SPI is a minimal full-duplex shift register peripheral (§3.4): a DR
// write is treated as an immediately-complete transfer and, if a
// full-duplex echo has been queued via Feed, makes the next byte available
// on DR. Like I2C, clocking, chip-select timing and mode (CPOL/CPHA)
// details are left to a declarative register map when a firmware needs
// them.
type SPI struct {
	cr1 uint32
	sr  uint32
	dr  uint8

	rxQueue []byte
}

// NewSPI constructs a reset SPI peripheral.
func NewSPI() *SPI {
	s := &SPI{}
	s.Reset()
	return s
}

func (s *SPI) Read(offset uint32, side peripheral.AccessKind) uint8 {
	switch offset &^ 0x3 {
	case spiOffCR1:
		return regByte(s.cr1, offset)
	case spiOffSR:
		return regByte(s.sr, offset)
	case spiOffDR:
		v := s.dr
		if side == peripheral.Live && len(s.rxQueue) > 0 {
			v = s.rxQueue[0]
			s.rxQueue = s.rxQueue[1:]
			if len(s.rxQueue) == 0 {
				s.sr &^= spiSRRXNE
			}
		}
		return v
	}
	return 0
}

func (s *SPI) Write(offset uint32, val uint8) {
	base := offset &^ 0x3
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift

	switch base {
	case spiOffCR1:
		s.cr1 = (s.cr1 &^ mask) | uint32(val)<<shift
	case spiOffDR:
		s.dr = val
		s.sr |= spiSRTXE
	}
}

// Feed queues bytes a slave device would have shifted back during the
// next transfer(s), for test harnesses simulating a full-duplex peer.
func (s *SPI) Feed(data []byte) {
	s.rxQueue = append(s.rxQueue, data...)
	if len(s.rxQueue) > 0 {
		s.sr |= spiSRRXNE
	}
}

func (s *SPI) Tick() peripheral.TickResult { return peripheral.TickResult{} }

type spiSnapshot struct {
	CR1, SR uint32
	Queued  int
}

func (s *SPI) Snapshot() any {
	return spiSnapshot{CR1: s.cr1, SR: s.sr, Queued: len(s.rxQueue)}
}

func (s *SPI) Reset() {
	s.cr1 = 0
	s.sr = spiSRTXE
	s.dr = 0
	s.rxQueue = nil
}
