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

// RCC register offsets, modelled on the STM32F1 clock-control layout
// reduced to the two peripheral-enable banks: this core has no clock-tree
// timing to simulate, so CR/CFGR read back as zero and only the enable
// bitmasks are retained (other peripherals don't currently gate their
// behaviour on them, but a manifest-declared peripheral's declarative
// register map can read them to implement a firmware clock-gating check).
const (
	rccOffAPB1ENR = 0x1C
	rccOffAPB2ENR = 0x18
)

// RCC is a passthrough clock-enable register bank (§3.4): firmware toggles
// bits here and reads them back unchanged. No other peripheral in this
// core currently gates its Tick behaviour on RCC state.
type RCC struct {
	apb1enr uint32
	apb2enr uint32
}

// NewRCC constructs a reset RCC block.
func NewRCC() *RCC {
	r := &RCC{}
	r.Reset()
	return r
}

func (r *RCC) Read(offset uint32, side peripheral.AccessKind) uint8 {
	switch offset &^ 0x3 {
	case rccOffAPB1ENR:
		return regByte(r.apb1enr, offset)
	case rccOffAPB2ENR:
		return regByte(r.apb2enr, offset)
	}
	return 0
}

func (r *RCC) Write(offset uint32, val uint8) {
	base := offset &^ 0x3
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift

	switch base {
	case rccOffAPB1ENR:
		r.apb1enr = (r.apb1enr &^ mask) | uint32(val)<<shift
	case rccOffAPB2ENR:
		r.apb2enr = (r.apb2enr &^ mask) | uint32(val)<<shift
	}
}

func (r *RCC) Tick() peripheral.TickResult { return peripheral.TickResult{} }

type rccSnapshot struct {
	APB1ENR, APB2ENR uint32
}

func (r *RCC) Snapshot() any {
	return rccSnapshot{APB1ENR: r.apb1enr, APB2ENR: r.apb2enr}
}

func (r *RCC) Reset() {
	r.apb1enr = 0
	r.apb2enr = 0
}
