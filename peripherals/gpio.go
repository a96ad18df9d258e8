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

// GPIO register offsets, modelled on the STM32F1-family port layout:
// MODER here stands in for the simpler two-bit-per-pin CRL/CRH direction
// encoding, collapsed to one register since this core doesn't simulate
// analogue/alternate-function electrical modes.
const (
	gpioOffMODER = 0x00
	gpioOffIDR   = 0x08
	gpioOffODR   = 0x0C
	gpioOffBSRR  = 0x10
)

const gpioPinCount = 16

// GPIO is a 16-pin port with direction, input, output and atomic
// set/reset register semantics (§3.4). Pins not driven externally via
// SetPin read back whatever was last written to ODR.
type GPIO struct {
	moder uint32
	idr   uint32
	odr   uint32

	externalMask uint32 // pins currently driven by SetPin, not firmware
}

// NewGPIO constructs a reset GPIO port.
func NewGPIO() *GPIO {
	g := &GPIO{}
	g.Reset()
	return g
}

func regByte(reg uint32, offset uint32) uint8 {
	return byte(reg >> ((offset & 0x3) * 8))
}

func (g *GPIO) Read(offset uint32, side peripheral.AccessKind) uint8 {
	switch offset &^ 0x3 {
	case gpioOffMODER:
		return regByte(g.moder, offset)
	case gpioOffIDR:
		return regByte(g.idr, offset)
	case gpioOffODR:
		return regByte(g.odr, offset)
	case gpioOffBSRR:
		return 0 // write-only
	}
	return 0
}

func (g *GPIO) Write(offset uint32, val uint8) {
	base := offset &^ 0x3
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift

	switch base {
	case gpioOffMODER:
		g.moder = (g.moder &^ mask) | uint32(val)<<shift
	case gpioOffODR:
		g.odr = (g.odr &^ mask) | uint32(val)<<shift
		g.syncIDR()
	case gpioOffBSRR:
		bits := (uint32(val) << shift) & 0xFFFFFFFF
		set := bits & 0xFFFF
		reset := (bits >> 16) & 0xFFFF
		// set takes priority over reset for any pin named in both halves,
		// matching the architected BSRR composite semantics.
		g.odr = (g.odr &^ reset) | set
		g.syncIDR()
	}
}

// syncIDR refreshes the input data register for pins not externally
// driven, so that reading IDR after an ODR/BSRR write on an output pin
// reflects the value just driven (open-drain/push-pull distinction is not
// modelled).
func (g *GPIO) syncIDR() {
	g.idr = (g.idr &^ (^g.externalMask)) | (g.odr &^ g.externalMask)
}

// SetPin drives pin n externally (e.g. a button, an EXTI stimulus in a
// test), overriding firmware's view of IDR until ClearExternal is called.
func (g *GPIO) SetPin(n int, high bool) {
	if n < 0 || n >= gpioPinCount {
		return
	}
	bit := uint32(1) << uint(n)
	g.externalMask |= bit
	if high {
		g.idr |= bit
	} else {
		g.idr &^= bit
	}
}

// ClearExternal releases pin n back to firmware-driven ODR control.
func (g *GPIO) ClearExternal(n int) {
	if n < 0 || n >= gpioPinCount {
		return
	}
	g.externalMask &^= uint32(1) << uint(n)
	g.syncIDR()
}

func (g *GPIO) Tick() peripheral.TickResult { return peripheral.TickResult{} }

type gpioSnapshot struct {
	MODER, IDR, ODR uint32
}

func (g *GPIO) Snapshot() any {
	return gpioSnapshot{MODER: g.moder, IDR: g.idr, ODR: g.odr}
}

func (g *GPIO) Reset() {
	g.moder = 0
	g.idr = 0
	g.odr = 0
	g.externalMask = 0
}
