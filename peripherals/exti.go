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

const extiLineCount = 16

const (
	extiOffIMR  = 0x00
	extiOffRTSR = 0x08
	extiOffFTSR = 0x0C
	extiOffPR   = 0x14
)

// EXTI is the external interrupt/event controller (§3.4, §4.5): it watches
// for GPIO edge-change signals (delivered as side-band DMASignals IDs,
// §4.4) on the line selected for each pin by AFIO, and latches a pending
// bit plus an IRQ assertion when the configured edge and the line's mask
// bit both allow it.
type EXTI struct {
	irqBase int // IRQ number for line 0; lines 5-9 and 10-15 often share
	// a single vector on real silicon, but this core keeps one IRQ per
	// line for simplicity, at irqBase+line.

	imr  uint32
	rtsr uint32
	ftsr uint32
	pr   uint32

	afio *AFIO
}

// NewEXTI constructs a reset EXTI block that consults afio to resolve
// which line a given GPIO pin-change signal ID maps to.
func NewEXTI(irqBase int, afio *AFIO) *EXTI {
	e := &EXTI{irqBase: irqBase, afio: afio}
	e.Reset()
	return e
}

func (e *EXTI) Read(offset uint32, side peripheral.AccessKind) uint8 {
	switch offset &^ 0x3 {
	case extiOffIMR:
		return regByte(e.imr, offset)
	case extiOffRTSR:
		return regByte(e.rtsr, offset)
	case extiOffFTSR:
		return regByte(e.ftsr, offset)
	case extiOffPR:
		return regByte(e.pr, offset)
	}
	return 0
}

func (e *EXTI) Write(offset uint32, val uint8) {
	base := offset &^ 0x3
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift

	switch base {
	case extiOffIMR:
		e.imr = (e.imr &^ mask) | uint32(val)<<shift
	case extiOffRTSR:
		e.rtsr = (e.rtsr &^ mask) | uint32(val)<<shift
	case extiOffFTSR:
		e.ftsr = (e.ftsr &^ mask) | uint32(val)<<shift
	case extiOffPR:
		// write-one-to-clear.
		e.pr &^= uint32(val) << shift
	}
}

// Signal decodes a GPIO pin-edge side-band ID (port<<8 | pin<<1 | rising)
// and, if AFIO currently routes that pin's line to this port and the edge
// and mask allow it, latches the pending bit (§4.5).
func (e *EXTI) Signal(id int) {
	port := (id >> 8) & 0xFF
	pin := (id >> 1) & 0x7F
	rising := id&1 != 0

	if pin >= extiLineCount {
		return
	}
	if e.afio != nil && e.afio.LineSource(pin) != port {
		return
	}
	edgeEnabled := (rising && e.rtsr&(1<<uint(pin)) != 0) || (!rising && e.ftsr&(1<<uint(pin)) != 0)
	if !edgeEnabled || e.imr&(1<<uint(pin)) == 0 {
		return
	}
	e.pr |= 1 << uint(pin)
}

// Tick asserts the IRQ for every line whose PR bit is set; a line keeps
// asserting on every heartbeat until firmware clears its PR bit.
func (e *EXTI) Tick() peripheral.TickResult {
	if e.pr == 0 || e.irqBase < 0 {
		return peripheral.TickResult{}
	}
	var irqs []int
	for line := 0; line < extiLineCount; line++ {
		if e.pr&(1<<uint(line)) != 0 {
			irqs = append(irqs, e.irqBase+line)
		}
	}
	return peripheral.TickResult{IRQNumbers: irqs}
}

type extiSnapshot struct {
	IMR, RTSR, FTSR, PR uint32
}

func (e *EXTI) Snapshot() any {
	return extiSnapshot{IMR: e.imr, RTSR: e.rtsr, FTSR: e.ftsr, PR: e.pr}
}

func (e *EXTI) Reset() {
	e.imr = 0
	e.rtsr = 0
	e.ftsr = 0
	e.pr = 0
}

// AFIO resolves which GPIO port (0=A, 1=B, ...) currently owns each of the
// 16 EXTI lines, in the style of STM32's AFIO_EXTICRx registers (§3.4).
type AFIO struct {
	lineSource [extiLineCount]uint8
}

// NewAFIO constructs an AFIO block with every line defaulting to port A.
func NewAFIO() *AFIO {
	a := &AFIO{}
	a.Reset()
	return a
}

// LineSource returns the port index currently routed to the given EXTI
// line.
func (a *AFIO) LineSource(line int) int {
	if line < 0 || line >= extiLineCount {
		return 0
	}
	return int(a.lineSource[line])
}

func (a *AFIO) Read(offset uint32, side peripheral.AccessKind) uint8 {
	reg := offset / 4
	byteInReg := offset % 4
	if reg > 3 {
		return 0
	}
	var v uint32
	for i := 0; i < 4; i++ {
		line := int(reg)*4 + i
		v |= uint32(a.lineSource[line]) << uint(i*4)
	}
	return byte(v >> (byteInReg * 8))
}

func (a *AFIO) Write(offset uint32, val uint8) {
	reg := offset / 4
	byteInReg := offset % 4
	if reg > 3 {
		return
	}
	for i := 0; i < 2; i++ {
		nibbleShift := uint(i * 4)
		line := int(reg)*4 + int(byteInReg)*2 + i
		if line >= extiLineCount {
			continue
		}
		a.lineSource[line] = uint8((uint32(val) >> nibbleShift) & 0xF)
	}
}

func (a *AFIO) Tick() peripheral.TickResult { return peripheral.TickResult{} }

func (a *AFIO) Snapshot() any {
	out := make([]uint8, extiLineCount)
	copy(out, a.lineSource[:])
	return out
}

func (a *AFIO) Reset() {
	for i := range a.lineSource {
		a.lineSource[i] = 0
	}
}
