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
	"github.com/w1ne/labwired-core-sub000/peripheral"
	"github.com/w1ne/labwired-core-sub000/system"
)

// NVIC register block offsets (ARMv7-M architected subset, §4.5):
// ISER/ICER/ISPR/ICPR/IP, each a bank of 32-bit registers indexed by
// external IRQ number / 32.
const (
	nvicOffISER = 0x000
	nvicOffICER = 0x080
	nvicOffISPR = 0x100
	nvicOffICPR = 0x180
	nvicOffIP   = 0x300
)

// NVIC is a thin MMIO view onto the shared interrupt-controller state
// (§4.5): every register access reads or mutates *system.State directly,
// since the enable/pending bitmaps and priority array ARE the
// architectural NVIC register file, not a separate copy.
type NVIC struct {
	sys *system.State
}

// NewNVIC constructs an NVIC view over the given shared state.
func NewNVIC(sys *system.State) *NVIC { return &NVIC{sys: sys} }

func (n *NVIC) Read(offset uint32, side peripheral.AccessKind) uint8 {
	bit := func(base uint32, test func(irq int) bool) uint8 {
		word := (offset - base) / 4
		byteInWord := offset % 4
		var v uint8
		for b := 0; b < 8; b++ {
			irq := int(word)*32 + int(byteInWord)*8 + b
			if irq < system.ExternalIRQCount && test(irq) {
				v |= 1 << uint(b)
			}
		}
		return v
	}

	switch {
	case offset >= nvicOffISER && offset < nvicOffISER+0x80:
		return bit(nvicOffISER, n.sys.Enabled)
	case offset >= nvicOffICER && offset < nvicOffICER+0x80:
		return bit(nvicOffICER, n.sys.Enabled)
	case offset >= nvicOffISPR && offset < nvicOffISPR+0x80:
		return bit(nvicOffISPR, n.sys.PendingIRQ)
	case offset >= nvicOffICPR && offset < nvicOffICPR+0x80:
		return bit(nvicOffICPR, n.sys.PendingIRQ)
	case offset >= nvicOffIP && offset < nvicOffIP+system.ExternalIRQCount:
		irq := int(offset - nvicOffIP)
		return uint8(n.sys.Priority(irq + system.CoreExceptionCount))
	}
	return 0
}

func (n *NVIC) Write(offset uint32, val uint8) {
	setBits := func(base uint32, apply func(irq int)) {
		if val == 0 {
			// ISER/ICER/ISPR/ICPR are write-1-to-affect: a zero byte never
			// changes any bit, so there's nothing to scan for.
			return
		}
		word := (offset - base) / 4
		byteInWord := offset % 4
		for b := 0; b < 8; b++ {
			if val&(1<<uint(b)) == 0 {
				continue
			}
			irq := int(word)*32 + int(byteInWord)*8 + b
			if irq < system.ExternalIRQCount {
				apply(irq)
			}
		}
	}

	switch {
	case offset >= nvicOffISER && offset < nvicOffISER+0x80:
		setBits(nvicOffISER, func(irq int) { n.sys.SetEnable(irq, true) })
	case offset >= nvicOffICER && offset < nvicOffICER+0x80:
		setBits(nvicOffICER, func(irq int) { n.sys.SetEnable(irq, false) })
	case offset >= nvicOffISPR && offset < nvicOffISPR+0x80:
		setBits(nvicOffISPR, func(irq int) { n.sys.SetPendingIRQ(irq, true) })
	case offset >= nvicOffICPR && offset < nvicOffICPR+0x80:
		setBits(nvicOffICPR, func(irq int) { n.sys.SetPendingIRQ(irq, false) })
	case offset >= nvicOffIP && offset < nvicOffIP+system.ExternalIRQCount:
		irq := int(offset - nvicOffIP)
		n.sys.SetPriority(irq+system.CoreExceptionCount, uint32(val))
	}
}

// Tick is a no-op: the NVIC has no internal cycle-driven behaviour of its
// own, only MMIO-triggered state changes.
func (n *NVIC) Tick() peripheral.TickResult { return peripheral.TickResult{} }

func (n *NVIC) Snapshot() any { return struct{}{} }

// Reset clears the NVIC's own configurable state (enable/pending/priority),
// matching the SCB's warm-reset contract: VTOR is a separate register
// (owned by SCB) and is not touched here.
func (n *NVIC) Reset() { n.sys.ResetVolatile() }
