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

// SCB register offsets (ARMv7-M architected subset, §4.5). Only VTOR is
// modelled; CPUID/AIRCR/SHCSR are not needed by this core's decode/exception
// model and are left reading as zero.
const (
	scbOffVTOR = 0x08
)

// SCB is a thin MMIO view over the VTOR register held in the shared
// interrupt-controller state. VTOR survives a warm reset (§4.5 note);
// Reset is deliberately a no-op so a system-level cold reset, which calls
// system.State.Reset(vtor) directly, is the only thing that can change it.
type SCB struct {
	sys *system.State
}

// NewSCB constructs an SCB view over the given shared state.
func NewSCB(sys *system.State) *SCB { return &SCB{sys: sys} }

func (s *SCB) Read(offset uint32, side peripheral.AccessKind) uint8 {
	if offset&^0x3 != scbOffVTOR {
		return 0
	}
	return byte(s.sys.VTOR() >> ((offset & 0x3) * 8))
}

func (s *SCB) Write(offset uint32, val uint8) {
	if offset&^0x3 != scbOffVTOR {
		return
	}
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift
	cur := s.sys.VTOR()
	s.sys.SetVTOR((cur &^ mask) | uint32(val)<<shift)
}

func (s *SCB) Tick() peripheral.TickResult { return peripheral.TickResult{} }

func (s *SCB) Snapshot() any { return struct{ VTOR uint32 }{VTOR: s.sys.VTOR()} }

// Reset is intentionally a no-op: VTOR is warm-reset-persistent and owned
// by the machine-level cold reset path instead (§4.5).
func (s *SCB) Reset() {}
