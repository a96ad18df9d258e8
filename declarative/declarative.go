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

// Package declarative implements peripherals backed by a
// manifest.RegisterMapDescriptor instead of bespoke Go code (§3.6, §4.6):
// a firmware author (or a chip-description file) enumerates registers,
// their access modes and read/write side-effects, and optional timing
// hooks, and this package turns that description into a working
// peripheral.Peripheral.
package declarative

import (
	"sort"

	"github.com/w1ne/labwired-core-sub000/manifest"
	"github.com/w1ne/labwired-core-sub000/peripheral"
)

// Peripheral is a register-map-driven device (§4.6). Every register is
// stored as a 32-bit word regardless of its declared WidthBits; accesses
// are always byte-granular and aligned to the 4-byte boundary the
// register's offset falls within, matching how the bus decomposes MMIO
// accesses for the built-in peripherals in package peripherals.
type Peripheral struct {
	desc *manifest.RegisterMapDescriptor

	byID   map[string]*manifest.RegisterDescriptor
	values map[string]uint32

	hooks []hookState
}

type hookState struct {
	spec         manifest.TimingHook
	cyclesToFire uint64 // counts down for TriggerPeriodic and a pending delayed action
	armed        bool   // true once an on-read/on-write trigger has fired and is waiting out DelayCycles
}

// New constructs a declarative peripheral from a resolved descriptor,
// initialising every register to its declared reset value.
func New(desc *manifest.RegisterMapDescriptor) *Peripheral {
	p := &Peripheral{desc: desc}
	p.byID = make(map[string]*manifest.RegisterDescriptor, len(desc.Registers))
	for i := range desc.Registers {
		r := &desc.Registers[i]
		p.byID[r.ID] = r
	}
	p.hooks = make([]hookState, len(desc.Hooks))
	for i, h := range desc.Hooks {
		p.hooks[i] = hookState{spec: h}
	}
	p.Reset()
	return p
}

func (p *Peripheral) registerAt(offset uint32) *manifest.RegisterDescriptor {
	base := offset &^ 0x3
	for i := range p.desc.Registers {
		if p.desc.Registers[i].Offset == base {
			return &p.desc.Registers[i]
		}
	}
	return nil
}

// Read returns the byte at offset, applying the register's declared
// read side-effect on a Live access (§3.6). A WO register, or an offset
// with no matching register, reads as zero.
func (p *Peripheral) Read(offset uint32, side peripheral.AccessKind) uint8 {
	reg := p.registerAt(offset)
	if reg == nil || reg.Access == manifest.WO {
		return 0
	}

	v := p.values[reg.ID]
	b := byte(v >> ((offset & 0x3) * 8))

	if side == peripheral.Live && reg.OnRead == manifest.OnReadClearRegister {
		p.values[reg.ID] = 0
	}
	if side == peripheral.Live {
		p.fireWatchers(manifest.TriggerOnReadOf, reg.ID, v, 0xFFFFFFFF)
	}
	return b
}

// Write stores val at offset, applying the register's declared write
// side-effect (§3.6). A RO register, or an offset with no matching
// register, discards the write.
func (p *Peripheral) Write(offset uint32, val uint8) {
	reg := p.registerAt(offset)
	if reg == nil || reg.Access == manifest.RO {
		return
	}

	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift
	written := uint32(val) << shift
	cur := p.values[reg.ID]

	switch reg.OnWrite {
	case manifest.OnWriteOneToClear:
		p.values[reg.ID] = cur &^ (written & mask)
	case manifest.OnWriteZeroToClear:
		// bits written as 0 within this byte's mask are cleared; bits
		// written as 1 are left unchanged (only a false-in-the-byte clears).
		clearMask := (^written) & mask
		p.values[reg.ID] = cur &^ clearMask
	default:
		p.values[reg.ID] = (cur &^ mask) | written
	}

	p.fireWatchers(manifest.TriggerOnWriteOf, reg.ID, p.values[reg.ID], mask)
}

// fireWatchers arms any hook watching reg.ID for the given trigger kind
// whose match criteria (for on-write hooks) are satisfied.
func (p *Peripheral) fireWatchers(kind manifest.HookTrigger, regID string, value, writtenMask uint32) {
	for i := range p.hooks {
		h := &p.hooks[i]
		if h.spec.Trigger != kind || h.spec.WatchReg != regID {
			continue
		}
		if kind == manifest.TriggerOnWriteOf {
			if value&h.spec.MatchMask != h.spec.MatchValue&h.spec.MatchMask {
				continue
			}
		}
		p.arm(h)
	}
}

func (p *Peripheral) arm(h *hookState) {
	h.armed = true
	h.cyclesToFire = h.spec.DelayCycles
}

// Tick advances every hook by one heartbeat: a periodic hook re-arms
// itself on the first tick after it fires and then waits DelayCycles
// ticks; its PeriodCycles field is not consulted. Any armed hook
// (periodic or triggered) whose delay has elapsed performs its action
// (§3.6, §4.6).
func (p *Peripheral) Tick() peripheral.TickResult {
	var result peripheral.TickResult

	for i := range p.hooks {
		h := &p.hooks[i]
		if h.spec.Trigger == manifest.TriggerPeriodic && !h.armed {
			p.arm(h)
		}
		if !h.armed {
			continue
		}
		if h.cyclesToFire > 0 {
			h.cyclesToFire--
			continue
		}
		p.applyAction(h.spec, &result)
		h.armed = false
	}

	result.Cycles = 1
	return result
}

func (p *Peripheral) applyAction(h manifest.TimingHook, result *peripheral.TickResult) {
	cur := p.values[h.TargetReg]
	switch h.Action {
	case manifest.ActionSetBits:
		p.values[h.TargetReg] = cur | h.ActionValue
	case manifest.ActionClearBits:
		p.values[h.TargetReg] = cur &^ h.ActionValue
	case manifest.ActionWriteValue:
		p.values[h.TargetReg] = h.ActionValue
	}
	if h.IRQ >= 0 {
		result.IRQNumbers = append(result.IRQNumbers, h.IRQ)
	}
}

// Snapshot returns every register's current value, keyed by ID and sorted
// for deterministic JSON output (§6.2).
func (p *Peripheral) Snapshot() any {
	ids := make([]string, 0, len(p.values))
	for id := range p.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]uint32, len(ids))
	for _, id := range ids {
		out[id] = p.values[id]
	}
	return out
}

// Reset restores every register to its declared reset value and disarms
// all hooks.
func (p *Peripheral) Reset() {
	p.values = make(map[string]uint32, len(p.desc.Registers))
	for _, r := range p.desc.Registers {
		p.values[r.ID] = r.Reset
	}
	for i := range p.hooks {
		p.hooks[i].armed = false
		p.hooks[i].cyclesToFire = 0
	}
}
