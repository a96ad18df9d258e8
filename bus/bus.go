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

// Package bus implements the system bus (§3.3, §4.4): address routing
// across linear memory and memory-mapped peripherals, the boot alias, the
// two-phase peripheral heartbeat (tick collection then bus-mediated DMA
// execution), and IRQ propagation into the shared system.State.
//
// Routing is grounded on the teacher's SharedMemory.MapAddress contract
// (hardware/memory/cartridge/arm/interface.go: "Return memory block and
// array offset for the requested address") generalised from a single
// cartridge-mapper's private address space to an ordered list of regions
// each with its own access type and backing, as required by §3.3.
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/w1ne/labwired-core-sub000/logger"
	"github.com/w1ne/labwired-core-sub000/memory"
	"github.com/w1ne/labwired-core-sub000/peripheral"
	"github.com/w1ne/labwired-core-sub000/system"
)

// MemoryViolation is returned (wrapped in an error) when an access targets
// an address not served by any region, or a write targets a read-only
// region (§3.3, §7, §8.1 invariant 3).
type MemoryViolation struct {
	Addr  uint32
	Write bool
}

func (e *MemoryViolation) Error() string {
	verb := "read"
	if e.Write {
		verb = "write"
	}
	return fmt.Sprintf("memory violation: %s of unmapped or read-only address %#08x", verb, e.Addr)
}

// memRegion is a named linear memory region with an access-type tag, per
// §3.3's region record.
type memRegion struct {
	name string
	mem  *memory.Linear
}

// periphRegion is a named peripheral address range.
type periphRegion struct {
	id   string
	base uint32
	size uint32
	irq  int // configured IRQ line, or -1 if none
	p    peripheral.Peripheral
}

func (p *periphRegion) contains(addr uint32) bool {
	return addr >= p.base && addr-p.base < p.size
}

// Bus is the system bus: an ordered list of memory regions and peripheral
// entries, plus the boot alias and shared interrupt-controller state.
type Bus struct {
	mems       []memRegion
	periphs    []periphRegion
	byIRQIndex map[int]*periphRegion

	// bootAlias, when non-nil, is the flash region mirrored onto
	// [0, flash.size) per §3.3's boot-alias rule.
	bootAlias *memory.Linear

	sys *system.State

	// modifiedListeners are notified of the address range touched by a
	// write to a linear memory region, so that the CPU's decode cache can
	// invalidate affected entries (§4.2, §9 Design Notes: "the bus emits
	// a region-modified event that the CPU consumes").
	modifiedListeners []func(addr uint32)

	// lastViolation records the most recent MemoryViolation for the stop-
	// condition evaluator to consume (§4.7 item 2).
	lastViolation *MemoryViolation
}

// RegionSpec describes one linear memory region at construction time.
type RegionSpec struct {
	Name     string
	Base     uint32
	Size     uint32
	Writable bool
	Image    []byte // initial contents, zero-padded/truncated to Size
}

// PeripheralSpec describes one MMIO peripheral entry at construction time.
type PeripheralSpec struct {
	ID   string
	Base uint32
	Size uint32
	IRQ  int // -1 if the peripheral has no single configured IRQ line
	P    peripheral.Peripheral
}

// New validates and constructs a Bus from the given region and peripheral
// specifications. Overlapping regions (memory/memory, memory/peripheral,
// or peripheral/peripheral) are a ConfigError (§7): regions must not
// overlap (§3.3).
func New(regions []RegionSpec, periphs []PeripheralSpec, sys *system.State) (*Bus, error) {
	b := &Bus{sys: sys, byIRQIndex: make(map[int]*periphRegion)}

	type span struct {
		base, end uint32 // end exclusive
		label     string
	}
	var spans []span

	for _, r := range regions {
		if r.Size == 0 {
			return nil, fmt.Errorf("config error: region %q has zero size", r.Name)
		}
		end := r.Base + r.Size
		if end <= r.Base {
			return nil, fmt.Errorf("config error: region %q overflows address space", r.Name)
		}
		spans = append(spans, span{r.Base, end, r.Name})
		lin := func() *memory.Linear {
			if r.Writable {
				m := memory.NewRAM(r.Base, r.Size)
				copy(m.Bytes(), r.Image)
				return m
			}
			return memory.NewFlash(r.Base, r.Size, r.Image)
		}()
		b.mems = append(b.mems, memRegion{name: r.Name, mem: lin})
	}

	for _, p := range periphs {
		if p.Size == 0 {
			return nil, fmt.Errorf("config error: peripheral %q has zero size", p.ID)
		}
		end := p.Base + p.Size
		if end <= p.Base {
			return nil, fmt.Errorf("config error: peripheral %q overflows address space", p.ID)
		}
		spans = append(spans, span{p.Base, end, p.ID})
		pr := periphRegion{id: p.ID, base: p.Base, size: p.Size, irq: p.IRQ, p: p.P}
		b.periphs = append(b.periphs, pr)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].base < spans[j].base })
	for i := 1; i < len(spans); i++ {
		if spans[i].base < spans[i-1].end {
			return nil, fmt.Errorf("config error: region %q overlaps region %q", spans[i].label, spans[i-1].label)
		}
	}

	// register IRQ-indexed lookup for built-ins that want to assert their
	// own line directly (e.g. SysTick's core exception 15).
	for i := range b.periphs {
		if b.periphs[i].irq >= 0 {
			b.byIRQIndex[b.periphs[i].irq] = &b.periphs[i]
		}
	}

	// boot alias: mirror [0, flash.size) onto the flash region if its base
	// is non-zero (§3.3, §6.3).
	for _, m := range b.mems {
		if !m.mem.Writable() && m.mem.Base() != 0 {
			b.bootAlias = m.mem
			break
		}
	}

	return b, nil
}

// OnRegionModified registers a listener invoked with the touched address
// whenever a write lands in a linear memory region. Used by the CPU's
// decode cache to invalidate stale entries (§4.2).
func (b *Bus) OnRegionModified(fn func(addr uint32)) {
	b.modifiedListeners = append(b.modifiedListeners, fn)
}

// LastViolation returns the most recently recorded MemoryViolation, or nil
// if none occurred since the last call to ClearViolation.
func (b *Bus) LastViolation() *MemoryViolation { return b.lastViolation }

// ClearViolation resets the recorded violation, called once the stop-
// condition evaluator has consumed it.
func (b *Bus) ClearViolation() { b.lastViolation = nil }

// aliasedAddr resolves addr through the boot alias if applicable.
func (b *Bus) aliasedAddr(addr uint32) uint32 {
	if b.bootAlias != nil && addr < b.bootAlias.Size() {
		return b.bootAlias.Base() + addr
	}
	return addr
}

func (b *Bus) findMem(addr uint32) *memory.Linear {
	for i := range b.mems {
		if b.mems[i].mem.Contains(addr) {
			return b.mems[i].mem
		}
	}
	return nil
}

func (b *Bus) findPeriph(addr uint32) *periphRegion {
	for i := range b.periphs {
		if b.periphs[i].contains(addr) {
			return &b.periphs[i]
		}
	}
	return nil
}

// ReadByte reads a single byte, routing through the boot alias and then
// linear memory or peripherals (§3.3, §4.4).
func (b *Bus) ReadByte(addr uint32) (uint8, error) {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil {
		return m.ReadByte(a), nil
	}
	if p := b.findPeriph(a); p != nil {
		return p.p.Read(a-p.base, peripheral.Live), nil
	}
	v := &MemoryViolation{Addr: addr}
	b.lastViolation = v
	return 0, v
}

// PassiveReadByte is the debug-interface counterpart to ReadByte: it never
// triggers peripheral side-effects (§4.1).
func (b *Bus) PassiveReadByte(addr uint32) (uint8, error) {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil {
		return m.ReadByte(a), nil
	}
	if p := b.findPeriph(a); p != nil {
		return p.p.Read(a-p.base, peripheral.Passive), nil
	}
	return 0, &MemoryViolation{Addr: addr}
}

// WriteByte writes a single byte. Writes to the boot alias are honoured
// for addresses that fall within it, even though it targets read-only
// flash, because some firmware builds intentionally rely on it (§4.4); the
// underlying flash region's own read-only status still applies, so an
// aliased write to flash is rejected and reported as a MemoryViolation,
// exactly like a direct flash write — the alias is routed, the region's
// access rule decides the outcome.
func (b *Bus) WriteByte(addr uint32, val uint8) error {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil {
		if !m.WriteByte(a, val) {
			v := &MemoryViolation{Addr: addr, Write: true}
			b.lastViolation = v
			return v
		}
		b.notifyModified(a)
		return nil
	}
	if p := b.findPeriph(a); p != nil {
		p.p.Write(a-p.base, val)
		return nil
	}
	v := &MemoryViolation{Addr: addr, Write: true}
	b.lastViolation = v
	return v
}

func (b *Bus) notifyModified(addr uint32) {
	for _, fn := range b.modifiedListeners {
		fn(addr)
	}
}

// ReadU16 reads a little-endian halfword. For linear memory it uses the
// fast byte-slice path; for MMIO it decomposes into two ordered byte
// reads so that per-byte side-effects remain deterministic (§4.4).
func (b *Bus) ReadU16(addr uint32) (uint16, error) {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil && m.FitsHalfword(a) {
		return m.ReadU16(a), nil
	}
	lo, err := b.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := b.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// WriteU16 writes a little-endian halfword, decomposing into byte writes
// for MMIO regions (§4.4).
func (b *Bus) WriteU16(addr uint32, val uint16) error {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil && m.FitsHalfword(a) {
		if !m.WriteU16(a, val) {
			v := &MemoryViolation{Addr: addr, Write: true}
			b.lastViolation = v
			return v
		}
		b.notifyModified(a)
		return nil
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], val)
	if err := b.WriteByte(addr, buf[0]); err != nil {
		return err
	}
	return b.WriteByte(addr+1, buf[1])
}

// ReadU32 reads a little-endian word, using the fast path for linear
// memory and byte decomposition for MMIO (§4.4).
func (b *Bus) ReadU32(addr uint32) (uint32, error) {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil && m.FitsWord(a) {
		return m.ReadU32(a), nil
	}
	var buf [4]byte
	for i := 0; i < 4; i++ {
		v, err := b.ReadByte(addr + uint32(i))
		if err != nil {
			return 0, err
		}
		buf[i] = v
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteU32 writes a little-endian word, using the fast path for linear
// memory and byte decomposition for MMIO (§4.4).
func (b *Bus) WriteU32(addr uint32, val uint32) error {
	a := b.aliasedAddr(addr)
	if m := b.findMem(a); m != nil && m.FitsWord(a) {
		if !m.WriteU32(a, val) {
			v := &MemoryViolation{Addr: addr, Write: true}
			b.lastViolation = v
			return v
		}
		b.notifyModified(a)
		return nil
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	for i := 0; i < 4; i++ {
		if err := b.WriteByte(addr+uint32(i), buf[i]); err != nil {
			return err
		}
	}
	return nil
}

// HeartbeatResult summarises one bus heartbeat for the Machine's cycle
// accounting and stop-condition evaluation (§4.1, §4.4).
type HeartbeatResult struct {
	CyclesAdded uint64
	Violation   *MemoryViolation
}

// Heartbeat runs the peripheral tick phase, the DMA resolution phase, and
// the IRQ propagation phase, in that order (§4.4, §5 ordering guarantees).
func (b *Bus) Heartbeat() HeartbeatResult {
	results := make([]peripheral.TickResult, len(b.periphs))
	for i := range b.periphs {
		results[i] = b.periphs[i].p.Tick()
	}

	var cycles uint64
	var violation *MemoryViolation

	// DMA resolution: registration order across peripherals, request
	// order within one peripheral (§4.4, §5, §8.1 invariant 10).
	for i := range b.periphs {
		for _, req := range results[i].DMARequests {
			if violation != nil {
				break
			}
			switch req.Direction {
			case peripheral.Read:
				if _, err := b.ReadByte(req.Source); err != nil {
					violation = attributeViolation(err, b.periphs[i].id)
				}
			case peripheral.Write:
				if err := b.WriteByte(req.Destination, req.InlineValue); err != nil {
					violation = attributeViolation(err, b.periphs[i].id)
				}
			case peripheral.Copy:
				v, err := b.ReadByte(req.Source)
				if err != nil {
					violation = attributeViolation(err, b.periphs[i].id)
					break
				}
				if err := b.WriteByte(req.Destination, v); err != nil {
					violation = attributeViolation(err, b.periphs[i].id)
				}
			}
		}
		cycles += results[i].Cycles
	}

	// side-band DMA signal propagation: every peripheral implementing
	// Signaler observes every signal raised this heartbeat (repeats are
	// delivered again, not de-duplicated), in
	// registration order of the raiser then the observer (§4.5's EXTI/GPIO
	// routing).
	for i := range b.periphs {
		for _, sig := range results[i].DMASignals {
			for j := range b.periphs {
				if s, ok := b.periphs[j].p.(peripheral.Signaler); ok {
					s.Signal(sig)
				}
			}
		}
	}

	// IRQ propagation, strictly after all DMA execution (§4.4, §5).
	for i := range b.periphs {
		r := &results[i]
		irqs := r.IRQNumbers
		if len(irqs) == 0 && r.IRQAsserted && b.periphs[i].irq >= 0 {
			irqs = []int{b.periphs[i].irq}
		}
		for _, n := range irqs {
			b.assertIRQ(n)
		}
	}

	if violation != nil {
		b.lastViolation = violation
	}

	return HeartbeatResult{CyclesAdded: cycles, Violation: violation}
}

func attributeViolation(err error, peripheralID string) *MemoryViolation {
	var mv *MemoryViolation
	if errors.As(err, &mv) {
		logger.Logf("bus", "DMA failure attributed to peripheral %q: %s", peripheralID, mv.Error())
		return mv
	}
	return &MemoryViolation{}
}

// assertIRQ routes an asserted IRQ number to the CPU's pending set (core
// exceptions, numbers <16) or the NVIC pending bitmap (external IRQs,
// §4.4). Assertions within a heartbeat are idempotent set operations.
func (b *Bus) assertIRQ(n int) {
	if n < system.CoreExceptionCount {
		b.sys.SetPending(n, true)
		return
	}
	b.sys.SetPendingIRQ(n-system.CoreExceptionCount, true)
}

// Peripheral returns the peripheral registered under id, for debug-
// interface snapshot access (§6.2).
func (b *Bus) Peripheral(id string) (peripheral.Peripheral, bool) {
	for i := range b.periphs {
		if b.periphs[i].id == id {
			return b.periphs[i].p, true
		}
	}
	return nil, false
}

// PeripheralIDs returns the registration-ordered list of peripheral IDs,
// for building the structured snapshot (§6.2).
func (b *Bus) PeripheralIDs() []string {
	ids := make([]string, len(b.periphs))
	for i := range b.periphs {
		ids[i] = b.periphs[i].id
	}
	return ids
}

// Reset calls each peripheral's Reset in registration order; linear
// memory (flash and RAM) is left unchanged. VTOR preservation across
// warm reset is the SCB peripheral's concern; Reset simply calls each
// Peripheral.Reset, which the SCB implements per §4.5.
func (b *Bus) Reset() {
	for i := range b.periphs {
		b.periphs[i].p.Reset()
	}
}
