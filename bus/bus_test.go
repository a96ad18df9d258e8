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

package bus

import (
	"testing"

	"github.com/w1ne/labwired-core-sub000/peripheral"
	"github.com/w1ne/labwired-core-sub000/system"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	regions := []RegionSpec{
		{Name: "flash", Base: 0x08000000, Size: 0x1000, Writable: false, Image: []byte{0xAA, 0xBB, 0xCC, 0xDD}},
		{Name: "ram", Base: 0x20000000, Size: 0x1000, Writable: true},
	}
	b, err := New(regions, nil, system.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestOverlappingRegionsRejected(t *testing.T) {
	_, err := New([]RegionSpec{
		{Name: "a", Base: 0, Size: 0x100, Writable: true},
		{Name: "b", Base: 0x80, Size: 0x100, Writable: true},
	}, nil, system.New())
	if err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

// TestUnmappedAccessIsMemoryViolation exercises §8.1 invariant 3.
func TestUnmappedAccessIsMemoryViolation(t *testing.T) {
	b := newTestBus(t)
	if _, err := b.ReadByte(0x40000000); err == nil {
		t.Fatalf("expected MemoryViolation on unmapped read")
	}
	if err := b.WriteByte(0x40000000, 1); err == nil {
		t.Fatalf("expected MemoryViolation on unmapped write")
	}
}

func TestWriteToReadOnlyRegionIsViolation(t *testing.T) {
	b := newTestBus(t)
	if err := b.WriteByte(0x08000000, 0xFF); err == nil {
		t.Fatalf("expected MemoryViolation writing to flash")
	}
}

// TestBootAlias exercises §8.1 invariant 4.
func TestBootAlias(t *testing.T) {
	b := newTestBus(t)
	aliased, err := b.ReadU32(0)
	if err != nil {
		t.Fatalf("ReadU32(0) error = %v", err)
	}
	direct, err := b.ReadU32(0x08000000)
	if err != nil {
		t.Fatalf("ReadU32(flash.base) error = %v", err)
	}
	if aliased != direct {
		t.Fatalf("boot alias mismatch: %#08x vs %#08x", aliased, direct)
	}
}

func TestRAMByteRoundTrip(t *testing.T) {
	b := newTestBus(t)
	if err := b.WriteByte(0x20000010, 0x42); err != nil {
		t.Fatalf("WriteByte error = %v", err)
	}
	got, err := b.ReadByte(0x20000010)
	if err != nil {
		t.Fatalf("ReadByte error = %v", err)
	}
	if got != 0x42 {
		t.Fatalf("got %#x, want 0x42", got)
	}
}

// fakeDMAPeripheral produces a configurable DmaRequest list and IRQ on
// each Tick, for exercising heartbeat ordering (§8.1 invariant 10).
type fakeDMAPeripheral struct {
	reqs []peripheral.DmaRequest
	irqs []int
}

func (p *fakeDMAPeripheral) Read(offset uint32, side peripheral.AccessKind) uint8 { return 0 }
func (p *fakeDMAPeripheral) Write(offset uint32, val uint8)                       {}
func (p *fakeDMAPeripheral) Snapshot() any                                        { return nil }
func (p *fakeDMAPeripheral) Reset()                                               {}
func (p *fakeDMAPeripheral) Tick() peripheral.TickResult {
	return peripheral.TickResult{DMARequests: p.reqs, IRQNumbers: p.irqs}
}

func TestDMAOrderingAcrossPeripherals(t *testing.T) {
	regions := []RegionSpec{{Name: "ram", Base: 0x20000000, Size: 0x100, Writable: true}}
	p1 := &fakeDMAPeripheral{reqs: []peripheral.DmaRequest{
		{Direction: peripheral.Write, Destination: 0x20000000, InlineValue: 0x11},
		{Direction: peripheral.Write, Destination: 0x20000001, InlineValue: 0x22},
	}}
	p2 := &fakeDMAPeripheral{reqs: []peripheral.DmaRequest{
		{Direction: peripheral.Write, Destination: 0x20000002, InlineValue: 0x33},
	}}
	b, err := New(regions, []PeripheralSpec{
		{ID: "p1", Base: 0x40000000, Size: 0x10, IRQ: -1, P: p1},
		{ID: "p2", Base: 0x40001000, Size: 0x10, IRQ: -1, P: p2},
	}, system.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.Heartbeat()
	for i, want := range []uint8{0x11, 0x22, 0x33} {
		got, err := b.ReadByte(0x20000000 + uint32(i))
		if err != nil || got != want {
			t.Fatalf("byte %d = %#x (err %v), want %#x", i, got, err, want)
		}
	}
}

func TestHeartbeatIRQPropagation(t *testing.T) {
	regions := []RegionSpec{{Name: "ram", Base: 0x20000000, Size: 0x100, Writable: true}}
	core := &fakeDMAPeripheral{irqs: []int{20}}
	sys := system.New()
	b, err := New(regions, []PeripheralSpec{{ID: "core", Base: 0x40000000, Size: 0x10, IRQ: -1, P: core}}, sys)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.Heartbeat()
	if !sys.PendingIRQ(20 - system.CoreExceptionCount) {
		t.Fatalf("expected external IRQ 20 pending after heartbeat")
	}
}

func TestDMAViolationAttributed(t *testing.T) {
	regions := []RegionSpec{{Name: "ram", Base: 0x20000000, Size: 0x10, Writable: true}}
	bad := &fakeDMAPeripheral{reqs: []peripheral.DmaRequest{
		{Direction: peripheral.Write, Destination: 0x90000000, InlineValue: 1},
	}}
	b, err := New(regions, []PeripheralSpec{{ID: "bad", Base: 0x40000000, Size: 0x10, IRQ: -1, P: bad}}, system.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	hb := b.Heartbeat()
	if hb.Violation == nil {
		t.Fatalf("expected a DMA memory violation")
	}
}
