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

package declarative

import (
	"testing"

	"github.com/w1ne/labwired-core-sub000/manifest"
	"github.com/w1ne/labwired-core-sub000/peripheral"
)

// TestW1CScenario is §8.3 scenario E6, literally: SR at offset 0, width 32,
// RW, write-one-to-clear, reset 0x000000FF; write byte 0x05 at offset 0
// must leave SR = 0x000000FA.
func TestW1CScenario(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "SR", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0x000000FF, OnWrite: manifest.OnWriteOneToClear},
		},
	}
	p := New(desc)
	p.Write(0, 0x05)
	got := uint32(p.Read(0, peripheral.Live)) | uint32(p.Read(1, peripheral.Live))<<8 | uint32(p.Read(2, peripheral.Live))<<16 | uint32(p.Read(3, peripheral.Live))<<24
	if uint32(got) != 0x000000FA {
		t.Fatalf("SR = %#x, want 0x000000FA", got)
	}
}

func TestWriteZeroToClear(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "R", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0xFF, OnWrite: manifest.OnWriteZeroToClear},
		},
	}
	p := New(desc)
	// writing 0x0F: bits clear in the byte (0xF0) get cleared in the register.
	p.Write(0, 0x0F)
	got := p.Read(0, peripheral.Live)
	if got != 0x0F {
		t.Fatalf("R byte0 = %#x, want 0x0F (bits 4-7 cleared)", got)
	}
}

func TestReadOnlyRegisterIgnoresWrite(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "RO", Offset: 0, WidthBits: 32, Access: manifest.RO, Reset: 0x11223344},
		},
	}
	p := New(desc)
	p.Write(0, 0xFF)
	if got := p.Read(0, peripheral.Live); got != 0x44 {
		t.Fatalf("RO byte0 = %#x, want 0x44 (unchanged)", got)
	}
}

func TestWriteOnlyRegisterReadsZero(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "WO", Offset: 0, WidthBits: 32, Access: manifest.WO, Reset: 0xDEADBEEF},
		},
	}
	p := New(desc)
	if got := p.Read(0, peripheral.Live); got != 0 {
		t.Fatalf("WO read = %#x, want 0", got)
	}
}

func TestOnReadClearRegister(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "R", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0x12345678, OnRead: manifest.OnReadClearRegister},
		},
	}
	p := New(desc)
	first := p.Read(0, peripheral.Live)
	if first != 0x78 {
		t.Fatalf("first read = %#x, want 0x78", first)
	}
	if got := p.Read(0, peripheral.Live); got != 0 {
		t.Fatalf("second read = %#x, want 0 (register cleared)", got)
	}
}

func TestPassiveReadHasNoSideEffect(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "R", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0x12345678, OnRead: manifest.OnReadClearRegister},
		},
	}
	p := New(desc)
	p.Read(0, peripheral.Passive)
	if got := p.Read(0, peripheral.Live); got != 0x78 {
		t.Fatalf("live read after passive read = %#x, want 0x78 (unaffected)", got)
	}
}

func TestPeriodicTimingHookSetsBitsAndRaisesIRQ(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "STATUS", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0},
		},
		Hooks: []manifest.TimingHook{
			{Trigger: manifest.TriggerPeriodic, Action: manifest.ActionSetBits, TargetReg: "STATUS", ActionValue: 0x1, IRQ: 30, DelayCycles: 2},
		},
	}
	p := New(desc)
	// arm on first tick, counts down DelayCycles=2, fires on the third tick.
	r1 := p.Tick()
	if len(r1.IRQNumbers) != 0 {
		t.Fatalf("unexpected IRQ on first tick")
	}
	r2 := p.Tick()
	if len(r2.IRQNumbers) != 0 {
		t.Fatalf("unexpected IRQ on second tick")
	}
	r3 := p.Tick()
	if len(r3.IRQNumbers) != 1 || r3.IRQNumbers[0] != 30 {
		t.Fatalf("expected IRQ 30 on third tick, got %v", r3.IRQNumbers)
	}
	if got := p.Read(0, peripheral.Live); got != 0x1 {
		t.Fatalf("STATUS byte0 = %#x, want 0x1", got)
	}
}

func TestOnWriteOfHookMatchesMaskedValue(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "CTRL", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0},
			{ID: "FLAG", Offset: 4, WidthBits: 32, Access: manifest.RW, Reset: 0},
		},
		Hooks: []manifest.TimingHook{
			{Trigger: manifest.TriggerOnWriteOf, WatchReg: "CTRL", MatchValue: 0x1, MatchMask: 0x1,
				Action: manifest.ActionWriteValue, TargetReg: "FLAG", ActionValue: 0xAA, DelayCycles: 0, IRQ: -1},
		},
	}
	p := New(desc)
	p.Write(0, 0x00) // CTRL bit0 clear: hook must not arm
	p.Tick()
	if got := p.Read(4, peripheral.Live); got != 0 {
		t.Fatalf("FLAG byte0 = %#x, want 0 before matching write", got)
	}
	p.Write(0, 0x01) // CTRL bit0 set: hook arms
	p.Tick()
	if got := p.Read(4, peripheral.Live); got != 0xAA {
		t.Fatalf("FLAG byte0 = %#x, want 0xAA after matching write", got)
	}
}

func TestResetRestoresDeclaredValues(t *testing.T) {
	desc := &manifest.RegisterMapDescriptor{
		Registers: []manifest.RegisterDescriptor{
			{ID: "R", Offset: 0, WidthBits: 32, Access: manifest.RW, Reset: 0x1234},
		},
	}
	p := New(desc)
	p.Write(0, 0xFF)
	p.Reset()
	if got := p.Read(0, peripheral.Live); got != 0x34 {
		t.Fatalf("after Reset, byte0 = %#x, want 0x34", got)
	}
}
