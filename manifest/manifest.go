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

// Package manifest defines the already-resolved system description the
// core is constructed from (§6.1). YAML/JSON parsing of a chip/system
// descriptor into this shape is an external collaborator (§1); this
// package only carries the result.
package manifest

// Architecture selects the CPU family a Machine is constructed for (§3.1).
type Architecture int

const (
	ArmV7M Architecture = iota
	Rv32I
)

func (a Architecture) String() string {
	switch a {
	case ArmV7M:
		return "arm_v7m"
	case Rv32I:
		return "rv32i"
	default:
		return "unknown"
	}
}

// MemoryRegion describes one flash or RAM region (§6.1).
type MemoryRegion struct {
	Base uint32
	Size uint32
}

// PeripheralKind names a built-in peripheral type, or "declarative" for a
// descriptor-backed peripheral (§3.6).
type PeripheralKind string

const (
	KindUART       PeripheralKind = "uart"
	KindSysTick    PeripheralKind = "systick"
	KindNVIC       PeripheralKind = "nvic"
	KindSCB        PeripheralKind = "scb"
	KindGPIO       PeripheralKind = "gpio"
	KindRCC        PeripheralKind = "rcc"
	KindTimer      PeripheralKind = "timer"
	KindI2C        PeripheralKind = "i2c"
	KindSPI        PeripheralKind = "spi"
	KindDMA        PeripheralKind = "dma"
	KindEXTI       PeripheralKind = "exti"
	KindAFIO       PeripheralKind = "afio"
	KindADC        PeripheralKind = "adc"
	KindDeclarative PeripheralKind = "declarative"
)

// PeripheralConfig describes one peripheral entry in the manifest (§6.1).
type PeripheralConfig struct {
	ID      string
	Type    PeripheralKind
	Base    uint32
	Size    uint32
	IRQ     int // -1 if none
	Config  map[string]any
	// Descriptor is populated only when Type == KindDeclarative (§3.6).
	Descriptor *RegisterMapDescriptor
}

// System is the fully resolved system manifest (§6.1).
type System struct {
	Flash        MemoryRegion
	RAM          MemoryRegion
	Peripherals  []PeripheralConfig
	Architecture Architecture
}

// --- Declarative peripheral descriptor types (§3.6) ---

// AccessMode is a register's access mode.
type AccessMode int

const (
	RO AccessMode = iota
	WO
	RW
)

// OnReadAction is a register's read side-effect.
type OnReadAction int

const (
	OnReadNone OnReadAction = iota
	OnReadClearRegister
)

// OnWriteAction is a register's write side-effect.
type OnWriteAction int

const (
	OnWriteNone OnWriteAction = iota
	OnWriteOneToClear
	OnWriteZeroToClear
)

// Field describes a named bit range within a register.
type Field struct {
	Name string
	Low  int // inclusive, LSB-relative
	High int // inclusive
}

// RegisterDescriptor describes one declarative register (§3.6).
type RegisterDescriptor struct {
	ID         string
	Offset     uint32
	WidthBits  int
	Access     AccessMode
	Reset      uint32
	Fields     []Field
	OnRead     OnReadAction
	OnWrite    OnWriteAction
}

// HookTrigger identifies when a timing hook fires (§3.6).
type HookTrigger int

const (
	TriggerPeriodic HookTrigger = iota
	TriggerOnReadOf
	TriggerOnWriteOf
)

// HookAction identifies what a timing hook does when triggered (§3.6).
type HookAction int

const (
	ActionSetBits HookAction = iota
	ActionClearBits
	ActionWriteValue
)

// TimingHook describes one declarative timing side-effect (§3.6).
type TimingHook struct {
	Trigger      HookTrigger
	PeriodCycles uint64 // for TriggerPeriodic
	WatchReg     string // for TriggerOnReadOf/TriggerOnWriteOf
	MatchValue   uint32 // for TriggerOnWriteOf
	MatchMask    uint32 // for TriggerOnWriteOf

	Action       HookAction
	TargetReg    string
	ActionValue  uint32
	IRQ          int // -1 if none
	DelayCycles  uint64
}

// RegisterMapDescriptor is the full declarative peripheral descriptor
// (§3.6): registers plus their side-effects and optional timing hooks.
type RegisterMapDescriptor struct {
	Registers []RegisterDescriptor
	Hooks     []TimingHook
}
