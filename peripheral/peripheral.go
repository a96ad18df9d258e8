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

// Package peripheral defines the capability set that every memory-mapped
// device implements (§3.4) and the records a peripheral uses to request
// bus-mediated DMA and interrupt delivery during a heartbeat (§4.4).
package peripheral

// Direction identifies the kind of bus-mediated memory operation a
// DmaRequest describes.
type Direction int

const (
	// Read loads a byte from Source and, if part of a Copy, carries it to
	// the paired Write. A bare Read request has no externally-visible
	// destination; peripherals compose Copy for the common mem-to-mem case.
	Read Direction = iota
	// Write stores InlineValue at Destination.
	Write
	// Copy reads Source and writes the value to Destination atomically
	// for the purposes of the current heartbeat (§4.4).
	Copy
)

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

// DmaRequest is a single bus-mediated memory operation produced by a
// peripheral during its tick (§3.4, §4.4).
type DmaRequest struct {
	Direction   Direction
	Source      uint32 // meaningful for Read and Copy
	Destination uint32 // meaningful for Write and Copy
	InlineValue uint8  // meaningful for Write
}

// TickResult is returned by Peripheral.Tick and carries everything the bus
// needs to perform the DMA-resolution and IRQ-propagation phases of a
// heartbeat (§3.4, §4.4).
type TickResult struct {
	// IRQAsserted mirrors a peripheral's single configured IRQ line. It is
	// overridden by IRQNumbers when that slice is non-empty.
	IRQAsserted bool

	// IRQNumbers, when non-empty, is the explicit absolute IRQ-number list
	// this tick wants to assert (bypassing the single boolean flag). An
	// IRQ number here is an absolute exception number: values below 16 are
	// core exceptions (e.g. SysTick asserting exception 15) and a value
	// n >= 16 is external IRQ n-16.
	IRQNumbers []int

	// DMARequests are executed by the bus, in slice order, during the DMA
	// resolution phase (§4.4), interleaved across peripherals in
	// registration order.
	DMARequests []DmaRequest

	// DMASignals carries side-band signal IDs (e.g. EXTI edge triggers
	// driven by a GPIO write) that do not themselves move bytes through
	// the bus but still need cross-peripheral propagation within the same
	// heartbeat.
	DMASignals []int

	// Cycles is the non-negative cycle cost this tick contributes to the
	// cumulative cycle counter (§4.4).
	Cycles uint64
}

// Peripheral is the capability set every memory-mapped device implements
// (§3.4). A peripheral occupies exactly one contiguous address range on
// the bus; offsets passed to Read/Write are relative to that range's base.
type Peripheral interface {
	// Read returns the byte at offset within the peripheral's address
	// range. Side is supplied so a peripheral can distinguish an ordinary
	// bus read (which may have architectural side-effects, e.g.
	// clear-on-read) from a passive debug-interface read (§4.1), which
	// must never mutate state.
	Read(offset uint32, side AccessKind) uint8

	// Write stores val at offset within the peripheral's address range.
	Write(offset uint32, val uint8)

	// Tick advances the peripheral's internal state by one heartbeat and
	// reports any interrupt or DMA activity that resulted (§4.4).
	Tick() TickResult

	// Snapshot returns a structured, JSON-serialisable view of the
	// peripheral's current state for the machine-wide snapshot (§6.2).
	Snapshot() any

	// Reset restores the peripheral to its power-on or warm-reset state.
	Reset()
}

// AccessKind distinguishes an ordinary bus access (which may trigger
// architectural side-effects such as clear-on-read, per §4.6) from a
// passive debug-interface access, which must never mutate peripheral state
// (§4.1's "a distinct passive read is offered for inspection").
type AccessKind int

const (
	// Live is an ordinary CPU or DMA-initiated access: side-effects apply.
	Live AccessKind = iota
	// Passive is a debug-interface inspection access: no side-effects.
	Passive
)

// Signaler is implemented by peripherals that want to observe side-band
// DMA signal IDs raised by other peripherals during the same heartbeat
// (e.g. EXTI observing GPIO pin-change signals per §4.5). The bus invokes
// Signal on every peripheral implementing this interface, in registration
// order, once per signal ID collected during the tick phase (a signal
// raised twice is delivered twice).
type Signaler interface {
	Signal(id int)
}

// IRQLine returns the IRQ number a peripheral is wired to in the manifest,
// or -1 if it has none. Built-in peripherals that need to know their own
// configured line (to populate TickResult.IRQAsserted's meaning) receive
// it at construction time; this type exists so the bus can query it
// generically when wiring, without a type switch per peripheral kind.
type IRQLine interface {
	IRQLine() int
}
