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

// Package system holds the interrupt-controller state that is shared
// between the CPU and the NVIC/SCB (or CLINT, for RV32I) MMIO peripherals.
//
// The specification (§3.5, §9 "Design Notes") calls for a single owned
// record rather than reference-counted sharing between objects: the
// Machine owns exactly one State and hands an immutable view to the CPU
// for fast exception-pending checks while the bus routes MMIO reads and
// writes back into the same record. Because the simulation is single
// threaded and cooperative (§5), the atomics here exist for visibility and
// documentation of intent, not for contended synchronisation; the only
// legitimate cross-goroutine mutation is the debug session's sticky halt
// flag, which lives on Machine, not here.
package system

import "sync/atomic"

// ExternalIRQCount is the number of external (NVIC-gated) interrupt lines
// modelled, matching the ARMv7-M architected maximum referenced in §3.5.
const ExternalIRQCount = 240

// CoreExceptionCount is the number of exception numbers (including the
// reserved/unused low numbers) that bypass NVIC gating per §4.2.
const CoreExceptionCount = 16

// bitmap256 is a 256-bit set, large enough to cover the 16 core exceptions
// plus 240 external IRQs addressed as a single linear exception-number
// space (numbers 0-15 are core, 16-255 are external IRQ 0-239).
type bitmap256 [4]uint64

func (b *bitmap256) set(n int) {
	word := n / 64
	bit := uint(n % 64)
	for {
		old := atomic.LoadUint64(&b[word])
		next := old | (1 << bit)
		if atomic.CompareAndSwapUint64(&b[word], old, next) {
			return
		}
	}
}

func (b *bitmap256) clear(n int) {
	word := n / 64
	bit := uint(n % 64)
	for {
		old := atomic.LoadUint64(&b[word])
		next := old &^ (1 << bit)
		if atomic.CompareAndSwapUint64(&b[word], old, next) {
			return
		}
	}
}

func (b *bitmap256) test(n int) bool {
	word := n / 64
	bit := uint(n % 64)
	return atomic.LoadUint64(&b[word])&(1<<bit) != 0
}

// State is the shared NVIC/SCB/CLINT record. It covers both architecture
// families: ARMv7-M uses the exception-number fields and the priority
// array; RV32I uses the CLINT-style fields. A Machine constructs exactly
// one State and holds it alongside the CPU and Bus.
type State struct {
	// enabled, pending and active are exception-number indexed bitmaps
	// (0-15 core, 16-255 external IRQ 0-239), per §3.5. Core exceptions
	// are always considered "enabled" by the NVIC (they bypass NVIC
	// gating per §4.2) but the bitmap still records their pending state
	// so that CPU exception entry has a single place to look.
	enabled bitmap256
	pending bitmap256
	active  bitmap256

	// priority holds an 8-bit priority value per exception number. Lower
	// numeric value is higher priority, matching ARMv7-M convention.
	priority [CoreExceptionCount + ExternalIRQCount]uint32

	// vtor is the Vector Table Offset Register, shared atomically between
	// the CPU (exception-entry vector lookup) and the SCB peripheral
	// (MMIO reads/writes at VTOR+0x08). Preserved across warm reset.
	vtor uint32

	// primask models the ARM PRIMASK bit: when set, all configurable
	// exceptions are masked regardless of individual enable bits.
	primask uint32

	// CLINT-style subset for RV32I: mip/mie/mtvec. These are independent
	// of the ARM fields above; a given Machine uses one family or the
	// other depending on manifest.Architecture.
	mip   uint32
	mie   uint32
	mtvec uint32
}

// New returns a freshly reset State.
func New() *State {
	s := &State{}
	s.Reset(0)
	return s
}

// Reset clears all pending/active state and primask, and sets VTOR to the
// supplied cold-reset value. Per §4.5 (SCB contract), VTOR itself is
// preserved across a *warm* reset unless a cold reset is explicitly
// requested — callers performing a warm reset should call ResetVolatile
// instead.
func (s *State) Reset(vtor uint32) {
	s.enabled = bitmap256{}
	s.pending = bitmap256{}
	s.active = bitmap256{}
	for i := range s.priority {
		s.priority[i] = 0
	}
	atomic.StoreUint32(&s.vtor, vtor)
	atomic.StoreUint32(&s.primask, 0)
	atomic.StoreUint32(&s.mip, 0)
	atomic.StoreUint32(&s.mie, 0)
	atomic.StoreUint32(&s.mtvec, 0)
}

// ResetVolatile clears pending/active/enable/priority state but leaves
// VTOR untouched, matching the SCB's warm-reset contract in §4.5.
func (s *State) ResetVolatile() {
	s.enabled = bitmap256{}
	s.pending = bitmap256{}
	s.active = bitmap256{}
	for i := range s.priority {
		s.priority[i] = 0
	}
	atomic.StoreUint32(&s.primask, 0)
}

// VTOR returns the current Vector Table Offset Register value.
func (s *State) VTOR() uint32 { return atomic.LoadUint32(&s.vtor) }

// SetVTOR updates the Vector Table Offset Register.
func (s *State) SetVTOR(v uint32) { atomic.StoreUint32(&s.vtor, v) }

// PriMask returns true if the global interrupt mask (ARM PRIMASK) is set.
func (s *State) PriMask() bool { return atomic.LoadUint32(&s.primask) != 0 }

// SetPriMask sets or clears the global interrupt mask.
func (s *State) SetPriMask(masked bool) {
	if masked {
		atomic.StoreUint32(&s.primask, 1)
	} else {
		atomic.StoreUint32(&s.primask, 0)
	}
}

// SetEnable sets (enable=true) or clears the NVIC enable bit for external
// IRQ irqNum (0-based, i.e. exception number irqNum+16).
func (s *State) SetEnable(irqNum int, enable bool) {
	n := irqNum + CoreExceptionCount
	if enable {
		s.enabled.set(n)
	} else {
		s.enabled.clear(n)
	}
}

// Enabled reports the NVIC enable bit for external IRQ irqNum.
func (s *State) Enabled(irqNum int) bool {
	return s.enabled.test(irqNum + CoreExceptionCount)
}

// SetPending sets or clears the pending bit for an absolute exception
// number (0-15 core, 16+ external). External IRQs are addressed via
// SetPendingIRQ for clarity at call sites.
func (s *State) SetPending(exceptionNum int, pending bool) {
	if pending {
		s.pending.set(exceptionNum)
	} else {
		s.pending.clear(exceptionNum)
	}
}

// SetPendingIRQ sets or clears the pending bit for external IRQ irqNum.
func (s *State) SetPendingIRQ(irqNum int, pending bool) {
	s.SetPending(irqNum+CoreExceptionCount, pending)
}

// Pending reports the pending bit for an absolute exception number.
func (s *State) Pending(exceptionNum int) bool {
	return s.pending.test(exceptionNum)
}

// PendingIRQ reports the pending bit for external IRQ irqNum.
func (s *State) PendingIRQ(irqNum int) bool {
	return s.pending.test(irqNum + CoreExceptionCount)
}

// SetActive marks an absolute exception number active (entered) or
// inactive (returned from).
func (s *State) SetActive(exceptionNum int, active bool) {
	if active {
		s.active.set(exceptionNum)
	} else {
		s.active.clear(exceptionNum)
	}
}

// Active reports whether the absolute exception number is currently active.
func (s *State) Active(exceptionNum int) bool {
	return s.active.test(exceptionNum)
}

// SetPriority sets the priority byte for an absolute exception number.
func (s *State) SetPriority(exceptionNum int, pri uint32) {
	if exceptionNum >= 0 && exceptionNum < len(s.priority) {
		s.priority[exceptionNum] = pri
	}
}

// Priority returns the priority byte for an absolute exception number.
func (s *State) Priority(exceptionNum int) uint32 {
	if exceptionNum >= 0 && exceptionNum < len(s.priority) {
		return s.priority[exceptionNum]
	}
	return 0
}

// Takeable returns the absolute exception number of highest effective
// priority (lowest priority value; ties go to the lowest exception number)
// among those that are currently enabled (core exceptions are implicitly
// always enabled, per
// §4.2's "Core exceptions (numbers <16) bypass NVIC gating"), pending, of
// higher effective priority than currentPriority, and not masked by
// PRIMASK (core exception 2, NMI, is never maskable; this core does not
// model NMI separately from other core exceptions, so PRIMASK masks all
// configurable exceptions per §3.5's invariant). It returns (-1, false) if
// nothing is takeable.
func (s *State) Takeable(currentPriority uint32) (int, bool) {
	if s.PriMask() {
		return -1, false
	}
	best := -1
	bestPri := uint32(0)
	for n := 0; n < CoreExceptionCount+ExternalIRQCount; n++ {
		if !s.pending.test(n) {
			continue
		}
		if n >= CoreExceptionCount && !s.enabled.test(n) {
			continue
		}
		pri := s.priority[n]
		if pri >= currentPriority {
			continue
		}
		if best == -1 || pri < bestPri {
			best = n
			bestPri = pri
		}
	}
	if best == -1 {
		return -1, false
	}
	return best, true
}

// --- RV32I CLINT-style subset ---

// MIP returns the machine interrupt-pending CSR subset.
func (s *State) MIP() uint32 { return atomic.LoadUint32(&s.mip) }

// SetMIP sets the machine interrupt-pending CSR subset.
func (s *State) SetMIP(v uint32) { atomic.StoreUint32(&s.mip, v) }

// MIE returns the machine interrupt-enable CSR subset.
func (s *State) MIE() uint32 { return atomic.LoadUint32(&s.mie) }

// SetMIE sets the machine interrupt-enable CSR subset.
func (s *State) SetMIE(v uint32) { atomic.StoreUint32(&s.mie, v) }

// MTVec returns the machine trap-vector base address.
func (s *State) MTVec() uint32 { return atomic.LoadUint32(&s.mtvec) }

// SetMTVec sets the machine trap-vector base address.
func (s *State) SetMTVec(v uint32) { atomic.StoreUint32(&s.mtvec, v) }
