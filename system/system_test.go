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

package system

import "testing"

// TestNVICGating exercises §8.1 invariant 9: enabling a pending IRQ makes
// it takeable; clearing the enable bit suppresses it even while pending.
func TestNVICGating(t *testing.T) {
	s := New()
	s.SetPendingIRQ(5, true)
	s.SetPriority(5+CoreExceptionCount, 10)

	if _, ok := s.Takeable(256); ok {
		t.Fatalf("Takeable() true before IRQ enabled")
	}

	s.SetEnable(5, true)
	num, ok := s.Takeable(256)
	if !ok || num != 5+CoreExceptionCount {
		t.Fatalf("Takeable() = (%d,%v), want (%d,true)", num, ok, 5+CoreExceptionCount)
	}

	s.SetEnable(5, false)
	if _, ok := s.Takeable(256); ok {
		t.Fatalf("Takeable() true after disabling a still-pending IRQ")
	}
}

func TestCoreExceptionsBypassEnableGating(t *testing.T) {
	s := New()
	s.SetPending(3, true) // HardFault, exception number 3
	s.SetPriority(3, 0)
	num, ok := s.Takeable(256)
	if !ok || num != 3 {
		t.Fatalf("Takeable() = (%d,%v), want (3,true) for a core exception with no enable bit", num, ok)
	}
}

func TestPriMaskSuppressesAllTakeable(t *testing.T) {
	s := New()
	s.SetPendingIRQ(0, true)
	s.SetEnable(0, true)
	s.SetPriority(0+CoreExceptionCount, 0)
	s.SetPriMask(true)
	if _, ok := s.Takeable(256); ok {
		t.Fatalf("Takeable() true while PRIMASK set")
	}
}

func TestTakeablePicksHighestPriority(t *testing.T) {
	s := New()
	s.SetPendingIRQ(1, true)
	s.SetEnable(1, true)
	s.SetPriority(1+CoreExceptionCount, 100)
	s.SetPendingIRQ(2, true)
	s.SetEnable(2, true)
	s.SetPriority(2+CoreExceptionCount, 10)

	num, ok := s.Takeable(256)
	if !ok || num != 2+CoreExceptionCount {
		t.Fatalf("Takeable() = (%d,%v), want IRQ 2 (lower numeric priority wins)", num, ok)
	}
}

func TestVTORPreservedAcrossResetVolatile(t *testing.T) {
	s := New()
	s.SetVTOR(0x08001000)
	s.SetEnable(0, true)
	s.ResetVolatile()
	if s.VTOR() != 0x08001000 {
		t.Fatalf("VTOR = %#x after ResetVolatile, want preserved 0x08001000", s.VTOR())
	}
	if s.Enabled(0) {
		t.Fatalf("IRQ 0 still enabled after ResetVolatile")
	}
}

func TestColdResetClearsVTOR(t *testing.T) {
	s := New()
	s.SetVTOR(0x08001000)
	s.Reset(0)
	if s.VTOR() != 0 {
		t.Fatalf("VTOR = %#x after cold Reset(0), want 0", s.VTOR())
	}
}

func TestSetPendingClearAtExceptionEntry(t *testing.T) {
	s := New()
	s.SetPending(6, true)
	if !s.Pending(6) {
		t.Fatalf("Pending(6) = false after SetPending(6,true)")
	}
	s.SetPending(6, false)
	if s.Pending(6) {
		t.Fatalf("Pending(6) = true after clearing")
	}
}
