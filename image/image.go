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

// Package image defines the program-image shape the core consumes (§6.1).
// ELF parsing itself is an external collaborator (§1): this package only
// carries the already-loaded segment list and entry point.
package image

// Segment is one PT_LOAD-equivalent span of bytes destined for a fixed
// load address (§6.1, §6.3). Bytes shorter than the declared segment size
// (the implied .bss tail) are zero-filled by the caller that constructs
// the Program, matching §6.3's "zero-init of implied .bss region
// respected".
type Segment struct {
	LoadAddress uint32
	Bytes       []byte
	Writable    bool
}

// Program is a loaded firmware image: a set of segments plus the entry
// point the CPU resets to (used directly by RV32I; ARMv7-M instead reads
// the reset vector from memory per §3.2, but the entry point is still
// carried for diagnostics and for manifests that omit a vector table).
type Program struct {
	Segments []Segment
	Entry    uint32
}
