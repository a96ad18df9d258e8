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

// Package memory implements the two kinds of linear memory region named in
// §3.3: flash (read-only once loaded) and RAM (read-write), both backed by
// a flat byte slice. This mirrors the teacher's SharedMemory byte-block
// model (hardware/memory/cartridge/arm/interface.go, memory_access.go):
// addressing is offset-from-origin into a Go []byte, little-endian
// multi-byte access composed from byte access.
package memory

import "encoding/binary"

// Linear is a contiguous, byte-addressable memory region.
type Linear struct {
	base     uint32
	data     []byte
	writable bool
}

// NewFlash returns a read-only linear region of the given size at base,
// with initial contents copied from image (shorter images are zero-padded
// to size; image longer than size is an implementer error and is
// truncated defensively).
func NewFlash(base uint32, size uint32, image []byte) *Linear {
	return newLinear(base, size, image, false)
}

// NewRAM returns a writable linear region of the given size at base, zero
// initialised (RAM has no linked image; §6.3's implied-.bss zero-init is
// the loader's concern upstream of this core, but this constructor exists
// for callers, such as tests, that want to seed RAM directly).
func NewRAM(base uint32, size uint32) *Linear {
	return newLinear(base, size, nil, true)
}

func newLinear(base, size uint32, image []byte, writable bool) *Linear {
	data := make([]byte, size)
	copy(data, image)
	return &Linear{base: base, data: data, writable: writable}
}

// Base returns the region's base address.
func (l *Linear) Base() uint32 { return l.base }

// Size returns the region's size in bytes.
func (l *Linear) Size() uint32 { return uint32(len(l.data)) }

// Writable reports whether writes to this region are permitted.
func (l *Linear) Writable() bool { return l.writable }

// Contains reports whether addr falls within [base, base+size).
func (l *Linear) Contains(addr uint32) bool {
	return addr >= l.base && addr-l.base < uint32(len(l.data))
}

// ReadByte returns the byte at addr. The caller must have already
// validated Contains(addr).
func (l *Linear) ReadByte(addr uint32) uint8 {
	return l.data[addr-l.base]
}

// WriteByte stores val at addr and reports whether the write was
// permitted (false if the region is read-only). The caller must have
// already validated Contains(addr).
func (l *Linear) WriteByte(addr uint32, val uint8) bool {
	if !l.writable {
		return false
	}
	l.data[addr-l.base] = val
	return true
}

// ReadU16 reads a little-endian halfword starting at addr, using the fast
// byte-slice path named in §4.4 for linear regions.
func (l *Linear) ReadU16(addr uint32) uint16 {
	off := addr - l.base
	return binary.LittleEndian.Uint16(l.data[off : off+2])
}

// WriteU16 writes a little-endian halfword starting at addr. Reports
// false if the region is read-only.
func (l *Linear) WriteU16(addr uint32, val uint16) bool {
	if !l.writable {
		return false
	}
	off := addr - l.base
	binary.LittleEndian.PutUint16(l.data[off:off+2], val)
	return true
}

// ReadU32 reads a little-endian word starting at addr.
func (l *Linear) ReadU32(addr uint32) uint32 {
	off := addr - l.base
	return binary.LittleEndian.Uint32(l.data[off : off+4])
}

// WriteU32 writes a little-endian word starting at addr. Reports false if
// the region is read-only.
func (l *Linear) WriteU32(addr uint32, val uint32) bool {
	if !l.writable {
		return false
	}
	off := addr - l.base
	binary.LittleEndian.PutUint32(l.data[off:off+4], val)
	return true
}

// Bytes returns the backing slice directly, for snapshotting.
func (l *Linear) Bytes() []byte { return l.data }

// FitsHalfword reports whether a 2-byte access starting at addr stays
// within the region, guarding against the off-by-one the teacher's
// read16bit explicitly checks for (arm/memory_access.go).
func (l *Linear) FitsHalfword(addr uint32) bool {
	off := addr - l.base
	return len(l.data) >= 2 && off <= uint32(len(l.data)-2)
}

// FitsWord reports whether a 4-byte access starting at addr stays within
// the region.
func (l *Linear) FitsWord(addr uint32) bool {
	off := addr - l.base
	return len(l.data) >= 4 && off <= uint32(len(l.data)-4)
}
