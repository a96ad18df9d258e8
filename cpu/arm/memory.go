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

package arm

// Memory is the bus-shaped interface the ARM core uses for fetch, load and
// store (§3.3, §4.4). It is satisfied directly by *bus.Bus; the narrow
// interface here (rather than importing the bus package) is grounded on
// the teacher's own SharedMemory abstraction
// (hardware/memory/cartridge/arm/interface.go), which likewise decouples
// the CPU from any particular bus implementation.
type Memory interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, val uint8) error
	ReadU16(addr uint32) (uint16, error)
	WriteU16(addr uint32, val uint16) error
	ReadU32(addr uint32) (uint32, error)
	WriteU32(addr uint32, val uint32) error
	OnRegionModified(fn func(addr uint32))
}

// InterruptController is the shared NVIC/SCB-shaped interface the ARM
// core consults for exception entry (§3.5, §4.2). Satisfied by
// *system.State.
type InterruptController interface {
	VTOR() uint32
	PriMask() bool
	SetPriMask(bool)
	Takeable(currentPriority uint32) (int, bool)
	SetPending(exceptionNum int, pending bool)
	Pending(exceptionNum int) bool
	SetActive(exceptionNum int, active bool)
	Active(exceptionNum int) bool
	Priority(exceptionNum int) uint32
}
