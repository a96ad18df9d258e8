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

// load/store helpers route through the bus and record a fault for the
// Step loop to translate into an architectural BusFault or a terminal
// MemoryViolation (§7), mirroring the teacher's illegalAccess bookkeeping
// (hardware/memory/cartridge/arm/memory_access.go) generalised to a bus
// with many regions instead of one cartridge mapper's private space.

func (c *Core) read8(addr uint32) uint8 {
	v, err := c.mem.ReadByte(addr)
	if err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
		return 0
	}
	return v
}

func (c *Core) write8(addr uint32, val uint8) {
	if err := c.mem.WriteByte(addr, val); err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
	}
}

func (c *Core) read16(addr uint32) uint16 {
	v, err := c.mem.ReadU16(addr)
	if err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
		return 0
	}
	return v
}

func (c *Core) write16(addr uint32, val uint16) {
	if err := c.mem.WriteU16(addr, val); err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
	}
}

func (c *Core) read32(addr uint32) uint32 {
	v, err := c.mem.ReadU32(addr)
	if err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
		return 0
	}
	return v
}

func (c *Core) write32(addr uint32, val uint32) {
	if err := c.mem.WriteU32(addr, val); err != nil {
		c.memFaultPending = true
		c.memFaultAddr = addr
	}
}

// signExtend8 sign-extends an 8-bit value to 32 bits.
func signExtend8(v uint8) uint32 {
	return uint32(int32(int8(v)))
}

// signExtend16 sign-extends a 16-bit value to 32 bits.
func signExtend16(v uint16) uint32 {
	return uint32(int32(int16(v)))
}
