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

// Package riscv implements the RV32I base integer CPU (§4.3): fetch,
// decode, execute of the R/I/S/B/U/J instruction formats, a minimal CSR
// subset (mstatus, mie, mip, mtvec, mepc, mcause) and trap entry.
//
// Structured as a sibling of cpu/arm rather than sharing a common Core
// type: the two architectures share no instruction encoding, register
// model or exception-entry convention, and the teacher's own embedded
// interpreter draws the same line between its Thumb core and the rest of
// the emulated machine (hardware/memory/cartridge/arm is entirely
// self-contained). A RV32I core has no IT-block shadow state and no
// architected stack-frame exception entry, so Core here is deliberately
// smaller than arm.Core rather than forced to share its shape.
package riscv

import (
	"github.com/w1ne/labwired-core-sub000/logger"
)

// NumRegisters is the RV32I integer register file size (x0-x31); x0 is
// hardwired to zero.
const NumRegisters = 32

// Trap cause codes (mcause) for the subset this core models.
const (
	CauseInstructionAddressMisaligned = 0
	CauseIllegalInstruction           = 2
	CauseBreakpoint                   = 3
	CauseLoadAddressMisaligned        = 4
	CauseStoreAddressMisaligned       = 6
	CauseECallFromMMode               = 11

	// interruptBit marks mcause as an asynchronous interrupt rather than a
	// synchronous exception, per the RV32I trap-cause encoding.
	interruptBit = 1 << 31
	// CauseMachineTimerInterrupt is the mcause code for a pending
	// CLINT-style timer interrupt (mip/mie bit 7), reported with
	// interruptBit set.
	CauseMachineTimerInterrupt = 7
)

// Memory is the bus-shaped interface this core uses for fetch, load and
// store, mirroring cpu/arm.Memory so both cores can be driven by the same
// *bus.Bus without either package importing the other.
type Memory interface {
	ReadByte(addr uint32) (uint8, error)
	WriteByte(addr uint32, val uint8) error
	ReadU16(addr uint32) (uint16, error)
	WriteU16(addr uint32, val uint16) error
	ReadU32(addr uint32) (uint32, error)
	WriteU32(addr uint32, val uint32) error
	OnRegionModified(fn func(addr uint32))
}

// InterruptController is the CLINT-shaped slice of shared state this core
// consults and, via CSR instructions, mutates. Satisfied by *system.State.
type InterruptController interface {
	MIP() uint32
	MIE() uint32
	MTVec() uint32
	SetMIP(v uint32)
	SetMIE(v uint32)
	SetMTVec(v uint32)
}

// Core is the RV32I CPU state (§4.3).
type Core struct {
	X  [NumRegisters]uint32
	PC uint32

	mem Memory
	sys InterruptController

	// CSR subset (§4.3): mstatus.MIE (bit3) is the only mstatus bit
	// modelled; mepc/mcause are set on trap entry.
	mstatus uint32
	mepc    uint32
	mcause  uint32

	halted          bool
	instructionAddr uint32

	memFaultPending bool
	memFaultAddr    uint32
}

// NewCore constructs a Core over the given bus-shaped memory and shared
// CLINT-style state.
func NewCore(mem Memory, sys InterruptController) *Core {
	return &Core{mem: mem, sys: sys}
}

// Reset sets PC to entry and clears register and CSR state. Unlike the
// ARM core, RV32I has no vector-table-driven reset: entry comes from the
// loaded image's ELF entry point (§4.3, §3.6), which the caller passes
// as the entry argument.
func (c *Core) Reset(entry uint32) {
	c.X = [NumRegisters]uint32{}
	c.PC = entry
	c.mstatus = 0
	c.mepc = 0
	c.mcause = 0
	c.halted = false
}

// Halted reports whether an EBREAK has retired (§4.7 item 3, mirroring
// the ARM core's BKPT).
func (c *Core) Halted() bool { return c.halted }

func (c *Core) reg(n int) uint32 {
	if n == 0 {
		return 0
	}
	return c.X[n]
}

func (c *Core) setReg(n int, v uint32) {
	if n == 0 {
		return
	}
	c.X[n] = v
}

// StepResult reports the outcome of one Core.Step call, matching the
// shape of cpu/arm.StepResult so Machine can handle either architecture
// uniformly (§4.1, §7).
type StepResult struct {
	Retired         bool
	Cycles          uint64
	MemoryViolation bool
	ViolationAddr   uint32
	DecodeError     bool
	DecodeErrorAddr uint32
	Halted          bool
}

// mieBit is the mstatus Machine Interrupt Enable bit (bit 3), the only
// mstatus bit this subset models.
const mieBit = 1 << 3

// Step fetches, decodes and executes exactly one RV32I instruction, first
// taking a pending machine-mode timer/external interrupt if mstatus.MIE is
// set and mip&mie is non-zero (§4.3, a direct CLINT-style analogue of the
// ARM core's NVIC preemption check).
func (c *Core) Step() StepResult {
	if c.mstatus&mieBit != 0 && c.sys.MIP()&c.sys.MIE() != 0 {
		c.takeTrap(CauseMachineTimerInterrupt | interruptBit)
	}

	pc := c.PC
	word, err := c.mem.ReadU32(pc)
	if err != nil {
		if c.trapOrFault(CauseInstructionAddressMisaligned, pc) {
			return StepResult{Retired: true}
		}
		return StepResult{Retired: true, MemoryViolation: true, ViolationAddr: pc}
	}

	fn, decodeErr := decode(word)
	if decodeErr != nil {
		logger.Logf("riscv", "decode error at %#08x: %s", pc, decodeErr)
		if c.trapOrFault(CauseIllegalInstruction, pc) {
			return StepResult{Retired: true}
		}
		return StepResult{Retired: true, DecodeError: true, DecodeErrorAddr: pc}
	}

	c.instructionAddr = pc
	c.PC = pc + 4
	c.memFaultPending = false

	fn(c)

	if addr, ok := c.pendingMemoryFault(); ok {
		if c.trapOrFault(CauseLoadAddressMisaligned, addr) {
			return StepResult{Retired: true, Cycles: 1}
		}
		return StepResult{Retired: true, Cycles: 1, MemoryViolation: true, ViolationAddr: addr}
	}

	if c.halted {
		return StepResult{Retired: true, Cycles: 1, Halted: true}
	}

	return StepResult{Retired: true, Cycles: 1}
}

// trapOrFault takes a synchronous trap if mtvec is configured (non-zero),
// else reports the condition as terminal, mirroring the ARM core's
// enterArchitecturalFault escalation rule (§7).
func (c *Core) trapOrFault(cause uint32, addr uint32) bool {
	if c.sys.MTVec() == 0 {
		return false
	}
	c.takeTrap(cause)
	return true
}

// takeTrap performs RV32I machine-mode trap entry: save PC to mepc, record
// the cause, clear MIE (masking further interrupts until mret), and branch
// to mtvec (§4.3). mtvec is treated as a single non-vectored handler
// address; the RV32I vectored-mode encoding (mtvec[1:0]==1) is not part of
// this core's modelled subset.
func (c *Core) takeTrap(cause uint32) {
	c.mepc = c.PC
	c.mcause = cause
	c.mstatus &^= mieBit
	c.PC = c.sys.MTVec() &^ 0x3
}

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

func (c *Core) pendingMemoryFault() (uint32, bool) {
	if !c.memFaultPending {
		return 0, false
	}
	c.memFaultPending = false
	return c.memFaultAddr, true
}

func signExtend8(v uint8) uint32   { return uint32(int32(int8(v))) }
func signExtend16(v uint16) uint32 { return uint32(int32(int16(v))) }
