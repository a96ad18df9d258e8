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

// Package arm implements the ARMv7-M Thumb/Thumb-2 CPU (§4.2): fetch with
// 16/32-bit reassembly, decode into directly-executable ops, execution
// with architected flag and IT-block semantics, and the exception entry/
// exit machinery.
//
// Grounded throughout on
// JetSetIlly-Gopher2600/hardware/memory/cartridge/arm — the teacher's own
// embedded ARMv7-M Thumb interpreter for DPC+/CDF coprocessor cartridges —
// adapted from a continuously-run coprocessor (arm.Run loops until a
// synchronisation yield) to a single-retired-instruction-per-call Core.Step,
// as required by the Machine.step() contract (§4.1).
package arm

import (
	"github.com/w1ne/labwired-core-sub000/logger"
)

// Core exception numbers (§3.5, §4.2).
const (
	ExcReset     = 1
	ExcNMI       = 2
	ExcHardFault = 3
	ExcMemManage = 4
	ExcBusFault  = 5
	ExcUsageFault = 6
	ExcSVCall    = 11
	ExcPendSV    = 14
	ExcSysTick   = 15
)

// threadPriority is the effective priority of Thread mode: numerically
// higher than any configurable exception priority (which is an 8-bit
// value, 0-255), so that any pending, enabled exception can preempt it.
const threadPriority = 256

// Core is the ARMv7-M CPU state (§3.2).
type Core struct {
	Registers [NumRegisters]uint32
	Status    Status

	mem Memory
	sys InterruptController

	cache decodeCache

	// instructionPC is the address of the instruction currently executing;
	// architecturally, reads of PC by an instruction's own operands see
	// instructionPC+4 (word aligned where required), not the live
	// Registers[RPC] value, which this core keeps as "address of the next
	// instruction" at all times except mid-branch.
	instructionPC uint32

	// activeStack is the nest of currently-active exception numbers, used
	// to compute the effective execution priority for preemption checks
	// (§3.5 invariant).
	activeStack []int

	// justSetIT suppresses advanceIT for the instruction that itself
	// populated the IT shadow queue (§4.2).
	justSetIT bool

	// halted becomes true when BKPT retires; the stop-condition evaluator
	// reports "halt" for this (§4.7 item 3).
	halted bool

	// memFault* record a bus failure observed by the load/store helpers in
	// access.go during the instruction just executed, consumed once per
	// Step via pendingMemoryFault.
	memFaultPending bool
	memFaultAddr    uint32
}

// NewCore constructs a Core over the given bus-shaped memory and shared
// interrupt-controller state.
func NewCore(mem Memory, sys InterruptController, decodeCacheEnabled bool) *Core {
	c := &Core{mem: mem, sys: sys}
	c.cache.enabled = decodeCacheEnabled
	mem.OnRegionModified(c.cache.invalidate)
	return c
}

// Reset initialises SP and PC from the vector table at VTOR (§3.2, §6.3).
func (c *Core) Reset() {
	c.Registers = [NumRegisters]uint32{}
	c.Status.reset()
	c.activeStack = nil
	c.halted = false
	c.cache.reset()

	vtor := c.sys.VTOR()
	sp, err := c.mem.ReadU32(vtor + 0)
	if err != nil {
		logger.Logf("arm", "reset: failed to read initial SP from vector table at %#08x: %s", vtor, err)
		return
	}
	pcRaw, err := c.mem.ReadU32(vtor + 4)
	if err != nil {
		logger.Logf("arm", "reset: failed to read initial PC from vector table at %#08x: %s", vtor+4, err)
		return
	}

	c.Registers[RSP] = sp
	if pcRaw&1 == 0 {
		// §6.3: "bit 0 of the vector must be 1 (else raise HardFault on
		// reset)".
		logger.Logf("arm", "reset: vector %#08x has Thumb bit clear, entering HardFault", pcRaw)
		c.sys.SetPending(ExcHardFault, true)
		c.takeException(ExcHardFault)
		return
	}
	c.Registers[RPC] = pcRaw &^ 1
}

// PC returns the address of the next instruction to be fetched.
func (c *Core) PC() uint32 { return c.Registers[RPC] }

// SetPC forces the program counter, masking the Thumb bit, for debug
// control (§4.1).
func (c *Core) SetPC(addr uint32) { c.Registers[RPC] = addr &^ 1 }

// Halted reports whether a BKPT instruction has retired (§4.7 item 3).
func (c *Core) Halted() bool { return c.halted }

// currentPriority is the effective execution priority used for
// preemption checks (§3.5 invariant): Thread mode if no exception is
// active, else the priority of the innermost active exception.
func (c *Core) currentPriority() uint32 {
	if len(c.activeStack) == 0 {
		return threadPriority
	}
	return c.sys.Priority(c.activeStack[len(c.activeStack)-1])
}

// StepResult reports the outcome of one Core.Step call to the Machine
// (§4.1, §7).
type StepResult struct {
	Retired         bool
	Cycles          uint64
	MemoryViolation bool
	ViolationAddr   uint32
	DecodeError     bool
	DecodeErrorAddr uint32
	Halted          bool
}

// Step fetches, decodes and executes exactly one Thumb/Thumb-2
// instruction, first taking any exception that has become takeable
// (§3.2 invariant, §4.1, §4.2 Exception entry).
func (c *Core) Step() StepResult {
	if num, ok := c.sys.Takeable(c.currentPriority()); ok {
		c.takeException(num)
	}

	pc := c.Registers[RPC]
	hw1, err := c.mem.ReadU16(pc)
	if err != nil {
		return c.faultOnFetch(pc, err)
	}

	wide := hw1&0xF800 == 0xE800 || hw1&0xF800 == 0xF000 || hw1&0xF800 == 0xF800
	var opcodeWord uint32
	var nextPC uint32
	if wide {
		hw2, err := c.mem.ReadU16(pc + 2)
		if err != nil {
			return c.faultOnFetch(pc+2, err)
		}
		opcodeWord = uint32(hw1)<<16 | uint32(hw2)
		nextPC = pc + 4
	} else {
		opcodeWord = uint32(hw1)
		nextPC = pc + 2
	}

	fn, decodeErr := c.decode(pc, opcodeWord, wide)
	if decodeErr != nil {
		return c.faultOnDecode(pc, decodeErr)
	}

	c.instructionPC = pc
	c.Registers[RPC] = nextPC
	c.justSetIT = false
	c.memFaultPending = false

	wasInIT := c.Status.inITBlock()
	skip := !c.Status.itConditionPasses()
	if !skip {
		fn(c)
	}
	if wasInIT && !c.justSetIT {
		c.Status.advanceIT()
	}

	cycles := uint64(1)
	if wide {
		cycles = 2
	}

	if addr, ok := c.pendingMemoryFault(); ok {
		if c.enterArchitecturalFault(ExcBusFault) {
			return StepResult{Retired: true, Cycles: cycles}
		}
		return StepResult{Retired: true, Cycles: cycles, MemoryViolation: true, ViolationAddr: addr}
	}

	if c.halted {
		return StepResult{Retired: true, Cycles: cycles, Halted: true}
	}

	return StepResult{Retired: true, Cycles: cycles}
}

func (c *Core) faultOnFetch(addr uint32, err error) StepResult {
	if c.enterArchitecturalFault(ExcHardFault) {
		return StepResult{Retired: true}
	}
	return StepResult{Retired: true, MemoryViolation: true, ViolationAddr: addr}
}

func (c *Core) faultOnDecode(addr uint32, err error) StepResult {
	logger.Logf("arm", "decode error at %#08x: %s", addr, err)
	if c.enterArchitecturalFault(ExcUsageFault) {
		return StepResult{Retired: true}
	}
	return StepResult{Retired: true, DecodeError: true, DecodeErrorAddr: addr}
}

// pendingMemoryFault reports and clears a memory access fault observed
// during the instruction just executed.
func (c *Core) pendingMemoryFault() (uint32, bool) {
	if !c.memFaultPending {
		return 0, false
	}
	c.memFaultPending = false
	return c.memFaultAddr, true
}
