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

import "github.com/w1ne/labwired-core-sub000/logger"

// takeException performs architectural exception entry (§4.2 Exception
// entry, §6.3): push {xPSR, PC, LR, R12, R3, R2, R1, R0} onto the current
// stack in that architected order (low-to-high addresses:
// R0,R1,R2,R3,R12,LR,PC,xPSR, i.e. the pushes happen in reverse so that the
// lowest address holds R0), set LR to an EXC_RETURN encoding, look up the
// handler address in the vector table, and clear the NVIC pending bit for
// external IRQs.
func (c *Core) takeException(num int) {
	sp := c.Registers[RSP] - 32
	c.Registers[RSP] = sp

	xpsr := c.Status.packAPSR() | c.Status.packEPSR() | uint32(num)

	type save struct {
		off uint32
		val uint32
	}
	frame := [8]save{
		{0, c.Registers[0]},
		{4, c.Registers[1]},
		{8, c.Registers[2]},
		{12, c.Registers[3]},
		{16, c.Registers[12]},
		{20, c.Registers[RLR]},
		{24, c.Registers[RPC]},
		{28, xpsr},
	}
	for _, f := range frame {
		if err := c.mem.WriteU32(sp+f.off, f.val); err != nil {
			logger.Logf("arm", "exception entry: failed to stack frame word at %#08x: %s", sp+f.off, err)
		}
	}

	// EXC_RETURN: return to Thread mode using the main stack, matching
	// this core's single-stack model (no process stack is modelled).
	c.Registers[RLR] = 0xFFFFFFF9

	vtor := c.sys.VTOR()
	handler, err := c.mem.ReadU32(vtor + 4*uint32(num))
	if err != nil {
		logger.Logf("arm", "exception entry: failed to read vector %d at %#08x: %s", num, vtor+4*uint32(num), err)
		return
	}
	if handler&1 == 0 {
		logger.Logf("arm", "exception entry: vector %d (%#08x) has Thumb bit clear", num, handler)
	}
	c.Registers[RPC] = handler &^ 1

	if num >= 16 {
		c.sys.SetPending(num, false)
	}
	c.sys.SetActive(num, true)
	c.activeStack = append(c.activeStack, num)
}

// exceptionReturn performs architectural exception exit (§4.2 Exception
// exit): pop the architectural frame in reverse order, restore xPSR
// (including IT state), and branch to the restored PC. Recognised when a
// write to PC carries the EXC_RETURN pattern (§9 Design Notes).
func (c *Core) exceptionReturn(excReturn uint32) {
	sp := c.Registers[RSP]

	load := func(off uint32) uint32 {
		v, err := c.mem.ReadU32(sp + off)
		if err != nil {
			logger.Logf("arm", "exception return: failed to unstack word at %#08x: %s", sp+off, err)
		}
		return v
	}

	c.Registers[0] = load(0)
	c.Registers[1] = load(4)
	c.Registers[2] = load(8)
	c.Registers[3] = load(12)
	c.Registers[12] = load(16)
	c.Registers[RLR] = load(20)
	returnPC := load(24)
	xpsr := load(28)

	c.Registers[RSP] = sp + 32

	c.Status.unpackAPSR(xpsr)
	c.Status.unpackEPSR(xpsr)
	c.Registers[RPC] = returnPC &^ 1

	if len(c.activeStack) > 0 {
		num := c.activeStack[len(c.activeStack)-1]
		c.activeStack = c.activeStack[:len(c.activeStack)-1]
		c.sys.SetActive(num, false)
	}

	_ = excReturn
}

// writePC performs a branch-target write to the program counter (BX, POP
// {PC}, LDR PC, ..., §4.2 Execute). It detects EXC_RETURN patterns and
// otherwise enforces the Thumb-bit invariant (§3.2 invariant: "a branch
// target with bit 0 clear raises a UsageFault").
func (c *Core) writePC(value uint32) {
	if isExcReturn(value) {
		c.exceptionReturn(value)
		return
	}
	if value&1 == 0 {
		logger.Logf("arm", "branch target %#08x has Thumb bit clear", value)
		if c.enterArchitecturalFault(ExcUsageFault) {
			return
		}
	}
	c.Registers[RPC] = value &^ 1
}

// enterArchitecturalFault takes the named fault exception if its vector
// is valid (non-zero and enabled for delivery), recording the attempt
// so the core doesn't recurse forever on a faulting fault handler. It
// returns true if the fault was taken (recoverable, per §7), false if the
// condition should escalate to a terminal stop.
func (c *Core) enterArchitecturalFault(num int) bool {
	vtor := c.sys.VTOR()
	handler, err := c.mem.ReadU32(vtor + 4*uint32(num))
	if err != nil || handler == 0 {
		return false
	}
	// a fault while already active for the same exception number means
	// the handler itself faulted: escalate rather than loop (§7: "only if
	// the fault handler itself faults ... does it escalate to terminal").
	for _, active := range c.activeStack {
		if active == num {
			return false
		}
	}
	c.sys.SetPending(num, true)
	c.takeException(num)
	return true
}
