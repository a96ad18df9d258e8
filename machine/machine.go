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

// Package machine ties the CPU, bus and shared interrupt state together
// into the single-step simulation loop (§4.1): it owns exactly one CPU
// variant, one *bus.Bus and one *system.State, and drives the step/
// heartbeat/stop-condition cycle the rest of this core is built to serve.
//
// Grounded on the teacher's top-level VCS/hardware orchestration, which
// likewise owns one CPU, one bus and the observer/snapshot machinery
// around it (hardware/hardware.go's VCS struct coordinating CPU, memory and
// television in lockstep) — generalised here from a fixed Atari topology to
// a manifest-driven one.
package machine

import (
	"time"

	"github.com/w1ne/labwired-core-sub000/bus"
	"github.com/w1ne/labwired-core-sub000/config"
	"github.com/w1ne/labwired-core-sub000/cpu/arm"
	"github.com/w1ne/labwired-core-sub000/cpu/riscv"
	"github.com/w1ne/labwired-core-sub000/logger"
	"github.com/w1ne/labwired-core-sub000/manifest"
	"github.com/w1ne/labwired-core-sub000/system"
)

// StopReason identifies why a run terminated (§3.8).
type StopReason int

const (
	StopNone StopReason = iota
	StopMaxSteps
	StopMaxCycles
	StopMaxUARTBytes
	StopNoProgress
	StopWallTime
	StopMemoryViolation
	StopDecodeError
	StopHalt
	StopConfigError
)

func (r StopReason) String() string {
	switch r {
	case StopMaxSteps:
		return "max_steps"
	case StopMaxCycles:
		return "max_cycles"
	case StopMaxUARTBytes:
		return "max_uart_bytes"
	case StopNoProgress:
		return "no_progress"
	case StopWallTime:
		return "wall_time"
	case StopMemoryViolation:
		return "memory_violation"
	case StopDecodeError:
		return "decode_error"
	case StopHalt:
		return "halt"
	case StopConfigError:
		return "config_error"
	default:
		return "none"
	}
}

// StopResult is the terminal outcome of a run, carrying the detail needed
// for memory_violation(addr) and decode_error(addr) (§3.8).
type StopResult struct {
	Reason StopReason
	Addr   uint32
}

// cpuCore is the narrow surface Machine needs from either architecture's
// Core, so the step loop does not need a type switch on every call.
type cpuCore interface {
	Step() StepOutcome
	Halted() bool
	Reset()
}

// StepOutcome unifies arm.StepResult and riscv.StepResult, which are
// structurally identical by design (§4.1, §7) but distinct named types
// since the two CPU packages deliberately share no common type.
type StepOutcome struct {
	Retired         bool
	Cycles          uint64
	MemoryViolation bool
	ViolationAddr   uint32
	DecodeError     bool
	DecodeErrorAddr uint32
	Halted          bool
}

// armAdapter and riscvAdapter let Machine hold a single cpuCore interface
// value regardless of architecture, without either cpu package knowing
// about the other or about Machine.
type armAdapter struct{ c *arm.Core }

func (a armAdapter) Step() StepOutcome { return StepOutcome(a.c.Step()) }
func (a armAdapter) Halted() bool     { return a.c.Halted() }
func (a armAdapter) Reset()           { a.c.Reset() }

type riscvAdapter struct {
	c     *riscv.Core
	entry uint32
}

func (a riscvAdapter) Step() StepOutcome { return StepOutcome(a.c.Step()) }
func (a riscvAdapter) Halted() bool     { return a.c.Halted() }
func (a riscvAdapter) Reset()           { a.c.Reset(a.entry) }

// Observer receives pre- and post-step callbacks (§4.1).
type Observer interface {
	PreStep(m *Machine)
	PostStep(m *Machine, result StepOutcome)
}

// Metrics tracks the deterministic counters the stop-condition evaluator
// and snapshot consume (§3.7, §3.8, §6.2).
type Metrics struct {
	InstructionsRetired uint64
	Cycles              uint64
	lastPC              uint32
	noProgressRun       uint64
	havePC              bool
}

// Machine owns one CPU, one bus and the shared interrupt-controller state,
// and drives the step loop (§4.1, §5).
type Machine struct {
	arch manifest.Architecture
	core cpuCore
	bus  *bus.Bus
	sys  *system.State
	cfg  config.Simulation

	metrics   Metrics
	observers []Observer

	startWall time.Time
	stopped   bool
	result    StopResult

	pcReader          func() uint32
	uartByteCountFunc func() uint64
}

// New constructs a Machine for the given resolved manifest and
// configuration. cfg is validated first (§7): an invalid configuration
// returns a nil Machine and the validation error.
func New(sys manifest.System, cfg config.Simulation) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := system.New()
	state.Reset(0)

	m := &Machine{arch: sys.Architecture, sys: state, cfg: cfg}
	return m, nil
}

// AttachBus wires the already-constructed bus (built by the caller from
// the manifest's memory regions and peripheral configs, since peripheral
// construction depends on packages machine does not need to import
// directly). The CPU core is attached separately, with AttachARMCore or
// AttachRISCVCore.
func (m *Machine) AttachBus(b *bus.Bus) { m.bus = b }

// AttachARMCore wires an ARMv7-M core, for Architecture == ArmV7M.
func (m *Machine) AttachARMCore(c *arm.Core) { m.core = armAdapter{c: c} }

// AttachRISCVCore wires an RV32I core, for Architecture == Rv32I. entry is
// the ELF entry point used on every Reset, since RV32I has no vector-table
// reset path (§4.3).
func (m *Machine) AttachRISCVCore(c *riscv.Core, entry uint32) {
	m.core = riscvAdapter{c: c, entry: entry}
}

// AddObserver registers an observer invoked around every Step (§4.1).
func (m *Machine) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// State returns the shared interrupt-controller state, for peripheral
// construction (NVIC/SCB wrap it directly) and debug inspection.
func (m *Machine) State() *system.State { return m.sys }

// Bus returns the attached bus, for debug-interface memory access.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// Reset resets the CPU and every peripheral (§4.1's debug control
// interface). VTOR preservation across warm reset is the SCB's own
// concern, exercised through Bus.Reset.
func (m *Machine) Reset() {
	m.core.Reset()
	m.bus.Reset()
	m.metrics = Metrics{}
	m.stopped = false
	m.result = StopResult{}
	logger.Log("machine", "reset")
}

// Halted reports whether the Machine has stopped (terminal state reached).
func (m *Machine) Halted() bool { return m.stopped }

// StopResult returns the terminal stop reason, valid once Halted is true.
func (m *Machine) StopResult() StopResult { return m.result }

// Metrics returns a copy of the current deterministic counters (§6.2).
func (m *Machine) Metrics() Metrics { return m.metrics }

// Step advances exactly one retired instruction, then performs zero or one
// bus heartbeat according to peripheral_tick_interval, then evaluates stop
// conditions (§4.1). Calling Step after the Machine has already stopped is
// a no-op that re-returns the recorded result.
func (m *Machine) Step() StopResult {
	if m.stopped {
		return m.result
	}
	if m.startWall.IsZero() {
		m.startWall = wallClockNow()
	}

	for _, o := range m.observers {
		o.PreStep(m)
	}

	res := m.core.Step()

	m.metrics.InstructionsRetired++
	m.metrics.Cycles += res.Cycles
	m.trackProgress()

	var heartbeat bus.HeartbeatResult
	if m.cfg.PeripheralTickInterval == 1 || m.metrics.InstructionsRetired%m.cfg.PeripheralTickInterval == 0 {
		heartbeat = m.bus.Heartbeat()
		m.metrics.Cycles += heartbeat.CyclesAdded
	}

	for _, o := range m.observers {
		o.PostStep(m, res)
	}

	if reason, addr, fired := m.evaluateStop(res, heartbeat); fired {
		m.stopped = true
		m.result = StopResult{Reason: reason, Addr: addr}
		logger.Logf("machine", "stopped: %s at %#08x", reason, addr)
	}
	return m.result
}

// trackProgress maintains the no_progress_steps counter (§3.7): it counts
// consecutive retired instructions whose PC (read via pcReader, wired by
// the caller since Machine has no architecture-specific PC accessor of
// its own) is unchanged.
func (m *Machine) trackProgress() {
	if m.pcReader == nil {
		return
	}
	pc := m.pcReader()
	if m.metrics.havePC && pc == m.metrics.lastPC {
		m.metrics.noProgressRun++
	} else {
		m.metrics.noProgressRun = 0
	}
	m.metrics.lastPC = pc
	m.metrics.havePC = true
}

// SetPCReader wires the architecture-specific PC accessor used for
// no_progress_steps tracking and breakpoint evaluation.
func (m *Machine) SetPCReader(fn func() uint32) { m.pcReader = fn }

// wallClockNow is isolated so the rest of the package stays free of direct
// time.Now() calls outside this one deliberately-nondeterministic input
// (§3.7's "only non-deterministic input").
func wallClockNow() time.Time { return time.Now() }

// evaluateStop applies the priority-ordered stop-condition evaluator
// (§4.7): breakpoint, then memory/decode fault, then halt instruction,
// then max_steps, then max_cycles, then max_uart_bytes, then no_progress,
// then wall_time.
func (m *Machine) evaluateStop(res StepOutcome, hb bus.HeartbeatResult) (StopReason, uint32, bool) {
	if m.pcReader != nil {
		pc := m.pcReader()
		if m.cfg.Breakpoints[pc] {
			return StopHalt, pc, true
		}
	}

	if res.MemoryViolation {
		return StopMemoryViolation, res.ViolationAddr, true
	}
	if hb.Violation != nil {
		return StopMemoryViolation, hb.Violation.Addr, true
	}
	if res.DecodeError {
		return StopDecodeError, res.DecodeErrorAddr, true
	}
	if res.Halted {
		return StopHalt, 0, true
	}

	if m.metrics.InstructionsRetired >= m.cfg.MaxSteps {
		return StopMaxSteps, 0, true
	}
	if m.cfg.MaxCycles != nil && m.metrics.Cycles >= *m.cfg.MaxCycles {
		return StopMaxCycles, 0, true
	}
	if m.cfg.MaxUARTBytes != nil && m.uartByteCount() >= *m.cfg.MaxUARTBytes {
		return StopMaxUARTBytes, 0, true
	}
	if m.cfg.NoProgressSteps != nil && m.metrics.noProgressRun >= *m.cfg.NoProgressSteps {
		return StopNoProgress, 0, true
	}
	if m.cfg.WallTimeMS != nil {
		elapsed := wallClockNow().Sub(m.startWall)
		if uint64(elapsed.Milliseconds()) >= *m.cfg.WallTimeMS {
			return StopWallTime, 0, true
		}
	}

	return StopNone, 0, false
}

// uartByteCount reports the total bytes captured across all UART
// peripherals, for the max_uart_bytes stop condition.
func (m *Machine) uartByteCount() uint64 {
	if m.uartByteCountFunc == nil {
		return 0
	}
	return m.uartByteCountFunc()
}

// SetUARTByteCounter wires the function Machine calls to total bytes
// captured so far across every UART peripheral on the bus, since Machine
// does not import package peripherals directly (the bus owns peripheral
// instances opaquely behind the peripheral.Peripheral interface).
func (m *Machine) SetUARTByteCounter(fn func() uint64) { m.uartByteCountFunc = fn }

// Run iterates Step until a terminal transition.
func (m *Machine) Run() StopResult {
	for !m.stopped {
		m.Step()
	}
	return m.result
}

// RunUntil iterates Step until a terminal transition or predicate returns
// true (used by debug single-stepping, §4.1).
func (m *Machine) RunUntil(predicate func(*Machine) bool) StopResult {
	for !m.stopped {
		m.Step()
		if predicate(m) {
			break
		}
	}
	return m.result
}
