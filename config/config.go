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

// Package config carries the resolved simulation configuration (§3.7).
// Like manifest, the YAML/JSON/CLI layer that produces a Simulation value
// is an external collaborator (§1); this package only defines the shape
// and its defaults.
package config

import "math"

// Simulation is the option set from §3.7. Optional limits use pointers so
// that "unset" is distinguishable from zero.
type Simulation struct {
	// PeripheralTickInterval: bus ticks peripherals every N retired
	// instructions. Must be >=1; N=1 is strictly accurate.
	PeripheralTickInterval uint64

	// DecodeCacheEnabled enables the CPU's direct-mapped decode cache.
	DecodeCacheEnabled bool

	// MaxSteps terminates the run when retired instruction count >= value.
	MaxSteps uint64

	// MaxCycles, if set, terminates when cumulative cycle count >= value.
	MaxCycles *uint64

	// MaxUARTBytes, if set, terminates when the captured UART stream size
	// >= value.
	MaxUARTBytes *uint64

	// NoProgressSteps, if set, terminates if PC is unchanged for this many
	// consecutive retired instructions.
	NoProgressSteps *uint64

	// WallTimeMS, if set, terminates when host monotonic elapsed >= value.
	// This is the only non-deterministic input (§3.7); unset by default.
	WallTimeMS *uint64

	// Breakpoints terminates with reason "halt" when PC matches any
	// member.
	Breakpoints map[uint32]bool
}

// Default returns a Simulation with PeripheralTickInterval=1 (strictly
// accurate per §3.7), decode cache enabled, and MaxSteps set to a large
// but finite bound so a Machine always terminates even with no explicit
// limit configured. All other limits are unset.
func Default() Simulation {
	return Simulation{
		PeripheralTickInterval: 1,
		DecodeCacheEnabled:     true,
		MaxSteps:               math.MaxUint64 / 2,
		Breakpoints:            map[uint32]bool{},
	}
}

// Validate returns a ConfigError-flavoured error if the configuration is
// not constructible (§7): PeripheralTickInterval must be >=1.
func (c Simulation) Validate() error {
	if c.PeripheralTickInterval == 0 {
		return errConfig("peripheral_tick_interval must be >= 1")
	}
	return nil
}

type configError string

func (e configError) Error() string { return "config error: " + string(e) }

func errConfig(msg string) error { return configError(msg) }
