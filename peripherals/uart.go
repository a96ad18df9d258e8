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

// Package peripherals holds the built-in memory-mapped devices (§3.4,
// §4.5): each implements peripheral.Peripheral and is constructed from a
// resolved manifest.PeripheralConfig by the machine package.
package peripherals

import "github.com/w1ne/labwired-core-sub000/peripheral"

// UART register offsets, modelled on the common STM32-family USART layout
// (status + data, minus baud/control detail this core doesn't need to
// simulate byte-level framing).
const (
	uartOffSR = 0x00 // status register
	uartOffDR = 0x04 // data register
)

const (
	uartSRTXE = 1 << 7 // transmit data register empty
	uartSRTC  = 1 << 6 // transmission complete
	uartSRRXNE = 1 << 5 // read data register not empty
)

// UART is a minimal transmit/receive-capable serial port (§3.4, §8.3
// scenario E1 "UART hello"). Writes to DR append to an internal output
// buffer that the stop-condition evaluator's max_uart_bytes counter and
// any test harness can read back via Output.
type UART struct {
	irq int

	sr     uint8
	txByte uint8

	output []byte

	rxQueue []byte
}

// NewUART constructs a UART wired to the given IRQ line (-1 for none).
func NewUART(irq int) *UART {
	u := &UART{irq: irq}
	u.Reset()
	return u
}

func (u *UART) IRQLine() int { return u.irq }

func (u *UART) Read(offset uint32, side peripheral.AccessKind) uint8 {
	switch offset {
	case uartOffSR:
		return u.sr
	case uartOffDR:
		v := u.txByte
		if side == peripheral.Live && len(u.rxQueue) > 0 {
			v = u.rxQueue[0]
			u.rxQueue = u.rxQueue[1:]
			if len(u.rxQueue) == 0 {
				u.sr &^= uartSRRXNE
			}
		}
		return v
	}
	return 0
}

func (u *UART) Write(offset uint32, val uint8) {
	if offset != uartOffDR {
		return
	}
	u.txByte = val
	u.output = append(u.output, val)
	u.sr |= uartSRTXE | uartSRTC
}

// Tick asserts the configured IRQ line on every heartbeat while TC is set.
// TC is set by the first DR write and stays set until Reset, modelling a
// TXE/TC interrupt
// enabled unconditionally (this simplified UART has no CR1 TXEIE/TCIE
// gating bits, since the descriptor-backed declarative engine is the
// intended home for finer-grained register behaviour, per §3.6).
func (u *UART) Tick() peripheral.TickResult {
	if u.irq < 0 || u.sr&uartSRTC == 0 {
		return peripheral.TickResult{}
	}
	return peripheral.TickResult{IRQAsserted: true}
}

// Output returns the bytes transmitted so far, for the max_uart_bytes
// stop condition and for test assertions (§4.7, §8.3 E1).
func (u *UART) Output() []byte {
	out := make([]byte, len(u.output))
	copy(out, u.output)
	return out
}

// Feed queues bytes for a subsequent DR read, modelling inbound serial
// traffic a test harness wants to inject.
func (u *UART) Feed(data []byte) {
	u.rxQueue = append(u.rxQueue, data...)
	if len(u.rxQueue) > 0 {
		u.sr |= uartSRRXNE
	}
}

type uartSnapshot struct {
	SR          uint8
	BytesSent   int
	BytesQueued int
}

func (u *UART) Snapshot() any {
	return uartSnapshot{SR: u.sr, BytesSent: len(u.output), BytesQueued: len(u.rxQueue)}
}

func (u *UART) Reset() {
	u.sr = uartSRTXE
	u.txByte = 0
	u.output = nil
	u.rxQueue = nil
}
