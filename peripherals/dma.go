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

package peripherals

import "github.com/w1ne/labwired-core-sub000/peripheral"

const dmaChannelCount = 7

const (
	dmaChanStride = 0x14 // CCR, CNDTR, CPAR, CMAR, reserved

	dmaChanOffCCR   = 0x00
	dmaChanOffCNDTR = 0x04
	dmaChanOffCPAR  = 0x08
	dmaChanOffCMAR  = 0x0C
)

const (
	dmaCCREN   = 1 << 0
	dmaCCRTCIE = 1 << 1
	dmaCCRDIR  = 1 << 4 // 0: read from peripheral, 1: read from memory
	dmaCCRPINC = 1 << 6 // peripheral address increments after each unit
	dmaCCRMINC = 1 << 7 // memory address increments after each unit
)

type dmaChannel struct {
	ccr   uint32
	cndtr uint32
	cpar  uint32
	cmar  uint32
}

// DMA is a 7-channel memory-to-memory/peripheral DMA controller, in the
// style of STM32's DMA1 (§3.4, §4.4, §8.3 scenario E5 "mem-to-mem
// transfer"). Each enabled channel copies one unit per heartbeat while
// CNDTR is non-zero, then raises its transfer-complete interrupt.
type DMA struct {
	irqBase int // IRQ number of channel 0; channels are irqBase+n
	chans   [dmaChannelCount]dmaChannel
}

// NewDMA constructs a reset DMA controller whose channel n asserts IRQ
// irqBase+n on completion (irqBase<0 disables all channel interrupts).
func NewDMA(irqBase int) *DMA {
	d := &DMA{irqBase: irqBase}
	d.Reset()
	return d
}

func (d *DMA) chanOf(offset uint32) (int, uint32) {
	n := int(offset / dmaChanStride)
	if n >= dmaChannelCount {
		return -1, 0
	}
	return n, offset % dmaChanStride
}

func (d *DMA) Read(offset uint32, side peripheral.AccessKind) uint8 {
	n, rel := d.chanOf(offset)
	if n < 0 {
		return 0
	}
	ch := &d.chans[n]
	switch rel &^ 0x3 {
	case dmaChanOffCCR:
		return regByte(ch.ccr, rel)
	case dmaChanOffCNDTR:
		return regByte(ch.cndtr, rel)
	case dmaChanOffCPAR:
		return regByte(ch.cpar, rel)
	case dmaChanOffCMAR:
		return regByte(ch.cmar, rel)
	}
	return 0
}

func (d *DMA) Write(offset uint32, val uint8) {
	n, rel := d.chanOf(offset)
	if n < 0 {
		return
	}
	ch := &d.chans[n]
	base := rel &^ 0x3
	shift := (rel & 0x3) * 8
	mask := uint32(0xFF) << shift

	switch base {
	case dmaChanOffCCR:
		ch.ccr = (ch.ccr &^ mask) | uint32(val)<<shift
	case dmaChanOffCNDTR:
		ch.cndtr = (ch.cndtr &^ mask) | uint32(val)<<shift
	case dmaChanOffCPAR:
		ch.cpar = (ch.cpar &^ mask) | uint32(val)<<shift
	case dmaChanOffCMAR:
		ch.cmar = (ch.cmar &^ mask) | uint32(val)<<shift
	}
}

// Tick transfers one unit per enabled, non-exhausted channel, producing a
// Copy DmaRequest the bus will perform during the DMA-resolution phase of
// the heartbeat, and asserts the channel's IRQ once CNDTR reaches zero
// (§4.4).
func (d *DMA) Tick() peripheral.TickResult {
	var result peripheral.TickResult
	for i := range d.chans {
		ch := &d.chans[i]
		if ch.ccr&dmaCCREN == 0 || ch.cndtr == 0 {
			continue
		}

		src, dst := ch.cpar, ch.cmar
		if ch.ccr&dmaCCRDIR != 0 {
			src, dst = ch.cmar, ch.cpar
		}
		result.DMARequests = append(result.DMARequests, peripheral.DmaRequest{
			Direction:   peripheral.Copy,
			Source:      src,
			Destination: dst,
		})

		if ch.ccr&dmaCCRPINC != 0 {
			ch.cpar++
		}
		if ch.ccr&dmaCCRMINC != 0 {
			ch.cmar++
		}
		ch.cndtr--

		if ch.cndtr == 0 && ch.ccr&dmaCCRTCIE != 0 && d.irqBase >= 0 {
			result.IRQNumbers = append(result.IRQNumbers, d.irqBase+i)
		}
		result.Cycles++
	}
	return result
}

type dmaChannelSnapshot struct {
	CCR, CNDTR, CPAR, CMAR uint32
}

func (d *DMA) Snapshot() any {
	snap := make([]dmaChannelSnapshot, dmaChannelCount)
	for i, ch := range d.chans {
		snap[i] = dmaChannelSnapshot{CCR: ch.ccr, CNDTR: ch.cndtr, CPAR: ch.cpar, CMAR: ch.cmar}
	}
	return snap
}

func (d *DMA) Reset() {
	for i := range d.chans {
		d.chans[i] = dmaChannel{}
	}
}
