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

// decode consults the decode cache before doing any bit-extraction work,
// and stores the result on a miss (§4.2). wide selects between the 16-bit
// Thumb and 32-bit Thumb-2 instruction sets; Core.Step has already decided
// this from the first halfword before calling decode.
func (c *Core) decode(pc uint32, opcodeWord uint32, wide bool) (op, error) {
	if fn, ok := c.cache.lookup(pc, opcodeWord, wide); ok {
		return fn, nil
	}

	var fn op
	var err error
	if wide {
		fn, err = decodeThumb32(opcodeWord)
	} else {
		fn, err = decodeThumb16(uint16(opcodeWord))
	}
	if err != nil {
		return nil, err
	}

	c.cache.store(pc, opcodeWord, wide, fn)
	return fn, nil
}
