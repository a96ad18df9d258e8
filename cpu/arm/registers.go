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

// Register indices for the 16 general-purpose registers (§3.2): R13=SP,
// R14=LR, R15=PC.
const (
	RSP = 13
	RLR = 14
	RPC = 15

	NumRegisters = 16
)

// EXCReturnMask is the top-nibble pattern that identifies an EXC_RETURN
// value loaded into the PC (§4.2 Exception exit, §9 Design Notes).
const excReturnMask = 0xFFFFFFF0

func isExcReturn(v uint32) bool {
	return v&excReturnMask == excReturnMask
}
