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

import (
	"testing"

	"github.com/w1ne/labwired-core-sub000/peripheral"
)

func TestRCCEnableBitsPassThrough(t *testing.T) {
	r := NewRCC()
	r.Write(rccOffAPB2ENR, 0x04)
	if got := r.Read(rccOffAPB2ENR, peripheral.Live); got != 0x04 {
		t.Fatalf("APB2ENR byte0 = %#x, want 0x04", got)
	}
	r.Reset()
	if got := r.Read(rccOffAPB2ENR, peripheral.Live); got != 0 {
		t.Fatalf("APB2ENR = %#x after Reset, want 0", got)
	}
}
