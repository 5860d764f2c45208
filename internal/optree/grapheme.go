// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package optree

import "unicode"

// graphemeCount implements a reduced approximation of UAX #29 grapheme
// cluster boundaries: combining marks attach to the rune they follow, a
// zero-width joiner joins the rune after it to the current cluster (so a
// ZWJ emoji sequence counts once), CR LF counts once, and regional
// indicators pair up. No
// corpus dependency covers this narrow a slice of Unicode segmentation,
// so it is hand-rolled rather than routed through a library (the one
// ambient concern in this package not grounded on a third-party dep).
func graphemeCount(s string) int {
	count := 0
	riPending := false
	joinNext := false
	prevCR := false
	for _, r := range s {
		afterCR := prevCR
		prevCR = r == '\r'
		switch {
		case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Me, r):
			continue
		case r == 0x200D: // zero-width joiner
			joinNext = count > 0
			continue
		case joinNext, afterCR && r == '\n':
			joinNext = false
			continue
		case isRegionalIndicator(r):
			if riPending {
				riPending = false
				continue
			}
			riPending = true
			count++
		default:
			riPending = false
			count++
		}
	}
	return count
}

func isRegionalIndicator(r rune) bool { return r >= 0x1F1E6 && r <= 0x1F1FF }
