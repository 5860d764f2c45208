// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
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

// Package mathutil collects the small integer helpers the backend needs
// for bloom-filter sizing (§4.6.2) and counter overflow checks (§3.2
// Increment) — the same grab-bag role
// erigon-lib/common/math plays for the node.
package mathutil

import (
	"math/bits"
)

// SafeMul returns x*y and whether the multiplication overflowed a
// uint64. Used when sizing a Bloom filter's bit array from an entry
// count and bits-per-entry (§4.6.2).
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// SafeAdd returns x+y and whether the addition overflowed a uint64.
// automerge.Document.Increment uses it to log a warning when a delta
// would wrap the Counter's current materialised value (§4.2.4, §8 P7).
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

