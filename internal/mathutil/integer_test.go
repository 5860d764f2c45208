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

package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSafeAddNoOverflow(t *testing.T) {
	sum, overflow := SafeAdd(2, 3)
	require.False(t, overflow)
	require.Equal(t, uint64(5), sum)
}

func TestSafeAddOverflow(t *testing.T) {
	_, overflow := SafeAdd(math.MaxUint64, 1)
	require.True(t, overflow)
}

func TestSafeMulNoOverflow(t *testing.T) {
	prod, overflow := SafeMul(6, 7)
	require.False(t, overflow)
	require.Equal(t, uint64(42), prod)
}

func TestSafeMulOverflow(t *testing.T) {
	_, overflow := SafeMul(math.MaxUint64, 2)
	require.True(t, overflow)
}

func TestSafeAddMatchesPlainSumForHalfRangeInputs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.Uint64Range(0, math.MaxUint64/2).Draw(rt, "x")
		y := rapid.Uint64Range(0, math.MaxUint64/2).Draw(rt, "y")
		sum, overflow := SafeAdd(x, y)
		require.False(t, overflow)
		require.Equal(t, x+y, sum)
	})
}
