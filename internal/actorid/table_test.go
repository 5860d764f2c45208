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

package actorid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableInternIsIdempotent(t *testing.T) {
	tbl := NewTable()
	a := ActorId{0x01, 0x02}
	idx1 := tbl.Intern(a)
	idx2 := tbl.Intern(append(ActorId(nil), a...))
	require.Equal(t, idx1, idx2)
	require.Equal(t, 1, tbl.Len())
	require.True(t, tbl.Lookup(idx1).Equal(a))
}

func TestTableSortedIsLexicographic(t *testing.T) {
	tbl := NewTable()
	tbl.Intern(ActorId{0x03})
	tbl.Intern(ActorId{0x01})
	tbl.Intern(ActorId{0x02})
	sorted := tbl.Sorted()
	require.Len(t, sorted, 3)
	require.Equal(t, ActorId{0x01}, sorted[0])
	require.Equal(t, ActorId{0x02}, sorted[1])
	require.Equal(t, ActorId{0x03}, sorted[2])
}

func TestTableMergeRemapsIndices(t *testing.T) {
	dst := NewTable()
	dst.Intern(ActorId{0xAA})

	src := NewTable()
	src.Intern(ActorId{0xAA}) // already known to dst
	src.Intern(ActorId{0xBB}) // new to dst

	remap := dst.Merge(src)
	require.Len(t, remap, 2)
	require.Equal(t, uint32(0), remap[0])
	require.Equal(t, uint32(1), remap[1])
	require.Equal(t, 2, dst.Len())
}
