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

package opmodel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
)

func TestVisibleRequiresEmptySuccAndValueAction(t *testing.T) {
	put := &Op{Action: MakePut(Int(1))}
	require.True(t, put.Visible())

	del := &Op{Action: MakeDelete()}
	require.False(t, del.Visible())

	put.AddSucc(actorid.OpId{Counter: 2, Actor: 0})
	require.False(t, put.Visible())
}

func TestAddSuccIsIdempotentAndSorted(t *testing.T) {
	op := &Op{Action: MakePut(Int(1))}
	op.AddSucc(actorid.OpId{Counter: 5, Actor: 0})
	op.AddSucc(actorid.OpId{Counter: 2, Actor: 0})
	op.AddSucc(actorid.OpId{Counter: 5, Actor: 0}) // duplicate, must not append again

	require.Equal(t, []actorid.OpId{{Counter: 2, Actor: 0}, {Counter: 5, Actor: 0}}, op.Succ)
}

func TestIsValueOpDistinguishesActions(t *testing.T) {
	require.True(t, MakePut(Int(1)).IsValueOp())
	require.True(t, MakeMake(ObjList).IsValueOp())
	require.False(t, MakeDelete().IsValueOp())
	require.False(t, MakeIncrement(1).IsValueOp())
	require.False(t, MakeMarkEnd(false).IsValueOp())
}

func TestScalarValueEqualComparesByKind(t *testing.T) {
	require.True(t, Int(5).Equal(Int(5)))
	require.False(t, Int(5).Equal(Int(6)))
	require.False(t, Int(5).Equal(Uint(5)))
	require.True(t, Str("a").Equal(Str("a")))
	require.True(t, Bytes([]byte{1, 2}).Equal(Bytes([]byte{1, 2})))
	require.True(t, Null().Equal(Null()))
}

func TestSortOpIdsOrdersByCounterThenActor(t *testing.T) {
	ids := []actorid.OpId{
		{Counter: 2, Actor: 1},
		{Counter: 1, Actor: 5},
		{Counter: 2, Actor: 0},
	}
	got := SortOpIds(ids)
	require.Equal(t, []actorid.OpId{
		{Counter: 1, Actor: 5},
		{Counter: 2, Actor: 0},
		{Counter: 2, Actor: 1},
	}, got)
}

func TestObjIdIsRoot(t *testing.T) {
	require.True(t, Root.IsRoot())
	other := ObjId{OpId: actorid.OpId{Counter: 1, Actor: 0}}
	require.False(t, other.IsRoot())
}
