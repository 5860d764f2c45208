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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
)

func mkOp(counter uint64, actor uint32, v int64) *opmodel.Op {
	return &opmodel.Op{
		ID:     actorid.OpId{Counter: counter, Actor: actor},
		Action: opmodel.MakePut(opmodel.Int(v)),
	}
}

func TestInsertAndVisibleLen(t *testing.T) {
	tr := New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})

	op1 := mkOp(1, 0, 10)
	pos1 := tr.Insert(-1, op1)
	op2 := mkOp(2, 0, 20)
	tr.Insert(pos1, op2)

	require.Equal(t, 2, tr.Len())
	require.Equal(t, 2, tr.VisibleLen())
}

func TestByIDAndPosOf(t *testing.T) {
	tr := New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	op1 := mkOp(1, 0, 10)
	tr.Insert(-1, op1)

	got, ok := tr.ByID(op1.ID)
	require.True(t, ok)
	require.Equal(t, op1.ID, got.ID)

	pos, ok := tr.PosOf(op1.ID)
	require.True(t, ok)
	idx := tr.IndexOf(pos)
	require.Equal(t, 0, idx)
}

func TestDeletedOpIsNotVisible(t *testing.T) {
	tr := New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	op1 := mkOp(1, 0, 10)
	tr.Insert(-1, op1)
	require.Equal(t, 1, tr.VisibleLen())

	op1.AddSucc(actorid.OpId{Counter: 2, Actor: 0})
	require.False(t, op1.Visible())

	tr.Update(0, func(o *opmodel.Op) {})
	require.Equal(t, 0, tr.VisibleLen())
}

func TestEachInOrderWalksInsertionPositionOrder(t *testing.T) {
	tr := New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	first := mkOp(1, 0, 1)
	p1 := tr.Insert(-1, first)
	second := mkOp(2, 0, 2)
	p2 := tr.Insert(p1, second)
	third := mkOp(3, 0, 3)
	tr.Insert(p2, third)

	var vals []int64
	tr.EachInOrder(func(op *opmodel.Op) {
		vals = append(vals, op.Action.Put.Int)
	})
	require.Equal(t, []int64{1, 2, 3}, vals)
}
