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

package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/optree"
)

func putOp(counter uint64, actor uint32, key string, v int64) *opmodel.Op {
	return &opmodel.Op{
		ID:     actorid.OpId{Counter: counter, Actor: actor},
		Obj:    opmodel.Root,
		Key:    actorid.MapKey(key),
		Action: opmodel.MakePut(opmodel.Int(v)),
	}
}

func TestWinnerPicksHighestCounter(t *testing.T) {
	actors := []actorid.ActorId{{0x01}, {0x02}}
	a := putOp(1, 0, "k", 10)
	b := putOp(2, 1, "k", 20)
	w := Winner([]*opmodel.Op{a, b}, actors)
	require.Same(t, b, w)
}

func TestWinnerBreaksTiesByActor(t *testing.T) {
	actors := []actorid.ActorId{{0x01}, {0x02}}
	a := putOp(5, 0, "k", 10)
	b := putOp(5, 1, "k", 20)
	w := Winner([]*opmodel.Op{a, b}, actors)
	// actor index 1 ({0x02}) sorts after {0x01}, so it wins the tie.
	require.Same(t, b, w)
}

func TestWinnerEmptyReturnsNil(t *testing.T) {
	require.Nil(t, Winner(nil, nil))
}

func TestAllValuesSortedDescending(t *testing.T) {
	actors := []actorid.ActorId{{0x01}, {0x02}}
	a := putOp(1, 0, "k", 10)
	b := putOp(3, 0, "k", 30)
	c := putOp(2, 0, "k", 20)
	out := AllValues([]*opmodel.Op{a, b, c}, actors)
	require.Equal(t, []int64{30, 20, 10}, []int64{out[0].Action.Put.Int, out[1].Action.Put.Int, out[2].Action.Put.Int})
}

func TestMapGetResolvesWinner(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjMap, []actorid.ActorId{{0x01}})
	op := putOp(1, 0, "title", 7)
	tree.Insert(-1, op)

	v, id, ok := MapGet(tree, "title", []actorid.ActorId{{0x01}})
	require.True(t, ok)
	require.Equal(t, int64(7), v.Int)
	require.Equal(t, op.ID, id)
}

func TestMapGetMissingKey(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjMap, []actorid.ActorId{{0x01}})
	_, _, ok := MapGet(tree, "nope", []actorid.ActorId{{0x01}})
	require.False(t, ok)
}

func TestMapKeysSortedAndDeduped(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjMap, []actorid.ActorId{{0x01}})
	tree.Insert(-1, putOp(1, 0, "zebra", 1))
	p2 := tree.Insert(int64(0), putOp(2, 0, "apple", 2))
	_ = p2
	tree.Insert(-1, putOp(3, 0, "apple", 3))

	keys := MapKeys(tree)
	require.Equal(t, []string{"apple", "zebra"}, keys)
}

func TestListValuesSkipsNonValueOps(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	a := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Action: opmodel.MakePut(opmodel.Int(1)), Insert: true}
	pos := tree.Insert(-1, a)
	b := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 0}, Action: opmodel.MakeMarkBegin(false, opmodel.MarkData{Name: "bold"})}
	tree.Insert(pos, b)

	values := ListValues(tree)
	require.Len(t, values, 1)
	require.Equal(t, int64(1), values[0].Action.Put.Int)
}

func TestGetCursorAndPositionOfRoundTrip(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	a := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Action: opmodel.MakePut(opmodel.Int(1)), Insert: true}
	p1 := tree.Insert(-1, a)
	b := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 0}, Action: opmodel.MakePut(opmodel.Int(2)), Insert: true}
	tree.Insert(p1, b)

	c, ok := GetCursor(tree, 1)
	require.True(t, ok)
	require.Equal(t, b.ID, c.Elem)

	idx, ok := PositionOf(tree, c)
	require.True(t, ok)
	require.Equal(t, 1, idx)
}

func TestGetCursorAtLengthReturnsHead(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	c, ok := GetCursor(tree, 0)
	require.True(t, ok)
	require.Equal(t, actorid.Head, c.Elem)
}

func TestMarksPairsBeginAndEnd(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjText, []actorid.ActorId{{0x01}})
	begin := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Action: opmodel.MakeMarkBegin(false, opmodel.MarkData{Name: "bold", Value: opmodel.Bool(true)}), Insert: true}
	p1 := tree.Insert(-1, begin)
	v1 := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 0}, Action: opmodel.MakePut(opmodel.Str("h")), Insert: true}
	p2 := tree.Insert(p1, v1)
	v2 := &opmodel.Op{ID: actorid.OpId{Counter: 3, Actor: 0}, Action: opmodel.MakePut(opmodel.Str("i")), Insert: true}
	p3 := tree.Insert(p2, v2)
	end := &opmodel.Op{ID: actorid.OpId{Counter: 4, Actor: 0}, Action: opmodel.MakeMarkEnd(false), Insert: true}
	tree.Insert(p3, end)

	marks := Marks(tree)
	require.Len(t, marks, 1)
	require.Equal(t, "bold", marks[0].Name)
	require.Equal(t, 0, marks[0].Start)
	require.Equal(t, 2, marks[0].End)
}

func TestMarksUnterminatedExtendsToEnd(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjText, []actorid.ActorId{{0x01}})
	begin := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Action: opmodel.MakeMarkBegin(false, opmodel.MarkData{Name: "italic"}), Insert: true}
	p1 := tree.Insert(-1, begin)
	v1 := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 0}, Action: opmodel.MakePut(opmodel.Str("x")), Insert: true}
	tree.Insert(p1, v1)

	marks := Marks(tree)
	require.Len(t, marks, 1)
	require.Equal(t, 1, marks[0].End)
}
