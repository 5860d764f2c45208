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

package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/optree"
)

func TestRecordAppendsDistinctPatches(t *testing.T) {
	l := NewLog()
	l.Record(Patch{Kind: KindPutMap, Obj: opmodel.Root, Key: "a", Value: opmodel.Int(1)})
	l.Record(Patch{Kind: KindPutMap, Obj: opmodel.Root, Key: "b", Value: opmodel.Int(2)})
	require.Len(t, l.Patches(), 2)
}

func TestRecordCoalescesConsecutiveDeletesAtSameIndex(t *testing.T) {
	l := NewLog()
	l.Record(Patch{Kind: KindDelete, Obj: opmodel.Root, Index: 3})
	l.Record(Patch{Kind: KindDelete, Obj: opmodel.Root, Index: 3})
	l.Record(Patch{Kind: KindDelete, Obj: opmodel.Root, Index: 3})

	patches := l.Patches()
	require.Len(t, patches, 1)
	require.Equal(t, 3, patches[0].Index)
	require.Equal(t, 6, patches[0].End)
}

func TestRecordDoesNotCoalesceDeletesAtDifferentIndices(t *testing.T) {
	l := NewLog()
	l.Record(Patch{Kind: KindDelete, Obj: opmodel.Root, Index: 3})
	l.Record(Patch{Kind: KindDelete, Obj: opmodel.Root, Index: 5})

	patches := l.Patches()
	require.Len(t, patches, 2)
	require.Equal(t, 4, patches[0].End)
	require.Equal(t, 6, patches[1].End)
}

func TestPatchesReturnsDefensiveCopy(t *testing.T) {
	l := NewLog()
	l.Record(Patch{Kind: KindPutMap, Obj: opmodel.Root, Key: "a"})
	p := l.Patches()
	p[0].Key = "mutated"
	require.Equal(t, "a", l.Patches()[0].Key)
}

func TestFromScratchHydratesMapWinners(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjMap, []actorid.ActorId{{0x01}, {0x02}})
	older := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Key: actorid.MapKey("title"), Action: opmodel.MakePut(opmodel.Str("old"))}
	tree.Insert(-1, older)
	newer := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 1}, Key: actorid.MapKey("title"), Action: opmodel.MakePut(opmodel.Str("new"))}
	tree.Insert(0, newer)

	log := FromScratch(opmodel.Root, opmodel.ObjMap, tree, []actorid.ActorId{{0x01}, {0x02}})
	patches := log.Patches()
	require.Len(t, patches, 1)
	require.Equal(t, KindPutMap, patches[0].Kind)
	require.Equal(t, "title", patches[0].Key)
	require.Equal(t, "new", patches[0].Value.Str)
}

func TestFromScratchHydratesSequenceInOrder(t *testing.T) {
	tree := optree.New(opmodel.Root, opmodel.ObjList, []actorid.ActorId{{0x01}})
	first := &opmodel.Op{ID: actorid.OpId{Counter: 1, Actor: 0}, Action: opmodel.MakePut(opmodel.Int(10)), Insert: true}
	pos := tree.Insert(-1, first)
	second := &opmodel.Op{ID: actorid.OpId{Counter: 2, Actor: 0}, Action: opmodel.MakePut(opmodel.Int(20)), Insert: true}
	tree.Insert(pos, second)

	log := FromScratch(opmodel.Root, opmodel.ObjList, tree, []actorid.ActorId{{0x01}})
	patches := log.Patches()
	require.Len(t, patches, 2)
	require.Equal(t, KindInsert, patches[0].Kind)
	require.Equal(t, 0, patches[0].Index)
	require.Equal(t, int64(10), patches[0].Value.Int)
	require.Equal(t, 1, patches[1].Index)
	require.Equal(t, int64(20), patches[1].Value.Int)
}
