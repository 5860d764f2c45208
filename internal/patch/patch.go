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

// Package patch implements the PatchLog model of §4.5: an ordered list
// of high-level diff events (PutMap/InsertList/DeleteSeq/Increment/Mark)
// that a UI layer replays to stay in sync with a document's mutations,
// either incrementally or via a from-scratch hydration walk.
package patch

import (
	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/resolve"
)

// Kind tags a Patch's variant (§4.5.1).
type Kind uint8

const (
	KindPutMap Kind = iota
	KindPutSeq
	KindInsert
	KindDelete
	KindIncrement
	KindMark
	KindUnmark
)

// Patch is one diff event (§4.5.1). Which fields are meaningful depends
// on Kind, following the same tagged-struct convention as opmodel.OpType
// rather than an interface hierarchy.
type Patch struct {
	Kind  Kind
	Obj   opmodel.ObjId
	Key   string // KindPutMap
	Index int    // KindPutSeq/KindInsert/KindDelete/KindMark start
	End   int    // KindMark/KindUnmark
	Value opmodel.ScalarValue
	Delta int64 // KindIncrement
	Name  string
}

// Log accumulates patches for one apply_change/commit call (§4.5.2).
type Log struct {
	patches []Patch
}

func NewLog() *Log { return &Log{} }

// Record appends p, coalescing it into the previous patch when both are
// KindDelete at the same growing index into the same object: a run of N
// single-element deletes collapses into one patch covering N elements
// (End - Index), matching how a splice-based UI expects a multi-element
// removal to arrive as one event rather than N.
func (l *Log) Record(p Patch) {
	if n := len(l.patches); n > 0 {
		last := &l.patches[n-1]
		if p.Kind == KindDelete && last.Kind == KindDelete && last.Obj == p.Obj && p.Index == last.Index {
			last.End++
			return
		}
	}
	if p.Kind == KindDelete {
		p.End = p.Index + 1
	}
	l.patches = append(l.patches, p)
}

func (l *Log) Patches() []Patch { return append([]Patch(nil), l.patches...) }

// FromScratch hydrates a full PatchLog for obj as if every visible value
// were being inserted for the first time, used when a UI attaches to an
// already-loaded document (§4.5.2 "from-scratch diff").
func FromScratch(obj opmodel.ObjId, objType opmodel.ObjType, tree interface {
	TopOps() map[string][]*opmodel.Op
	VisibleOps() []*opmodel.Op
}, actors []actorid.ActorId) *Log {
	log := NewLog()
	if objType.IsSequence() {
		for i, op := range tree.VisibleOps() {
			if op.Action.Action == opmodel.ActionPut {
				log.Record(Patch{Kind: KindInsert, Obj: obj, Index: i, Value: op.Action.Put})
			}
		}
		return log
	}
	top := tree.TopOps()
	for key, ops := range top {
		var visible []*opmodel.Op
		for _, op := range ops {
			if op.Visible() {
				visible = append(visible, op)
			}
		}
		w := resolve.Winner(visible, actors)
		if w == nil || w.Action.Action != opmodel.ActionPut {
			continue
		}
		log.Record(Patch{Kind: KindPutMap, Obj: obj, Key: key, Value: w.Action.Put})
	}
	return log
}
