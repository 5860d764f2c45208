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

// Package resolve materialises read-facing values from a raw op tree:
// map conflict winners, list/text element sequences, cursors, and flat
// mark ranges (§4.4).
package resolve

import (
	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/optree"
)

// Winner picks the Lamport-greatest op among a set of conflicting top
// ops at the same key (§4.4.1): highest counter, ActorId as tie-break.
func Winner(ops []*opmodel.Op, actors []actorid.ActorId) *opmodel.Op {
	if len(ops) == 0 {
		return nil
	}
	best := ops[0]
	for _, op := range ops[1:] {
		if actorid.LamportLess(best.ID, op.ID, actors) {
			best = op
		}
	}
	return best
}

// AllValues returns every visible op at key (the "conflicts" a map
// get_all call surfaces), Lamport-descending so index 0 is the winner
// (§4.4.1 "get_all surfaces every current value, not just the winner").
func AllValues(ops []*opmodel.Op, actors []actorid.ActorId) []*opmodel.Op {
	out := append([]*opmodel.Op(nil), ops...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && actorid.LamportLess(out[j-1].ID, out[j].ID, actors); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// MapGet resolves key against the object's top ops and returns the
// winning scalar value, or ok=false if the key is absent/deleted.
func MapGet(tree *optree.Tree, key string, actors []actorid.ActorId) (opmodel.ScalarValue, actorid.OpId, bool) {
	top := tree.TopOps()[actorid.MapKey(key).String()]
	var visible []*opmodel.Op
	for _, op := range top {
		if op.Visible() {
			visible = append(visible, op)
		}
	}
	w := Winner(visible, actors)
	if w == nil {
		return opmodel.ScalarValue{}, actorid.OpId{}, false
	}
	if w.Action.Action == opmodel.ActionPut {
		return MaterializeCounter(top, w), w.ID, true
	}
	return opmodel.ScalarValue{}, w.ID, true // Make: caller resolves the nested ObjId itself
}

// MaterializeCounter folds every top Increment op targeting put into its
// base value (§4.2.4 "a Counter value materialises as the sum of the
// base Put plus every Increment whose pred contains that Put's id",
// P7/S4). Increment ops never register themselves in put.Succ, so put
// stays a top op regardless of how many times it has been incremented;
// summing happens here at read time instead.
func MaterializeCounter(top []*opmodel.Op, put *opmodel.Op) opmodel.ScalarValue {
	if put.Action.Action != opmodel.ActionPut || put.Action.Put.Kind != opmodel.KindCounter {
		return put.Action.Put
	}
	total := put.Action.Put.Int
	for _, op := range top {
		if op.Action.Action != opmodel.ActionIncrement {
			continue
		}
		for _, p := range op.Pred {
			if p == put.ID {
				total += op.Action.Increment
				break
			}
		}
	}
	return opmodel.Counter(total)
}

// MapKeys returns the sorted set of map keys with at least one visible
// op, i.e. keys() over the current conflict set (§4.4.1).
func MapKeys(tree *optree.Tree) []string {
	seen := map[string]bool{}
	for _, op := range tree.VisibleOps() {
		if op.Key.IsMap {
			seen[op.Key.Prop] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ListValues materialises a list/text object's visible elements in
// position order, skipping MarkBegin/MarkEnd rows which contribute to
// Marks, not the value sequence (§4.4.2, §4.4.4).
func ListValues(tree *optree.Tree) []*opmodel.Op {
	var out []*opmodel.Op
	for _, op := range tree.VisibleOps() {
		if op.Action.IsValueOp() {
			out = append(out, op)
		}
	}
	return out
}

// Cursor identifies a stable position in a sequence by the ElemId of
// the element at that position (or Head), surviving concurrent inserts
// elsewhere in the sequence (§4.4.3 "get_cursor").
type Cursor struct {
	Elem actorid.ElemId
}

// GetCursor returns a Cursor for the visible element currently at index
// idx (0-based), or the Head cursor if idx == len(list).
func GetCursor(tree *optree.Tree, idx int) (Cursor, bool) {
	values := ListValues(tree)
	if idx == len(values) {
		return Cursor{Elem: actorid.Head}, true
	}
	if idx < 0 || idx >= len(values) {
		return Cursor{}, false
	}
	return Cursor{Elem: values[idx].ID}, true
}

// PositionOf resolves a Cursor back to its current index, which may
// have shifted since GetCursor was called if concurrent inserts/deletes
// landed before it (§4.4.3 "position_of tracks the cursor across
// concurrent edits").
func PositionOf(tree *optree.Tree, c Cursor) (int, bool) {
	if c.Elem == actorid.Head {
		return 0, true
	}
	for i, op := range ListValues(tree) {
		if op.ID == c.Elem {
			return i, true
		}
	}
	return -1, false
}

// MarkRange is one flattened (start, end, name, value) annotation
// produced by pairing MarkBegin/MarkEnd ops across the visible sequence
// (§4.4.4).
type MarkRange struct {
	Start int
	End   int
	Name  string
	Value opmodel.ScalarValue
}

// Marks walks the full (not just visible-value) op list in position
// order and pairs every visible MarkBegin with its matching MarkEnd,
// expressing each as an index range over the value sequence (§4.4.4).
// Unterminated marks (no MarkEnd yet applied) extend to the end of the
// sequence.
func Marks(tree *optree.Tree) []MarkRange {
	type open struct {
		name  string
		value opmodel.ScalarValue
		start int
	}
	var stack []open
	var out []MarkRange
	valueIdx := 0
	for _, op := range allOpsInOrder(tree) {
		switch {
		case len(op.Succ) == 0 && op.Action.Action == opmodel.ActionMarkBegin:
			stack = append(stack, open{name: op.Action.Mark.Name, value: op.Action.Mark.Value, start: valueIdx})
		case op.Action.Action == opmodel.ActionMarkEnd && len(stack) > 0:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, MarkRange{Start: top.start, End: valueIdx, Name: top.name, Value: top.value})
		case op.Visible() && op.Action.IsValueOp():
			valueIdx++
		}
	}
	for _, o := range stack {
		out = append(out, MarkRange{Start: o.start, End: valueIdx, Name: o.name, Value: o.value})
	}
	return out
}

func allOpsInOrder(tree *optree.Tree) []*opmodel.Op {
	var out []*opmodel.Op
	tree.EachInOrder(func(op *opmodel.Op) { out = append(out, op) })
	return out
}
