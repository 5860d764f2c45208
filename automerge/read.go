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

package automerge

import (
	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/resolve"
)

// Value pairs a resolved scalar with the id of the op that produced it,
// the unit resolve.Winner/resolve.AllValues return wrapped for public
// consumption (§4.4.1, §6.3 "get"/"get_all").
type Value struct {
	Scalar opmodel.ScalarValue
	ID     actorid.OpId
	IsObj  bool
	Obj    opmodel.ObjId
}

// Get resolves the Lamport-winning value at a map key, or ok=false if
// the key is absent or every op at it is deleted (§4.4.1 "get").
func (d *Document) Get(obj opmodel.ObjId, key string) (Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return Value{}, false
	}
	top := tree.TopOps()[actorid.MapKey(key).String()]
	var visible []*opmodel.Op
	for _, op := range top {
		if op.Visible() {
			visible = append(visible, op)
		}
	}
	w := resolve.Winner(visible, d.actors.All())
	if w == nil {
		return Value{}, false
	}
	return opToValue(top, w), true
}

// GetAll resolves every currently visible value at a map key, Lamport-
// descending so index 0 is the winner Get would return (§4.4.1 "get_all",
// the engine's window into an unresolved concurrent conflict).
func (d *Document) GetAll(obj opmodel.ObjId, key string) []Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return nil
	}
	top := tree.TopOps()[actorid.MapKey(key).String()]
	var visible []*opmodel.Op
	for _, op := range top {
		if op.Visible() {
			visible = append(visible, op)
		}
	}
	ops := resolve.AllValues(visible, d.actors.All())
	out := make([]Value, len(ops))
	for i, op := range ops {
		out[i] = opToValue(top, op)
	}
	return out
}

// Keys returns the sorted set of map keys with at least one visible op
// (§4.4.1 "keys").
func (d *Document) Keys(obj opmodel.ObjId) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return nil
	}
	return resolve.MapKeys(tree)
}

// MapRange resolves every key's winning value, keyed by map key (§6.3
// "map_range"); the result is a Go map and carries no key order.
func (d *Document) MapRange(obj opmodel.ObjId) map[string]Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return nil
	}
	out := make(map[string]Value)
	for _, key := range resolve.MapKeys(tree) {
		top := tree.TopOps()[actorid.MapKey(key).String()]
		var visible []*opmodel.Op
		for _, op := range top {
			if op.Visible() {
				visible = append(visible, op)
			}
		}
		if w := resolve.Winner(visible, d.actors.All()); w != nil {
			out[key] = opToValue(top, w)
		}
	}
	return out
}

// Length returns the number of visible elements in a list/text object
// (§4.4.2 "length").
func (d *Document) Length(obj opmodel.ObjId) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return 0
	}
	return len(resolve.ListValues(tree))
}

// ListRange materialises a sequence object's visible elements in
// position order (§4.4.2 "list_range").
func (d *Document) ListRange(obj opmodel.ObjId) []Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return nil
	}
	topByKey := tree.TopOps()
	ops := resolve.ListValues(tree)
	out := make([]Value, len(ops))
	for i, op := range ops {
		out[i] = opToValue(topByKey[op.Key.String()], op)
	}
	return out
}

// Text concatenates a Text object's visible string elements (§4.4.3
// "text"). The configured TextEncoding does not affect the result; the
// string is always UTF-8 since that's Go's native string encoding.
func (d *Document) Text(obj opmodel.ObjId) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return ""
	}
	var out []byte
	for _, op := range resolve.ListValues(tree) {
		if op.Action.Put.Kind == opmodel.KindStr {
			out = append(out, op.Action.Put.Str...)
		}
	}
	return string(out)
}

// Marks returns every rich-text annotation currently open over obj
// (§4.4.4 "marks").
func (d *Document) Marks(obj opmodel.ObjId) []resolve.MarkRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return nil
	}
	return resolve.Marks(tree)
}

// GetCursor returns a stable Cursor for the element currently at idx
// (§4.4.3 "get_cursor").
func (d *Document) GetCursor(obj opmodel.ObjId, idx int) (resolve.Cursor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return resolve.Cursor{}, false
	}
	return resolve.GetCursor(tree, idx)
}

// PositionOf resolves a Cursor back to its current index (§4.4.3
// "position_of").
func (d *Document) PositionOf(obj opmodel.ObjId, c resolve.Cursor) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.trees[obj]
	if !ok {
		return -1, false
	}
	return resolve.PositionOf(tree, c)
}

func opToValue(top []*opmodel.Op, op *opmodel.Op) Value {
	if op.Action.Action == opmodel.ActionMake {
		return Value{IsObj: true, Obj: opmodel.ObjId{OpId: op.ID}, ID: op.ID}
	}
	return Value{Scalar: resolve.MaterializeCounter(top, op), ID: op.ID}
}
