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

// Package optree holds the per-object op store of §4.2: a position-
// ordered B-tree of ops plus a bitmap of visible positions. List indices,
// text widths and the block hash are computed on demand by scanning the
// tree in position order; no per-node aggregates are kept.
package optree

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/btree"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/opmodel"
)

// entry is one row of the tree: an op pinned at a stable RGA position
// (§4.4.2). pos is assigned once at insert time and never renumbered;
// it is the tree's sort key, not the user-visible list index (which is
// recomputed from VisibleOps on every query, §4.2.3).
type entry struct {
	pos int64
	op  *opmodel.Op
}

func lessEntry(a, b entry) bool { return a.pos < b.pos }

// TextWidth counts a Put('\0'..) or Make(Text) op's contribution under
// one of the four width encodings the spec's cursor/splice API can be
// asked for (§4.4.3).
type TextWidth struct {
	UTF8    int
	UTF16   int
	Unicode int // grapheme clusters
	Bytes   int
}

// Tree is the op store for a single object id (§4.2). It is not safe
// for concurrent use from multiple goroutines without external locking,
// matching the single-writer-per-document assumption the rest of the
// engine makes (§4.3.3).
type Tree struct {
	obj      opmodel.ObjId
	objType  opmodel.ObjType
	bt       *btree.BTreeG[entry]
	byID     map[actorid.OpId]*opmodel.Op
	posByID  map[actorid.OpId]int64
	visible  *roaring.Bitmap // positions (truncated to uint32) currently visible
	nextPos  int64
	actors   []actorid.ActorId
}

// New constructs an empty op store for obj of the given container type.
// actors is the document actor table used to break Lamport ties when
// ops need total ordering (§4.4.1); the tree holds a reference, not a
// copy, so it observes actor-table growth as new actors are interned.
func New(obj opmodel.ObjId, objType opmodel.ObjType, actors []actorid.ActorId) *Tree {
	return &Tree{
		obj:     obj,
		objType: objType,
		bt:      btree.NewBTreeG[entry](lessEntry),
		byID:    make(map[actorid.OpId]*opmodel.Op),
		posByID: make(map[actorid.OpId]int64),
		visible: roaring.New(),
		actors:  actors,
	}
}

// Insert places op immediately after the entry at afterPos (use -1 for
// "before everything", i.e. list head), returning the position assigned
// to the new entry (§4.2.1, §4.4.2 RGA insertion rule: the caller has
// already resolved insertion order against concurrent inserts before
// calling this).
func (t *Tree) Insert(afterPos int64, op *opmodel.Op) int64 {
	pos := t.allocPos(afterPos)
	t.bt.Set(entry{pos: pos, op: op})
	t.byID[op.ID] = op
	t.posByID[op.ID] = pos
	if op.Visible() {
		t.visible.Add(uint32(pos))
	}
	return pos
}

// PosOf returns the tree-internal position of the op with the given id,
// used to resolve a sequence op's Key.Elem into an insertion point
// (§4.4.2).
func (t *Tree) PosOf(id actorid.OpId) (int64, bool) {
	pos, ok := t.posByID[id]
	return pos, ok
}

// allocPos picks a position strictly between afterPos and the next
// existing entry, using a dense integer space large enough to avoid
// renumbering for the lifetime of a realistic document (§4.2.1 "O(log n)
// insert without rebalancing the whole sequence").
func (t *Tree) allocPos(afterPos int64) int64 {
	const gap = 1 << 16
	if afterPos < 0 {
		if t.bt.Len() == 0 {
			t.nextPos = gap
			return 0
		}
		first, _ := t.bt.Min()
		return first.pos - gap
	}
	pivot, ok := t.bt.Get(entry{pos: afterPos})
	if !ok {
		t.nextPos += gap
		return t.nextPos
	}
	var next entry
	found := false
	t.bt.Ascend(entry{pos: afterPos + 1}, func(e entry) bool {
		next = e
		found = true
		return false
	})
	if !found {
		t.nextPos = pivot.pos + gap
		return t.nextPos
	}
	mid := pivot.pos + (next.pos-pivot.pos)/2
	if mid == pivot.pos {
		// exhausted the gap: fall back to appending past the current max,
		// which still preserves order since callers always resolve RGA
		// order by walking forward from a known pos.
		t.nextPos += gap
		return t.nextPos
	}
	return mid
}

// Update mutates the op at pos in place via fn, refreshing the
// visibility index afterward (used by apply_change when a later op
// sets Succ on an existing op, §4.3.2 step 6).
func (t *Tree) Update(pos int64, fn func(*opmodel.Op)) bool {
	e, ok := t.bt.Get(entry{pos: pos})
	if !ok {
		return false
	}
	fn(e.op)
	if e.op.Visible() {
		t.visible.Add(uint32(pos))
	} else {
		t.visible.Remove(uint32(pos))
	}
	return true
}

// Query returns the op at pos, if any.
func (t *Tree) Query(pos int64) (*opmodel.Op, bool) {
	e, ok := t.bt.Get(entry{pos: pos})
	if !ok {
		return nil, false
	}
	return e.op, true
}

// ByID looks up an op by its OpId regardless of position, used to
// resolve Pred references during apply (§4.3.2 step 3).
func (t *Tree) ByID(id actorid.OpId) (*opmodel.Op, bool) {
	op, ok := t.byID[id]
	return op, ok
}

// TopOps returns, for each distinct Key, the subset of ops at that key
// still eligible to contribute to the map-winner computation: every op
// whose Succ is empty, in insertion (pos) order (§4.2.2, §4.4.1 "top
// ops" is the candidate set the Lamport comparison picks a winner from).
func (t *Tree) TopOps() map[string][]*opmodel.Op {
	out := make(map[string][]*opmodel.Op)
	t.bt.Scan(func(e entry) bool {
		if len(e.op.Succ) == 0 {
			k := e.op.Key.String()
			out[k] = append(out[k], e.op)
		}
		return true
	})
	return out
}

// VisibleOps walks the tree in position order, yielding only ops
// currently visible (§4.2.4): the materialised sequence a list/text
// object presents to readers.
func (t *Tree) VisibleOps() []*opmodel.Op {
	var out []*opmodel.Op
	t.bt.Scan(func(e entry) bool {
		if e.op.Visible() {
			out = append(out, e.op)
		}
		return true
	})
	return out
}

// IndexOf returns the 0-based visible-list index of the op at pos, or
// -1 if it is not currently visible (§4.2.3 "index_of is the number of
// visible elements strictly before this position").
func (t *Tree) IndexOf(pos int64) int {
	if !t.visible.Contains(uint32(pos)) {
		return -1
	}
	idx := 0
	found := -1
	t.bt.Scan(func(e entry) bool {
		if e.op.Visible() {
			if e.pos == pos {
				found = idx
				return false
			}
			idx++
		}
		return true
	})
	return found
}

// EachInOrder visits every op, visible or not, in position order; used
// by mark resolution which needs to see MarkBegin/MarkEnd ops regardless
// of their own visibility state interleaved with the visible value
// sequence (§4.4.4).
func (t *Tree) EachInOrder(fn func(*opmodel.Op)) {
	t.bt.Scan(func(e entry) bool {
		fn(e.op)
		return true
	})
}

// Len returns the total op count, visible or not.
func (t *Tree) Len() int { return t.bt.Len() }

// VisibleLen returns the count of currently-visible ops.
func (t *Tree) VisibleLen() int { return int(t.visible.GetCardinality()) }

// BlockHash summarises the tree's current op-id set for cheap equality
// checks between replicas converging on the same state (§4.2.5 "block
// hash"). It is recomputed on every call by walking the whole tree.
func (t *Tree) BlockHash() uint64 {
	ids := make([]actorid.OpId, 0, t.bt.Len())
	t.bt.Scan(func(e entry) bool {
		ids = append(ids, e.op.ID)
		return true
	})
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Counter != ids[j].Counter {
			return ids[i].Counter < ids[j].Counter
		}
		return ids[i].Actor < ids[j].Actor
	})
	h := xxhash.New()
	var buf [12]byte
	for _, id := range ids {
		putUint64(buf[0:8], id.Counter)
		putUint32(buf[8:12], id.Actor)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// TextWidthAt sums the TextWidth contribution of every visible op up to
// (not including) pos in all four encodings at once, scanning the tree
// from its first entry on every call (§4.4.3).
func (t *Tree) TextWidthAt(pos int64) TextWidth {
	var w TextWidth
	t.bt.Scan(func(e entry) bool {
		if e.pos >= pos {
			return false
		}
		if e.op.Visible() && t.objType == opmodel.ObjText && e.op.Action.IsValueOp() {
			w.add(e.op.Action.Put)
		}
		return true
	})
	return w
}

func (w *TextWidth) add(v opmodel.ScalarValue) {
	if v.Kind == opmodel.KindStr {
		s := v.Str
		w.Bytes += len(s)
		w.UTF8 += len([]rune(s))
		for _, r := range s {
			if r > 0xFFFF {
				w.UTF16 += 2
			} else {
				w.UTF16++
			}
		}
		w.Unicode += graphemeCount(s)
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
