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

import "sort"

// Table is the document-local actor index described in §3.1: op ids are
// encoded as (counter, actor_index) and this table is what makes that
// portable across documents.
type Table struct {
	actors []ActorId
	index  map[string]uint32
}

func NewTable() *Table {
	return &Table{index: make(map[string]uint32)}
}

// Intern returns the actor_index for id, adding it to the table if new.
func (t *Table) Intern(id ActorId) uint32 {
	key := string(id)
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := uint32(len(t.actors))
	t.actors = append(t.actors, append(ActorId(nil), id...))
	t.index[key] = idx
	return idx
}

func (t *Table) Lookup(idx uint32) ActorId { return t.actors[idx] }

func (t *Table) Len() int { return len(t.actors) }

func (t *Table) All() []ActorId { return t.actors }

// Sorted returns a copy of the actor ids in lexicographic order, without
// their table indices (§4.2.3 uses the ActorId, not the index, for
// tie-breaking, but the wire format always carries a concrete table).
func (t *Table) Sorted() []ActorId {
	out := append([]ActorId(nil), t.actors...)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Merge concatenates other's actors into t, returning a mapping from
// other's actor_index to t's actor_index. This implements step 4 of
// §4.3.2 ("concatenate the change's actor table with the document's
// actor table and remap op ids").
func (t *Table) Merge(other *Table) []uint32 {
	remap := make([]uint32, other.Len())
	for i, a := range other.actors {
		remap[i] = t.Intern(a)
	}
	return remap
}
