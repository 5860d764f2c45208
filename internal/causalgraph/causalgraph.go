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

// Package causalgraph maintains the DAG of ChangeHash dependencies that
// backs tips(), is_ancestor and the topological application order of
// §3.5 and §4.3.1.
package causalgraph

import (
	"github.com/pkg/errors"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/change"
)

// node is one change's graph-local bookkeeping.
type node struct {
	change *change.Change
	hash   change.ChangeHash
	deps   []change.ChangeHash
	seq    int // topological insertion order, used to break ties cheaply
}

// Graph is the causal DAG of every change applied to a document so far
// (§3.5). It is append-only: changes are never removed once inserted.
type Graph struct {
	nodes map[change.ChangeHash]*node
	tips  map[change.ChangeHash]struct{}
	// clock is the per-actor highest seq observed, used to validate a new
	// change's Seq is exactly prior+1 before it is inserted (§3.3, §4.3.2
	// step 5).
	clock map[string]uint64
	order []change.ChangeHash // topological insertion order

	// ancestorMemo caches is_ancestor results since the BFS is repeated
	// heavily by sync message generation (§4.6.4); invalidated implicitly
	// because the graph only grows, never shrinks, so a cached "true" or
	// "false" never becomes stale.
	ancestorMemo map[[2]change.ChangeHash]bool
}

func New() *Graph {
	return &Graph{
		nodes:        make(map[change.ChangeHash]*node),
		tips:         make(map[change.ChangeHash]struct{}),
		clock:        make(map[string]uint64),
		ancestorMemo: make(map[[2]change.ChangeHash]bool),
	}
}

// Has reports whether hash is already present in the graph.
func (g *Graph) Has(hash change.ChangeHash) bool {
	_, ok := g.nodes[hash]
	return ok
}

// MissingDeps returns the subset of c's Deps not yet present in the
// graph; a non-empty result means Insert must be deferred until those
// dependencies arrive (§4.3.2 step 2, pending-change queue).
func (g *Graph) MissingDeps(c *change.Change) []change.ChangeHash {
	var missing []change.ChangeHash
	for _, d := range c.Deps {
		if !g.Has(d) {
			missing = append(missing, d)
		}
	}
	return missing
}

// Insert adds c to the graph. It returns a SeqMismatchError unless c.Seq
// is exactly one greater than the actor's previously recorded seq (§3.3
// "seq is exactly prior+1"), and a MissingDepError if any of c.Deps is
// not yet in the graph.
func (g *Graph) Insert(c *change.Change) (change.ChangeHash, error) {
	hash := c.Hash()
	if g.Has(hash) {
		return hash, nil // idempotent: re-applying a known change is a no-op
	}
	actorKey := c.Actor.String()
	wantSeq := g.clock[actorKey] + 1
	if c.Seq != wantSeq {
		return hash, errors.WithStack(&SeqMismatchError{Actor: actorKey, Got: c.Seq, Want: wantSeq})
	}
	for _, d := range c.Deps {
		if !g.Has(d) {
			return hash, errors.WithStack(&MissingDepError{Hash: d})
		}
		delete(g.tips, d)
	}
	g.nodes[hash] = &node{change: c, hash: hash, deps: c.Deps, seq: len(g.order)}
	g.order = append(g.order, hash)
	g.tips[hash] = struct{}{}
	g.clock[actorKey] = c.Seq
	return hash, nil
}

// Tips returns the current set of heads: changes with no known
// dependent, sorted ascending (§3.5 "heads").
func (g *Graph) Tips() []change.ChangeHash {
	out := make([]change.ChangeHash, 0, len(g.tips))
	for h := range g.tips {
		out = append(out, h)
	}
	change.SortHashes(out)
	return out
}

// Get returns the stored change for hash.
func (g *Graph) Get(hash change.ChangeHash) (*change.Change, bool) {
	n, ok := g.nodes[hash]
	if !ok {
		return nil, false
	}
	return n.change, true
}

// Clock returns a copy of the actor -> highest-seq map, the document's
// vector clock (§3.5); transaction.Manager.Begin reads it to pick the
// next seq.
func (g *Graph) Clock() map[string]uint64 {
	out := make(map[string]uint64, len(g.clock))
	for k, v := range g.clock {
		out[k] = v
	}
	return out
}

// IsAncestor reports whether anc is a (non-strict) ancestor of desc:
// every hash is its own ancestor, matching the "heads includes changes
// with no dependents, including a change that is its own dependency
// frontier" convention used by sync's need-to-send check (§4.6.4).
func (g *Graph) IsAncestor(anc, desc change.ChangeHash) bool {
	if anc == desc {
		return true
	}
	key := [2]change.ChangeHash{anc, desc}
	if v, ok := g.ancestorMemo[key]; ok {
		return v
	}
	visited := map[change.ChangeHash]bool{desc: true}
	queue := []change.ChangeHash{desc}
	found := false
	for len(queue) > 0 && !found {
		h := queue[0]
		queue = queue[1:]
		n, ok := g.nodes[h]
		if !ok {
			continue
		}
		for _, d := range n.deps {
			if d == anc {
				found = true
				break
			}
			if !visited[d] {
				visited[d] = true
				queue = append(queue, d)
			}
		}
	}
	g.ancestorMemo[key] = found
	return found
}

// TopoOrder returns every change hash in the order it was inserted,
// which for a graph built purely through Insert (deps always present
// first) is automatically a valid topological order (§4.3.1).
func (g *Graph) TopoOrder() []change.ChangeHash {
	return append([]change.ChangeHash(nil), g.order...)
}

// ActorsSeen returns the set of actors with at least one change in the
// graph, in no particular order.
func (g *Graph) ActorsSeen() []actorid.ActorId {
	seen := map[string]actorid.ActorId{}
	for _, h := range g.order {
		c := g.nodes[h].change
		seen[c.Actor.String()] = c.Actor
	}
	out := make([]actorid.ActorId, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	return out
}
