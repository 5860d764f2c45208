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

// Package transaction implements the local transaction builder and the
// apply_change pipeline of §4.3.2/§4.3.3: a single open transaction per
// document, commit producing a hashable Change, rollback unwinding an
// undo list.
package transaction

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/causalgraph"
	"github.com/erigontech/automerge/internal/change"
	"github.com/erigontech/automerge/internal/opmodel"
	"github.com/erigontech/automerge/internal/optree"
)

// undoEntry records enough to reverse one op application: either a
// brand-new op to delete outright, or a Succ entry to strip back off an
// existing op (§4.3.3 "rollback unwinds the undo list").
type undoEntry struct {
	newOp       *actorid.OpId // non-nil: this op id was newly inserted
	obj         opmodel.ObjId
	succTouched *actorid.OpId // non-nil: Succ was appended to the op with this id
	succAdded   actorid.OpId
}

// Store is the minimal surface transaction needs from the document: a
// tree per object plus the actor table and causal graph it threads
// mutations through. The public automerge.Document implements this.
type Store interface {
	Tree(obj opmodel.ObjId) (*optree.Tree, bool)
	EnsureTree(obj opmodel.ObjId, objType opmodel.ObjType) *optree.Tree
	Actors() *actorid.Table
	Graph() *causalgraph.Graph
}

// Tx is one open local transaction. Only one may be open at a time per
// document, enforced by Manager's semaphore (§4.3.3).
type Tx struct {
	store   Store
	actor   actorid.ActorId
	actorIx uint32
	seq     uint64
	startOp uint64
	nextCtr uint64
	message string
	hasMsg  bool
	ops     []opmodel.Op
	undo    []undoEntry
	done    bool
}

// Manager enforces the single-open-transaction-at-a-time rule with a
// weight-1 semaphore (§4.3.3), the idiomatic golang.org/x/sync primitive
// for that exact constraint rather than a bare sync.Mutex. Begin waits
// on it with Acquire, so a blocked Begin gives up when ctx is done.
type Manager struct {
	store Store
	sem   *semaphore.Weighted
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, sem: semaphore.NewWeighted(1)}
}

// Begin opens a transaction for actor, blocking (respecting ctx) until
// any other open transaction commits or rolls back.
func (m *Manager) Begin(ctx context.Context, actor actorid.ActorId) (*Tx, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("transaction: begin: %w", err)
	}
	actorIx := m.store.Actors().Intern(actor)
	prevSeq := m.store.Graph().Clock()[actor.String()]
	startOp := highestCounter(m.store.Graph(), actor) + 1
	return &Tx{
		store:   m.store,
		actor:   actor,
		actorIx: actorIx,
		seq:     prevSeq + 1,
		startOp: startOp,
		nextCtr: startOp,
	}, nil
}

func highestCounter(g *causalgraph.Graph, actor actorid.ActorId) uint64 {
	var max uint64
	for _, h := range g.TopoOrder() {
		c, _ := g.Get(h)
		for _, op := range c.Ops {
			if op.ID.Counter > max {
				max = op.ID.Counter
			}
		}
	}
	return max
}

// release must be called exactly once to give up the manager's slot,
// whether the transaction committed or rolled back.
func (m *Manager) release() { m.sem.Release(1) }

// SetMessage attaches an optional commit message (§3.3).
func (tx *Tx) SetMessage(msg string) {
	tx.message = msg
	tx.hasMsg = true
}

// Put, Insert, Delete and Increment append one op to the transaction's
// pending op list and apply it to the live op tree immediately (local
// ops never conflict with themselves, so there is no need to defer
// visibility/conflict resolution to commit time, §4.3.2).
func (tx *Tx) nextOpID() actorid.OpId {
	id := actorid.OpId{Counter: tx.nextCtr, Actor: tx.actorIx}
	tx.nextCtr++
	return id
}

// Put sets a map key or overwrites a list element, returning the new
// op's id. pred is the set of ops this Put supersedes (empty for a
// fresh map key).
func (tx *Tx) Put(obj opmodel.ObjId, objType opmodel.ObjType, key actorid.Key, v opmodel.ScalarValue, pred []actorid.OpId) actorid.OpId {
	return tx.apply(obj, objType, key, opmodel.MakePut(v), false, pred)
}

// MakeObject creates a nested container and returns its new ObjId.
func (tx *Tx) MakeObject(parent opmodel.ObjId, parentType opmodel.ObjType, key actorid.Key, childType opmodel.ObjType, pred []actorid.OpId) opmodel.ObjId {
	id := tx.apply(parent, parentType, key, opmodel.MakeMake(childType), false, pred)
	child := opmodel.ObjId{OpId: id}
	tx.store.EnsureTree(child, childType)
	return child
}

// InsertListElem inserts a new sequence element immediately after
// afterElem (Head to prepend), returning the new element's id.
func (tx *Tx) InsertListElem(obj opmodel.ObjId, objType opmodel.ObjType, afterElem actorid.ElemId, v opmodel.ScalarValue) actorid.OpId {
	return tx.apply(obj, objType, actorid.ElemKey(afterElem), opmodel.MakePut(v), true, nil)
}

// Delete marks pred as superseded with no replacement value.
func (tx *Tx) Delete(obj opmodel.ObjId, objType opmodel.ObjType, key actorid.Key, pred []actorid.OpId) actorid.OpId {
	return tx.apply(obj, objType, key, opmodel.MakeDelete(), false, pred)
}

// Increment adds delta to a Counter value, recorded as its own op
// rather than mutating the Put in place (§3.2, §4.4.4 "Increment ops
// apply to every not-yet-deleted Counter Put they list as pred").
func (tx *Tx) Increment(obj opmodel.ObjId, objType opmodel.ObjType, key actorid.Key, delta int64, pred []actorid.OpId) actorid.OpId {
	return tx.apply(obj, objType, key, opmodel.MakeIncrement(delta), false, pred)
}

// MarkBegin opens a rich-text annotation immediately after afterElem
// (§4.4.4). Like InsertListElem it occupies its own sequence position
// rather than attaching to a neighbour, so it survives concurrent edits
// to the text either side of it.
func (tx *Tx) MarkBegin(obj opmodel.ObjId, objType opmodel.ObjType, afterElem actorid.ElemId, expand bool, name string, value opmodel.ScalarValue) actorid.OpId {
	action := opmodel.MakeMarkBegin(expand, opmodel.MarkData{Name: name, Value: value})
	return tx.apply(obj, objType, actorid.ElemKey(afterElem), action, true, nil)
}

// MarkEnd carries no mark name; resolve.Marks pairs it with the most
// recently opened mark. It is inserted immediately after afterElem
// (§4.4.4).
func (tx *Tx) MarkEnd(obj opmodel.ObjId, objType opmodel.ObjType, afterElem actorid.ElemId, expand bool) actorid.OpId {
	return tx.apply(obj, objType, actorid.ElemKey(afterElem), opmodel.MakeMarkEnd(expand), true, nil)
}

func (tx *Tx) apply(obj opmodel.ObjId, objType opmodel.ObjType, key actorid.Key, action opmodel.OpType, insert bool, pred []actorid.OpId) actorid.OpId {
	id := tx.nextOpID()
	op := opmodel.Op{ID: id, Obj: obj, Key: key, Action: action, Insert: insert, Pred: append([]actorid.OpId(nil), pred...)}
	tx.ops = append(tx.ops, op)

	tree := tx.store.EnsureTree(obj, objType)
	// An Increment mutates its target's materialised value (summed at
	// read time by resolve.MaterializeCounter) without ever overwriting
	// it, so it must not register itself in the target's Succ: doing so
	// would make the counter Put look superseded and disappear (§4.2.4,
	// P7).
	if action.Action != opmodel.ActionIncrement {
		for _, p := range pred {
			if predOp, ok := tree.ByID(p); ok {
				predOp.AddSucc(id)
				tx.undo = append(tx.undo, undoEntry{obj: obj, succTouched: &p, succAdded: id})
			}
		}
	}
	stored := tx.ops[len(tx.ops)-1]
	afterPos := tx.resolveInsertPos(tree, key, insert)
	pos := tree.Insert(afterPos, &stored)
	_ = pos
	tx.undo = append(tx.undo, undoEntry{newOp: &id, obj: obj})
	return id
}

// resolveInsertPos finds the tree position to insert after: for a map
// key, -1 (the head of the tree), since the new op supersedes rather
// than follows its predecessors and its position does not affect the
// winner; for a sequence, the position of the referenced
// ElemId (or -1 for Head). Shared by the local builder and
// ApplyRemoteChange so a remote op lands at the same canonical position
// a locally-built op referencing the same key would (§4.2.3, §4.3.2
// step 6).
func resolveInsertPos(tree *optree.Tree, key actorid.Key, insert bool) int64 {
	if key.IsMap && !insert {
		return -1
	}
	if key.Elem == actorid.Head {
		return -1
	}
	if pos, ok := tree.PosOf(key.Elem); ok {
		return pos
	}
	return -1
}

func (tx *Tx) resolveInsertPos(tree *optree.Tree, key actorid.Key, insert bool) int64 {
	return resolveInsertPos(tree, key, insert)
}

// Rollback discards every op applied by tx, unwinding the undo list in
// reverse order, and releases the transaction slot (§4.3.3).
func (m *Manager) Rollback(tx *Tx) {
	defer m.release()
	if tx.done {
		return
	}
	tx.done = true
	for i := len(tx.undo) - 1; i >= 0; i-- {
		u := tx.undo[i]
		tree, ok := tx.store.Tree(u.obj)
		if !ok {
			continue
		}
		if u.succTouched != nil {
			if op, ok := tree.ByID(*u.succTouched); ok {
				removeSucc(op, u.succAdded)
			}
		}
	}
}

func removeSucc(op *opmodel.Op, id actorid.OpId) {
	out := op.Succ[:0]
	for _, s := range op.Succ {
		if s != id {
			out = append(out, s)
		}
	}
	op.Succ = out
}

// Commit finalises tx into a Change, inserts it into the causal graph,
// and releases the transaction slot. An empty transaction (no ops, no
// message) still produces a Change: commit is not optional-skip, matching
// §4.3.3's "commit always advances the actor's seq".
func (m *Manager) Commit(tx *Tx) (*change.Change, change.ChangeHash, error) {
	defer m.release()
	if tx.done {
		return nil, change.ChangeHash{}, errors.WithStack(&TxError{Kind: TxErrAlreadyFinished, Msg: "commit called twice"})
	}
	tx.done = true

	deps := m.store.Graph().Tips()
	actors := actorTableFor(tx, m.store)

	c := &change.Change{
		Actor:   tx.actor,
		Seq:     tx.seq,
		StartOp: tx.startOp,
		Deps:    deps,
		Ops:     tx.ops,
		Message: tx.message,
		HasMsg:  tx.hasMsg,
		Actors:  actors,
	}
	if err := c.Validate(); err != nil {
		return nil, change.ChangeHash{}, err
	}
	hash, err := m.store.Graph().Insert(c)
	if err != nil {
		return nil, change.ChangeHash{}, err
	}
	return c, hash, nil
}

func actorTableFor(tx *Tx, store Store) []actorid.ActorId {
	all := store.Actors().Sorted()
	_ = all
	return []actorid.ActorId{tx.actor}
}

// ApplyRemoteChange runs the receive-side pipeline of §4.3.2: reject if
// the change's dependencies are not all present, verify seq contiguity,
// materialise its ops into the per-object trees, and insert it into the
// causal graph. Unlike Commit, the ops here are already fully formed
// (carrying their own actor-relative ids) rather than built up
// incrementally, so there is no undo list: a bad remote change is
// rejected wholesale before anything is mutated.
func ApplyRemoteChange(store Store, c *change.Change) (change.ChangeHash, error) {
	missing := store.Graph().MissingDeps(c)
	if len(missing) > 0 {
		return change.ChangeHash{}, errors.WithStack(&TxError{Kind: TxErrMissingDeps, Msg: fmt.Sprintf("%d missing dependencies", len(missing))})
	}

	// Validate every Pred reference before mutating anything: either it
	// names an op this same change also defines (a local forward
	// reference within one actor's transaction) or one the store already
	// knows about. A dangling Pred is a protocol violation, not a
	// deferred-dependency case like MissingDeps (§7).
	local := make(map[actorid.OpId]bool, len(c.Ops))
	for _, op := range c.Ops {
		local[op.ID] = true
	}
	for _, op := range c.Ops {
		for _, p := range op.Pred {
			if local[p] {
				continue
			}
			if _, ok := findOwningTree(store, store.Graph(), p); !ok {
				return change.ChangeHash{}, errors.WithStack(&TxError{Kind: TxErrUnknownPred, Msg: fmt.Sprintf("op %s references unknown pred %s", op.ID, p)})
			}
		}
	}

	hash, err := store.Graph().Insert(c)
	if err != nil {
		return change.ChangeHash{}, err
	}
	byObj := map[opmodel.ObjId][]opmodel.Op{}
	for _, op := range c.Ops {
		byObj[op.Obj] = append(byObj[op.Obj], op)
	}
	objTypes := inferObjTypes(c.Ops)
	for obj, ops := range byObj {
		tree := store.EnsureTree(obj, objTypes[obj])
		for i := range ops {
			op := ops[i]
			// See the matching guard in apply(): an Increment's pred is
			// recorded on the op itself and summed at read time, never
			// registered in the target's Succ (§4.2.4, P7).
			if op.Action.Action != opmodel.ActionIncrement {
				for _, p := range op.Pred {
					if predTree, ok := findOwningTree(store, store.Graph(), p); ok {
						if predOp, ok := predTree.ByID(p); ok {
							predOp.AddSucc(op.ID)
						}
					}
				}
			}
			afterPos := resolveInsertPos(tree, op.Key, op.Insert)
			tree.Insert(afterPos, &op)
		}
	}
	return hash, nil
}

func inferObjTypes(ops []opmodel.Op) map[opmodel.ObjId]opmodel.ObjType {
	out := map[opmodel.ObjId]opmodel.ObjType{}
	for _, op := range ops {
		if op.Action.Action == opmodel.ActionMake {
			out[opmodel.ObjId{OpId: op.ID}] = op.Action.Make
		}
	}
	return out
}

func findOwningTree(store Store, g *causalgraph.Graph, id actorid.OpId) (*optree.Tree, bool) {
	_ = g
	for _, h := range store.Graph().TopoOrder() {
		c, _ := store.Graph().Get(h)
		for _, op := range c.Ops {
			if op.ID == id {
				return store.Tree(op.Obj)
			}
		}
	}
	return nil, false
}

