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

package causalgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/change"
)

func mkChange(actor actorid.ActorId, seq uint64, deps ...change.ChangeHash) *change.Change {
	return &change.Change{
		Actor:   actor,
		Seq:     seq,
		StartOp: seq,
		Deps:    deps,
		Actors:  []actorid.ActorId{actor},
	}
}

func TestInsertRejectsMissingDep(t *testing.T) {
	g := New()
	actor := actorid.ActorId{0x01}
	var bogus change.ChangeHash
	bogus[0] = 0xFF
	c := mkChange(actor, 1, bogus)

	_, err := g.Insert(c)
	require.Error(t, err)
	var missing *MissingDepError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, bogus, missing.Hash)
}

func TestInsertRejectsSeqMismatch(t *testing.T) {
	g := New()
	actor := actorid.ActorId{0x01}
	c := mkChange(actor, 2) // first change from this actor must be seq 1

	_, err := g.Insert(c)
	require.Error(t, err)
	var mismatch *SeqMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, uint64(2), mismatch.Got)
	require.Equal(t, uint64(1), mismatch.Want)
}

func TestInsertIsIdempotent(t *testing.T) {
	g := New()
	actor := actorid.ActorId{0x01}
	c := mkChange(actor, 1)

	h1, err := g.Insert(c)
	require.NoError(t, err)
	h2, err := g.Insert(c)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestTipsAndAncestry(t *testing.T) {
	g := New()
	actor := actorid.ActorId{0x01}

	c1 := mkChange(actor, 1)
	h1, err := g.Insert(c1)
	require.NoError(t, err)

	c2 := mkChange(actor, 2, h1)
	h2, err := g.Insert(c2)
	require.NoError(t, err)

	require.ElementsMatch(t, []change.ChangeHash{h2}, g.Tips())
	require.True(t, g.IsAncestor(h1, h2))
	require.False(t, g.IsAncestor(h2, h1))
	require.True(t, g.IsAncestor(h1, h1))
}

func TestMissingDepsReportsAllAbsentDeps(t *testing.T) {
	g := New()
	var d1, d2 change.ChangeHash
	d1[0], d2[0] = 1, 2
	c := mkChange(actorid.ActorId{0x01}, 1, d1, d2)
	require.ElementsMatch(t, []change.ChangeHash{d1, d2}, g.MissingDeps(c))
}
