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

package change

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/container"
	"github.com/erigontech/automerge/internal/opmodel"
)

func sampleChange() *Change {
	actor := actorid.ActorId(make([]byte, 16))
	actor[0] = 0x01
	return &Change{
		Actor:   actor,
		Seq:     1,
		StartOp: 1,
		Time:    1690000000,
		Message: "seed document",
		HasMsg:  true,
		Actors:  []actorid.ActorId{actor},
		Ops: []opmodel.Op{
			{
				ID:     actorid.OpId{Counter: 1, Actor: 0},
				Obj:    opmodel.Root,
				Key:    actorid.MapKey("title"),
				Action: opmodel.MakePut(opmodel.Str("hello")),
				Insert: false,
			},
			{
				ID:     actorid.OpId{Counter: 2, Actor: 0},
				Obj:    opmodel.Root,
				Key:    actorid.MapKey("count"),
				Action: opmodel.MakePut(opmodel.Int(42)),
				Pred:   []actorid.OpId{{Counter: 1, Actor: 0}},
			},
		},
	}
}

func TestValidateRejectsZeroSeq(t *testing.T) {
	c := sampleChange()
	c.Seq = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsNonContiguousOpCounters(t *testing.T) {
	c := sampleChange()
	c.Ops[1].ID.Counter = 99
	require.Error(t, c.Validate())
}

func TestHashIsDeterministicAcrossCalls(t *testing.T) {
	c := sampleChange()
	h1 := c.Hash()
	h2 := c.Hash()
	require.Equal(t, h1, h2)
}

func TestHashChangesWithContent(t *testing.T) {
	c1 := sampleChange()
	c2 := sampleChange()
	c2.Message = "different message"
	require.NotEqual(t, c1.Hash(), c2.Hash())
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	c := sampleChange()
	buf, err := Encode(c)
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)

	require.Equal(t, c.Actor, decoded.Actor)
	require.Equal(t, c.Seq, decoded.Seq)
	require.Equal(t, c.StartOp, decoded.StartOp)
	require.Equal(t, c.Time, decoded.Time)
	require.Equal(t, c.Message, decoded.Message)
	require.True(t, decoded.HasMsg)
	require.Equal(t, c.Hash(), decoded.Hash())
	require.Len(t, decoded.Ops, 2)
	require.Equal(t, c.Ops[0].Key.String(), decoded.Ops[0].Key.String())
	require.True(t, c.Ops[0].Action.Put.Equal(decoded.Ops[0].Action.Put))
	require.Equal(t, c.Ops[1].Pred, decoded.Ops[1].Pred)
}

func TestEncodeDecodeRoundTripsListInsertOps(t *testing.T) {
	actor := actorid.ActorId(make([]byte, 16))
	actor[0] = 0x02
	listID := opmodel.ObjId{OpId: actorid.OpId{Counter: 5, Actor: 0}}
	c := &Change{
		Actor:   actor,
		Seq:     1,
		StartOp: 1,
		Actors:  []actorid.ActorId{actor},
		Ops: []opmodel.Op{
			{
				ID:     actorid.OpId{Counter: 1, Actor: 0},
				Obj:    listID,
				Key:    actorid.ElemKey(actorid.Head),
				Action: opmodel.MakePut(opmodel.Int(7)),
				Insert: true,
			},
		},
	}

	buf, err := Encode(c)
	require.NoError(t, err)
	decoded, err := Decode(buf)
	require.NoError(t, err)

	require.Len(t, decoded.Ops, 1)
	require.True(t, decoded.Ops[0].Insert)
	require.False(t, decoded.Ops[0].Key.IsMap)
	require.True(t, decoded.Ops[0].Key.IsHead())
}

func TestDecodeRejectsNonChangeChunk(t *testing.T) {
	buf := container.Encode(container.ChunkDocument, []byte("not a change"))
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestSortHashesOrdersAscending(t *testing.T) {
	var h1, h2, h3 ChangeHash
	h1[0], h2[0], h3[0] = 3, 1, 2
	hs := []ChangeHash{h1, h2, h3}
	SortHashes(hs)
	require.Equal(t, []ChangeHash{h2, h3, h1}, hs)
}
