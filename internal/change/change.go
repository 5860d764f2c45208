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

// Package change implements the Change bundle of §3.3: its invariants,
// its byte-deterministic hashable encoding, and the change-container
// codec of §4.1.1/§4.1.2 built on top of internal/columnar and
// internal/container.
package change

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/columnar"
	"github.com/erigontech/automerge/internal/container"
	"github.com/erigontech/automerge/internal/opmodel"
)

// ChangeHash is SHA-256 over a change's canonical encoding (§3.1, §3.3).
type ChangeHash [32]byte

func (h ChangeHash) Less(o ChangeHash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// SortHashes sorts a slice of ChangeHash in place (used wherever the
// spec asks for a "sorted set", e.g. S1's "heads = sorted union").
func SortHashes(hs []ChangeHash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Less(hs[j]) })
}

// Change bundles the ops produced by one actor in one local transaction
// (§3.3).
type Change struct {
	Actor   actorid.ActorId
	Seq     uint64
	StartOp uint64
	Time    int64
	Message string
	HasMsg  bool
	Deps    []ChangeHash
	Ops     []opmodel.Op
	Extra   []byte

	// Actors is the change-local actor table: op.ID.Actor and
	// op.Obj/op.Key/op.Pred actor indices are relative to this table
	// until resolved against the document's table (§4.3.2 step 4).
	Actors []actorid.ActorId
}

// Validate checks the structural invariants of §3.3 that don't require
// store access (seq/start_op contiguity against prior state is checked
// by the causal graph at apply time, §4.3.2 step 5).
func (c *Change) Validate() error {
	if c.Seq == 0 {
		return fmt.Errorf("change: seq must be >= 1")
	}
	for i, op := range c.Ops {
		wantCounter := c.StartOp + uint64(i)
		if op.ID.Counter != wantCounter {
			return fmt.Errorf("change: op %d has counter %d, want %d (start_op=%d)", i, op.ID.Counter, wantCounter, c.StartOp)
		}
	}
	return nil
}

// Hash computes the ChangeHash over the canonical hashable encoding
// (§3.1, §3.3 "hashable encoding is byte-deterministic").
func (c *Change) Hash() ChangeHash {
	return sha256.Sum256(c.hashableBytes())
}

// hashableBytes is the canonical byte form that Hash and the container
// codec both derive from: deps sorted, then a fixed field order, then
// the op columns. This is deliberately simpler than the production
// automerge wire format (which further interns strings and actor tables
// across the whole document) but preserves the determinism property
// that matters for §8 P3: identical logical changes hash identically.
func (c *Change) hashableBytes() []byte {
	var buf []byte
	buf = columnar.AppendUvarint(buf, uint64(len(c.Actor)))
	buf = append(buf, c.Actor...)
	buf = columnar.AppendUvarint(buf, c.Seq)
	buf = columnar.AppendUvarint(buf, c.StartOp)
	buf = columnar.AppendVarint(buf, c.Time)
	if c.HasMsg {
		buf = append(buf, 1)
		buf = columnar.AppendUvarint(buf, uint64(len(c.Message)))
		buf = append(buf, c.Message...)
	} else {
		buf = append(buf, 0)
	}
	deps := append([]ChangeHash(nil), c.Deps...)
	SortHashes(deps)
	buf = columnar.AppendUvarint(buf, uint64(len(deps)))
	for _, d := range deps {
		buf = append(buf, d[:]...)
	}
	buf = columnar.AppendUvarint(buf, uint64(len(c.Actors)))
	for _, a := range c.Actors {
		buf = columnar.AppendUvarint(buf, uint64(len(a)))
		buf = append(buf, a...)
	}
	opCols := EncodeOpColumns(c.Ops)
	buf = columnar.AppendUvarint(buf, uint64(len(c.Ops)))
	buf = columnar.AppendUvarint(buf, uint64(len(opCols)))
	buf = append(buf, opCols...)
	buf = columnar.AppendUvarint(buf, uint64(len(c.Extra)))
	buf = append(buf, c.Extra...)
	return buf
}

// Encode frames c as a ChunkChange container (§4.1.1, §4.1.2): the
// change-header fields followed by the op columns, wrapped in the
// MAGIC||HASH||TYPE||LENGTH envelope.
func Encode(c *Change) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return container.Encode(container.ChunkChange, c.hashableBytes()), nil
}

// Decode parses a single ChunkChange container, reconstructing the
// Change and validating it structurally (§4.1.6, §7).
func Decode(buf []byte) (*Change, error) {
	chunk, _, err := container.DecodeOne(buf)
	if err != nil {
		return nil, errors.Wrap(err, "change: decode container")
	}
	if chunk.Type != container.ChunkChange {
		return nil, errors.Wrap(container.ErrUnknownChunkType, "change: decode")
	}
	body, err := decodeBody(chunk.Payload)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return body, nil
}

func decodeBody(body []byte) (*Change, error) {
	c := &Change{}

	// The actor id is length-prefixed, so ids of any length round-trip.
	actorLen, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	if uint64(len(body)) < actorLen {
		return nil, fmt.Errorf("change: truncated actor id")
	}
	c.Actor = actorid.ActorId(append([]byte(nil), body[:actorLen]...))
	body = body[actorLen:]

	seq, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	c.Seq = seq
	body = body[used:]

	startOp, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	c.StartOp = startOp
	body = body[used:]

	t, used, err := columnar.GetVarint(body)
	if err != nil {
		return nil, err
	}
	c.Time = t
	body = body[used:]

	if len(body) < 1 {
		return nil, fmt.Errorf("change: truncated message presence flag")
	}
	hasMsg := body[0] != 0
	body = body[1:]
	c.HasMsg = hasMsg
	if hasMsg {
		mlen, used, err := columnar.GetUvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[used:]
		if uint64(len(body)) < mlen {
			return nil, fmt.Errorf("change: truncated message")
		}
		msg := body[:mlen]
		if !utf8.Valid(msg) {
			return nil, ErrUtf8
		}
		c.Message = string(msg)
		body = body[mlen:]
	}

	numDeps, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	c.Deps = make([]ChangeHash, 0, numDeps)
	for i := uint64(0); i < numDeps; i++ {
		if len(body) < 32 {
			return nil, fmt.Errorf("change: truncated dep hash")
		}
		var h ChangeHash
		copy(h[:], body[:32])
		c.Deps = append(c.Deps, h)
		body = body[32:]
	}

	numActors, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	c.Actors = make([]actorid.ActorId, 0, numActors)
	for i := uint64(0); i < numActors; i++ {
		alen, used, err := columnar.GetUvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[used:]
		if uint64(len(body)) < alen {
			return nil, fmt.Errorf("change: truncated actor table entry")
		}
		c.Actors = append(c.Actors, actorid.ActorId(append([]byte(nil), body[:alen]...)))
		body = body[alen:]
	}

	numOps, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]

	opColsLen, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	if uint64(len(body)) < opColsLen {
		return nil, fmt.Errorf("change: truncated op columns")
	}
	opColsBuf := body[:opColsLen]
	body = body[opColsLen:]

	ops, err := DecodeOpColumns(opColsBuf, int(numOps))
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		wantCounter := c.StartOp + uint64(i)
		if op.ID.Counter != wantCounter {
			return nil, fmt.Errorf("change: op %d has counter %d, want %d", i, op.ID.Counter, wantCounter)
		}
	}
	c.Ops = ops

	extraLen, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	if uint64(len(body)) < extraLen {
		return nil, fmt.Errorf("change: truncated extra bytes")
	}
	c.Extra = append([]byte(nil), body[:extraLen]...)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
