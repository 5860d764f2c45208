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

// Package actorid defines the identifiers that thread through every other
// package of the backend: ActorId (§3.1), OpId, ElemId and the Lamport
// total order used to pick conflict winners (§4.4.1).
package actorid

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ActorId is an opaque byte string identifying an editing participant.
// Canonically 16 bytes, but any length round-trips: only lexicographic
// ordering and equality are assumed by the rest of the engine.
type ActorId []byte

// NewRandom returns a fresh 16-byte ActorId derived from a random UUIDv4.
func NewRandom() ActorId {
	id := uuid.New()
	out := make(ActorId, len(id))
	copy(out, id[:])
	return out
}

func (a ActorId) String() string { return hex.EncodeToString(a) }

// Compare implements the lexicographic ActorId ordering used as the
// tie-breaker in the Lamport order (§4.4.1).
func (a ActorId) Compare(b ActorId) int { return bytes.Compare(a, b) }

func (a ActorId) Equal(b ActorId) bool { return bytes.Equal(a, b) }

// ParseHex decodes a hex-encoded ActorId, e.g. from a config flag or a
// debugging dump.
func ParseHex(s string) (ActorId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("actorid: %w", err)
	}
	return ActorId(b), nil
}

// OpId is (counter, actor_index): the counter is the actor's Lamport
// counter at op creation, actor_index indexes into the document-local
// actor table (§3.1). (0, 0) is the reserved root object id.
type OpId struct {
	Counter uint64
	Actor   uint32
}

// RootOpId is the synthetic id of the root map object and of list-head.
var RootOpId = OpId{Counter: 0, Actor: 0}

func (o OpId) IsRoot() bool { return o.Counter == 0 && o.Actor == 0 }

// ElemId is an OpId used as the stable identity of a list position; the
// zero value means "list head".
type ElemId = OpId

// Head is the synthetic ElemId meaning "before the first element".
var Head = ElemId(RootOpId)

// String renders an OpId the conventional automerge way: "<counter>@<actor-index>".
func (o OpId) String() string { return fmt.Sprintf("%d@%d", o.Counter, o.Actor) }

// LamportLess orders two op ids under the total order used everywhere an
// op-id comparison is spec'd: counter first, then actor identity. actors
// is the document-local table mapping actor_index -> ActorId, needed
// because actor_index alone is not globally comparable across documents
// with different actor tables.
func LamportLess(a, b OpId, actors []ActorId) bool {
	if a.Counter != b.Counter {
		return a.Counter < b.Counter
	}
	return actors[a.Actor].Compare(actors[b.Actor]) < 0
}

// Compare returns -1/0/1 for a < b / a == b / a > b under LamportLess.
func Compare(a, b OpId, actors []ActorId) int {
	if a.Counter != b.Counter {
		if a.Counter < b.Counter {
			return -1
		}
		return 1
	}
	c := actors[a.Actor].Compare(actors[b.Actor])
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

// Key is either a map property name (interned string) or an ElemId (for
// sequences). Exactly one of Prop/Elem is meaningful, selected by IsMap.
type Key struct {
	IsMap bool
	Prop  string
	Elem  ElemId
}

func MapKey(prop string) Key  { return Key{IsMap: true, Prop: prop} }
func ElemKey(e ElemId) Key    { return Key{IsMap: false, Elem: e} }
func (k Key) IsHead() bool    { return !k.IsMap && k.Elem == Head }
func (k Key) String() string {
	if k.IsMap {
		return k.Prop
	}
	return k.Elem.String()
}
