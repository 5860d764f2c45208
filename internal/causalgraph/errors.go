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
	"fmt"

	"github.com/erigontech/automerge/internal/change"
)

// MissingDepError reports that a change named a dependency the graph
// has not seen yet (§4.3.2 step 2, §7). A caller holding a pending-
// change queue can match on this with errors.As instead of parsing the
// message to decide whether to buffer and retry.
type MissingDepError struct {
	Hash change.ChangeHash
}

func (e *MissingDepError) Error() string {
	return fmt.Sprintf("causalgraph: missing dependency %x", e.Hash)
}

// SeqMismatchError reports that a change's Seq was not exactly one more
// than the actor's previously recorded seq (§3.3, §4.3.2 step 5).
type SeqMismatchError struct {
	Actor string
	Got   uint64
	Want  uint64
}

func (e *SeqMismatchError) Error() string {
	return fmt.Sprintf("causalgraph: actor %s: change seq %d, expected %d", e.Actor, e.Got, e.Want)
}
