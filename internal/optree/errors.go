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

package optree

import "fmt"

// StoreErrorKind classifies a rejected op-store operation (§7, §10.2).
type StoreErrorKind uint8

const (
	StoreErrUnknownPred StoreErrorKind = iota
	StoreErrPositionNotFound
)

func (k StoreErrorKind) String() string {
	switch k {
	case StoreErrUnknownPred:
		return "unknown-pred"
	case StoreErrPositionNotFound:
		return "position-not-found"
	default:
		return "unknown"
	}
}

// StoreError is the typed error op-tree lookups return when the caller
// needs to branch on the failure kind via errors.As (§10.2).
type StoreError struct {
	Kind StoreErrorKind
	Msg  string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("optree: %s: %s", e.Kind, e.Msg)
}
