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

package transaction

import "fmt"

// TxErrorKind classifies why a transaction operation was refused (§7,
// §10.2).
type TxErrorKind uint8

const (
	TxErrAlreadyFinished TxErrorKind = iota
	TxErrMissingDeps
	TxErrUnknownPred
)

func (k TxErrorKind) String() string {
	switch k {
	case TxErrAlreadyFinished:
		return "already-finished"
	case TxErrMissingDeps:
		return "missing-deps"
	case TxErrUnknownPred:
		return "unknown-pred"
	default:
		return "unknown"
	}
}

// TxError is the typed error transaction operations return so a caller
// can branch with errors.As instead of matching a message (§10.2).
type TxError struct {
	Kind TxErrorKind
	Msg  string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction: %s: %s", e.Kind, e.Msg)
}
