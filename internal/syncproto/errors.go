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

package syncproto

import "fmt"

// ProtocolErrorKind classifies why a sync message was rejected (§7, §10.2).
type ProtocolErrorKind uint8

const (
	ProtocolErrTruncated ProtocolErrorKind = iota
	ProtocolErrUnsupportedVersion
	ProtocolErrBadChange
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case ProtocolErrTruncated:
		return "truncated"
	case ProtocolErrUnsupportedVersion:
		return "unsupported-version"
	case ProtocolErrBadChange:
		return "bad-change"
	default:
		return "unknown"
	}
}

// ProtocolError is the typed error sync message decode/apply returns so a
// caller can branch on the failure kind via errors.As instead of matching
// the message text (§10.2). Err, when set, is the underlying cause and is
// reachable through Unwrap.
type ProtocolError struct {
	Kind ProtocolErrorKind
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("syncproto: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("syncproto: %s", e.Kind)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
