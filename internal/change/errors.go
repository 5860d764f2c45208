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

import "errors"

// Decode-time errors specific to the change codec (§4.1.6, §7); BadMagic,
// BadHash, UnknownChunkType and TruncatedLEB surface from internal/container
// and internal/columnar unchanged and are not redeclared here.
var (
	ErrUtf8                 = errors.New("change: key or message is not valid UTF-8")
	ErrNegativeCounter      = errors.New("change: counter op carries a negative value")
	ErrUnknownAction        = errors.New("change: unrecognised op action code")
	ErrDepsOutOfRange       = errors.New("change: dependency index out of range")
	ErrActorIndexOutOfRange = errors.New("change: actor index out of range")
)
