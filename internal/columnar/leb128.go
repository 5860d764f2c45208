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

// Package columnar implements the binary column codec of §4.1: RLE,
// delta, boolean, LEB128, grouped and value columns, restartable over a
// byte slab (§9 "Iterators").
package columnar

import "errors"

// AppendUvarint appends an unsigned LEB128 encoding of v to buf.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendVarint appends a signed LEB128 encoding of v to buf.
func AppendVarint(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// ErrTruncatedLEB is returned when a LEB128 varint runs off the end of
// the input (§4.1.6 TruncatedLEB).
var ErrTruncatedLEB = errors.New("columnar: truncated LEB128 varint")

// GetUvarint decodes an unsigned LEB128 varint from buf, returning the
// value, the number of bytes consumed, and an error.
func GetUvarint(buf []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, ErrTruncatedLEB
		}
	}
	return 0, 0, ErrTruncatedLEB
}

// GetVarint decodes a signed LEB128 varint from buf.
func GetVarint(buf []byte) (int64, int, error) {
	var result int64
	var shift uint
	var b byte
	i := 0
	for {
		if i >= len(buf) {
			return 0, 0, ErrTruncatedLEB
		}
		b = buf[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		i++
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, 0, ErrTruncatedLEB
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i, nil
}

// UvarintSize returns the number of bytes AppendUvarint would emit for v,
// used by the RLE encoder's slab-boundary bookkeeping (§4.1.3).
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
