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

package columnar

// ColumnType selects among the column encodings of §4.1.2.
type ColumnType uint8

const (
	ColActor ColumnType = iota
	ColInteger
	ColDeltaInteger
	ColBoolean
	ColString
	ColValueMetadata
	ColValue
	ColGroup
)

// Spec packs (column_id, column_type, deflate_bit) into the uLEB128
// header that precedes every column (§4.1.2).
type Spec struct {
	ColumnID   uint32
	ColumnType ColumnType
	Deflate    bool
}

func (s Spec) Encode() uint64 {
	word := uint64(s.ColumnID) << 4
	word |= uint64(s.ColumnType) & 0x7
	if s.Deflate {
		word |= 0x8
	}
	return word
}

func DecodeSpec(word uint64) Spec {
	return Spec{
		ColumnID:   uint32(word >> 4),
		ColumnType: ColumnType(word & 0x7),
		Deflate:    word&0x8 != 0,
	}
}

// --- Integer column: RLE of u64 ---

func EncodeUvarint(buf []byte, v uint64) []byte { return AppendUvarint(buf, v) }
func decodeUvarintAt(buf []byte) (uint64, int, error) { return GetUvarint(buf) }

func NewIntegerEncoder() *Encoder[uint64] {
	return NewEncoder[uint64](EncodeUvarint, func(a, b uint64) bool { return a == b })
}

func NewIntegerCursor(buf []byte) *Cursor[uint64] {
	return NewCursor[uint64](buf, decodeUvarintAt)
}

// --- DeltaInteger column: delta-then-RLE of i64 ---

// DeltaEncoder converts an absolute i64 sequence into deltas-from-previous
// (first value is delta from zero) before RLE-encoding them, so runs of
// evenly-spaced values (e.g. successive OpId counters) collapse to a
// single run (§4.1.2 "DeltaInteger").
type DeltaEncoder struct {
	inner *Encoder[int64]
	prev  int64
}

func NewDeltaEncoder() *DeltaEncoder {
	return &DeltaEncoder{inner: NewEncoder[int64](AppendVarint, func(a, b int64) bool { return a == b })}
}

func (e *DeltaEncoder) Append(v int64) {
	e.inner.Append(v - e.prev)
	e.prev = v
}

func (e *DeltaEncoder) AppendNull() { e.inner.AppendNull() }

func (e *DeltaEncoder) Bytes() []byte { return e.inner.Bytes() }

type DeltaCursor struct {
	inner *Cursor[int64]
	prev  int64
}

func NewDeltaCursor(buf []byte) *DeltaCursor {
	return &DeltaCursor{inner: NewCursor[int64](buf, func(b []byte) (int64, int, error) { return GetVarint(b) })}
}

func (c *DeltaCursor) Next() (value int64, isNull bool, ok bool, err error) {
	delta, isNull, ok, err := c.inner.Next()
	if err != nil || !ok || isNull {
		return 0, isNull, ok, err
	}
	c.prev += delta
	return c.prev, false, true, nil
}

// --- Actor column: RLE of actor indices ---

func NewActorEncoder() *Encoder[uint32] {
	return NewEncoder[uint32](func(b []byte, v uint32) []byte { return AppendUvarint(b, uint64(v)) },
		func(a, b uint32) bool { return a == b })
}

func NewActorCursor(buf []byte) *Cursor[uint32] {
	return NewCursor[uint32](buf, func(b []byte) (uint32, int, error) {
		v, n, err := GetUvarint(b)
		return uint32(v), n, err
	})
}

// --- String column: RLE of interned strings ---

func NewStringEncoder() *Encoder[string] {
	return NewEncoder[string](func(b []byte, v string) []byte {
		b = AppendUvarint(b, uint64(len(v)))
		return append(b, v...)
	}, func(a, b string) bool { return a == b })
}

func NewStringCursor(buf []byte) *Cursor[string] {
	return NewCursor[string](buf, func(b []byte) (string, int, error) {
		n, used, err := GetUvarint(b)
		if err != nil {
			return "", 0, err
		}
		if used+int(n) > len(b) {
			return "", 0, ErrTruncatedLEB
		}
		return string(b[used : used+int(n)]), used + int(n), nil
	})
}
