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

// GroupEncoder implements the Group column of §4.1.2: an RLE of u64
// counts, followed by the concatenated bytes of N inner columns whose
// row count equals the sum of the counts (used to encode e.g. a Pred
// column as a count-per-op followed by the flattened OpId pairs).
type GroupEncoder struct {
	counts *Encoder[uint64]
	inner  [][]byte
}

func NewGroupEncoder(numInner int) *GroupEncoder {
	return &GroupEncoder{
		counts: NewIntegerEncoder(),
		inner:  make([][]byte, numInner),
	}
}

// AppendCount records how many rows the next group contributes to each
// inner column.
func (g *GroupEncoder) AppendCount(n uint64) { g.counts.Append(n) }

// SetInner stores b as the encoded bytes of inner column i, built by the
// caller with the matching Encoder.
func (g *GroupEncoder) SetInner(i int, b []byte) { g.inner[i] = b }

func (g *GroupEncoder) Bytes() []byte {
	countsBuf := g.counts.Bytes()
	var out []byte
	out = AppendUvarint(out, uint64(len(countsBuf)))
	out = append(out, countsBuf...)
	for _, b := range g.inner {
		out = AppendUvarint(out, uint64(len(b)))
		out = append(out, b...)
	}
	return out
}

// GroupCursor decodes a Group column back into its per-row counts; the
// inner columns are decoded independently by the caller once it knows
// their byte ranges (returned by Inner).
type GroupCursor struct {
	countsBuf []byte
	inner     [][]byte
}

// DecodeGroup splits a Group column's bytes into the counts sub-column
// and the numInner inner column byte slices, mirroring GroupEncoder.Bytes.
func DecodeGroup(buf []byte, numInner int) (*GroupCursor, error) {
	n, used, err := GetUvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[used:]
	if int(n) > len(buf) {
		return nil, ErrTruncatedLEB
	}
	countsBuf := buf[:n]
	buf = buf[n:]
	inner := make([][]byte, numInner)
	for i := 0; i < numInner; i++ {
		l, used, err := GetUvarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[used:]
		if int(l) > len(buf) {
			return nil, ErrTruncatedLEB
		}
		inner[i] = buf[:l]
		buf = buf[l:]
	}
	return &GroupCursor{countsBuf: countsBuf, inner: inner}, nil
}

func (g *GroupCursor) Counts() *Cursor[uint64] { return NewIntegerCursor(g.countsBuf) }

func (g *GroupCursor) Inner(i int) []byte { return g.inner[i] }
