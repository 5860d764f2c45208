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

import "fmt"

// Run is one logical block of an RLE column: either Count repetitions of
// Value (Count > 0), or Count nulls (Value's zero value, IsNull true).
type Run[T any] struct {
	Count   int
	Value   T
	IsNull  bool
}

// Packable is implemented by every scalar type an RLE column can carry:
// u64 counters, i64 deltas, interned strings, actor indices.
type Packable interface {
	~uint64 | ~int64 | ~uint32 | ~string
}

// Cursor reads an RLE-encoded column as a finite, non-restartable lazy
// sequence of decoded values (§9 "Iterators"): each call to Next returns
// the next logical row, consuming from the underlying slab.
type Cursor[T Packable] struct {
	buf       []byte
	pos       int
	remaining int  // values left in the current run
	isNull    bool
	literal   bool // current run is a literal (distinct-neighbour) run
	cur       T
	decode    func([]byte) (T, int, error)
}

// NewCursor constructs a decoder over buf. decode reads one literal
// value (not a run header) from the front of its argument.
func NewCursor[T Packable](buf []byte, decode func([]byte) (T, int, error)) *Cursor[T] {
	return &Cursor[T]{buf: buf, decode: decode}
}

// Next returns the next row. ok is false once the column is exhausted.
func (c *Cursor[T]) Next() (value T, isNull bool, ok bool, err error) {
	for c.remaining == 0 {
		if c.pos >= len(c.buf) {
			return value, false, false, nil
		}
		n, used, derr := GetVarint(c.buf[c.pos:])
		if derr != nil {
			return value, false, false, fmt.Errorf("rle: run header: %w", derr)
		}
		c.pos += used
		switch {
		case n > 0:
			// single value repeated n times
			v, used2, derr2 := c.decode(c.buf[c.pos:])
			if derr2 != nil {
				return value, false, false, fmt.Errorf("rle: run value: %w", derr2)
			}
			c.pos += used2
			c.cur = v
			c.remaining = int(n)
			c.isNull = false
			c.literal = false
		case n < 0:
			c.remaining = int(-n)
			c.isNull = false
			c.literal = true
		default:
			k, used2, derr2 := GetUvarint(c.buf[c.pos:])
			if derr2 != nil {
				return value, false, false, fmt.Errorf("rle: null run length: %w", derr2)
			}
			c.pos += used2
			c.remaining = int(k)
			c.isNull = true
			c.literal = false
		}
	}
	c.remaining--
	if c.isNull {
		return value, true, true, nil
	}
	if c.literal {
		v, used, derr := c.decode(c.buf[c.pos:])
		if derr != nil {
			return value, false, false, fmt.Errorf("rle: literal value: %w", derr)
		}
		c.pos += used
		return v, false, true, nil
	}
	return c.cur, false, true, nil
}

// DecodeRuns drains an entire column into a slice of Run descriptors,
// preserving null runs, for random access rather than a streaming
// cursor.
func DecodeRuns[T Packable](buf []byte, decode func([]byte) (T, int, error)) ([]Run[T], error) {
	c := NewCursor(buf, decode)
	var runs []Run[T]
	for {
		v, isNull, ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if isNull && last.IsNull {
				last.Count++
				continue
			}
			if !isNull && !last.IsNull && any(last.Value) == any(v) {
				last.Count++
				continue
			}
		}
		runs = append(runs, Run[T]{Count: 1, Value: v, IsNull: isNull})
	}
	return runs, nil
}

// Encoder accumulates logical rows (possibly null) and coalesces runs on
// the fly, matching the RLE block grammar of §4.1.3. It also performs
// lit-run copy-forwarding: consecutive single, non-repeating values are
// buffered as one literal run rather than emitted as length-1 repeat
// runs, so re-encoding identical logical content is byte-identical
// (§4.1.3 "Decoders are restartable... re-encoded output is
// byte-identical").
// row is one buffered logical value, null or not, awaiting block-grammar
// assembly at Bytes() time.
type row[T any] struct {
	v      T
	isNull bool
}

type Encoder[T Packable] struct {
	encode func([]byte, T) []byte
	equal  func(T, T) bool
	rows   []row[T]
}

func NewEncoder[T Packable](encode func([]byte, T) []byte, equal func(T, T) bool) *Encoder[T] {
	return &Encoder[T]{encode: encode, equal: equal}
}

func (e *Encoder[T]) AppendNull() { e.rows = append(e.rows, row[T]{isNull: true}) }

func (e *Encoder[T]) Append(v T) { e.rows = append(e.rows, row[T]{v: v}) }

// Bytes assembles the buffered rows into the §4.1.3 block grammar: runs
// of >=2 repeated values become a repeat block, null spans become a
// null block, and maximal spans of non-null, pairwise-distinct-neighbour
// values become one literal block. This is the canonical encoding a
// restartable RLE Cursor round-trips to, so re-encoding identical
// logical content is byte-identical regardless of how it was built up.
func (e *Encoder[T]) Bytes() []byte {
	var out []byte
	rows := e.rows
	i := 0
	for i < len(rows) {
		if rows[i].isNull {
			j := i
			for j < len(rows) && rows[j].isNull {
				j++
			}
			out = AppendVarint(out, 0)
			out = AppendUvarint(out, uint64(j-i))
			i = j
			continue
		}
		// repeat run: count how many rows equal rows[i]
		j := i
		for j < len(rows) && !rows[j].isNull && e.equal(rows[j].v, rows[i].v) {
			j++
		}
		if j-i >= 2 {
			out = AppendVarint(out, int64(j-i))
			out = e.encode(out, rows[i].v)
			i = j
			continue
		}
		// literal run: consume a maximal span of non-null values where no
		// two adjacent values are equal (a length-1 "run" folds in here).
		k := i + 1
		for k < len(rows) && !rows[k].isNull {
			// stop a literal run just before a pair of equal neighbours,
			// which starts a new repeat run instead.
			if k+1 < len(rows) && !rows[k+1].isNull && e.equal(rows[k].v, rows[k+1].v) {
				break
			}
			if e.equal(rows[k].v, rows[k-1].v) {
				break
			}
			k++
		}
		out = AppendVarint(out, -int64(k-i))
		for _, r := range rows[i:k] {
			out = e.encode(out, r.v)
		}
		i = k
	}
	return out
}
