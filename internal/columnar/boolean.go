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

// BooleanEncoder run-length-encodes a column of booleans (§4.1.2
// "Boolean (run-length booleans)"). Unlike the general RLE grammar this
// column starts implicitly at false and alternates, so only run lengths
// are stored (no per-run value or null marker: a boolean column has no
// concept of null).
type BooleanEncoder struct {
	out     []byte
	cur     bool
	runLen  uint64
	started bool
}

func NewBooleanEncoder() *BooleanEncoder { return &BooleanEncoder{} }

func (e *BooleanEncoder) Append(v bool) {
	if !e.started {
		e.started = true
		e.cur = false // columns always start at an implicit false run
		if v {
			// emit a zero-length leading false run so the alternation lines up
			e.out = AppendUvarint(e.out, 0)
			e.cur = true
		}
	}
	if v == e.cur {
		e.runLen++
		return
	}
	e.out = AppendUvarint(e.out, e.runLen)
	e.cur = v
	e.runLen = 1
}

func (e *BooleanEncoder) Bytes() []byte {
	if e.runLen > 0 || e.started {
		e.out = AppendUvarint(e.out, e.runLen)
	}
	return e.out
}

// BooleanCursor decodes a boolean RLE column (§4.1.2): alternating run
// lengths starting implicitly from false.
type BooleanCursor struct {
	buf       []byte
	pos       int
	cur       bool
	remaining uint64
}

func NewBooleanCursor(buf []byte) *BooleanCursor { return &BooleanCursor{buf: buf} }

func (c *BooleanCursor) Next() (value bool, ok bool, err error) {
	for c.remaining == 0 {
		if c.pos >= len(c.buf) {
			return false, false, nil
		}
		n, used, derr := GetUvarint(c.buf[c.pos:])
		if derr != nil {
			return false, false, derr
		}
		c.pos += used
		if n == 0 {
			c.cur = !c.cur
			continue
		}
		c.remaining = n
	}
	c.remaining--
	v := c.cur
	if c.remaining == 0 {
		c.cur = !c.cur
	}
	return v, true, nil
}
