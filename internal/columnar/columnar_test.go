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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/automerge/internal/opmodel"
)

func TestUvarintRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Uint64().Draw(rt, "v")
		buf := AppendUvarint(nil, v)
		got, n, err := GetUvarint(buf)
		require.NoError(rt, err)
		require.Equal(rt, len(buf), n)
		require.Equal(rt, v, got)
	})
}

func TestVarintRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Int64().Draw(rt, "v")
		buf := AppendVarint(nil, v)
		got, n, err := GetVarint(buf)
		require.NoError(rt, err)
		require.Equal(rt, len(buf), n)
		require.Equal(rt, v, got)
	})
}

func TestGetUvarintRejectsTruncated(t *testing.T) {
	_, _, err := GetUvarint([]byte{0x80, 0x80})
	require.ErrorIs(t, err, ErrTruncatedLEB)
}

func TestIntegerColumnRoundTrips(t *testing.T) {
	enc := NewIntegerEncoder()
	values := []uint64{1, 1, 1, 2, 3, 3, 4}
	for _, v := range values {
		enc.Append(v)
	}
	buf := enc.Bytes()

	cur := NewIntegerCursor(buf)
	var got []uint64
	for {
		v, isNull, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.False(t, isNull)
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestIntegerColumnWithNulls(t *testing.T) {
	enc := NewIntegerEncoder()
	enc.Append(5)
	enc.AppendNull()
	enc.AppendNull()
	enc.Append(7)
	buf := enc.Bytes()

	cur := NewIntegerCursor(buf)
	v, isNull, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, isNull)
	require.Equal(t, uint64(5), v)

	_, isNull, ok, err = cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, isNull)

	_, isNull, ok, err = cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, isNull)

	v, isNull, ok, err = cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, isNull)
	require.Equal(t, uint64(7), v)

	_, _, ok, err = cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeltaColumnRoundTrips(t *testing.T) {
	enc := NewDeltaEncoder()
	values := []int64{10, 11, 12, 12, 20, 5}
	for _, v := range values {
		enc.Append(v)
	}
	buf := enc.Bytes()

	cur := NewDeltaCursor(buf)
	var got []int64
	for {
		v, isNull, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.False(t, isNull)
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestStringColumnRoundTrips(t *testing.T) {
	enc := NewStringEncoder()
	values := []string{"a", "a", "bb", "ccc", "ccc"}
	for _, v := range values {
		enc.Append(v)
	}
	buf := enc.Bytes()

	cur := NewStringCursor(buf)
	var got []string
	for {
		v, isNull, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.False(t, isNull)
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestBooleanColumnRoundTrips(t *testing.T) {
	enc := NewBooleanEncoder()
	values := []bool{false, false, true, true, true, false}
	for _, v := range values {
		enc.Append(v)
	}
	buf := enc.Bytes()

	cur := NewBooleanCursor(buf)
	var got []bool
	for {
		v, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestBooleanColumnStartingTrue(t *testing.T) {
	enc := NewBooleanEncoder()
	enc.Append(true)
	enc.Append(true)
	enc.Append(false)
	buf := enc.Bytes()

	cur := NewBooleanCursor(buf)
	v1, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, v1)

	v2, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, v2)

	v3, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, v3)
}

func TestGroupColumnRoundTrips(t *testing.T) {
	g := NewGroupEncoder(1)
	g.AppendCount(2)
	g.AppendCount(1)

	inner := NewIntegerEncoder()
	inner.Append(100)
	inner.Append(101)
	inner.Append(200)
	g.SetInner(0, inner.Bytes())

	buf := g.Bytes()
	decoded, err := DecodeGroup(buf, 1)
	require.NoError(t, err)

	var counts []uint64
	cc := decoded.Counts()
	for {
		v, _, ok, err := cc.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		counts = append(counts, v)
	}
	require.Equal(t, []uint64{2, 1}, counts)

	innerCur := NewIntegerCursor(decoded.Inner(0))
	var innerVals []uint64
	for {
		v, _, ok, err := innerCur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		innerVals = append(innerVals, v)
	}
	require.Equal(t, []uint64{100, 101, 200}, innerVals)
}

func TestDecodeGroupRejectsTruncated(t *testing.T) {
	_, err := DecodeGroup([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 1)
	require.Error(t, err)
}

func TestScalarPayloadRoundTripsAllKinds(t *testing.T) {
	cases := []opmodel.ScalarValue{
		opmodel.Null(),
		opmodel.Bool(true),
		opmodel.Bool(false),
		opmodel.Int(-12345),
		opmodel.Uint(98765),
		opmodel.F64(3.25),
		opmodel.Str("hello world"),
		opmodel.Bytes([]byte{1, 2, 3}),
		opmodel.Counter(42),
		opmodel.Timestamp(1690000000),
	}
	for _, v := range cases {
		buf, word := EncodeScalarPayload(nil, v)
		got, err := DecodeScalarPayload(word, buf)
		require.NoError(t, err)
		require.True(t, v.Equal(got), "kind %v", v.Kind)
	}
}

func TestDecodeScalarPayloadRejectsShortPayload(t *testing.T) {
	word := PackMeta(10, uint8(VString))
	_, err := DecodeScalarPayload(word, []byte("short"))
	require.Error(t, err)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	require.Equal(t, DecodeErrValuePayload, decErr.Kind)
}

func TestDecodeScalarPayloadRejectsBadTypeCode(t *testing.T) {
	word := PackMeta(0, 9) // 9 is unassigned: not a known code, not in the 10..15 Unknown range
	_, err := DecodeScalarPayload(word, nil)
	require.Error(t, err)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	require.Equal(t, DecodeErrBadMetadata, decErr.Kind)
	require.ErrorIs(t, err, ErrInvalidValueType)
}

func TestUnknownScalarRoundTrips(t *testing.T) {
	v := opmodel.Unknown(12, []byte{0xAB, 0xCD})
	buf, word := EncodeScalarPayload(nil, v)
	got, err := DecodeScalarPayload(word, buf)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}
