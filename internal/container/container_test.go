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

package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/automerge/internal/columnar"
)

func TestEncodeDecodeOneRoundTrips(t *testing.T) {
	payload := []byte("hello change bytes")
	buf := Encode(ChunkChange, payload)

	chunk, n, err := DecodeOne(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, ChunkChange, chunk.Type)
	require.Equal(t, payload, chunk.Payload)
}

func TestDecodeOneRejectsBadMagic(t *testing.T) {
	buf := Encode(ChunkDocument, []byte("x"))
	buf[0] ^= 0xFF
	_, _, err := DecodeOne(buf)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeOneRejectsCorruptedHash(t *testing.T) {
	buf := Encode(ChunkDocument, []byte("payload"))
	buf[10] ^= 0xFF // inside the 32-byte hash field
	_, _, err := DecodeOne(buf)
	require.ErrorIs(t, err, ErrBadHash)
}

func TestDecodeOneRejectsTruncated(t *testing.T) {
	buf := Encode(ChunkChange, []byte("payload"))
	_, _, err := DecodeOne(buf[:len(buf)-2])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeAllHandlesConcatenatedContainers(t *testing.T) {
	a := Encode(ChunkChange, []byte("first"))
	b := Encode(ChunkChange, []byte("second"))
	buf := append(append([]byte{}, a...), b...)

	chunks, err := DecodeAll(buf)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, []byte("first"), chunks[0].Payload)
	require.Equal(t, []byte("second"), chunks[1].Payload)
}

func TestEncodeDecodeColumnsRoundTrips(t *testing.T) {
	cols := []Column{
		{Spec: columnar.Spec{ColumnID: 0, ColumnType: columnar.ColString}, Data: []byte("raw-column")},
		{Spec: columnar.Spec{ColumnID: 1, ColumnType: columnar.ColString}, Data: []byte("another")},
	}
	buf, err := EncodeColumns(cols)
	require.NoError(t, err)

	decoded, err := DecodeColumns(buf)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, cols[0].Data, decoded[0].Data)
	require.Equal(t, cols[1].Data, decoded[1].Data)
}

func TestEncodeDecodeColumnsWithDeflate(t *testing.T) {
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	cols := []Column{{Spec: columnar.Spec{ColumnID: 0, ColumnType: columnar.ColString, Deflate: true}, Data: payload}}
	buf, err := EncodeColumns(cols)
	require.NoError(t, err)

	decoded, err := DecodeColumns(buf)
	require.NoError(t, err)
	require.Equal(t, payload, decoded[0].Data)
}

func TestDeflateInflateBlockRoundTrips(t *testing.T) {
	payload := []byte("some reasonably compressible text text text text")
	compressed, err := DeflateBlock(payload)
	require.NoError(t, err)
	got, err := InflateBlock(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestSnappyUnsnappyBlockRoundTrips(t *testing.T) {
	payload := []byte("some reasonably compressible text text text text")
	compressed := SnappyBlock(payload)
	got, err := UnsnappyBlock(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}
