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

// Package container implements the binary envelope of §4.1.1:
//
//	MAGIC(4) || HASH(32) || CHUNK_TYPE(1) || LENGTH(uLEB128) || CHUNK_BYTES
//
// and the chunk-type table distinguishing change, document and
// compressed-document containers, in the same key/value-documented-
// constants style as erigon-lib/kv's table list.
package container

import (
	"bytes"
	"crypto/sha256"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/erigontech/automerge/internal/columnar"
)

// Magic is the 4-byte container magic number (§4.1.1).
var Magic = [4]byte{0x85, 0x6F, 0x4A, 0x83}

// ChunkType distinguishes the container payload kinds (§4.1.1, §6.1).
type ChunkType uint8

const (
	// ChunkDocument carries the document payload automerge.Save builds:
	// a change count, the table of change hashes, then every change's own
	// ChunkChange container (§6.1 "Document container").
	ChunkDocument ChunkType = 0

	// ChunkChange carries a single change, self-describing, used over
	// the sync protocol (§6.1 "Change container").
	ChunkChange ChunkType = 1

	// ChunkDeflateDocument is a document container whose whole payload
	// is compressed as a single DEFLATE block with the standard library's
	// compress/flate (§6.1 "optional compressed variants").
	ChunkDeflateDocument ChunkType = 2

	// ChunkSnappyDocument is a document container whose payload is
	// compressed as a single snappy block rather than per column,
	// trading compression ratio for decode speed (§11 domain-stack
	// wiring of golang/snappy).
	ChunkSnappyDocument ChunkType = 3
)

// Errors from §4.1.6, fatal for the containing container only.
var (
	ErrBadMagic          = errors.New("container: bad magic number")
	ErrBadHash           = errors.New("container: hash mismatch")
	ErrUnknownChunkType  = errors.New("container: unknown chunk type")
	ErrTruncated         = errors.New("container: truncated container")
)

// Encode frames payload as one container: MAGIC || HASH || CHUNK_TYPE ||
// LENGTH || CHUNK_BYTES, where HASH = SHA-256(CHUNK_TYPE || LENGTH ||
// CHUNK_BYTES).
func Encode(typ ChunkType, payload []byte) []byte {
	var body []byte
	body = append(body, byte(typ))
	body = columnar.AppendUvarint(body, uint64(len(payload)))
	body = append(body, payload...)

	h := sha256.Sum256(body)

	out := make([]byte, 0, 4+32+len(body))
	out = append(out, Magic[:]...)
	out = append(out, h[:]...)
	out = append(out, body...)
	return out
}

// Chunk is one decoded container (§4.1.1).
type Chunk struct {
	Hash    [32]byte
	Type    ChunkType
	Payload []byte
}

// DecodeOne reads a single container from the front of buf, returning
// the chunk and the number of bytes consumed.
func DecodeOne(buf []byte) (Chunk, int, error) {
	if len(buf) < 4+32+1 {
		return Chunk{}, 0, pkgerrors.WithStack(ErrTruncated)
	}
	if !bytes.Equal(buf[:4], Magic[:]) {
		return Chunk{}, 0, pkgerrors.WithStack(ErrBadMagic)
	}
	var hash [32]byte
	copy(hash[:], buf[4:36])
	rest := buf[36:]

	typ := ChunkType(rest[0])
	length, used, err := columnar.GetUvarint(rest[1:])
	if err != nil {
		return Chunk{}, 0, pkgerrors.Wrap(err, "container: length")
	}
	headerLen := 1 + used
	if headerLen+int(length) > len(rest) {
		return Chunk{}, 0, pkgerrors.WithStack(ErrTruncated)
	}
	body := rest[:headerLen+int(length)]
	gotHash := sha256.Sum256(body)
	if gotHash != hash {
		return Chunk{}, 0, pkgerrors.WithStack(ErrBadHash)
	}
	payload := rest[headerLen : headerLen+int(length)]
	consumed := 36 + headerLen + int(length)
	return Chunk{Hash: hash, Type: typ, Payload: payload}, consumed, nil
}

// DecodeAll decodes every container concatenated in buf (§4.1.1
// "Multiple containers may be concatenated").
func DecodeAll(buf []byte) ([]Chunk, error) {
	var chunks []Chunk
	for len(buf) > 0 {
		c, n, err := DecodeOne(buf)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		buf = buf[n:]
	}
	return chunks, nil
}
