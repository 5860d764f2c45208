// Copyright 2021 The Erigon Authors
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
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/erigontech/automerge/internal/columnar"
)

// Op column ids (§4.1.2: a row is an Op for op columns).
//
// ObjActor/ObjCounter together form the object id; KeyActor/KeyCounter
// are only meaningful when the key is an ElemId (sequence objects).
const (
	ColObjActor = iota
	ColObjCounter
	ColKeyActor
	ColKeyCounter
	ColKeyString
	ColIDActor
	ColIDCounter
	ColInsert
	ColAction
	ColValueMeta
	ColValueRaw
	ColPredGroup
	ColPredActor
	ColPredCounter
)

// Change-header column ids (§4.1.2: a row is a Change header for change
// columns).
const (
	ColChangeActor = iota
	ColChangeSeq
	ColChangeStartOp
	ColChangeTime
	ColChangeMessage
	ColChangeDepsGroup
	ColChangeDepsIndex // index into the document's change-hash table
	ColChangeExtra
)

// Column is one SPEC || LENGTH || DATA entry (§4.1.2).
type Column struct {
	Spec columnar.Spec
	Data []byte
}

// EncodeColumns concatenates columns, each prefixed by its header, and
// deflating any column whose Spec.Deflate bit is set (§4.1.2, §6.1).
func EncodeColumns(cols []Column) ([]byte, error) {
	var out []byte
	for _, c := range cols {
		data := c.Data
		if c.Spec.Deflate {
			compressed, err := deflateBytes(data)
			if err != nil {
				return nil, fmt.Errorf("container: deflate column %d: %w", c.Spec.ColumnID, err)
			}
			data = compressed
		}
		out = columnar.AppendUvarint(out, c.Spec.Encode())
		out = columnar.AppendUvarint(out, uint64(len(data)))
		out = append(out, data...)
	}
	return out, nil
}

// DecodeColumns splits buf into its SPEC/LENGTH/DATA entries, inflating
// any column whose deflate bit is set.
func DecodeColumns(buf []byte) ([]Column, error) {
	var cols []Column
	for len(buf) > 0 {
		word, used, err := columnar.GetUvarint(buf)
		if err != nil {
			return nil, errors.Wrap(err, "container: column spec")
		}
		buf = buf[used:]
		length, used, err := columnar.GetUvarint(buf)
		if err != nil {
			return nil, errors.Wrap(err, "container: column length")
		}
		buf = buf[used:]
		if int(length) > len(buf) {
			return nil, errors.WithStack(ErrTruncated)
		}
		data := buf[:length]
		buf = buf[length:]

		spec := columnar.DecodeSpec(word)
		if spec.Deflate {
			inflated, err := inflateBytes(data)
			if err != nil {
				return nil, errors.Wrapf(err, "container: inflate column %d", spec.ColumnID)
			}
			data = inflated
		}
		cols = append(cols, Column{Spec: spec, Data: data})
	}
	return cols, nil
}

func deflateBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflateBytes(in []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(in))
	defer r.Close()
	return io.ReadAll(r)
}

// DeflateBlock and InflateBlock expose the same DEFLATE codec
// EncodeColumns/DecodeColumns apply per column as a whole-payload pair,
// backing ChunkDeflateDocument's document-level compression (§6.1, §11).
func DeflateBlock(in []byte) ([]byte, error) { return deflateBytes(in) }
func InflateBlock(in []byte) ([]byte, error) { return inflateBytes(in) }

// SnappyBlock and UnsnappyBlock back ChunkSnappyDocument: a whole-payload
// fast compressor for document containers that favour decode speed over
// the per-column DEFLATE ratio (§11 domain-stack wiring).
func SnappyBlock(in []byte) []byte { return snappy.Encode(nil, in) }

func UnsnappyBlock(in []byte) ([]byte, error) { return snappy.Decode(nil, in) }
