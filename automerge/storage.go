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

package automerge

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/automerge/internal/change"
	"github.com/erigontech/automerge/internal/columnar"
	"github.com/erigontech/automerge/internal/container"
	"github.com/erigontech/automerge/internal/transaction"
)

// Compression selects how Save packs a document container (§6.1's
// "optional compressed variants").
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionDeflate
	CompressionSnappy
)

// Save serialises every change in the document's causal graph, in
// topological order, as a single ChunkDocument (or compressed variant)
// container (§4.1.1, §6.1, §6.3 "save").
func (d *Document) Save(compression Compression) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	order := d.graph.TopoOrder()
	var payload []byte
	payload = columnar.AppendUvarint(payload, uint64(len(order)))
	for _, h := range order {
		payload = append(payload, h[:]...)
	}
	for _, h := range order {
		c, _ := d.graph.Get(h)
		enc, err := change.Encode(c)
		if err != nil {
			return nil, errors.Wrap(err, "automerge: save: encode change")
		}
		payload = append(payload, enc...)
	}

	switch compression {
	case CompressionNone:
		return container.Encode(container.ChunkDocument, payload), nil
	case CompressionDeflate:
		compressed, err := container.DeflateBlock(payload)
		if err != nil {
			return nil, errors.Wrap(err, "automerge: save: deflate")
		}
		return container.Encode(container.ChunkDeflateDocument, compressed), nil
	case CompressionSnappy:
		return container.Encode(container.ChunkSnappyDocument, container.SnappyBlock(payload)), nil
	default:
		return nil, fmt.Errorf("automerge: save: unknown compression %d", compression)
	}
}

// Load reconstructs a Document from bytes produced by Save, replaying
// every change through the receive-side pipeline in the order the
// container lists them (§6.3 "load").
func Load(buf []byte, opts ...Option) (*Document, error) {
	chunk, _, err := container.DecodeOne(buf)
	if err != nil {
		return nil, errors.Wrap(err, "automerge: load")
	}

	var payload []byte
	switch chunk.Type {
	case container.ChunkDocument:
		payload = chunk.Payload
	case container.ChunkDeflateDocument:
		payload, err = container.InflateBlock(chunk.Payload)
		if err != nil {
			return nil, errors.Wrap(err, "automerge: load: inflate")
		}
	case container.ChunkSnappyDocument:
		payload, err = container.UnsnappyBlock(chunk.Payload)
		if err != nil {
			return nil, errors.Wrap(err, "automerge: load: unsnappy")
		}
	default:
		return nil, fmt.Errorf("automerge: load: unexpected chunk type %d", chunk.Type)
	}

	numChanges, used, err := columnar.GetUvarint(payload)
	if err != nil {
		return nil, errors.Wrap(err, "automerge: load: change count")
	}
	payload = payload[used:]
	if uint64(len(payload)) < 32*numChanges {
		return nil, fmt.Errorf("automerge: load: truncated hash table")
	}
	payload = payload[32*numChanges:] // hash table is redundant with each change's own hash; skipped

	d := New(opts...)
	for i := uint64(0); i < numChanges; i++ {
		_, n, err := container.DecodeOne(payload)
		if err != nil {
			return nil, errors.Wrap(err, "automerge: load: change container")
		}
		c, err := change.Decode(payload[:n])
		if err != nil {
			return nil, errors.Wrap(err, "automerge: load: decode change")
		}
		if _, err := d.ApplyChange(c); err != nil {
			return nil, errors.Wrap(err, "automerge: load: apply change")
		}
		payload = payload[n:]
	}
	return d, nil
}

// ApplyChange runs the receive-side pipeline (§4.3.2) for a single
// already-decoded change, e.g. one pulled off disk by Load or received
// over a transport outside the sync protocol.
func (d *Document) ApplyChange(c *change.Change) (change.ChangeHash, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hash, err := transaction.ApplyRemoteChange(d, c)
	if err != nil {
		log.Warn("automerge: rejected remote change", "actor", c.Actor.String(), "seq", c.Seq, "err", err)
		return change.ChangeHash{}, err
	}
	return hash, nil
}

// ApplyChanges applies a batch in order, stopping at the first change
// whose dependencies are not yet satisfiable by the prefix already
// applied (§4.3.1 "changes may arrive out of causal order; buffer until
// dependencies resolve" — here the caller is expected to retry later
// with the same unapplied suffix, e.g. after a further sync round).
func (d *Document) ApplyChanges(changes []*change.Change) (applied int, err error) {
	for i, c := range changes {
		if _, err := d.ApplyChange(c); err != nil {
			return i, err
		}
	}
	return len(changes), nil
}

// GetChanges returns every change currently in the causal graph, in
// topological order (§6.3 "get_changes").
func (d *Document) GetChanges() []*change.Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	order := d.graph.TopoOrder()
	out := make([]*change.Change, 0, len(order))
	for _, h := range order {
		c, _ := d.graph.Get(h)
		out = append(out, c)
	}
	return out
}

// GetHeads returns the document's current frontier (§3.5, §6.3
// "get_heads").
func (d *Document) GetHeads() []change.ChangeHash {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph.Tips()
}
