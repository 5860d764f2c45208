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
	"github.com/pkg/errors"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/automerge/internal/change"
	"github.com/erigontech/automerge/internal/syncproto"
	"github.com/erigontech/automerge/internal/transaction"
)

// SyncState is an opaque per-peer sync session handle (§4.6.1, §6.3
// "generate_sync_message"/"receive_sync_message" both take one).
type SyncState struct {
	inner *syncproto.State
}

// NewSyncState starts a fresh sync session with a peer the document has
// no prior history syncing with.
func NewSyncState() *SyncState {
	return &SyncState{inner: syncproto.NewState()}
}

// GenerateSyncMessage produces the next round's outbound message for
// peer state s (§4.6.4). It always returns a non-empty message: even
// once both sides have converged, a round still carries the sender's
// current Have summary, so callers wanting to stop must compare heads
// across rounds rather than wait for a nil return.
func (d *Document) GenerateSyncMessage(s *SyncState) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	msg, err := syncproto.GenerateMessage(d.graph, s.inner)
	if err != nil {
		return nil, errors.Wrap(err, "automerge: generate sync message")
	}
	return syncproto.EncodeMessage(msg), nil
}

// ReceiveSyncMessage decodes and applies msg, advancing s to reflect
// the peer's reported state (§4.6.4).
func (d *Document) ReceiveSyncMessage(s *SyncState, msg []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	decoded, err := syncproto.DecodeMessage(msg)
	if err != nil {
		return errors.Wrap(err, "automerge: decode sync message")
	}
	applyFn := func(c *change.Change) error {
		_, err := transaction.ApplyRemoteChange(d, c)
		return err
	}
	if err := syncproto.ReceiveMessage(s.inner, decoded, applyFn); err != nil {
		log.Warn("automerge: sync round failed", "err", err)
		return errors.Wrap(err, "automerge: receive sync message")
	}
	return nil
}
