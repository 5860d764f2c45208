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

package syncproto

import (
	"fmt"

	"github.com/erigontech/automerge/internal/causalgraph"
	"github.com/erigontech/automerge/internal/change"
)

// State is the per-peer sync session a document keeps across rounds
// (§4.6.1): what the local side last told this peer, and what the
// peer's last Have summary claimed, so each round only sends the delta.
type State struct {
	LastSentHeads []change.ChangeHash
	TheirHeads    []change.ChangeHash
	TheirBloom    *BloomFilter
	SentHashes    map[change.ChangeHash]bool
}

func NewState() *State {
	return &State{SentHashes: make(map[change.ChangeHash]bool)}
}

// GenerateMessage builds the next Message to send to a peer in state s
// given the local graph's current state (§4.6.4 "generate_sync_message").
// It always advertises the local Have summary; it includes changes only
// once it has some idea (from a prior round's Have) of what the peer is
// missing, otherwise the first round is Have-only and the peer's reply
// drives what gets sent next.
func GenerateMessage(g *causalgraph.Graph, s *State) (*Message, error) {
	heads := g.Tips()
	allHashes := g.TopoOrder()
	bf, err := NewBloomFilter(allHashes)
	if err != nil {
		return nil, fmt.Errorf("syncproto: generate message: %w", err)
	}
	msg := &Message{
		Haves: []Have{{Heads: heads, BloomBytes: EncodeBloom(bf)}},
	}

	if s.TheirBloom == nil {
		// First round: we don't know anything about the peer yet, send
		// Haves only and wait for their reply to learn what they're
		// missing (§4.6.4 step 1).
		return msg, nil
	}

	for _, h := range allHashes {
		if s.SentHashes[h] {
			continue
		}
		if isAncestorOfAny(g, h, s.TheirHeads) {
			continue
		}
		if s.TheirBloom.MaybeContains(h) {
			continue
		}
		c, _ := g.Get(h)
		payload, err := change.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("syncproto: encode change %x: %w", h, err)
		}
		msg.Changes = append(msg.Changes, payload)
		msg.Explicit = append(msg.Explicit, h)
	}
	return msg, nil
}

func isAncestorOfAny(g *causalgraph.Graph, h change.ChangeHash, heads []change.ChangeHash) bool {
	for _, head := range heads {
		if g.IsAncestor(h, head) {
			return true
		}
	}
	return false
}

// ReceiveMessage applies any changes the peer sent (via applyFn, which
// wraps the document's ApplyRemoteChange so this package doesn't import
// the transaction/document packages directly) and updates s to reflect
// what the peer has now told us about its state (§4.6.4 "receive_sync_message").
func ReceiveMessage(s *State, msg *Message, applyFn func(*change.Change) error) error {
	for _, raw := range msg.Changes {
		c, err := change.Decode(wrapChunk(raw))
		if err != nil {
			return &ProtocolError{Kind: ProtocolErrBadChange, Err: fmt.Errorf("decode received change: %w", err)}
		}
		if err := applyFn(c); err != nil {
			return &ProtocolError{Kind: ProtocolErrBadChange, Err: fmt.Errorf("apply received change: %w", err)}
		}
		s.SentHashes[c.Hash()] = true
	}
	if len(msg.Haves) > 0 {
		last := msg.Haves[len(msg.Haves)-1]
		s.TheirHeads = last.Heads
		bf, err := DecodeBloom(last.BloomBytes)
		if err != nil {
			return fmt.Errorf("syncproto: decode peer bloom filter: %w", err)
		}
		s.TheirBloom = bf
	}
	return nil
}

// wrapChunk is a no-op: change.Encode already emits a full container, so
// Message.Changes entries are ready to feed straight into change.Decode.
// ReceiveMessage is its only caller; the v1-compat decode path does not
// use it.
func wrapChunk(raw []byte) []byte { return raw }
