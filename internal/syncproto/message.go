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

// Package syncproto implements the two-party sync protocol of §4.6: a
// bloom-filter-based Have summary, Have/Message framing, and the
// generate/receive round that converges two replicas without either
// side sending its whole history up front.
package syncproto

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/erigontech/automerge/internal/change"
	"github.com/erigontech/automerge/internal/columnar"
)

// syncMessageVersion tags the wire format so a v1-compat peer (§12) can
// be detected and handled by the legacy decode path.
const syncMessageVersion = 2

// Have is one peer's probabilistic claim about the changes it already
// holds (§4.6.2): an exact list of current heads plus a bloom filter
// over a broader set of hashes (typically everything reachable from an
// earlier sync round), so the other side can both name exact common
// ground and guess at the rest.
type Have struct {
	Heads      []change.ChangeHash
	BloomBytes []byte
}

// Message is one round of the sync protocol (§4.6.3): the sender's
// current Haves, the changes it has decided to send outright, and in
// Explicit the hashes of those same changes (GenerateMessage fills both
// together; ReceiveMessage does not read Explicit, so a v1 message
// without it syncs the same way).
type Message struct {
	Haves    []Have
	Changes  [][]byte // container-framed ChunkChange payloads, via change.Encode
	Explicit []change.ChangeHash
}

// EncodeMessage frames m for the wire: version byte, then each field
// length-prefixed.
func EncodeMessage(m *Message) []byte {
	var buf []byte
	buf = append(buf, syncMessageVersion)
	buf = columnar.AppendUvarint(buf, uint64(len(m.Haves)))
	for _, h := range m.Haves {
		buf = encodeHave(buf, h)
	}
	buf = columnar.AppendUvarint(buf, uint64(len(m.Changes)))
	for _, c := range m.Changes {
		buf = columnar.AppendUvarint(buf, uint64(len(c)))
		buf = append(buf, c...)
	}
	buf = columnar.AppendUvarint(buf, uint64(len(m.Explicit)))
	for _, h := range m.Explicit {
		buf = append(buf, h[:]...)
	}
	return buf
}

func encodeHave(buf []byte, h Have) []byte {
	buf = columnar.AppendUvarint(buf, uint64(len(h.Heads)))
	for _, head := range h.Heads {
		buf = append(buf, head[:]...)
	}
	buf = columnar.AppendUvarint(buf, uint64(len(h.BloomBytes)))
	buf = append(buf, h.BloomBytes...)
	return buf
}

// ErrUnsupportedVersion is returned when DecodeMessage sees a version
// byte newer than this implementation understands.
var ErrUnsupportedVersion = fmt.Errorf("syncproto: unsupported message version")

// DecodeMessage parses EncodeMessage's output. A version-1 message
// (§12 compat shim) is accepted too: it has no Explicit section, which
// decodeMessageV1 fills in as empty.
func DecodeMessage(buf []byte) (*Message, error) {
	if len(buf) < 1 {
		return nil, errors.WithStack(&ProtocolError{Kind: ProtocolErrTruncated, Err: fmt.Errorf("empty message")})
	}
	version := buf[0]
	switch version {
	case 1:
		m, err := decodeMessageV1(buf[1:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return m, nil
	case syncMessageVersion:
		m, err := decodeMessageV2(buf[1:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return m, nil
	default:
		return nil, errors.WithStack(&ProtocolError{Kind: ProtocolErrUnsupportedVersion, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)})
	}
}

func decodeMessageV2(body []byte) (*Message, error) {
	m := &Message{}
	numHaves, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	for i := uint64(0); i < numHaves; i++ {
		h, rest, err := decodeHave(body)
		if err != nil {
			return nil, err
		}
		m.Haves = append(m.Haves, h)
		body = rest
	}

	numChanges, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	for i := uint64(0); i < numChanges; i++ {
		clen, used, err := columnar.GetUvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[used:]
		if uint64(len(body)) < clen {
			return nil, &ProtocolError{Kind: ProtocolErrTruncated, Err: fmt.Errorf("truncated change payload")}
		}
		m.Changes = append(m.Changes, append([]byte(nil), body[:clen]...))
		body = body[clen:]
	}

	numExplicit, used, err := columnar.GetUvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[used:]
	for i := uint64(0); i < numExplicit; i++ {
		if len(body) < 32 {
			return nil, &ProtocolError{Kind: ProtocolErrTruncated, Err: fmt.Errorf("truncated explicit hash")}
		}
		var h change.ChangeHash
		copy(h[:], body[:32])
		m.Explicit = append(m.Explicit, h)
		body = body[32:]
	}
	return m, nil
}

// decodeMessageV1 parses the pre-Explicit-section wire format (§12): a
// v1 peer only ever sent Haves and Changes, so a v1 frame received here
// is treated as carrying an empty Explicit set; receive_sync_message
// then degrades gracefully to bloom-only reconciliation for that round.
func decodeMessageV1(body []byte) (*Message, error) {
	m, err := decodeMessageV2(append(body, encodeUvarintZero()...))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func encodeUvarintZero() []byte { return columnar.AppendUvarint(nil, 0) }

func decodeHave(body []byte) (Have, []byte, error) {
	var h Have
	numHeads, used, err := columnar.GetUvarint(body)
	if err != nil {
		return h, nil, err
	}
	body = body[used:]
	for i := uint64(0); i < numHeads; i++ {
		if len(body) < 32 {
			return h, nil, &ProtocolError{Kind: ProtocolErrTruncated, Err: fmt.Errorf("truncated have head")}
		}
		var head change.ChangeHash
		copy(head[:], body[:32])
		h.Heads = append(h.Heads, head)
		body = body[32:]
	}
	bloomLen, used, err := columnar.GetUvarint(body)
	if err != nil {
		return h, nil, err
	}
	body = body[used:]
	if uint64(len(body)) < bloomLen {
		return h, nil, &ProtocolError{Kind: ProtocolErrTruncated, Err: fmt.Errorf("truncated bloom bytes")}
	}
	h.BloomBytes = append([]byte(nil), body[:bloomLen]...)
	body = body[bloomLen:]
	return h, body, nil
}
