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

	"github.com/cespare/xxhash/v2"
	"github.com/holiman/bloomfilter/v2"

	"github.com/erigontech/automerge/internal/change"
	"github.com/erigontech/automerge/internal/mathutil"
)

// bitsPerEntry approximates bloomfilter.NewOptimal's own sizing formula
// at a 1% false-positive rate, used only to bound-check n below before
// handing it to the library.
const bitsPerEntry = 10

// BloomFilter wraps holiman/bloomfilter/v2 over the set of change
// hashes one peer claims to have, sent as part of a sync Have message
// so the other side can guess which of its own changes are probably
// new to the peer without listing every hash outright (§4.6.2).
type BloomFilter struct {
	inner *bloomfilter.Filter
	n     uint64
}

// NewBloomFilter sizes a filter for approximately n elements at a 1%
// target false-positive rate, matching the conservative default the
// sync protocol uses when it doesn't know the peer's exact change count
// (§4.6.2).
func NewBloomFilter(hashes []change.ChangeHash) (*BloomFilter, error) {
	n := uint64(len(hashes))
	if n == 0 {
		n = 1
	}
	if _, overflow := mathutil.SafeMul(n, bitsPerEntry); overflow {
		return nil, fmt.Errorf("syncproto: bloom filter element count %d too large", n)
	}
	f, err := bloomfilter.NewOptimal(n, 0.01)
	if err != nil {
		return nil, fmt.Errorf("syncproto: new bloom filter: %w", err)
	}
	bf := &BloomFilter{inner: f, n: n}
	for _, h := range hashes {
		bf.Add(h)
	}
	return bf, nil
}

func (bf *BloomFilter) Add(h change.ChangeHash) {
	bf.inner.AddHash(digestOf(h))
}

// MaybeContains reports whether h was probably added; a false negative
// never happens, a false positive can (§4.6.2 "probabilistic have-set").
func (bf *BloomFilter) MaybeContains(h change.ChangeHash) bool {
	return bf.inner.ContainsHash(digestOf(h))
}

func digestOf(h change.ChangeHash) uint64 { return xxhash.Sum64(h[:]) }

// EncodeBloom serialises a filter's bit vector for wire transmission.
func EncodeBloom(bf *BloomFilter) []byte {
	b, _ := bf.inner.MarshalBinary()
	return b
}

// DecodeBloom reconstructs a filter from EncodeBloom's output.
func DecodeBloom(buf []byte) (*BloomFilter, error) {
	f := &bloomfilter.Filter{}
	if err := f.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("syncproto: decode bloom filter: %w", err)
	}
	return &BloomFilter{inner: f}, nil
}
