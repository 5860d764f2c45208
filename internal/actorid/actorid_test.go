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

package actorid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRandomIsSixteenBytesAndUnique(t *testing.T) {
	a := NewRandom()
	b := NewRandom()
	require.Len(t, a, 16)
	require.False(t, a.Equal(b))
}

func TestParseHexRoundTrips(t *testing.T) {
	a := NewRandom()
	parsed, err := ParseHex(a.String())
	require.NoError(t, err)
	require.True(t, a.Equal(parsed))
}

func TestParseHexRejectsInvalid(t *testing.T) {
	_, err := ParseHex("not-hex")
	require.Error(t, err)
}

func TestLamportLessOrdersByCounterThenActor(t *testing.T) {
	actors := []ActorId{{0x01}, {0x02}}
	low := OpId{Counter: 1, Actor: 1}
	high := OpId{Counter: 2, Actor: 0}
	require.True(t, LamportLess(low, high, actors))
	require.False(t, LamportLess(high, low, actors))

	tieA := OpId{Counter: 5, Actor: 0}
	tieB := OpId{Counter: 5, Actor: 1}
	require.True(t, LamportLess(tieA, tieB, actors))
	require.Equal(t, -1, Compare(tieA, tieB, actors))
	require.Equal(t, 1, Compare(tieB, tieA, actors))
	require.Equal(t, 0, Compare(tieA, tieA, actors))
}

func TestKeyStringSelectsPropOrElem(t *testing.T) {
	mk := MapKey("title")
	require.Equal(t, "title", mk.String())
	require.True(t, mk.IsMap)

	ek := ElemKey(OpId{Counter: 3, Actor: 1})
	require.False(t, ek.IsMap)
	require.Equal(t, "3@1", ek.String())
}

func TestKeyIsHead(t *testing.T) {
	require.True(t, ElemKey(Head).IsHead())
	require.False(t, ElemKey(OpId{Counter: 1, Actor: 0}).IsHead())
}

func TestRootOpIdIsRoot(t *testing.T) {
	require.True(t, RootOpId.IsRoot())
	require.False(t, OpId{Counter: 1}.IsRoot())
}
