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

// Package opmodel defines the tagged-variant Op, ObjId and ScalarValue
// types of §3.2-§3.4. Action-specific data lives inside the OpType
// variant rather than behind an interface hierarchy (§9 "Polymorphic ops").
package opmodel

import (
	"fmt"
	"sort"

	"github.com/erigontech/automerge/internal/actorid"
)

// ObjType enumerates the four container kinds (§3.2).
type ObjType uint8

const (
	ObjMap ObjType = iota
	ObjTable
	ObjList
	ObjText
)

func (t ObjType) String() string {
	switch t {
	case ObjMap:
		return "map"
	case ObjTable:
		return "table"
	case ObjList:
		return "list"
	case ObjText:
		return "text"
	default:
		return fmt.Sprintf("ObjType(%d)", t)
	}
}

func (t ObjType) IsSequence() bool { return t == ObjList || t == ObjText }

// ObjId wraps the OpId of the Make op that created the object, or the
// reserved root id for the implicit top-level map (§3.4).
type ObjId struct{ actorid.OpId }

var Root = ObjId{OpId: actorid.RootOpId}

func (o ObjId) IsRoot() bool { return o.OpId.IsRoot() }

// ScalarKind tags a ScalarValue's variant (§3.2). Values 10..15 are
// reserved for forward-compatible Unknown scalars (§4.1.4, §9).
type ScalarKind uint8

const (
	KindNull ScalarKind = iota
	KindBool
	KindInt
	KindUint
	KindF64
	KindStr
	KindBytes
	KindCounter
	KindTimestamp
	_reservedEnd // 9: first unused "known" slot, Unknown starts at 10
	KindUnknown  = ScalarKind(10)
)

// ScalarValue is the tagged variant of leaf values an op can Put (§3.2).
type ScalarValue struct {
	Kind      ScalarKind
	Bool      bool
	Int       int64
	Uint      uint64
	F64       float64
	Str       string
	Bytes     []byte
	UnknownTy uint8 // only meaningful when Kind == KindUnknown, in 10..15
}

func Null() ScalarValue                { return ScalarValue{Kind: KindNull} }
func Bool(b bool) ScalarValue          { return ScalarValue{Kind: KindBool, Bool: b} }
func Int(i int64) ScalarValue          { return ScalarValue{Kind: KindInt, Int: i} }
func Uint(u uint64) ScalarValue        { return ScalarValue{Kind: KindUint, Uint: u} }
func F64(f float64) ScalarValue        { return ScalarValue{Kind: KindF64, F64: f} }
func Str(s string) ScalarValue         { return ScalarValue{Kind: KindStr, Str: s} }
func Bytes(b []byte) ScalarValue       { return ScalarValue{Kind: KindBytes, Bytes: b} }
func Counter(i int64) ScalarValue      { return ScalarValue{Kind: KindCounter, Int: i} }
func Timestamp(i int64) ScalarValue    { return ScalarValue{Kind: KindTimestamp, Int: i} }
func Unknown(ty uint8, b []byte) ScalarValue {
	return ScalarValue{Kind: KindUnknown, UnknownTy: ty, Bytes: b}
}

func (v ScalarValue) Equal(o ScalarValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt, KindCounter, KindTimestamp:
		return v.Int == o.Int
	case KindUint:
		return v.Uint == o.Uint
	case KindF64:
		return v.F64 == o.F64
	case KindStr:
		return v.Str == o.Str
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	case KindUnknown:
		return v.UnknownTy == o.UnknownTy && string(v.Bytes) == string(o.Bytes)
	default:
		return false
	}
}

// ActionKind tags the OpType variant (§3.2).
type ActionKind uint8

const (
	ActionPut ActionKind = iota
	ActionMake
	ActionDelete
	ActionIncrement
	ActionMarkBegin
	ActionMarkEnd
)

// MarkData names a rich-text annotation and its payload (§4.4.4).
type MarkData struct {
	Name  string
	Value ScalarValue
}

// OpType is the tagged variant carrying action-specific data (§3.2, §9).
type OpType struct {
	Action    ActionKind
	Put       ScalarValue // ActionPut
	Make      ObjType     // ActionMake
	Increment int64        // ActionIncrement
	Expand    bool         // ActionMarkBegin / ActionMarkEnd
	Mark      MarkData     // ActionMarkBegin
}

func MakePut(v ScalarValue) OpType           { return OpType{Action: ActionPut, Put: v} }
func MakeMake(t ObjType) OpType              { return OpType{Action: ActionMake, Make: t} }
func MakeDelete() OpType                     { return OpType{Action: ActionDelete} }
func MakeIncrement(delta int64) OpType       { return OpType{Action: ActionIncrement, Increment: delta} }
func MakeMarkBegin(expand bool, m MarkData) OpType {
	return OpType{Action: ActionMarkBegin, Expand: expand, Mark: m}
}
func MakeMarkEnd(expand bool) OpType { return OpType{Action: ActionMarkEnd, Expand: expand} }

// IsValueOp reports whether the action, when visible, contributes a
// materialised value (Put/Make); Delete/Increment/MarkEnd never do (§4.2.4).
func (t OpType) IsValueOp() bool {
	return t.Action == ActionPut || t.Action == ActionMake
}

// Op is the CRDT's atomic unit (§3.2). Succ is maintained by the store,
// never carried over the wire (§3.2).
type Op struct {
	ID      actorid.OpId
	Obj     ObjId
	Key     actorid.Key
	Action  OpType
	Insert  bool
	Pred    []actorid.OpId // sorted
	Succ    []actorid.OpId // sorted; store-maintained
}

// SortOpIds sorts an OpId slice in place, keeping duplicates, using
// counter-then-actor-index order (encode-time tables are already canonical once
// resolved against the document actor table, so this is only a partial/
// relative order suitable for serialisation determinism, not the full
// Lamport order across differing tables).
func SortOpIds(ids []actorid.OpId) []actorid.OpId {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Counter != ids[j].Counter {
			return ids[i].Counter < ids[j].Counter
		}
		return ids[i].Actor < ids[j].Actor
	})
	return ids
}

// Visible reports whether op is currently visible: empty Succ and an
// action that contributes a value (§4.2.4).
func (o *Op) Visible() bool {
	return len(o.Succ) == 0 && o.Action.IsValueOp()
}

// AddSucc records that pred is overwritten/deleted/incremented by succID,
// maintaining the sorted-set invariant of §3.2.
func (o *Op) AddSucc(succID actorid.OpId) {
	for _, s := range o.Succ {
		if s == succID {
			return
		}
	}
	o.Succ = append(o.Succ, succID)
	SortOpIds(o.Succ)
}
