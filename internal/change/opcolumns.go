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

package change

import (
	"fmt"
	"unicode/utf8"

	"github.com/erigontech/automerge/internal/actorid"
	"github.com/erigontech/automerge/internal/columnar"
	"github.com/erigontech/automerge/internal/container"
	"github.com/erigontech/automerge/internal/opmodel"
)

// EncodeOpColumns lays out ops as the column set of §4.1.2: Actor/
// DeltaInteger pairs for Obj and Key/Id, a Boolean Insert column, an
// Action+Value pair, and a Group column for Pred.
func EncodeOpColumns(ops []opmodel.Op) []byte {
	objActor := columnar.NewActorEncoder()
	objCounter := columnar.NewDeltaEncoder()
	keyActor := columnar.NewActorEncoder()
	keyCounter := columnar.NewDeltaEncoder()
	keyString := columnar.NewStringEncoder()
	isMapKey := columnar.NewBooleanEncoder()
	idActor := columnar.NewActorEncoder()
	idCounter := columnar.NewDeltaEncoder()
	insertCol := columnar.NewBooleanEncoder()
	actionCol := columnar.NewIntegerEncoder()
	valueMeta := columnar.NewIntegerEncoder()
	var valueRaw []byte

	predGroup := columnar.NewGroupEncoder(2)
	predActorEnc := columnar.NewActorEncoder()
	predCounterEnc := columnar.NewDeltaEncoder()

	for _, op := range ops {
		objActor.Append(op.Obj.Actor)
		objCounter.Append(int64(op.Obj.Counter))

		isMapKey.Append(op.Key.IsMap)
		if op.Key.IsMap {
			keyString.Append(op.Key.Prop)
			keyActor.Append(0)
			keyCounter.Append(0)
		} else {
			keyString.Append("")
			keyActor.Append(op.Key.Elem.Actor)
			keyCounter.Append(int64(op.Key.Elem.Counter))
		}

		idActor.Append(op.ID.Actor)
		idCounter.Append(int64(op.ID.Counter))
		insertCol.Append(op.Insert)

		actionCol.Append(uint64(encodeAction(op.Action)))
		word, data := encodeActionValue(op.Action)
		valueMeta.Append(word)
		valueRaw = append(valueRaw, data...)

		predGroup.AppendCount(uint64(len(op.Pred)))
		for _, p := range op.Pred {
			predActorEnc.Append(p.Actor)
			predCounterEnc.Append(int64(p.Counter))
		}
	}
	predGroup.SetInner(0, predActorEnc.Bytes())
	predGroup.SetInner(1, predCounterEnc.Bytes())

	cols := []container.Column{
		{Spec: spec(container.ColObjActor, columnar.ColActor), Data: objActor.Bytes()},
		{Spec: spec(container.ColObjCounter, columnar.ColDeltaInteger), Data: objCounter.Bytes()},
		{Spec: spec(container.ColKeyActor, columnar.ColActor), Data: keyActor.Bytes()},
		{Spec: spec(container.ColKeyCounter, columnar.ColDeltaInteger), Data: keyCounter.Bytes()},
		{Spec: spec(container.ColKeyString, columnar.ColString), Data: keyString.Bytes()},
		{Spec: spec(container.ColIDActor, columnar.ColActor), Data: idActor.Bytes()},
		{Spec: spec(container.ColIDCounter, columnar.ColDeltaInteger), Data: idCounter.Bytes()},
		{Spec: spec(container.ColInsert, columnar.ColBoolean), Data: insertCol.Bytes()},
		{Spec: spec(container.ColAction, columnar.ColInteger), Data: actionCol.Bytes()},
		{Spec: spec(container.ColValueMeta, columnar.ColValueMetadata), Data: valueMeta.Bytes()},
		{Spec: spec(container.ColValueRaw, columnar.ColValue), Data: valueRaw},
		{Spec: spec(container.ColPredGroup, columnar.ColGroup), Data: predGroup.Bytes()},
	}
	// The "IsMap" discriminator column rides along under a dedicated id
	// carved out of the same namespace as KeyString so decode can tell a
	// present-but-empty map key apart from a sequence key.
	isMapCol := container.Column{Spec: spec(container.ColKeyString+100, columnar.ColBoolean), Data: isMapKey.Bytes()}
	cols = append(cols, isMapCol)

	out, err := container.EncodeColumns(cols)
	if err != nil {
		// column encoding never allocates a compressor unless Deflate is
		// requested, which op columns never set; unreachable in practice.
		panic(fmt.Sprintf("change: encode op columns: %v", err))
	}
	return out
}

func spec(id int, ct columnar.ColumnType) columnar.Spec {
	return columnar.Spec{ColumnID: uint32(id), ColumnType: ct}
}

func encodeAction(t opmodel.OpType) uint8 { return uint8(t.Action) }

// encodeActionValue returns the ValueMetadata word and payload bytes for
// an op's action-specific data: Put its scalar, Increment its delta,
// Make a one-byte object type, MarkBegin its expand flag, name and value,
// MarkEnd a one-byte expand flag, and Delete a zero-length Null. Every op
// thus produces exactly one (possibly empty) value row, keeping the value
// column's row count equal to the op count.
func encodeActionValue(t opmodel.OpType) (uint64, []byte) {
	switch t.Action {
	case opmodel.ActionPut:
		var buf []byte
		buf, word := columnarEncodeScalarPayload(buf, t.Put)
		return word, buf
	case opmodel.ActionMake:
		return columnar.PackMeta(1, uint8(columnar.VUleb)), []byte{byte(t.Make)}
	case opmodel.ActionIncrement:
		var buf []byte
		buf = columnar.AppendVarint(buf, t.Increment)
		return columnar.PackMeta(len(buf), uint8(columnar.VCounter)), buf
	case opmodel.ActionMarkBegin:
		var buf []byte
		buf = append(buf, boolByte(t.Expand))
		buf = columnar.AppendUvarint(buf, uint64(len(t.Mark.Name)))
		buf = append(buf, t.Mark.Name...)
		var valBuf []byte
		valBuf, word := columnarEncodeScalarPayload(valBuf, t.Mark.Value)
		buf = columnar.AppendUvarint(buf, word)
		buf = append(buf, valBuf...)
		return columnar.PackMeta(len(buf), uint8(columnar.VBytes)), buf
	case opmodel.ActionMarkEnd:
		return columnar.PackMeta(1, uint8(columnar.VBytes)), []byte{boolByte(t.Expand)}
	case opmodel.ActionDelete:
		return columnar.PackMeta(0, uint8(columnar.VNull)), nil
	default:
		panic(fmt.Sprintf("change: unhandled action %d", t.Action))
	}
}

func columnarEncodeScalarPayload(buf []byte, v opmodel.ScalarValue) ([]byte, uint64) {
	return columnar.EncodeScalarPayload(buf, v)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DecodeOpColumns is the inverse of EncodeOpColumns, reconstructing ops
// whose Obj/Key/ID/Pred fields still reference the *change-local* actor
// table (resolution against the document table happens in §4.3.2 step 4,
// implemented by the causalgraph/apply pipeline, not here).
func DecodeOpColumns(buf []byte, count int) ([]opmodel.Op, error) {
	cols, err := container.DecodeColumns(buf)
	if err != nil {
		return nil, err
	}
	byID := map[int]container.Column{}
	for _, c := range cols {
		byID[int(c.Spec.ColumnID)] = c
	}
	get := func(id int) []byte { return byID[id].Data }

	objActor := columnar.NewActorCursor(get(container.ColObjActor))
	objCounter := columnar.NewDeltaCursor(get(container.ColObjCounter))
	keyActor := columnar.NewActorCursor(get(container.ColKeyActor))
	keyCounter := columnar.NewDeltaCursor(get(container.ColKeyCounter))
	keyString := columnar.NewStringCursor(get(container.ColKeyString))
	isMapKey := columnar.NewBooleanCursor(get(container.ColKeyString + 100))
	idActor := columnar.NewActorCursor(get(container.ColIDActor))
	idCounter := columnar.NewDeltaCursor(get(container.ColIDCounter))
	insertCol := columnar.NewBooleanCursor(get(container.ColInsert))
	actionCol := columnar.NewIntegerCursor(get(container.ColAction))
	valueMeta := columnar.NewIntegerCursor(get(container.ColValueMeta))
	valueRaw := get(container.ColValueRaw)
	valuePos := 0

	predGroup, err := columnar.DecodeGroup(get(container.ColPredGroup), 2)
	if err != nil {
		return nil, fmt.Errorf("change: pred group: %w", err)
	}
	predCounts := predGroup.Counts()
	predActor := columnar.NewActorCursor(predGroup.Inner(0))
	predCounter := columnar.NewDeltaCursor(predGroup.Inner(1))

	ops := make([]opmodel.Op, 0, count)
	for i := 0; i < count; i++ {
		oa, _, ok, err := objActor.Next()
		if err != nil || !ok {
			return nil, nonEOFErr(err, "obj actor")
		}
		oc, _, _, err := objCounter.Next()
		if err != nil {
			return nil, err
		}
		isMap, _, err := isMapKey.Next()
		if err != nil {
			return nil, err
		}
		var key actorid.Key
		if isMap {
			ks, _, _, err := keyString.Next()
			if err != nil {
				return nil, err
			}
			if !utf8.ValidString(ks) {
				return nil, fmt.Errorf("change: op %d: %w", i, ErrUtf8)
			}
			keyActor.Next()
			keyCounter.Next()
			key = actorid.MapKey(ks)
		} else {
			keyString.Next()
			ka, _, _, _ := keyActor.Next()
			kc, _, _, _ := keyCounter.Next()
			key = actorid.ElemKey(actorid.ElemId{Counter: uint64(kc), Actor: ka})
		}

		ia, _, _, err := idActor.Next()
		if err != nil {
			return nil, err
		}
		ic, _, _, err := idCounter.Next()
		if err != nil {
			return nil, err
		}
		insert, _, err := insertCol.Next()
		if err != nil {
			return nil, err
		}

		actionWord, _, _, err := actionCol.Next()
		if err != nil {
			return nil, err
		}
		word, _, _, err := valueMeta.Next()
		if err != nil {
			return nil, err
		}
		length, _ := columnar.UnpackMeta(word)
		if valuePos+length > len(valueRaw) {
			return nil, fmt.Errorf("change: value payload out of range")
		}
		action, err := decodeActionValue(uint8(actionWord), word, valueRaw[valuePos:valuePos+length])
		if err != nil {
			return nil, err
		}
		valuePos += length

		predCount, _, predOk, err := predCounts.Next()
		if err != nil {
			return nil, err
		}
		var pred []actorid.OpId
		if predOk {
			for j := uint64(0); j < predCount; j++ {
				pa, _, _, _ := predActor.Next()
				pc, _, _, _ := predCounter.Next()
				pred = append(pred, actorid.OpId{Counter: uint64(pc), Actor: pa})
			}
		}

		ops = append(ops, opmodel.Op{
			ID:     actorid.OpId{Counter: uint64(ic), Actor: ia},
			Obj:    opmodel.ObjId{OpId: actorid.OpId{Counter: uint64(oc), Actor: oa}},
			Key:    key,
			Action: action,
			Insert: insert,
			Pred:   pred,
		})
	}
	return ops, nil
}

func nonEOFErr(err error, where string) error {
	if err != nil {
		return fmt.Errorf("change: decode %s: %w", where, err)
	}
	return fmt.Errorf("change: decode %s: unexpected end of column", where)
}

func decodeActionValue(actionCode uint8, word uint64, payload []byte) (opmodel.OpType, error) {
	switch opmodel.ActionKind(actionCode) {
	case opmodel.ActionPut:
		v, err := columnar.DecodeScalarPayload(word, payload)
		if err != nil {
			return opmodel.OpType{}, err
		}
		return opmodel.MakePut(v), nil
	case opmodel.ActionMake:
		if len(payload) < 1 {
			return opmodel.OpType{}, fmt.Errorf("change: truncated Make payload")
		}
		return opmodel.MakeMake(opmodel.ObjType(payload[0])), nil
	case opmodel.ActionIncrement:
		v, _, err := columnar.GetVarint(payload)
		if err != nil {
			return opmodel.OpType{}, err
		}
		return opmodel.MakeIncrement(v), nil
	case opmodel.ActionMarkBegin:
		if len(payload) < 1 {
			return opmodel.OpType{}, fmt.Errorf("change: truncated MarkBegin payload")
		}
		expand := payload[0] != 0
		rest := payload[1:]
		nameLen, used, err := columnar.GetUvarint(rest)
		if err != nil {
			return opmodel.OpType{}, err
		}
		rest = rest[used:]
		if int(nameLen) > len(rest) {
			return opmodel.OpType{}, fmt.Errorf("change: truncated mark name")
		}
		name := string(rest[:nameLen])
		rest = rest[nameLen:]
		valWord, used, err := columnar.GetUvarint(rest)
		if err != nil {
			return opmodel.OpType{}, err
		}
		rest = rest[used:]
		val, err := columnar.DecodeScalarPayload(valWord, rest)
		if err != nil {
			return opmodel.OpType{}, err
		}
		return opmodel.MakeMarkBegin(expand, opmodel.MarkData{Name: name, Value: val}), nil
	case opmodel.ActionMarkEnd:
		if len(payload) < 1 {
			return opmodel.OpType{}, fmt.Errorf("change: truncated MarkEnd payload")
		}
		return opmodel.MakeMarkEnd(payload[0] != 0), nil
	case opmodel.ActionDelete:
		return opmodel.MakeDelete(), nil
	default:
		return opmodel.OpType{}, fmt.Errorf("change: unknown action code %d: %w", actionCode, ErrUnknownAction)
	}
}
