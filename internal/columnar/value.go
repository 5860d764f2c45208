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

package columnar

import (
	"errors"
	"fmt"
	"math"

	"github.com/erigontech/automerge/internal/opmodel"
)

// ValueTypeCode selects among the ValueMetadata variants of §4.1.4.
type ValueTypeCode uint8

const (
	VNull ValueTypeCode = iota
	VFalse
	VTrue
	VUleb
	VLeb
	VFloat
	VString
	VBytes
	VCounter
	VTimestamp
	// 10..15 reserved for Unknown(code)
)

// ErrInvalidValueType is returned when a ValueMetadata word's type_code
// cannot be interpreted (§4.1.6 InvalidValueType).
var ErrInvalidValueType = errors.New("columnar: invalid value metadata type code")

// PackMeta encodes a ValueMetadata word: (length << 4) | type_code
// (§4.1.2).
func PackMeta(length int, typeCode uint8) uint64 {
	return uint64(length)<<4 | uint64(typeCode&0xf)
}

func UnpackMeta(word uint64) (length int, typeCode uint8) {
	return int(word >> 4), uint8(word & 0xf)
}

// EncodeScalarPayload appends v's raw payload (the bytes a paired Value
// column stores) and returns the ValueMetadata word describing it.
func EncodeScalarPayload(buf []byte, v opmodel.ScalarValue) ([]byte, uint64) {
	switch v.Kind {
	case opmodel.KindNull:
		return buf, PackMeta(0, uint8(VNull))
	case opmodel.KindBool:
		if v.Bool {
			return buf, PackMeta(0, uint8(VTrue))
		}
		return buf, PackMeta(0, uint8(VFalse))
	case opmodel.KindUint:
		start := len(buf)
		buf = AppendUvarint(buf, v.Uint)
		return buf, PackMeta(len(buf)-start, uint8(VUleb))
	case opmodel.KindInt:
		start := len(buf)
		buf = AppendVarint(buf, v.Int)
		return buf, PackMeta(len(buf)-start, uint8(VLeb))
	case opmodel.KindCounter:
		start := len(buf)
		buf = AppendVarint(buf, v.Int)
		return buf, PackMeta(len(buf)-start, uint8(VCounter))
	case opmodel.KindTimestamp:
		start := len(buf)
		buf = AppendVarint(buf, v.Int)
		return buf, PackMeta(len(buf)-start, uint8(VTimestamp))
	case opmodel.KindF64:
		var b [8]byte
		bits := math.Float64bits(v.F64)
		for i := 0; i < 8; i++ {
			b[i] = byte(bits >> (8 * i))
		}
		buf = append(buf, b[:]...)
		return buf, PackMeta(8, uint8(VFloat))
	case opmodel.KindStr:
		buf = append(buf, v.Str...)
		return buf, PackMeta(len(v.Str), uint8(VString))
	case opmodel.KindBytes:
		buf = append(buf, v.Bytes...)
		return buf, PackMeta(len(v.Bytes), uint8(VBytes))
	case opmodel.KindUnknown:
		buf = append(buf, v.Bytes...)
		return buf, PackMeta(len(v.Bytes), uint8(v.UnknownTy))
	default:
		panic(fmt.Sprintf("columnar: unhandled scalar kind %d", v.Kind))
	}
}

// DecodeScalarPayload reads length bytes of payload per the metadata
// word's type_code and reconstructs the ScalarValue (§4.1.4).
func DecodeScalarPayload(word uint64, payload []byte) (opmodel.ScalarValue, error) {
	length, typeCode := UnpackMeta(word)
	if length > len(payload) {
		return opmodel.ScalarValue{}, &DecodeError{Kind: DecodeErrValuePayload, Err: fmt.Errorf("value payload shorter than declared length %d", length)}
	}
	raw := payload[:length]
	switch ValueTypeCode(typeCode) {
	case VNull:
		return opmodel.Null(), nil
	case VFalse:
		return opmodel.Bool(false), nil
	case VTrue:
		return opmodel.Bool(true), nil
	case VUleb:
		v, _, err := GetUvarint(raw)
		if err != nil {
			return opmodel.ScalarValue{}, err
		}
		return opmodel.Uint(v), nil
	case VLeb:
		v, _, err := GetVarint(raw)
		if err != nil {
			return opmodel.ScalarValue{}, err
		}
		return opmodel.Int(v), nil
	case VCounter:
		v, _, err := GetVarint(raw)
		if err != nil {
			return opmodel.ScalarValue{}, err
		}
		return opmodel.Counter(v), nil
	case VTimestamp:
		v, _, err := GetVarint(raw)
		if err != nil {
			return opmodel.ScalarValue{}, err
		}
		return opmodel.Timestamp(v), nil
	case VFloat:
		if length != 4 && length != 8 {
			return opmodel.ScalarValue{}, fmt.Errorf("columnar: float value must be 4 or 8 bytes, got %d: %w", length, ErrInvalidValueType)
		}
		var bits uint64
		for i := length - 1; i >= 0; i-- {
			bits = bits<<8 | uint64(raw[i])
		}
		return opmodel.F64(math.Float64frombits(bits)), nil
	case VString:
		return opmodel.Str(string(raw)), nil
	case VBytes:
		return opmodel.Bytes(append([]byte(nil), raw...)), nil
	default:
		if typeCode >= 10 && typeCode <= 15 {
			return opmodel.Unknown(typeCode, append([]byte(nil), raw...)), nil
		}
		return opmodel.ScalarValue{}, &DecodeError{Kind: DecodeErrBadMetadata, Err: ErrInvalidValueType}
	}
}
