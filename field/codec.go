// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package field

import (
	"math"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/internal/wire"
)

// decodeScalar decodes payload (the field's value bytes, with no tag and,
// for LENGTH fields, no length prefix) per desc's kind. Integers decode
// strictly per wire type; SINT32/SINT64 undo zig-zag.
func decodeScalar(desc *descriptor.Field, payload []byte) (any, error) {
	switch desc.Kind {
	case protoreflect.Int32Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case protoreflect.Int64Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case protoreflect.Uint32Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case protoreflect.Uint64Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.Sint32Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return wire.ZigZagDecode32(uint32(v)), nil
	case protoreflect.Sint64Kind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return wire.ZigZagDecode64(v), nil
	case protoreflect.BoolKind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case protoreflect.EnumKind:
		v, _, err := wire.ConsumeVarint(payload)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case protoreflect.Fixed32Kind:
		v, _, err := wire.ConsumeFixed32(payload)
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.Sfixed32Kind:
		v, _, err := wire.ConsumeFixed32(payload)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case protoreflect.FloatKind:
		v, _, err := wire.ConsumeFixed32(payload)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case protoreflect.Fixed64Kind:
		v, _, err := wire.ConsumeFixed64(payload)
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.Sfixed64Kind:
		v, _, err := wire.ConsumeFixed64(payload)
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case protoreflect.DoubleKind:
		v, _, err := wire.ConsumeFixed64(payload)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case protoreflect.StringKind:
		return string(payload), nil
	case protoreflect.BytesKind:
		return append([]byte(nil), payload...), nil
	default:
		// MESSAGE/GROUP fields are navigated via message.Message, not
		// decoded as a scalar value here.
		return nil, errs.New(errs.Descriptor)
	}
}

// Encode is encodeScalar exported for use by the message package, which
// needs to encode a new occurrence's payload before it has a Field handle
// to splice it through.
func Encode(desc *descriptor.Field, value any) ([]byte, error) {
	return encodeScalar(desc, value)
}

// Decode is decodeScalar exported for use by the encoding package's
// streaming Decoder, which walks raw wire bytes directly and has no Field
// handle (there is no journal or buffer involved in a one-pass decode).
func Decode(desc *descriptor.Field, payload []byte) (any, error) {
	return decodeScalar(desc, payload)
}

// DecodePacked decodes payload (a packed repeated scalar field's
// LENGTH-delimited blob, with no tag or length prefix of its own) into its
// individual back-to-back elements, in wire order. Shared by [Field.GetPacked]
// and the encoding package's streaming decoder, so a journaled message and a
// one-pass decode agree on what a packed field's elements are.
func DecodePacked(desc *descriptor.Field, payload []byte) ([]any, error) {
	wt := desc.WireType()
	var out []any
	pos := 0
	for pos < len(payload) {
		n, err := wire.SkipValue(wt, payload[pos:])
		if err != nil {
			return nil, err
		}
		v, err := decodeScalar(desc, payload[pos:pos+n])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos += n
	}
	return out, nil
}

// encodeScalar re-encodes value (a Go value of the type decodeScalar would
// have produced for desc's kind) into wire bytes, with no tag and, for
// LENGTH fields, no length prefix — the caller (Field.Put) is responsible
// for splicing payload-only bytes at the field's existing position.
func encodeScalar(desc *descriptor.Field, value any) ([]byte, error) {
	switch desc.Kind {
	case protoreflect.Int32Kind:
		v, ok := value.(int32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, uint64(int64(v))), nil
	case protoreflect.Int64Kind:
		v, ok := value.(int64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, uint64(v)), nil
	case protoreflect.Uint32Kind:
		v, ok := value.(uint32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, uint64(v)), nil
	case protoreflect.Uint64Kind:
		v, ok := value.(uint64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, v), nil
	case protoreflect.Sint32Kind:
		v, ok := value.(int32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, uint64(wire.ZigZagEncode32(v))), nil
	case protoreflect.Sint64Kind:
		v, ok := value.(int64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, wire.ZigZagEncode64(v)), nil
	case protoreflect.BoolKind:
		v, ok := value.(bool)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		var u uint64
		if v {
			u = 1
		}
		return wire.AppendVarint(nil, u), nil
	case protoreflect.EnumKind:
		v, ok := value.(int32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendVarint(nil, uint64(int64(v))), nil
	case protoreflect.Fixed32Kind:
		v, ok := value.(uint32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed32(nil, v), nil
	case protoreflect.Sfixed32Kind:
		v, ok := value.(int32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed32(nil, uint32(v)), nil
	case protoreflect.FloatKind:
		v, ok := value.(float32)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed32(nil, math.Float32bits(v)), nil
	case protoreflect.Fixed64Kind:
		v, ok := value.(uint64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed64(nil, v), nil
	case protoreflect.Sfixed64Kind:
		v, ok := value.(int64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed64(nil, uint64(v)), nil
	case protoreflect.DoubleKind:
		v, ok := value.(float64)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return wire.AppendFixed64(nil, math.Float64bits(v)), nil
	case protoreflect.StringKind:
		v, ok := value.(string)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return []byte(v), nil
	case protoreflect.BytesKind:
		v, ok := value.([]byte)
		if !ok {
			return nil, errs.New(errs.Invalid)
		}
		return append([]byte(nil), v...), nil
	default:
		return nil, errs.New(errs.Descriptor)
	}
}
