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

// Package wire implements the Protocol Buffers wire primitives that every
// other protobluff layer builds on: varints, zig-zag, tags, and fixed-width
// integers.
//
// Decoding here is total on length: a malformed varint is reported as
// [errs.Varint], a value cut off by the end of the buffer is [errs.Underrun],
// and a declared length prefix running past the end of the buffer is
// [errs.Overflow], never a panic.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/squidfunk/protobluff/errs"
)

// Type is a Protocol Buffers wire type.
type Type int

const (
	Varint Type = 0
	Fixed64 Type = 1
	Length  Type = 2
	Fixed32 Type = 5
)

func (t Type) Valid() bool {
	switch t {
	case Varint, Fixed64, Length, Fixed32:
		return true
	default:
		return false
	}
}

// MaxVarintLen is the longest a base-128 varint encoding of a uint64 can be.
const MaxVarintLen = 10

// AppendVarint appends the base-128 little-endian encoding of v to dst.
func AppendVarint(dst []byte, v uint64) []byte {
	return protowire.AppendVarint(dst, v)
}

// SizeVarint returns the number of bytes AppendVarint would write for v.
func SizeVarint(v uint64) int {
	return protowire.SizeVarint(v)
}

// ConsumeVarint decodes a varint from the front of buf.
//
// Fails with [errs.Varint] if the 10th byte still carries a continuation
// bit, and with [errs.Underrun] if buf ends in the middle of the varint.
func ConsumeVarint(buf []byte) (value uint64, n int, err error) {
	v, m := protowire.ConsumeVarint(buf)
	if m < 0 {
		return 0, 0, classifyConsume(m)
	}
	return v, m, nil
}

func classifyConsume(n int) error {
	if pe := protowire.ParseError(n); errors.Is(pe, io.ErrUnexpectedEOF) {
		return errs.New(errs.Underrun)
	}
	return errs.New(errs.Varint)
}

// ZigZagEncode32/64 and ZigZagDecode32/64 map between signed and unsigned
// representations the way SINT32/SINT64 fields are encoded on the wire, so
// that small negative numbers encode to small varints.
func ZigZagEncode32(v int32) uint32 { return uint32(protowire.EncodeZigZag(int64(v))) }
func ZigZagDecode32(v uint32) int32 { return int32(protowire.DecodeZigZag(uint64(v))) }
func ZigZagEncode64(v int64) uint64 { return protowire.EncodeZigZag(v) }
func ZigZagDecode64(v uint64) int64 { return protowire.DecodeZigZag(v) }

// Tag is a (field number, wire type) pair as it appears packed into a
// varint on the wire.
type Tag struct {
	Field int32
	Type  Type
}

// Pack encodes t as the varint that would precede its field's payload.
func (t Tag) Pack() uint64 {
	return protowire.EncodeTag(protowire.Number(t.Field), protowire.Type(t.Type))
}

// AppendTag appends the packed encoding of t to dst.
func AppendTag(dst []byte, t Tag) []byte {
	return AppendVarint(dst, t.Pack())
}

// UnpackTag decodes a previously-consumed tag varint into a field number and
// wire type, rejecting the reserved wire types {3, 4, 6, 7}.
func UnpackTag(raw uint64) (Tag, error) {
	num := protowire.Number(raw >> 3)
	typ := protowire.Type(raw & 0x7)
	if num <= 0 || num > maxFieldNumber {
		return Tag{}, errs.New(errs.Overflow)
	}
	t := Type(typ)
	if !t.Valid() {
		return Tag{}, errs.New(errs.Wiretype)
	}
	return Tag{Field: int32(num), Type: t}, nil
}

// ConsumeTag decodes a tag varint from the front of buf.
func ConsumeTag(buf []byte) (Tag, int, error) {
	raw, n, err := ConsumeVarint(buf)
	if err != nil {
		return Tag{}, 0, err
	}
	t, err := UnpackTag(raw)
	if err != nil {
		return Tag{}, 0, err
	}
	return t, n, nil
}

const maxFieldNumber = 1<<29 - 1

// AppendFixed32/64 append little-endian fixed-width integers.
func AppendFixed32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func AppendFixed64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// ConsumeFixed32/64 decode little-endian fixed-width integers from the
// front of buf.
func ConsumeFixed32(buf []byte) (uint32, int, error) {
	if len(buf) < 4 {
		return 0, 0, errs.New(errs.Underrun)
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

func ConsumeFixed64(buf []byte) (uint64, int, error) {
	if len(buf) < 8 {
		return 0, 0, errs.New(errs.Underrun)
	}
	return binary.LittleEndian.Uint64(buf), 8, nil
}

// ConsumeLengthPrefix decodes a LENGTH-wiretype's varint length prefix and
// validates that the declared length actually fits in the remainder of buf.
//
// Returns the declared length and the number of bytes the prefix itself
// occupied.
func ConsumeLengthPrefix(buf []byte) (length, n int, err error) {
	v, m, err := ConsumeVarint(buf)
	if err != nil {
		return 0, 0, err
	}
	if v > math.MaxInt32 {
		return 0, 0, errs.New(errs.Overflow)
	}
	if int(v) > len(buf)-m {
		// A buffer shorter than its own declared length prefix: §4.1
		// classifies this as Overflow (the declared size overflows what is
		// actually available), not Underrun (which is for a truncated
		// varint itself).
		return 0, 0, errs.New(errs.Overflow)
	}
	return int(v), m, nil
}

// SkipValue returns the number of bytes occupied by a single value of wire
// type typ at the front of buf (not including any tag), so that unrecognized
// fields can be skipped without understanding their payload.
func SkipValue(typ Type, buf []byte) (int, error) {
	switch typ {
	case Varint:
		_, n, err := ConsumeVarint(buf)
		return n, err
	case Fixed64:
		if len(buf) < 8 {
			return 0, errs.New(errs.Underrun)
		}
		return 8, nil
	case Fixed32:
		if len(buf) < 4 {
			return 0, errs.New(errs.Underrun)
		}
		return 4, nil
	case Length:
		length, n, err := ConsumeLengthPrefix(buf)
		if err != nil {
			return 0, err
		}
		return n + length, nil
	default:
		return 0, errs.New(errs.Wiretype)
	}
}
