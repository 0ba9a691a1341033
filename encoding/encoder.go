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

package encoding

import (
	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/field"
	"github.com/squidfunk/protobluff/internal/wire"
	"github.com/squidfunk/protobluff/message"
)

// Encoder builds a wire-encoded message front to back into an internal
// buffer, with no journal and no support for revisiting or resizing a
// value once written — append-only, unlike [message.Message]. Use it to
// produce a brand new message's bytes in one pass, e.g. to then feed into
// message.New for further in-place editing, or to send as-is.
type Encoder struct {
	desc *descriptor.Message
	buf  []byte
}

// NewEncoder returns an empty Encoder for desc.
func NewEncoder(desc *descriptor.Message) *Encoder {
	return &Encoder{desc: desc}
}

// Bytes returns the bytes written so far. The returned slice aliases the
// Encoder's internal buffer and is only valid until the next Put/Reset.
func (e *Encoder) Bytes() []byte { return e.buf }

// Reset discards everything written so far, so the Encoder can be reused
// for a fresh message of the same descriptor.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Put appends one occurrence of tag. For a scalar field, value is a Go
// value of the kind decodeScalar/field.Get would produce; for a
// message/group field, value must be a *message.Message or a raw []byte
// payload already encoded by a nested Encoder — both forms are accepted so
// that a sub-message can be built with either API. Repeated fields are
// encoded by calling Put once per element, in order; for a PACKED field,
// prefer [Encoder.PutPacked], which groups every element into a single
// LENGTH block instead of one tag per element.
func (e *Encoder) Put(tag int32, value any) error {
	fd, ok := e.desc.Field(tag)
	if !ok {
		return errs.New(errs.Descriptor)
	}

	var payload []byte
	switch v := value.(type) {
	case []byte:
		if fd.Message == nil {
			return e.putScalar(fd, value)
		}
		payload = v
	case rawBytes:
		payload = []byte(v)
	case *message.Message:
		if fd.Message == nil {
			return errs.New(errs.Invalid)
		}
		if err := v.Align(); err != nil {
			return err
		}
		off := v.Offset()
		payload = v.Buffer().DataRange(off.Start, off.End)
	default:
		return e.putScalar(fd, value)
	}

	e.buf = wire.AppendTag(e.buf, wire.Tag{Field: fd.Tag, Type: wire.Length})
	e.buf = wire.AppendVarint(e.buf, uint64(len(payload)))
	e.buf = append(e.buf, payload...)
	return nil
}

// rawBytes marks a []byte as an already-encoded sub-message payload rather
// than a BYTES scalar value, disambiguating the two uses of []byte in Put.
type rawBytes []byte

// PutMessage is Put for a message/group field whose value is the raw bytes
// of an already-encoded sub-message (e.g. another Encoder's Bytes()).
func (e *Encoder) PutMessage(tag int32, payload []byte) error {
	return e.Put(tag, rawBytes(payload))
}

func (e *Encoder) putScalar(fd *descriptor.Field, value any) error {
	payload, err := field.Encode(fd, value)
	if err != nil {
		return err
	}
	wt := fd.WireType()
	e.buf = wire.AppendTag(e.buf, wire.Tag{Field: fd.Tag, Type: wt})
	if wt == wire.Length {
		// STRING/BYTES: field.Encode returns the raw value bytes with no
		// length prefix, same convention as the message splice path in Put.
		e.buf = wire.AppendVarint(e.buf, uint64(len(payload)))
	}
	e.buf = append(e.buf, payload...)
	return nil
}

// PutPacked appends every element of values as one PACKED occurrence of
// tag: a single LENGTH-delimited block holding the elements' wire values
// back to back, with no per-element tag. tag must name a repeated scalar
// field whose kind is packable (not STRING, BYTES, or a message/group).
func (e *Encoder) PutPacked(tag int32, values []any) error {
	fd, ok := e.desc.Field(tag)
	if !ok {
		return errs.New(errs.Descriptor)
	}
	if fd.Message != nil || fd.WireType() == wire.Length {
		return errs.New(errs.Descriptor)
	}

	var block []byte
	for _, v := range values {
		payload, err := field.Encode(fd, v)
		if err != nil {
			return err
		}
		block = append(block, payload...)
	}

	e.buf = wire.AppendTag(e.buf, wire.Tag{Field: fd.Tag, Type: wire.Length})
	e.buf = wire.AppendVarint(e.buf, uint64(len(block)))
	e.buf = append(e.buf, block...)
	return nil
}
