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

// Package field implements Field, a typed [part.Part]: get/put/clear/match
// for one scalar field occurrence of a known wire type.
//
// A Field never reaches across tag boundaries on its own; locating a tag
// within a message's payload is [message.Message]'s job. Field only knows
// how to decode and re-encode the bytes of one occurrence it has already
// been pointed at.
package field

import (
	"bytes"

	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/internal/wire"
	"github.com/squidfunk/protobluff/part"
)

// Field is a Part typed with a field descriptor. The absent flag records
// whether this handle denotes a tag that was not found (in which case Get/Match
// return [errs.Absent] without touching the buffer).
type Field struct {
	part.Part
	desc   *descriptor.Field
	absent bool
}

// New wraps p as a Field for desc. Use [Missing] instead when the tag was
// not found in the message.
func New(p part.Part, desc *descriptor.Field) *Field {
	return &Field{Part: p, desc: desc}
}

// Missing builds a Field handle that reports [errs.Absent] from every read,
// for a tag that a Message lookup did not find.
func Missing(desc *descriptor.Field) *Field {
	return &Field{desc: desc, absent: true}
}

// Descriptor returns the field descriptor this handle was built from.
func (f *Field) Descriptor() *descriptor.Field { return f.desc }

// Get aligns, then decodes this occurrence's payload into a Go value
// appropriate for the field's kind (int32/int64/uint32/uint64/bool/float32/
// float64/string/[]byte/int32-as-enum). Returns [errs.Absent] if the field
// was not present in the message, and [errs.Descriptor] if the field is
// Packed — a packed occurrence's payload holds a whole run of elements, not
// one scalar value; use [Field.GetPacked] instead.
func (f *Field) Get() (any, error) {
	if f.absent {
		return nil, errs.New(errs.Absent)
	}
	if f.desc.Packed {
		return nil, errs.New(errs.Descriptor)
	}
	if err := f.Align(); err != nil {
		return nil, err
	}
	off := f.Offset()
	payload := f.Buffer().DataRange(off.Start, off.End)
	v, err := decodeScalar(f.desc, payload)
	if err != nil {
		return nil, f.Fail(errs.CodeOf(err))
	}
	return v, nil
}

// GetPacked aligns, then decodes every element of this packed repeated
// scalar occurrence's LENGTH blob, in wire order. Returns [errs.Descriptor]
// if the field is not actually Packed, and [errs.Absent] if it was not
// present in the message.
func (f *Field) GetPacked() ([]any, error) {
	if f.absent {
		return nil, errs.New(errs.Absent)
	}
	if !f.desc.Packed {
		return nil, errs.New(errs.Descriptor)
	}
	if err := f.Align(); err != nil {
		return nil, err
	}
	off := f.Offset()
	payload := f.Buffer().DataRange(off.Start, off.End)
	elems, err := DecodePacked(f.desc, payload)
	if err != nil {
		return nil, f.Fail(errs.CodeOf(err))
	}
	return elems, nil
}

// Put encodes value and splices it into the journal at this occurrence's
// current position, then realigns. For LENGTH-wire fields (string, bytes)
// the length prefix is re-encoded and spliced in first, so that the
// payload write below always lands at the (possibly shifted) right spot.
//
// The length-prefix write is recorded against the enclosing message's own
// payload start (it happens strictly before this field's own payload, so
// ancestors see it as Resize-inside and this field itself sees it as
// Move); the payload write is recorded against this field's own current
// start, so a delta there is classified as Resize-inside for this field's
// own handle rather than Move.
func (f *Field) Put(value any) error {
	if f.absent {
		return errs.New(errs.Absent)
	}
	encoded, err := encodeScalar(f.desc, value)
	if err != nil {
		return f.Fail(errs.CodeOf(err))
	}
	return f.PutRaw(encoded)
}

// PutRaw splices payload in at this occurrence's current position exactly
// as [Field.Put] would, skipping value encoding. Used by the message
// package to overwrite a sub-message occurrence's bytes directly, since a
// message/group field has no scalar encoding of its own.
func (f *Field) PutRaw(payload []byte) error {
	if f.absent {
		return errs.New(errs.Absent)
	}

	if f.desc.EffectiveWireType() == wire.Length {
		off := f.Offset()
		prefix := wire.AppendVarint(nil, uint64(len(payload)))
		if err := f.Journal().Write(f.headerStart(), off.Start+off.Diff.Length, off.Start, prefix); err != nil {
			return err
		}
		if err := f.Align(); err != nil {
			return err
		}
	}

	off := f.Offset()
	if err := f.Journal().Write(off.Start, off.Start, off.End, payload); err != nil {
		return err
	}
	return f.Align()
}

// headerStart is the absolute start of the message this field is a direct
// child of, derived from this field's own offset (start + diff.origin).
func (f *Field) headerStart() int {
	off := f.Offset()
	return off.Start + off.Diff.Origin
}

// Clear removes this occurrence entirely, from its tag byte through the end
// of its payload, then marks this handle [errs.Invalid]: the occurrence it
// denoted is gone, and there is no use replaying the generic alignment
// rules against one's own deletion when the outcome is already known.
// Ancestors and siblings still see a correctly classified journal entry
// and realign normally.
func (f *Field) Clear() error {
	if f.absent {
		return errs.New(errs.Absent)
	}
	off := f.Offset()
	start := off.Start + off.Diff.Tag
	if err := f.Journal().Clear(f.headerStart(), start, off.End); err != nil {
		return err
	}
	return f.Fail(errs.Invalid)
}

// Match reports whether this occurrence's current value equals value.
//
// Length is always compared before contents (via [bytes.Equal] for byte
// payloads and Go's own length-aware string equality), fixing the upstream
// pb_string_equals bug where a short buffer could be read past its end
// before the length check ran.
func (f *Field) Match(value any) (bool, error) {
	got, err := f.Get()
	if err != nil {
		return false, err
	}
	return scalarEqual(f.desc, got, value), nil
}

func scalarEqual(desc *descriptor.Field, got, want any) bool {
	if b1, ok := got.([]byte); ok {
		b2, ok := want.([]byte)
		return ok && bytes.Equal(b1, b2)
	}
	return got == want
}
