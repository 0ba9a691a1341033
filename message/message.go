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

// Package message implements Message, a [part.Part] typed as a sub-message:
// tag-indexed field access, plus Cursor, a stateful forward iterator over a
// Message's payload.
package message

import (
	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/field"
	"github.com/squidfunk/protobluff/internal/wire"
	"github.com/squidfunk/protobluff/journal"
	"github.com/squidfunk/protobluff/part"
)

// Message is a Part whose payload is itself a sequence of tagged fields,
// described by desc. parent is the message this one is a direct child of,
// nil for the outermost message over the whole buffer; it is what lets a
// deeply nested message's growth patch every ancestor's length prefix, not
// just its immediate enclosing one.
type Message struct {
	part.Part
	desc   *descriptor.Message
	parent *Message
}

// New wraps p as a standalone Message described by desc, with no parent.
// Used for the outermost message over a buffer, and for a sub-message built
// independently of any other (e.g. to pass to [Message.Put] for splicing).
func New(p part.Part, desc *descriptor.Message) *Message {
	return &Message{Part: p, desc: desc}
}

// Descriptor returns the message descriptor this handle was built from.
func (m *Message) Descriptor() *descriptor.Message { return m.desc }

// occurrences re-aligns and scans this message's current payload for every
// occurrence of tag (or every occurrence if tag == 0).
func (m *Message) occurrences(tag int32) ([]occurrence, error) {
	if err := m.Align(); err != nil {
		return nil, err
	}
	off := m.Offset()
	data := m.Buffer().DataRange(off.Start, off.End)
	occs, err := scan(data, off.Start, tag)
	if err != nil {
		return nil, m.Fail(errs.CodeOf(err))
	}
	return occs, nil
}

// Has reports whether tag has at least one occurrence in the message.
func (m *Message) Has(tag int32) (bool, error) {
	occs, err := m.occurrences(tag)
	if err != nil {
		return false, err
	}
	return len(occs) > 0, nil
}

// fieldDescriptor resolves tag against the message's own descriptor,
// reporting [errs.Descriptor] if the tag is unknown.
func (m *Message) fieldDescriptor(tag int32) (*descriptor.Field, error) {
	fd, ok := m.desc.Field(tag)
	if !ok {
		return nil, errs.New(errs.Descriptor)
	}
	return fd, nil
}

// fieldAt builds a [field.Field] handle over occ, a child of this message.
func (m *Message) fieldAt(fd *descriptor.Field, occ occurrence) *field.Field {
	off := journal.Offset{Start: occ.start, End: occ.end, Diff: occ.diff(m.Offset().Start)}
	return field.New(part.New(m.Journal(), off), fd)
}

// messageAt builds a sub-Message handle over occ, a child of this message.
func (m *Message) messageAt(fd *descriptor.Field, occ occurrence) *Message {
	off := journal.Offset{Start: occ.start, End: occ.end, Diff: occ.diff(m.Offset().Start)}
	return &Message{Part: part.New(m.Journal(), off), desc: fd.Message, parent: m}
}

// Get decodes the last occurrence of tag (later wins, per Protocol Buffers
// singular-field semantics), or returns the descriptor default if one is
// set, or [errs.Absent] if neither is available. Message/group fields are
// not handled here; use [Message.CreateWithin] to navigate into them.
//
// A Packed field decodes differently: the wire format allows a packed
// field's elements to arrive split across more than one LENGTH run, so Get
// concatenates every occurrence's decoded elements, in wire order, and
// returns the resulting []any rather than a single scalar value.
func (m *Message) Get(tag int32) (any, error) {
	fd, err := m.fieldDescriptor(tag)
	if err != nil {
		return nil, err
	}
	occs, err := m.occurrences(tag)
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		if fd.Default != nil {
			return fd.Default, nil
		}
		return nil, errs.New(errs.Absent)
	}
	if fd.Packed {
		return m.getPacked(fd, occs)
	}
	return m.fieldAt(fd, occs[len(occs)-1]).Get()
}

// getPacked decodes and concatenates the elements of every occurrence of a
// packed repeated scalar field, in wire order.
func (m *Message) getPacked(fd *descriptor.Field, occs []occurrence) ([]any, error) {
	var out []any
	for _, occ := range occs {
		elems, err := m.fieldAt(fd, occ).GetPacked()
		if err != nil {
			return nil, err
		}
		out = append(out, elems...)
	}
	return out, nil
}

// Put sets tag's value. For a singular scalar field already present, the
// last occurrence's payload is overwritten in place; otherwise (absent
// singular, or any repeated field) a fresh tag+length+payload occurrence is
// appended at the end of the message. For a message/group field, value must
// be a *Message, whose current raw bytes are spliced in under a fresh
// tag+length prefix. For a Packed field, value is one new element appended
// onto the field's existing shared LENGTH block (see [Message.putPacked]).
func (m *Message) Put(tag int32, value any) error {
	fd, err := m.fieldDescriptor(tag)
	if err != nil {
		return err
	}

	if fd.Packed {
		return m.putPacked(fd, value)
	}

	var payload []byte
	if fd.Message != nil {
		sub, ok := value.(*Message)
		if !ok {
			return m.Fail(errs.Invalid)
		}
		if err := sub.Align(); err != nil {
			return err
		}
		off := sub.Offset()
		payload = append([]byte(nil), sub.Buffer().DataRange(off.Start, off.End)...)
	} else {
		payload, err = field.Encode(fd, value)
		if err != nil {
			return m.Fail(errs.CodeOf(err))
		}
	}

	occs, err := m.occurrences(tag)
	if err != nil {
		return err
	}
	if len(occs) > 0 && fd.Label != descriptor.LabelRepeated {
		// Grow every ancestor's length prefix first, as appendChunk does,
		// then overwrite the re-scanned last occurrence.
		last := occs[len(occs)-1]
		grow := len(payload) - (last.end - last.start)
		if fd.EffectiveWireType() == wire.Length {
			grow += wire.SizeVarint(uint64(len(payload))) - (last.start - last.lengthStart)
		}
		if err := m.growBy(grow); err != nil {
			return err
		}
		if occs, err = m.occurrences(tag); err != nil {
			return err
		}
		return m.fieldAt(fd, occs[len(occs)-1]).PutRaw(payload)
	}
	return m.appendChunk(fd, payload)
}

// headerStart is the absolute start of the message this message is a direct
// child of, derived from this message's own offset. Meaningful only when
// hasHeader is true.
func (m *Message) headerStart() int {
	off := m.Offset()
	return off.Start + off.Diff.Origin
}

// hasHeader reports whether this message sits behind a tag+length prefix
// written by an enclosing message. False only for the outermost message
// over the whole buffer.
func (m *Message) hasHeader() bool {
	return m.parent != nil
}

// growBy rewrites this message's own length prefix to account for its
// payload having grown (delta > 0) or shrunk (delta < 0) by delta bytes,
// then recurses into parent: this message's bytes, header included, are
// part of parent's payload, so parent's own declared length must grow by
// the same amount, all the way up the chain. A change in the rewritten
// prefix's own varint width is folded into what gets reported upward, so a
// length crossing a varint size boundary several levels down still leaves
// every ancestor's length prefix correct.
//
// No-op for the outermost message, which isn't preceded by a length byte
// and has no parent to inform.
func (m *Message) growBy(delta int) error {
	if !m.hasHeader() || delta == 0 {
		return nil
	}
	off := m.Offset()
	oldWidth := -off.Diff.Length
	newLen := (off.End - off.Start) + delta
	prefix := wire.AppendVarint(nil, uint64(newLen))

	if err := m.Journal().Write(m.headerStart(), off.Start+off.Diff.Length, off.Start, prefix); err != nil {
		return err
	}
	if err := m.Align(); err != nil {
		return err
	}

	widthDelta := len(prefix) - oldWidth
	return m.parent.growBy(delta + widthDelta)
}

// appendChunk writes fd's tag, a length prefix (for LENGTH-wire fields), and
// payload as one new occurrence at the end of the message's payload.
//
// The chunk insertion itself is recorded against this message's own
// current start, not its enclosing group's: a new child lands squarely
// inside this message's own payload, so this message must see its own
// Resize-inside rule fire, exactly as Field.Put records its own-payload
// resize against its own start rather than its parent's. The message's own
// length prefix (if it has one) is grown first, so the growth is visible
// to every ancestor before the chunk itself is spliced in.
func (m *Message) appendChunk(fd *descriptor.Field, payload []byte) error {
	wt := fd.EffectiveWireType()
	chunk := wire.AppendTag(nil, wire.Tag{Field: fd.Tag, Type: wt})
	if wt == wire.Length {
		chunk = wire.AppendVarint(chunk, uint64(len(payload)))
	}
	chunk = append(chunk, payload...)

	if err := m.growBy(len(chunk)); err != nil {
		return err
	}

	off := m.Offset()
	if err := m.Journal().Write(off.Start, off.End, off.End, chunk); err != nil {
		return err
	}
	return m.Align()
}

// putPacked appends value's encoded element onto fd's existing packed LENGTH
// block, growing its shared length prefix in place, or creates a fresh
// one-element block via appendChunk if fd has no occurrence yet. This keeps
// every element Put onto a packed field in one contiguous run, the way a
// real encoder emits it, rather than scattering a separate LENGTH block per
// call (which would still be wire-legal, but would mean only the
// most-recently-Put element is ever visible through Message.Get).
func (m *Message) putPacked(fd *descriptor.Field, value any) error {
	elem, err := field.Encode(fd, value)
	if err != nil {
		return m.Fail(errs.CodeOf(err))
	}

	occs, err := m.occurrences(fd.Tag)
	if err != nil {
		return err
	}
	if len(occs) == 0 {
		return m.appendChunk(fd, elem)
	}

	last := m.fieldAt(fd, occs[len(occs)-1])
	off := last.Offset()
	blob := append(append([]byte(nil), last.Buffer().DataRange(off.Start, off.End)...), elem...)

	// Inform every ancestor's length prefix of the coming growth first —
	// the same ordering appendChunk uses — before splicing the grown blob
	// in, since growBy's own rewrite may itself shift this occurrence's
	// coordinates (a length prefix can cross a varint-width boundary).
	if err := m.growBy(len(elem) + wire.SizeVarint(uint64(len(blob))) + off.Diff.Length); err != nil {
		return err
	}
	occs, err = m.occurrences(fd.Tag)
	if err != nil {
		return err
	}
	last = m.fieldAt(fd, occs[len(occs)-1])
	return last.PutRaw(blob)
}

// Erase removes every occurrence of tag from the message.
func (m *Message) Erase(tag int32) error {
	occs, err := m.occurrences(tag)
	if err != nil {
		return err
	}
	if len(occs) == 0 {
		return nil
	}

	removed := 0
	for _, o := range occs {
		removed += o.end - o.tagStart
	}
	if err := m.growBy(-removed); err != nil {
		return err
	}

	// Re-scan: growing (shrinking) the length prefix may itself have
	// shifted this message (its prefix width can change), which moves
	// every occurrence coordinate gathered before the patch.
	occs, err = m.occurrences(tag)
	if err != nil {
		return err
	}

	// Each removed occurrence is a direct child of this message, so the
	// edit is recorded against this message's own start (same convention
	// as appendChunk), not its enclosing group's. Back-to-front order
	// keeps the as-yet-unprocessed occurrences' coordinates, taken from
	// the same post-patch scan, valid for their own Clear call.
	origin := m.Offset().Start
	for i := len(occs) - 1; i >= 0; i-- {
		o := occs[i]
		if err := m.Journal().Clear(origin, o.tagStart, o.end); err != nil {
			return err
		}
	}
	return m.Align()
}

// Clear removes the entire message payload, invalidating this handle and
// every descendant Field/Message/Cursor derived from it. The length prefix
// (if this message has one) is first shrunk to zero, exactly as erasing
// every field would leave it; the payload bytes themselves are then
// removed in one edit against this message's own start.
func (m *Message) Clear() error {
	off := m.Offset()
	if err := m.growBy(-(off.End - off.Start)); err != nil {
		return err
	}
	off = m.Offset()
	if err := m.Journal().Clear(off.Start, off.Start, off.End); err != nil {
		return err
	}
	return m.Fail(errs.Invalid)
}

// Raw returns the raw payload bytes of the last occurrence of tag. The
// returned slice aliases the journal's buffer and is only valid until the
// next mutation of this journal.
func (m *Message) Raw(tag int32) ([]byte, error) {
	occs, err := m.occurrences(tag)
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		return nil, errs.New(errs.Absent)
	}
	last := occs[len(occs)-1]
	return m.Buffer().DataRange(last.start, last.end), nil
}

// CreateWithin returns a sub-Message handle for tag, which must be a
// message/group field. If tag is absent, an empty occurrence (tag + a
// zero-length payload) is inserted first.
func (m *Message) CreateWithin(tag int32) (*Message, error) {
	fd, err := m.fieldDescriptor(tag)
	if err != nil {
		return nil, err
	}
	if fd.Message == nil {
		return nil, m.Fail(errs.Descriptor)
	}

	occs, err := m.occurrences(tag)
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		if err := m.appendChunk(fd, nil); err != nil {
			return nil, err
		}
		occs, err = m.occurrences(tag)
		if err != nil {
			return nil, err
		}
	}

	return m.messageAt(fd, occs[len(occs)-1]), nil
}

// CreateNested walks CreateWithin along tags, one message hop per tag.
func (m *Message) CreateNested(tags []int32) (*Message, error) {
	cur := m
	for _, tag := range tags {
		next, err := cur.CreateWithin(tag)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
