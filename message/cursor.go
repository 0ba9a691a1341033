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

package message

import (
	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/field"
	"github.com/squidfunk/protobluff/journal"
	"github.com/squidfunk/protobluff/part"
)

// State is a Cursor's current position in its state machine.
type State int

const (
	// Fresh is the state of a Cursor that has never been advanced.
	Fresh State = iota
	// AtField is the state of a Cursor currently positioned on a field
	// occurrence; Cursor.Get/Put/Erase operate on it.
	AtField
	// End is the state of a Cursor that has been advanced past the last
	// occurrence in its message (or its filtered subset of it).
	End
	// Invalid is the state of a Cursor whose position was destroyed by a
	// foreign edit, or that failed some other operation.
	Invalid
)

// Cursor is a stateful forward iterator over a Message's payload, visiting
// occurrences in wire order (which equals physical and insertion order).
// If filter is non-zero, only occurrences of that tag are visited.
type Cursor struct {
	msg    *Message
	pos    part.Part // zero-width marker: where to resume scanning from
	filter int32
	state  State
	errc   errs.Code
	cur    occurrence
	curFd  *descriptor.Field
}

// NewCursor returns a Cursor over every field occurrence in m, in order.
func NewCursor(m *Message) *Cursor {
	return newCursor(m, 0)
}

// NewFilteredCursor returns a Cursor over only the occurrences of tag in m.
func NewFilteredCursor(m *Message, tag int32) *Cursor {
	return newCursor(m, tag)
}

func newCursor(m *Message, filter int32) *Cursor {
	off := m.Offset()
	marker := journal.Offset{Start: off.Start, End: off.Start, Diff: off.Diff}
	return &Cursor{
		msg:    m,
		pos:    part.New(m.Journal(), marker),
		filter: filter,
		state:  Fresh,
	}
}

// State returns the cursor's current state.
func (c *Cursor) State() State { return c.state }

// Error returns the error code that produced the current End or Invalid
// state, or [errs.None] otherwise.
func (c *Cursor) Error() errs.Code { return c.errc }

func (c *Cursor) fail(code errs.Code) error {
	c.state = Invalid
	c.errc = code
	return errs.New(code)
}

// Rewind resets the cursor to Fresh, resuming from the start of the
// message's current payload.
func (c *Cursor) Rewind() error {
	if err := c.msg.Align(); err != nil {
		return c.fail(errs.CodeOf(err))
	}
	off := c.msg.Offset()
	c.pos = part.New(c.msg.Journal(), journal.Offset{Start: off.Start, End: off.Start, Diff: off.Diff})
	c.state = Fresh
	c.errc = errs.None
	return nil
}

// Next aligns the underlying message and this cursor's recorded position,
// then decodes the next occurrence starting there, skipping non-matching
// tags when a filter is set. If alignment finds that an intervening edit
// removed the byte range the cursor was resuming from, the cursor becomes
// Invalid. Advancing past the last occurrence reports [errs.Eom] and moves
// to End.
func (c *Cursor) Next() error {
	if c.state == Invalid {
		return errs.New(c.errc)
	}
	if err := c.msg.Align(); err != nil {
		return c.fail(errs.CodeOf(err))
	}
	if err := c.pos.Align(); err != nil {
		return c.fail(errs.Invalid)
	}

	msgOff := c.msg.Offset()
	start := c.pos.Offset().End

	for {
		if start >= msgOff.End {
			c.state = End
			c.errc = errs.Eom
			return errs.New(errs.Eom)
		}

		data := c.msg.Buffer().DataRange(start, msgOff.End)
		occ, n, err := scanOne(data, start)
		if err != nil {
			return c.fail(errs.CodeOf(err))
		}
		next := start + n

		if c.filter == 0 || occ.field == c.filter {
			fd, ok := c.msg.desc.Field(occ.field)
			if !ok {
				return c.fail(errs.Descriptor)
			}
			c.cur = occ
			c.curFd = fd
			c.state = AtField
			// Start is the occurrence's payload start, matching the
			// convention occ.diff is computed against everywhere else (the
			// invariant diff.Origin <= diff.Tag <= diff.Length <= 0 only
			// holds relative to the payload start); pairing a
			// tag-start-based Start with a payload-start-based Diff would
			// shift headerStart by the header's own width and keep a
			// foreign removal of this exact occurrence from ever being
			// classified as Rule 3 (Cleared).
			c.pos = part.New(c.msg.Journal(), journal.Offset{
				Start: occ.start, End: occ.end, Diff: occ.diff(msgOff.Start),
			})
			return nil
		}
		start = next
	}
}

// Seek advances until the current field's value matches value, or Eom.
func (c *Cursor) Seek(value any) error {
	for {
		if err := c.Next(); err != nil {
			return err
		}
		ok, err := c.Match(value)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

// atField returns the Field handle for the cursor's current position, or
// an error if the cursor is not AtField.
func (c *Cursor) atField() (*field.Field, error) {
	if c.state != AtField {
		return nil, errs.New(errs.Invalid)
	}
	off := journal.Offset{Start: c.cur.start, End: c.cur.end, Diff: c.cur.diff(c.msg.Offset().Start)}
	return field.New(part.New(c.msg.Journal(), off), c.curFd), nil
}

// Get decodes the value of the field the cursor is currently positioned at.
func (c *Cursor) Get() (any, error) {
	f, err := c.atField()
	if err != nil {
		return nil, err
	}
	return f.Get()
}

// Put overwrites the value of the field the cursor is currently positioned
// at, then updates the cursor's recorded position by the resulting delta so
// that the following Next() resumes from the right place.
func (c *Cursor) Put(value any) error {
	f, err := c.atField()
	if err != nil {
		return err
	}
	if err := f.Put(value); err != nil {
		c.state = Invalid
		c.errc = errs.CodeOf(err)
		return err
	}
	off := f.Offset()
	c.cur.start = off.Start
	c.cur.end = off.End
	c.pos = part.New(c.msg.Journal(), off)
	return nil
}

// Erase removes the field the cursor is currently positioned at, then
// invalidates the cursor: the position it was tracking no longer exists,
// and the caller must Rewind or build a fresh Cursor to continue.
func (c *Cursor) Erase() error {
	f, err := c.atField()
	if err != nil {
		return err
	}
	if err := f.Clear(); err != nil {
		return c.fail(errs.CodeOf(err))
	}
	return c.fail(errs.Invalid)
}

// GetPacked decodes every element of the packed repeated scalar field the
// cursor is currently positioned at, in wire order. Use this instead of Get
// whenever the field's descriptor reports Packed.
func (c *Cursor) GetPacked() ([]any, error) {
	f, err := c.atField()
	if err != nil {
		return nil, err
	}
	return f.GetPacked()
}

// Match reports whether the current field's value equals value.
func (c *Cursor) Match(value any) (bool, error) {
	f, err := c.atField()
	if err != nil {
		return false, err
	}
	return f.Match(value)
}
