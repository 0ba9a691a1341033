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

// Package part implements Part, the base handle every higher-level type
// (Field, Message, Cursor) embeds: a journal, the version it was last
// aligned to, and the byte offset it denotes as of that version.
package part

import (
	"github.com/squidfunk/protobluff/buffer"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/journal"
)

// Part is a live reference into a [journal.Journal]: a byte range that can
// be re-located, or discovered to have been deleted, after foreign edits.
//
// The zero Part is not usable; construct one with [New].
type Part struct {
	journal *journal.Journal
	version int
	offset  journal.Offset
	err     errs.Code
}

// New wraps offset as a Part over j, current as of j's version at the time
// of the call.
func New(j *journal.Journal, offset journal.Offset) Part {
	return Part{journal: j, version: j.Version(), offset: offset}
}

// Journal returns the journal this part is a handle into.
func (p *Part) Journal() *journal.Journal { return p.journal }

// Buffer returns the backing buffer of this part's journal.
func (p *Part) Buffer() *buffer.Buffer { return p.journal.Buffer() }

// Offset returns the part's byte range as of its last alignment. Call
// [Part.Align] first if the journal may have changed since.
func (p *Part) Offset() journal.Offset { return p.offset }

// Version returns the journal version this part was last aligned to.
func (p *Part) Version() int { return p.version }

// Error returns the latched error code, or [errs.None] if the part has
// never failed an operation.
func (p *Part) Error() errs.Code { return p.err }

// Valid reports whether the part has neither latched an error nor been
// invalidated by alignment.
func (p *Part) Valid() bool {
	return p.err == errs.None && p.version != journal.SentinelInvalid
}

// Align replays any journal entries recorded since this part's last known
// version, updating its offset in place. It is a no-op if the part is
// already current.
//
// Every higher-level operation calls Align before reading and again after
// every mutation, per the specification: a Part must never be read or
// written against a stale offset.
func (p *Part) Align() error {
	if p.err != errs.None {
		return errs.New(p.err)
	}
	if err := p.journal.Align(&p.version, &p.offset); err != nil {
		p.err = errs.Invalid
		return err
	}
	return nil
}

// fail latches code on the part and returns the corresponding error. Once
// latched, the part reports Invalid (or whatever code was latched) for
// every subsequent operation.
func (p *Part) fail(code errs.Code) error {
	p.err = code
	return errs.New(code)
}

// Fail is fail exported for use by packages built on top of Part (field,
// message, cursor) that need to latch an error onto the embedded handle.
func (p *Part) Fail(code errs.Code) error { return p.fail(code) }
