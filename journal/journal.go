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

// Package journal implements the append-only edit log over a [buffer.Buffer]
// and the alignment algorithm that lets a stale byte range re-locate itself
// after edits, without ever re-parsing the message.
//
// This is the hardest part of protobluff: [Journal.Align] replays exactly
// the entries recorded since a handle's last known version, in O(number of
// intervening edits), and either produces the handle's current byte range or
// determines that the edit removed it outright.
package journal

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/squidfunk/protobluff/alloc"
	"github.com/squidfunk/protobluff/buffer"
	"github.com/squidfunk/protobluff/errs"
)

// Entry records that at absolute position Offset, Delta bytes were inserted
// (Delta > 0) or removed (Delta < 0); Origin is the start of the
// length-prefixed group that edit was performed within.
type Entry struct {
	Origin int
	Offset int
	Delta  int
}

// Journal is a buffer plus an ordered, append-only sequence of edits. The
// entry count is the journal's version: every Part records the version it
// was last aligned to, and re-aligns by replaying entries from there.
type Journal struct {
	buf     *buffer.Buffer
	entries []Entry
	id      uuid.UUID
	log     *zap.Logger
}

// config accumulates construction-time options before the backing buffer is
// built, so that WithAllocator can apply to the initial allocation rather
// than to a throwaway default buffer.
type config struct {
	allocator alloc.Allocator
	log       *zap.Logger
}

// Option configures a Journal at construction time.
type Option func(*config)

// WithAllocator overrides the allocator used for the journal's backing
// buffer; the entry log itself grows as an ordinary Go slice. Has no effect
// on a zero-copy journal, which never allocates regardless of allocator.
func WithAllocator(a alloc.Allocator) Option {
	return func(c *config) { c.allocator = a }
}

// WithLogger attaches a structured logger. A nil logger (the default)
// disables logging entirely; journals are silent unless a caller opts in.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// New creates a Journal over an owned copy of data.
func New(data []byte, opts ...Option) *Journal {
	c := resolve(opts)
	return &Journal{
		buf: buffer.CreateWithAllocator(data, c.allocator),
		id:  uuid.New(),
		log: c.log,
	}
}

// NewZeroCopy creates a Journal that borrows data directly; see
// [buffer.CreateZeroCopy].
func NewZeroCopy(data []byte, opts ...Option) *Journal {
	c := resolve(opts)
	return &Journal{
		buf: buffer.CreateZeroCopy(data),
		id:  uuid.New(),
		log: c.log,
	}
}

func resolve(opts []Option) config {
	c := config{allocator: alloc.Default}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ID is a diagnostic identifier for this journal, included in log fields.
// It plays no part in the alignment algorithm.
func (j *Journal) ID() uuid.UUID { return j.id }

// Buffer returns the journal's backing buffer.
func (j *Journal) Buffer() *buffer.Buffer { return j.buf }

// Version returns the number of edits recorded so far.
func (j *Journal) Version() int { return len(j.entries) }

// Write replaces the bytes of the part [start, end) with data, recording a
// journal entry if the edit changes the part's length.
//
// origin is the absolute start of the length-prefixed group this edit
// occurred within (0 for a top-level message); it is stored verbatim in the
// resulting entry and consulted only by alignment.
func (j *Journal) Write(origin, start, end int, data []byte) error {
	delta := len(data) - (end - start)
	if delta == 0 {
		return j.buf.Write(start, end, data)
	}

	j.entries = append(j.entries, Entry{Origin: origin, Offset: end, Delta: delta})
	if err := j.buf.Write(start, end, data); err != nil {
		// Revert: pop the entry we just appended so that outstanding
		// handles never observe a version bump for an edit that never
		// actually happened.
		j.entries = j.entries[:len(j.entries)-1]
		if j.log != nil {
			j.log.Warn("protobluff: journal write failed, reverted",
				zap.String("journal_id", j.id.String()), zap.Error(err))
		}
		return err
	}

	if j.log != nil {
		j.log.Debug("protobluff: journal write",
			zap.String("journal_id", j.id.String()),
			zap.Int("origin", origin), zap.Int("start", start), zap.Int("end", end),
			zap.Int("delta", delta), zap.Int("version", j.Version()))
	}
	return nil
}

// Clear is equivalent to Write(origin, start, end, nil).
func (j *Journal) Clear(origin, start, end int) error {
	return j.Write(origin, start, end, nil)
}

// Align replays every entry recorded between *version and the journal's
// current version against *offset, updating both in place.
//
// On success, *version == j.Version(). If the replayed edits determine that
// offset no longer denotes a live part of the message, *version is set to
// [SentinelInvalid] and an [errs.Invalid] error is returned; offset's fields
// are left in whatever state the spec's collapse rules produced (callers
// must not interpret them further once invalid).
func (j *Journal) Align(version *int, offset *Offset) error {
	if *version == SentinelInvalid {
		return errs.New(errs.Invalid)
	}

	invalid := false
	for i := *version; i < len(j.entries); i++ {
		e := j.entries[i]
		applyEntry(e, offset, &invalid)
		*version = i + 1
	}

	if invalid {
		*version = SentinelInvalid
		return errs.New(errs.Invalid)
	}
	return nil
}

// applyEntry classifies e against *offset per the five rules of the
// alignment algorithm and mutates *offset accordingly.
func applyEntry(e Entry, offset *Offset, invalid *bool) {
	headerStart := offset.Start + offset.Diff.Origin

	switch {
	case e.Origin < offset.Start && e.Offset < offset.End:
		// Rule 1: Move. The edit happened strictly before this part.
		applyMove(e, offset)

	case e.Origin >= headerStart && e.Offset <= offset.End && e.Origin >= offset.Start:
		// Rule 2: Resize-inside. The edit happened within this part's payload.
		applyResizeInside(e, offset, invalid)

	case e.Origin >= headerStart && e.Offset <= offset.End && e.Origin < offset.Start &&
		(headerStart)-(offset.End+e.Delta) == 0:
		// Rule 3: Cleared. The enclosing group collapsed to zero length,
		// taking this part with it.
		applyCleared(e, offset, invalid)

	case e.Origin <= headerStart && e.Origin == e.Offset+e.Delta && headerStart < e.Offset:
		// Rule 4: Cleared-outside. A foreign deletion strictly contained
		// this part's header.
		applyClearedOutside(e, offset, invalid)

	default:
		// Rule 5: a parent-level resize that wraps this part without
		// deleting it. Leave the part unchanged.
	}
}

func applyMove(e Entry, offset *Offset) {
	offset.Start += e.Delta
	offset.End += e.Delta

	shift := func(d *int) {
		if e.Offset > offset.Start+*d-e.Delta {
			*d -= e.Delta
		}
	}
	shift(&offset.Diff.Origin)
	shift(&offset.Diff.Tag)
	shift(&offset.Diff.Length)
}

func applyResizeInside(e Entry, offset *Offset, invalid *bool) {
	offset.End += e.Delta

	packed := offset.Diff.Origin != 0 && offset.Diff.Tag == 0 && offset.Start == offset.End
	if packed {
		*invalid = true
	}
}

func applyCleared(e Entry, offset *Offset, invalid *bool) {
	offset.Start += offset.Diff.Origin
	offset.End += e.Delta
	offset.Diff = Diff{}
	*invalid = true
}

func applyClearedOutside(e Entry, offset *Offset, invalid *bool) {
	offset.Start = e.Origin
	offset.End = e.Origin
	offset.Diff = Diff{}
	*invalid = true
}
