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

// Package buffer implements the owned/borrowed byte store that a
// [journal.Journal] splices edits into.
package buffer

import (
	"github.com/squidfunk/protobluff/alloc"
	"github.com/squidfunk/protobluff/errs"
)

// Buffer is a contiguous byte region with size <= capacity, plus an
// allocator and a latched error flag.
//
// The zero Buffer is a valid empty buffer backed by [alloc.Default].
type Buffer struct {
	data      []byte
	allocator alloc.Allocator
	zeroCopy  bool
	err       errs.Code
}

// Create copies data into a new owned Buffer.
func Create(data []byte) *Buffer {
	return CreateWithAllocator(data, alloc.Default)
}

// CreateWithAllocator is like Create, but overrides the allocator used for
// future growth/shrinkage.
func CreateWithAllocator(data []byte, a alloc.Allocator) *Buffer {
	if a == nil {
		a = alloc.Default
	}
	owned := a.Alloc(len(data))
	if owned == nil && len(data) > 0 {
		return &Buffer{allocator: a, err: errs.Alloc}
	}
	copy(owned, data)
	return &Buffer{data: owned, allocator: a}
}

// CreateEmpty allocates nothing.
func CreateEmpty() *Buffer {
	return &Buffer{allocator: alloc.Default}
}

// CreateZeroCopy borrows data directly: the returned Buffer never
// reallocates, so resize operations that would change its length fail with
// [errs.Alloc] rather than copying the caller's memory.
func CreateZeroCopy(data []byte) *Buffer {
	return &Buffer{data: data, allocator: alloc.ZeroCopy, zeroCopy: true}
}

// Data returns the full contents of the buffer. The returned slice aliases
// internal storage and must not be retained across a mutating call.
func (b *Buffer) Data() []byte { return b.data }

// DataAt returns the contents of the buffer starting at offset start.
func (b *Buffer) DataAt(start int) []byte { return b.data[start:] }

// DataFrom is an alias for DataAt, matching the specification's naming.
func (b *Buffer) DataFrom(start int) []byte { return b.DataAt(start) }

// DataRange returns the contents of the buffer over [start, end).
func (b *Buffer) DataRange(start, end int) []byte { return b.data[start:end] }

// Size returns the current size of the buffer.
func (b *Buffer) Size() int { return len(b.data) }

// Empty reports whether the buffer is currently zero-length.
func (b *Buffer) Empty() bool { return len(b.data) == 0 }

// ZeroCopy reports whether this buffer refuses to reallocate.
func (b *Buffer) ZeroCopy() bool { return b.zeroCopy }

// Error returns the latched error code, or [errs.None] if the buffer has
// never failed an operation.
func (b *Buffer) Error() errs.Code { return b.err }

// Valid reports whether the buffer has not latched an error.
func (b *Buffer) Valid() bool { return b.err == errs.None }

// Write replaces bytes [start, end) with the size-byte contents of data,
// growing or shrinking the buffer by size - (end - start).
//
// For zero-copy buffers this only succeeds when size == end - start;
// otherwise it fails with [errs.Alloc]. Any failed allocation leaves the
// buffer unchanged and latches [errs.Alloc]; once latched, further
// mutations fail with [errs.Invalid].
func (b *Buffer) Write(start, end int, data []byte) error {
	if !b.Valid() {
		return errs.New(errs.Invalid)
	}
	if start < 0 || start > end || end > len(b.data) {
		return errs.New(errs.Offset)
	}

	delta := len(data) - (end - start)
	newSize := len(b.data) + delta
	if newSize == len(b.data) && delta == 0 {
		copy(b.data[start:end], data)
		return nil
	}

	if b.allocator == nil {
		b.allocator = alloc.Default
	}
	grown, ok := b.allocator.Resize(b.data, newSize)
	if !ok {
		b.err = errs.Alloc
		return errs.New(errs.Alloc)
	}

	// grown may be a distinct backing array (heap growth) or the same one
	// resliced (shrink, or zero-copy's length-preserving resize). Either
	// way we must shift the tail before writing the new middle, taking
	// care with overlapping ranges when grown aliases b.data.
	if delta > 0 {
		// Make room: shift [end, old size) right by delta, starting from the
		// back so overlapping regions don't clobber unread bytes.
		copy(grown[end+delta:], b.data[end:])
	} else {
		// Shrinking or same-size: shift [end, old size) left by -delta.
		copy(grown[end+delta:], b.data[end:])
	}
	copy(grown[start:start+len(data)], data)

	b.data = grown
	return nil
}

// Clear is equivalent to Write(start, end, nil).
func (b *Buffer) Clear(start, end int) error {
	return b.Write(start, end, nil)
}
