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

// Package errs defines the error taxonomy shared by every layer of
// protobluff: wire codec, buffer, journal, part, field, message and cursor.
//
// Handles latch at most one error: once a Part (or a Field/Message/Cursor
// built on top of one) observes an error, it stays invalid. There are no
// hidden retries.
package errs

import (
	"errors"
	"fmt"
)

// Code is one of the error kinds a protobluff operation can report.
type Code int

const (
	// None means the operation succeeded.
	None Code = iota
	// Alloc means an allocation or resize failed; the operation was reverted.
	Alloc
	// Invalid means the caller passed an invalidated handle, or passed
	// inconsistent arguments.
	Invalid
	// Descriptor means a referenced descriptor is missing or malformed.
	Descriptor
	// Wiretype means an unrecognized wire type was encountered (3, 4, 6, 7).
	Wiretype
	// Overflow means a length prefix or varint exceeds what can be represented.
	Overflow
	// Underrun means the buffer ended in the middle of a value.
	Underrun
	// Offset means an internal offset computation produced an inconsistent
	// result (used defensively; should never surface from a well-formed call).
	Offset
	// Absent means a singular field was not present and no default was supplied.
	Absent
	// Varint means a malformed varint (more than 10 bytes, or a stray
	// continuation bit on the 10th byte).
	Varint
	// Eom means a cursor was advanced past the end of its message.
	Eom
)

func (c Code) String() string {
	switch c {
	case None:
		return "none"
	case Alloc:
		return "alloc"
	case Invalid:
		return "invalid"
	case Descriptor:
		return "descriptor"
	case Wiretype:
		return "wiretype"
	case Overflow:
		return "overflow"
	case Underrun:
		return "underrun"
	case Offset:
		return "offset"
	case Absent:
		return "absent"
	case Varint:
		return "varint"
	case Eom:
		return "eom"
	default:
		return fmt.Sprintf("errs.Code(%d)", int(c))
	}
}

// sentinels, so that callers can use errors.Is(err, errs.Absent.Err()) or,
// more idiomatically, errs.Is(err, errs.Absent).
var sentinels = [...]error{
	None:       nil,
	Alloc:      errors.New("protobluff: allocation failed"),
	Invalid:    errors.New("protobluff: handle invalidated by a foreign edit"),
	Descriptor: errors.New("protobluff: missing or malformed descriptor"),
	Wiretype:   errors.New("protobluff: unrecognized wire type"),
	Overflow:   errors.New("protobluff: value out of range"),
	Underrun:   errors.New("protobluff: buffer ended before expected value"),
	Offset:     errors.New("protobluff: inconsistent offset"),
	Absent:     errors.New("protobluff: field not present"),
	Varint:     errors.New("protobluff: malformed varint"),
	Eom:        errors.New("protobluff: cursor exhausted"),
}

// Err returns the sentinel error for this code, or nil for None.
func (c Code) Err() error {
	return sentinels[c]
}

// Error is the concrete error type returned by protobluff operations that
// need to carry more than a bare code, such as the byte offset at which a
// wire-format error was detected.
type Error struct {
	Code   Code
	Offset int
	Cause  error
}

// New builds an *Error with no extra context.
func New(code Code) *Error {
	return &Error{Code: code}
}

// At builds an *Error carrying the byte offset at which it was detected.
func At(code Code, offset int) *Error {
	return &Error{Code: code, Offset: offset}
}

// Wrap builds an *Error that wraps an underlying cause (e.g. an allocator
// failure).
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protobluff: %v at offset %d: %v", e.Code, e.Offset, e.Cause)
	}
	if e.Offset != 0 {
		return fmt.Sprintf("protobluff: %v at offset %d", e.Code, e.Offset)
	}
	return fmt.Sprintf("protobluff: %v", e.Code)
}

// Unwrap lets errors.Is/errors.As see through to the sentinel for this
// code, and to any wrapped cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Code.Err(), e.Cause}
	}
	return []error{e.Code.Err()}
}

// Is reports whether err was produced by protobluff for the given code.
func Is(err error, code Code) bool {
	return errors.Is(err, code.Err())
}

// CodeOf extracts the Code from err, or None if err is nil or not a
// protobluff error.
func CodeOf(err error) Code {
	if err == nil {
		return None
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return None
}
