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
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/internal/wire"
	"github.com/squidfunk/protobluff/journal"
)

// occurrence is one tag+value found while scanning a message's payload, in
// absolute buffer coordinates.
type occurrence struct {
	field       int32
	wireType    wire.Type
	tagStart    int
	lengthStart int // == tagStart + tag-varint-length when WireType == Length
	start       int // payload start (value bytes, no tag/length)
	end         int
}

// diff computes the journal.Diff this occurrence's payload would carry as a
// direct child of a message whose own payload begins at msgStart.
//
// origin is derived, never hardcoded to zero: it is the distance back to
// the enclosing message's own payload start. For a root message msgStart is
// 0, so a field at the very front of the buffer gets Origin == Tag == minus
// the width of its own tag and length prefix (Diff{-2,-2,-1} for a one-byte
// tag and a one-byte length prefix); fields
// further in get a proportionally larger (more negative) origin, which keeps
// the invariant
// diff.origin <= diff.tag <= diff.length <= 0 intact in every case rather
// than special-casing the root.
func (o occurrence) diff(msgStart int) journal.Diff {
	return journal.Diff{
		Origin: msgStart - o.start,
		Tag:    o.tagStart - o.start,
		Length: o.lengthStart - o.start,
	}
}

// scan walks data (a message's payload bytes) from front to back, reporting
// every occurrence whose field number is tag, or every occurrence if
// tag == 0. base is data's absolute offset in the journal's buffer.
func scan(data []byte, base int, tag int32) ([]occurrence, error) {
	var out []occurrence
	pos := 0
	for pos < len(data) {
		occ, n, err := scanOne(data[pos:], base+pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if tag == 0 || occ.field == tag {
			out = append(out, occ)
		}
	}
	return out, nil
}

// scanOne decodes exactly one tag+value from the front of data, returning
// the occurrence (in absolute coordinates, given data's absolute offset
// base) and the number of bytes consumed. Used both by scan and by
// [Cursor.Next], which steps one occurrence at a time rather than
// rescanning the remainder of the message on every call.
func scanOne(data []byte, base int) (occurrence, int, error) {
	t, n, err := wire.ConsumeTag(data)
	if err != nil {
		return occurrence{}, 0, err
	}
	pos := n

	var lengthStart, start, end int
	switch t.Type {
	case wire.Varint:
		lengthStart = 0
		start = pos
		_, vn, err := wire.ConsumeVarint(data[pos:])
		if err != nil {
			return occurrence{}, 0, err
		}
		pos += vn
		end = pos
	case wire.Fixed64:
		lengthStart = 0
		start = pos
		if len(data)-pos < 8 {
			return occurrence{}, 0, errs.New(errs.Underrun)
		}
		pos += 8
		end = pos
	case wire.Fixed32:
		lengthStart = 0
		start = pos
		if len(data)-pos < 4 {
			return occurrence{}, 0, errs.New(errs.Underrun)
		}
		pos += 4
		end = pos
	case wire.Length:
		lengthStart = pos
		length, ln, err := wire.ConsumeLengthPrefix(data[pos:])
		if err != nil {
			return occurrence{}, 0, err
		}
		pos += ln
		start = pos
		pos += length
		end = pos
	default:
		return occurrence{}, 0, errs.New(errs.Wiretype)
	}

	return occurrence{
		field:       t.Field,
		wireType:    t.Type,
		tagStart:    base,
		lengthStart: base + lengthStart,
		start:       base + start,
		end:         base + end,
	}, pos, nil
}
