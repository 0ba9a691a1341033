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

// Package encoding implements a streaming, non-journaled Encoder and
// Decoder: a single front-to-back pass over wire bytes, with no backing
// buffer to mutate and no alignment bookkeeping. Use [message.Message] when
// edits need to stick around after the call returns; use this package when
// all that is wanted is to walk or build a message once.
package encoding

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/field"
	"github.com/squidfunk/protobluff/internal/wire"
)

const defaultMaxDepth = 1000

// Visitor receives one decoded field occurrence. For a packed repeated
// scalar field it is called once per element, all sharing tag; for a
// message/group field value is the raw sub-message payload (no tag or
// length prefix), after which the Decoder descends into that payload itself
// and calls the same Visitor for each of the sub-message's fields, with the
// sub-message's own tags.
type Visitor func(tag int32, value any) error

// Option configures a Decoder.
type Option func(*Decoder)

// WithOnUnknown installs a callback invoked for every tag not present in
// the message descriptor, given its wire type and raw value bytes (no tag,
// and for LENGTH fields no length prefix). The default is to silently skip
// unknown fields, per the wire format's forward-compatibility contract.
func WithOnUnknown(fn func(tag int32, wt wire.Type, raw []byte) error) Option {
	return func(d *Decoder) { d.onUnknown = fn }
}

// WithMaxDepth caps recursion into nested messages, guarding against a
// maliciously deep chain of empty sub-messages. The default is 1000.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) { d.maxDepth = n }
}

// Decoder walks wire-encoded bytes matching desc once, front to back.
type Decoder struct {
	desc      *descriptor.Message
	onUnknown func(tag int32, wt wire.Type, raw []byte) error
	maxDepth  int
}

// NewDecoder builds a Decoder for desc.
func NewDecoder(desc *descriptor.Message, opts ...Option) *Decoder {
	d := &Decoder{desc: desc, maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode walks data, calling visit for every recognized field occurrence in
// wire order. Unrecognized tags are skipped (or reported to onUnknown, if
// set) rather than failing the decode, per §1's forward-compatibility
// requirement.
func (d *Decoder) Decode(data []byte, visit Visitor) error {
	return d.decode(data, visit, 0)
}

func (d *Decoder) decode(data []byte, visit Visitor, depth int) error {
	if depth > d.maxDepth {
		return errs.New(errs.Overflow)
	}

	pos := 0
	for pos < len(data) {
		t, n, err := wire.ConsumeTag(data[pos:])
		if err != nil {
			return err
		}
		pos += n

		fd, ok := d.desc.Field(t.Field)
		if !ok {
			skipped, err := wire.SkipValue(t.Type, data[pos:])
			if err != nil {
				return err
			}
			if d.onUnknown != nil {
				raw := data[pos : pos+skipped]
				if t.Type == wire.Length {
					_, ln, _ := wire.ConsumeLengthPrefix(raw)
					raw = raw[ln:]
				}
				if err := d.onUnknown(t.Field, t.Type, raw); err != nil {
					return err
				}
			}
			pos += skipped
			continue
		}

		n, err = d.visitField(fd, t.Type, data[pos:], visit, depth)
		if err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// visitField decodes exactly one tag's value at the front of data (no tag
// byte — that was already consumed), dispatching on whether fd is packed,
// a message, or a plain scalar, and returns the number of bytes consumed.
func (d *Decoder) visitField(fd *descriptor.Field, wt wire.Type, data []byte, visit Visitor, depth int) (int, error) {
	switch {
	case fd.Packed && wt == wire.Length:
		length, n, err := wire.ConsumeLengthPrefix(data)
		if err != nil {
			return 0, err
		}
		if err := decodePacked(fd, data[n:n+length], visit); err != nil {
			return 0, err
		}
		return n + length, nil

	case fd.Message != nil:
		length, n, err := wire.ConsumeLengthPrefix(data)
		if err != nil {
			return 0, err
		}
		payload := data[n : n+length]
		if err := visit(fd.Tag, payload); err != nil {
			return 0, err
		}
		sub := NewDecoder(fd.Message, WithOnUnknown(d.onUnknown), WithMaxDepth(d.maxDepth))
		if err := sub.decode(payload, visit, depth+1); err != nil {
			return 0, err
		}
		return n + length, nil

	case wt == wire.Length:
		// A scalar STRING/BYTES field: the length prefix itself carries no
		// value and must not reach field.Decode, which treats its payload
		// argument as the value bytes outright (see decodeScalar).
		length, n, err := wire.ConsumeLengthPrefix(data)
		if err != nil {
			return 0, err
		}
		value, err := field.Decode(fd, data[n:n+length])
		if err != nil {
			return 0, err
		}
		if err := visit(fd.Tag, value); err != nil {
			return 0, err
		}
		return n + length, nil

	default:
		n, err := wire.SkipValue(wt, data)
		if err != nil {
			return 0, err
		}
		value, err := field.Decode(fd, data[:n])
		if err != nil {
			return 0, err
		}
		if err := visit(fd.Tag, value); err != nil {
			return 0, err
		}
		return n, nil
	}
}

// decodePacked decodes a packed repeated scalar field's LENGTH-delimited
// blob as a sequence of back-to-back elements of fd's natural wire type,
// calling visit once per element. Shares its element-walking logic with
// [field.Field.GetPacked] via [field.DecodePacked], so the streaming and
// journaled decode paths agree on what a packed field's elements are.
func decodePacked(fd *descriptor.Field, data []byte, visit Visitor) error {
	elems, err := field.DecodePacked(fd, data)
	if err != nil {
		return err
	}
	for _, v := range elems {
		if err := visit(fd.Tag, v); err != nil {
			return err
		}
	}
	return nil
}

// DecodeConcurrent decodes a top-level repeated message field (tag) by
// fanning each element's sub-message decode out to its own goroutine,
// joining errors via errgroup; visit is called once per element with its
// index in wire order, so callers can reassemble results positionally even
// though the underlying decodes complete out of order.
func (d *Decoder) DecodeConcurrent(ctx context.Context, data []byte, tag int32, visit func(index int, value map[int32]any) error) error {
	fd, ok := d.desc.Field(tag)
	if !ok || fd.Message == nil {
		return errs.New(errs.Descriptor)
	}

	var payloads [][]byte
	for pos := 0; pos < len(data); {
		t, n, err := wire.ConsumeTag(data[pos:])
		if err != nil {
			return err
		}
		size, err := wire.SkipValue(t.Type, data[pos+n:])
		if err != nil {
			return err
		}
		if t.Field == tag && t.Type == wire.Length {
			_, ln, _ := wire.ConsumeLengthPrefix(data[pos+n:])
			payloads = append(payloads, data[pos+n+ln:pos+n+size])
		}
		pos += n + size
	}

	results := make([]map[int32]any, len(payloads))
	g, ctx := errgroup.WithContext(ctx)
	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fields := make(map[int32]any)
			sub := NewDecoder(fd.Message, WithOnUnknown(d.onUnknown), WithMaxDepth(d.maxDepth))
			if err := sub.Decode(payload, func(t int32, v any) error {
				fields[t] = v
				return nil
			}); err != nil {
				return err
			}
			results[i] = fields
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, fields := range results {
		if err := visit(i, fields); err != nil {
			return err
		}
	}
	return nil
}
