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

package encoding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squidfunk/protobluff/encoding"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/internal/wire"
)

func TestDecoderVisitsScalarFieldsInOrder(t *testing.T) {
	t.Parallel()

	// name="Ann", age=30
	data := append([]byte{0x0A, 0x03}, "Ann"...)
	data = append(data, 0x10, 0x1E)

	var got []int32
	var name string
	var age int32
	d := encoding.NewDecoder(personDesc)
	require.NoError(t, d.Decode(data, func(tag int32, value any) error {
		got = append(got, tag)
		switch tag {
		case 1:
			name = value.(string)
		case 2:
			age = value.(int32)
		}
		return nil
	}))

	assert.Equal(t, []int32{1, 2}, got)
	assert.Equal(t, "Ann", name)
	assert.Equal(t, int32(30), age)
}

func TestDecoderSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	// unknown varint tag 99, then name="Bo"
	data := wire.AppendTag(nil, wire.Tag{Field: 99, Type: wire.Varint})
	data = wire.AppendVarint(data, 7)
	data = append(data, 0x0A, 0x02)
	data = append(data, "Bo"...)

	var tags []int32
	d := encoding.NewDecoder(personDesc)
	require.NoError(t, d.Decode(data, func(tag int32, value any) error {
		tags = append(tags, tag)
		return nil
	}))
	assert.Equal(t, []int32{1}, tags)
}

func TestDecoderReportsUnknownFieldsViaOnUnknown(t *testing.T) {
	t.Parallel()

	data := wire.AppendTag(nil, wire.Tag{Field: 99, Type: wire.Varint})
	data = wire.AppendVarint(data, 7)

	var reportedTag int32
	var reportedType wire.Type
	d := encoding.NewDecoder(personDesc, encoding.WithOnUnknown(func(tag int32, wt wire.Type, raw []byte) error {
		reportedTag = tag
		reportedType = wt
		return nil
	}))
	require.NoError(t, d.Decode(data, func(int32, any) error { return nil }))

	assert.Equal(t, int32(99), reportedTag)
	assert.Equal(t, wire.Varint, reportedType)
}

func TestDecoderRecursesIntoSubMessages(t *testing.T) {
	t.Parallel()

	// home.city = "LA", nested under field 4
	inner := append([]byte{0x0A, 0x02}, "LA"...)
	data := wire.AppendTag(nil, wire.Tag{Field: 4, Type: wire.Length})
	data = wire.AppendVarint(data, uint64(len(inner)))
	data = append(data, inner...)

	var sawCity bool
	d := encoding.NewDecoder(personDesc)
	require.NoError(t, d.Decode(data, func(tag int32, value any) error {
		if tag == 1 {
			if s, ok := value.(string); ok && s == "LA" {
				sawCity = true
			}
		}
		return nil
	}))
	assert.True(t, sawCity)
}

func TestDecoderDecodesPackedRepeatedScalar(t *testing.T) {
	t.Parallel()

	block := wire.AppendVarint(nil, 10)
	block = wire.AppendVarint(block, 20)
	block = wire.AppendVarint(block, 30)

	data := wire.AppendTag(nil, wire.Tag{Field: 3, Type: wire.Length})
	data = wire.AppendVarint(data, uint64(len(block)))
	data = append(data, block...)

	var scores []int32
	d := encoding.NewDecoder(personDesc)
	require.NoError(t, d.Decode(data, func(tag int32, value any) error {
		if tag == 3 {
			scores = append(scores, value.(int32))
		}
		return nil
	}))
	assert.Equal(t, []int32{10, 20, 30}, scores)
}

func TestDecoderConcurrentDecodesRepeatedMessageField(t *testing.T) {
	t.Parallel()

	group := listDesc

	elem1 := append([]byte{0x0A, 0x02}, "LA"...)
	elem2 := append([]byte{0x0A, 0x02}, "SF"...)

	data := wire.AppendTag(nil, wire.Tag{Field: 1, Type: wire.Length})
	data = wire.AppendVarint(data, uint64(len(elem1)))
	data = append(data, elem1...)
	data = wire.AppendTag(data, wire.Tag{Field: 1, Type: wire.Length})
	data = wire.AppendVarint(data, uint64(len(elem2)))
	data = append(data, elem2...)

	d := encoding.NewDecoder(group)
	results := make([]string, 2)
	err := d.DecodeConcurrent(context.Background(), data, 1, func(index int, fields map[int32]any) error {
		results[index] = fields[1].(string)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"LA", "SF"}, results)
}

func TestDecoderInvalidTagReportsErr(t *testing.T) {
	t.Parallel()

	d := encoding.NewDecoder(personDesc)
	err := d.Decode([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, func(int32, any) error { return nil })
	require.Error(t, err)
	assert.NotEqual(t, errs.None, errs.CodeOf(err))
}
