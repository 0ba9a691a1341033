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

package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/field"
	"github.com/squidfunk/protobluff/journal"
	"github.com/squidfunk/protobluff/part"
)

var nameField = &descriptor.Field{Tag: 1, Name: "name", Kind: protoreflect.StringKind}
var idField = &descriptor.Field{Tag: 2, Name: "id", Kind: protoreflect.Int32Kind}

func newNameField(t *testing.T, data []byte) (*journal.Journal, *field.Field) {
	t.Helper()
	j := journal.New(data)
	p := part.New(j, journal.Offset{
		Start: 2, End: len(data),
		Diff: journal.Diff{Origin: -2, Tag: -2, Length: -1},
	})
	return j, field.New(p, nameField)
}

func TestFieldGetString(t *testing.T) {
	t.Parallel()

	// tag=0x0A (field 1, LEN), len=8, "John Doe"
	data := append([]byte{0x0A, 0x08}, "John Doe"...)
	_, f := newNameField(t, data)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "John Doe", v)
}

func TestFieldPutStringShrinks(t *testing.T) {
	t.Parallel()

	data := append([]byte{0x0A, 0x08}, "John Doe"...)
	j, f := newNameField(t, data)

	require.NoError(t, f.Put("Jane"))
	assert.Equal(t, []byte{0x0A, 0x04, 'J', 'a', 'n', 'e'}, j.Buffer().Data())

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "Jane", v)
}

func TestFieldPutStringGrowsPastOneByteLength(t *testing.T) {
	t.Parallel()

	data := append([]byte{0x0A, 0x08}, "John Doe"...)
	j, f := newNameField(t, data)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, f.Put(string(long)))

	got := j.Buffer().Data()
	assert.Equal(t, byte(0x0A), got[0])
	// 200 requires a 2-byte varint length prefix (0xC8 0x01).
	assert.Equal(t, []byte{0xC8, 0x01}, got[1:3])
	assert.Equal(t, string(long), string(got[3:]))
}

func TestFieldClearInvalidatesHandle(t *testing.T) {
	t.Parallel()

	data := append([]byte{0x0A, 0x08}, "John Doe"...)
	_, f := newNameField(t, data)

	err := f.Clear()
	require.Error(t, err)
	assert.False(t, f.Valid())
}

func TestFieldMatchComparesLengthFirst(t *testing.T) {
	t.Parallel()

	data := append([]byte{0x0A, 0x03}, "abc"...)
	_, f := newNameField(t, data)

	ok, err := f.Match("abc")
	require.NoError(t, err)
	assert.True(t, ok)

	// A differently-sized candidate must never be reported equal, even
	// though it shares a prefix with the stored value.
	ok, err = f.Match("ab")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFieldInt32RoundTrip(t *testing.T) {
	t.Parallel()

	// tag=0x10 (field 2, VARINT), value=1234 -> varint D2 09
	data := []byte{0x10, 0xD2, 0x09}
	j := journal.New(data)
	p := part.New(j, journal.Offset{
		Start: 1, End: 3,
		Diff: journal.Diff{Origin: 0, Tag: -1, Length: -1},
	})
	f := field.New(p, idField)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, int32(1234), v)

	require.NoError(t, f.Put(int32(300)))
	v, err = f.Get()
	require.NoError(t, err)
	assert.Equal(t, int32(300), v)
}

var scoreField = &descriptor.Field{Tag: 3, Name: "score", Kind: protoreflect.Int32Kind, Label: descriptor.LabelRepeated, Packed: true}

func TestFieldGetRejectsPackedField(t *testing.T) {
	t.Parallel()

	data := []byte{0x1A, 0x03, 10, 20, 30}
	j := journal.New(data)
	p := part.New(j, journal.Offset{
		Start: 2, End: 5,
		Diff: journal.Diff{Origin: 0, Tag: -2, Length: -1},
	})
	f := field.New(p, scoreField)

	_, err := f.Get()
	require.Error(t, err)
	assert.Equal(t, errs.Descriptor, errs.CodeOf(err))
}

func TestFieldGetPackedDecodesEveryElement(t *testing.T) {
	t.Parallel()

	data := []byte{0x1A, 0x03, 10, 20, 30}
	j := journal.New(data)
	p := part.New(j, journal.Offset{
		Start: 2, End: 5,
		Diff: journal.Diff{Origin: 0, Tag: -2, Length: -1},
	})
	f := field.New(p, scoreField)

	v, err := f.GetPacked()
	require.NoError(t, err)
	assert.Equal(t, []any{int32(10), int32(20), int32(30)}, v)
}

func TestFieldGetPackedRejectsNonPackedField(t *testing.T) {
	t.Parallel()

	_, f := newNameField(t, append([]byte{0x0A, 0x03}, "abc"...))
	_, err := f.GetPacked()
	require.Error(t, err)
	assert.Equal(t, errs.Descriptor, errs.CodeOf(err))
}

func TestFieldMissingReportsAbsent(t *testing.T) {
	t.Parallel()

	m := field.Missing(idField)
	_, err := m.Get()
	require.Error(t, err)
	assert.Equal(t, errs.Absent, errs.CodeOf(err))
	assert.Equal(t, "id", m.Descriptor().Name)
}
