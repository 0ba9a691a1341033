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

package part_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/journal"
	"github.com/squidfunk/protobluff/part"
)

func TestAlignRelocatesAfterForeignWrite(t *testing.T) {
	t.Parallel()

	j := journal.New(nil)
	require.NoError(t, j.Write(0, 0, 0, []byte("AMAZING ")))

	p := part.New(j, journal.Offset{Start: 8, End: 9})
	require.NoError(t, p.Align())

	assert.True(t, p.Valid())
	assert.Equal(t, 16, p.Offset().Start)
	assert.Equal(t, 17, p.Offset().End)
	assert.Equal(t, j.Version(), p.Version())
}

func TestAlignReportsInvalidOnceCleared(t *testing.T) {
	t.Parallel()

	j := journal.New(make([]byte, 4))
	p := part.New(j, journal.Offset{
		Start: 2, End: 4,
		Diff: journal.Diff{Origin: -2, Tag: -2, Length: -1},
	})

	require.NoError(t, j.Write(0, 0, 4, nil))

	err := p.Align()
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))
	assert.False(t, p.Valid())

	// Once invalidated, further alignment keeps reporting Invalid rather
	// than attempting to replay past the point of collapse.
	err = p.Align()
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))
}

func TestAlignNoOpWhenAlreadyCurrent(t *testing.T) {
	t.Parallel()

	j := journal.New([]byte("0123456789"))
	p := part.New(j, journal.Offset{Start: 3, End: 5})

	require.NoError(t, p.Align())
	before := p.Offset()

	require.NoError(t, p.Align())
	assert.Equal(t, before, p.Offset())
}

func TestFailLatchesError(t *testing.T) {
	t.Parallel()

	j := journal.New([]byte("hello"))
	p := part.New(j, journal.Offset{Start: 0, End: 5})

	err := p.Fail(errs.Descriptor)
	require.Error(t, err)
	assert.Equal(t, errs.Descriptor, errs.CodeOf(err))
	assert.False(t, p.Valid())

	// A part that has latched a non-Invalid error still refuses further
	// alignment, surfacing the same latched code rather than Invalid.
	err = p.Align()
	require.Error(t, err)
	assert.Equal(t, errs.Descriptor, errs.CodeOf(err))
}
