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

package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squidfunk/protobluff/buffer"
	"github.com/squidfunk/protobluff/errs"
)

func TestBufferSpliceGrow(t *testing.T) {
	t.Parallel()

	b := buffer.Create([]byte("hello world"))
	before := b.Size()

	require.NoError(t, b.Write(6, 11, []byte("protobluff!")))

	assert.Equal(t, before+len("protobluff!")-5, b.Size())
	assert.Equal(t, "hello ", string(b.DataAt(0)[:6]))
	assert.Equal(t, "hello protobluff!", string(b.Data()))
}

func TestBufferSpliceShrink(t *testing.T) {
	t.Parallel()

	b := buffer.Create([]byte("AMAZING WORLD"))
	require.NoError(t, b.Write(0, 8, []byte("TINY ")))
	assert.Equal(t, "TINY WORLD", string(b.Data()))
}

func TestBufferSpliceByteFidelity(t *testing.T) {
	t.Parallel()

	orig := []byte("0123456789")
	b := buffer.Create(orig)
	require.NoError(t, b.Write(3, 6, []byte("XY")))

	got := b.Data()
	assert.Equal(t, "012", string(got[:3]), "bytes before s are unchanged")
	assert.Equal(t, "XY", string(got[3:5]), "new bytes equal d")
	assert.Equal(t, "6789", string(got[5:]), "bytes after s+k are unchanged")
}

func TestBufferClearIsWriteEmpty(t *testing.T) {
	t.Parallel()

	b := buffer.Create([]byte("abcdef"))
	require.NoError(t, b.Clear(2, 4))
	assert.Equal(t, "abef", string(b.Data()))
}

func TestZeroCopyRefusesResize(t *testing.T) {
	t.Parallel()

	data := []byte("fixed capacity")
	b := buffer.CreateZeroCopy(data)

	err := b.Write(0, 5, []byte("short"))
	require.NoError(t, err, "same-size write must succeed")

	err = b.Write(0, 5, []byte("much longer replacement"))
	require.Error(t, err)
	assert.Equal(t, errs.Alloc, errs.CodeOf(err))
}

func TestBufferLatchesErrorAfterAllocFailure(t *testing.T) {
	t.Parallel()

	b := buffer.CreateZeroCopy([]byte("abc"))
	require.Error(t, b.Write(0, 1, []byte("xx")))
	assert.False(t, b.Valid())

	err := b.Write(0, 1, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errs.Invalid, errs.CodeOf(err))
}

func TestEmptyBuffer(t *testing.T) {
	t.Parallel()

	b := buffer.CreateEmpty()
	assert.True(t, b.Empty())
	assert.Zero(t, b.Size())
}
