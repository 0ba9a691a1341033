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

package descriptor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/squidfunk/protobluff/descriptor"
	"github.com/squidfunk/protobluff/internal/wire"
)

func TestNewMessageSortsAndRejectsDuplicateTags(t *testing.T) {
	t.Parallel()

	msg, err := descriptor.NewMessage("Person", []*descriptor.Field{
		{Tag: 2, Name: "id", Kind: protoreflect.Int32Kind},
		{Tag: 1, Name: "name", Kind: protoreflect.StringKind},
	})
	require.NoError(t, err)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, "name", msg.Fields[0].Name)
	assert.Equal(t, "id", msg.Fields[1].Name)

	_, err = descriptor.NewMessage("Bad", []*descriptor.Field{
		{Tag: 1, Name: "a", Kind: protoreflect.Int32Kind},
		{Tag: 1, Name: "b", Kind: protoreflect.Int32Kind},
	})
	require.Error(t, err)
}

func TestFieldWireTypes(t *testing.T) {
	t.Parallel()

	explicit := []struct {
		kind protoreflect.Kind
		want wire.Type
	}{
		{protoreflect.Int32Kind, wire.Varint},
		{protoreflect.Sint64Kind, wire.Varint},
		{protoreflect.BoolKind, wire.Varint},
		{protoreflect.EnumKind, wire.Varint},
		{protoreflect.Fixed64Kind, wire.Fixed64},
		{protoreflect.DoubleKind, wire.Fixed64},
		{protoreflect.Fixed32Kind, wire.Fixed32},
		{protoreflect.FloatKind, wire.Fixed32},
		{protoreflect.StringKind, wire.Length},
		{protoreflect.BytesKind, wire.Length},
		{protoreflect.MessageKind, wire.Length},
	}
	for _, c := range explicit {
		f := &descriptor.Field{Kind: c.kind}
		assert.Equal(t, c.want, f.WireType(), "kind %v", c.kind)
	}
}

func TestRegisterExtensionChainsOntoFlatList(t *testing.T) {
	t.Parallel()

	msg, err := descriptor.NewMessage("Options", []*descriptor.Field{
		{Tag: 1, Name: "name", Kind: protoreflect.StringKind},
	})
	require.NoError(t, err)

	_, ok := msg.Field(100)
	require.False(t, ok)

	require.NoError(t, msg.RegisterExtension(&descriptor.Field{Tag: 100, Name: "ext_a", Kind: protoreflect.Int32Kind}))
	require.NoError(t, msg.RegisterExtension(&descriptor.Field{Tag: 200, Name: "ext_b", Kind: protoreflect.BoolKind}))

	extA, ok := msg.Field(100)
	require.True(t, ok)
	assert.Equal(t, "ext_a", extA.Name)

	extB, ok := msg.Field(200)
	require.True(t, ok)
	assert.Equal(t, "ext_b", extB.Name)

	require.Len(t, msg.Extensions(), 2)

	// Colliding with an own field, or with an already-registered extension,
	// is rejected.
	require.Error(t, msg.RegisterExtension(&descriptor.Field{Tag: 1, Name: "dup_own", Kind: protoreflect.Int32Kind}))
	require.Error(t, msg.RegisterExtension(&descriptor.Field{Tag: 100, Name: "dup_ext", Kind: protoreflect.Int32Kind}))
}

func TestFromFileDescriptorBuildsTimestamp(t *testing.T) {
	t.Parallel()

	msgs, err := descriptor.FromFileDescriptor((&timestamppb.Timestamp{}).ProtoReflect().Descriptor().ParentFile())
	require.NoError(t, err)
	require.NotEmpty(t, msgs)

	var ts *descriptor.Message
	for _, m := range msgs {
		if m.Name == "Timestamp" {
			ts = m
		}
	}
	require.NotNil(t, ts)

	seconds, ok := ts.Field(1)
	require.True(t, ok)
	assert.Equal(t, "seconds", seconds.Name)
	assert.Equal(t, protoreflect.Int64Kind, seconds.Kind)

	nanos, ok := ts.Field(2)
	require.True(t, ok)
	assert.Equal(t, "nanos", nanos.Name)
	assert.Equal(t, protoreflect.Int32Kind, nanos.Kind)

	if diff := cmp.Diff([]int32{1, 2}, []int32{seconds.Tag, nanos.Tag}); diff != "" {
		t.Errorf("tag mismatch (-want +got):\n%s", diff)
	}
}
