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

// Package descriptor is the static schema model: message, field, enum and
// oneof descriptors, built either by hand (for tests and small embedded
// schemas) or from a real compiled .proto file via [FromFileDescriptor] /
// [FromDescriptorProto].
//
// Descriptors are immutable once built and safe to share across every
// journal, part, field, message and cursor that references them.
package descriptor

import (
	"fmt"
	"sort"
	"sync"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/squidfunk/protobluff/errs"
	"github.com/squidfunk/protobluff/internal/wire"
)

// Label is a field's cardinality, re-exported from protoreflect so callers
// building descriptors by hand don't need to import it directly.
type Label = protoreflect.Cardinality

const (
	LabelOptional = protoreflect.Optional
	LabelRequired = protoreflect.Required
	LabelRepeated = protoreflect.Repeated
)

// Kind is a field's wire-level scalar/message type, re-exported from
// protoreflect so that this package's own types line up exactly with those
// built by [FromFileDescriptor].
type Kind = protoreflect.Kind

// Message is an immutable message descriptor: an ordered, tag-sorted list
// of field descriptors plus the oneofs that group some of them.
//
// The one exception to immutability is ext, the registered extension list:
// §3 gives a message descriptor "an optional extension link forming a
// singly-linked list of additional descriptors," and §9 directs that it be
// modeled as a flat list owned by a registry rather than cyclic pointer
// chains — lookup walks the list, mutation (registration) appends. Here the
// Message is its own registry: extMu guards the extension list, taken for
// writing by registration and for reading by Field and Extensions.
type Message struct {
	Name   string
	Fields []*Field // sorted ascending by Tag, unique
	Oneofs []*Oneof

	byTag map[int32]*Field

	extMu sync.RWMutex
	ext   []*Field
}

// Field is an immutable field descriptor.
type Field struct {
	Tag     int32
	Name    string
	Kind    Kind
	Label   Label
	Message *Message // set when Kind is a message/group kind
	Enum    *Enum    // set when Kind is an enum kind
	Default any      // nil unless the descriptor carries an explicit default
	Packed  bool     // REPEATED + a packable scalar kind, encoded as one LENGTH block
}

// Enum is an immutable enum descriptor: an ordered list of (number, name)
// pairs, sorted ascending by number.
type Enum struct {
	Name   string
	Values []EnumValue
}

// EnumValue is one (number, name) pair of an [Enum].
type EnumValue struct {
	Number int32
	Name   string
}

// Oneof groups a set of field tags that are mutually exclusive within a
// message.
type Oneof struct {
	Name string
	Tags []int32
}

// NewMessage builds a Message descriptor from fields and oneofs, sorting
// fields by tag and validating the spec's invariant that tags are strictly
// ascending and unique once sorted.
func NewMessage(name string, fields []*Field, oneofs ...*Oneof) (*Message, error) {
	sorted := append([]*Field(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })

	byTag := make(map[int32]*Field, len(sorted))
	for i, f := range sorted {
		if f.Tag <= 0 {
			return nil, errs.New(errs.Descriptor)
		}
		if i > 0 && sorted[i-1].Tag == f.Tag {
			return nil, errs.New(errs.Descriptor)
		}
		byTag[f.Tag] = f
	}

	return &Message{Name: name, Fields: sorted, Oneofs: oneofs, byTag: byTag}, nil
}

// Field looks up a field descriptor by tag, first among m's own (fixed,
// tag-sorted) fields and then, if none match, among m's registered
// extensions in registration order. Returns (nil, false) if neither has a
// field with that tag.
func (m *Message) Field(tag int32) (*Field, bool) {
	if f, ok := m.byTag[tag]; ok {
		return f, true
	}
	m.extMu.RLock()
	defer m.extMu.RUnlock()
	for _, f := range m.ext {
		if f.Tag == tag {
			return f, true
		}
	}
	return nil, false
}

// RegisterExtension appends ext onto m's extension list, chaining it the
// way generated code registers extension descriptors onto a base
// descriptor at startup (§6). Fails with [errs.Descriptor] if ext.Tag is
// non-positive or collides with one of m's own fields or an
// already-registered extension.
func (m *Message) RegisterExtension(ext *Field) error {
	if ext.Tag <= 0 {
		return errs.New(errs.Descriptor)
	}
	m.extMu.Lock()
	defer m.extMu.Unlock()
	if _, ok := m.byTag[ext.Tag]; ok {
		return errs.New(errs.Descriptor)
	}
	for _, f := range m.ext {
		if f.Tag == ext.Tag {
			return errs.New(errs.Descriptor)
		}
	}
	m.ext = append(m.ext, ext)
	return nil
}

// Extensions returns a snapshot of m's currently registered extension
// fields, in registration order.
func (m *Message) Extensions() []*Field {
	m.extMu.RLock()
	defer m.extMu.RUnlock()
	return append([]*Field(nil), m.ext...)
}

// WireType returns the wire type used to encode this field's values.
// Repeated packable scalar fields still report their element's natural
// wire type here; packed encoding is a property of how occurrences are
// grouped, not of the tag written on the group itself (which is always
// LENGTH — see [Field.EffectiveWireType]).
func (f *Field) WireType() wire.Type {
	switch f.Kind {
	case protoreflect.Int32Kind, protoreflect.Int64Kind,
		protoreflect.Uint32Kind, protoreflect.Uint64Kind,
		protoreflect.Sint32Kind, protoreflect.Sint64Kind,
		protoreflect.BoolKind, protoreflect.EnumKind:
		return wire.Varint
	case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
		return wire.Fixed64
	case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
		return wire.Fixed32
	case protoreflect.StringKind, protoreflect.BytesKind,
		protoreflect.MessageKind, protoreflect.GroupKind:
		return wire.Length
	default:
		return wire.Varint
	}
}

// EffectiveWireType returns the wire type actually found on the tag byte:
// LENGTH for a packed repeated field, and [Field.WireType] otherwise.
func (f *Field) EffectiveWireType() wire.Type {
	if f.Packed {
		return wire.Length
	}
	return f.WireType()
}

// FromFileDescriptor builds Message descriptors for every top-level message
// in fd, recursing into nested message types. Field kinds, labels, enum and
// sub-message links, and packed flags are all taken from the real
// protoreflect descriptor, so the result matches what protoc-gen-go would
// have generated accessors for.
func FromFileDescriptor(fd protoreflect.FileDescriptor) ([]*Message, error) {
	built := make(map[protoreflect.FullName]*Message)
	var order []protoreflect.FullName

	var walk func(mds protoreflect.MessageDescriptors) error
	walk = func(mds protoreflect.MessageDescriptors) error {
		for i := 0; i < mds.Len(); i++ {
			md := mds.Get(i)
			if _, err := buildMessage(md, built, &order); err != nil {
				return err
			}
			if err := walk(md.Messages()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(fd.Messages()); err != nil {
		return nil, err
	}

	out := make([]*Message, 0, len(order))
	for _, name := range order {
		out = append(out, built[name])
	}
	return out, nil
}

// FromDescriptorProto is FromFileDescriptor over a raw FileDescriptorProto,
// for callers that only have wire-decoded descriptor bytes (e.g. received
// over a control channel) rather than a compiled Go package to import.
func FromDescriptorProto(fdp *descriptorpb.FileDescriptorProto, deps ...protoreflect.FileDescriptor) ([]*Message, error) {
	reg, err := newDependencyRegistry(deps)
	if err != nil {
		return nil, errs.Wrap(errs.Descriptor, err)
	}
	fd, err := protodesc.NewFile(fdp, reg)
	if err != nil {
		return nil, errs.Wrap(errs.Descriptor, err)
	}
	return FromFileDescriptor(fd)
}

func buildMessage(md protoreflect.MessageDescriptor, built map[protoreflect.FullName]*Message, order *[]protoreflect.FullName) (*Message, error) {
	if m, ok := built[md.FullName()]; ok {
		return m, nil
	}

	m := &Message{Name: string(md.Name())}
	built[md.FullName()] = m // break recursive/self-referential message cycles
	*order = append(*order, md.FullName())

	fds := md.Fields()
	fields := make([]*Field, 0, fds.Len())
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		f := &Field{
			Tag:    int32(fd.Number()),
			Name:   string(fd.Name()),
			Kind:   fd.Kind(),
			Label:  fd.Cardinality(),
			Packed: fd.IsPacked(),
		}
		if fd.HasDefault() {
			f.Default = fd.Default().Interface()
		}
		switch fd.Kind() {
		case protoreflect.MessageKind, protoreflect.GroupKind:
			sub, err := buildMessage(fd.Message(), built, order)
			if err != nil {
				return nil, err
			}
			f.Message = sub
		case protoreflect.EnumKind:
			f.Enum = buildEnum(fd.Enum())
		}
		fields = append(fields, f)
	}

	var oneofs []*Oneof
	ods := md.Oneofs()
	for i := 0; i < ods.Len(); i++ {
		od := ods.Get(i)
		if od.IsSynthetic() {
			continue // proto3 "optional" synthesis, not a user-visible oneof
		}
		ofFields := od.Fields()
		tags := make([]int32, ofFields.Len())
		for j := 0; j < ofFields.Len(); j++ {
			tags[j] = int32(ofFields.Get(j).Number())
		}
		oneofs = append(oneofs, &Oneof{Name: string(od.Name()), Tags: tags})
	}

	filled, err := NewMessage(m.Name, fields, oneofs...)
	if err != nil {
		return nil, err
	}
	*m = *filled // fill in place: m may already be referenced by a sibling field's cycle
	return m, nil
}

func buildEnum(ed protoreflect.EnumDescriptor) *Enum {
	vds := ed.Values()
	values := make([]EnumValue, vds.Len())
	for i := 0; i < vds.Len(); i++ {
		vd := vds.Get(i)
		values[i] = EnumValue{Number: int32(vd.Number()), Name: string(vd.Name())}
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Number < values[j].Number })
	return &Enum{Name: string(ed.Name()), Values: values}
}

// dependencyRegistry resolves imports when building a FileDescriptorProto
// that references other .proto files (e.g. well-known types).
type dependencyRegistry struct {
	byPath map[string]protoreflect.FileDescriptor
}

func newDependencyRegistry(deps []protoreflect.FileDescriptor) (*dependencyRegistry, error) {
	r := &dependencyRegistry{byPath: make(map[string]protoreflect.FileDescriptor, len(deps))}
	for _, d := range deps {
		if _, dup := r.byPath[d.Path()]; dup {
			return nil, fmt.Errorf("duplicate dependency file path %q", d.Path())
		}
		r.byPath[d.Path()] = d
	}
	return r, nil
}

func (r *dependencyRegistry) FindFileByPath(path string) (protoreflect.FileDescriptor, error) {
	if fd, ok := r.byPath[path]; ok {
		return fd, nil
	}
	return protoregistry.GlobalFiles.FindFileByPath(path)
}

func (r *dependencyRegistry) FindDescriptorByName(name protoreflect.FullName) (protoreflect.Descriptor, error) {
	return protoregistry.GlobalFiles.FindDescriptorByName(name)
}
