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
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/squidfunk/protobluff/descriptor"
)

func mustMessage(name string, fields ...*descriptor.Field) *descriptor.Message {
	m, err := descriptor.NewMessage(name, fields)
	if err != nil {
		panic(err)
	}
	return m
}

var addrDesc = mustMessage("Addr",
	&descriptor.Field{Tag: 1, Name: "city", Kind: protoreflect.StringKind},
)

var personDesc = mustMessage("Person",
	&descriptor.Field{Tag: 1, Name: "name", Kind: protoreflect.StringKind},
	&descriptor.Field{Tag: 2, Name: "age", Kind: protoreflect.Int32Kind},
	&descriptor.Field{Tag: 3, Name: "score", Kind: protoreflect.Int32Kind, Label: descriptor.LabelRepeated, Packed: true},
	&descriptor.Field{Tag: 4, Name: "home", Kind: protoreflect.MessageKind, Message: addrDesc},
)

// listDesc has a single repeated message field, for exercising
// DecodeConcurrent's per-element fan-out.
var listDesc = mustMessage("AddrList",
	&descriptor.Field{Tag: 1, Name: "addrs", Kind: protoreflect.MessageKind, Message: addrDesc, Label: descriptor.LabelRepeated},
)
