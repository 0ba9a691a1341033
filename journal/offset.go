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

package journal

// Diff holds the three relative offsets, from a Part's payload start, to the
// start of the enclosing length-prefixed group, the field's tag byte, and
// the field's length prefix. All three are <= 0; they are 0 for a top-level
// message.
type Diff struct {
	Origin int
	Tag    int
	Length int
}

// Offset is the byte range of a Part's payload, [Start, End), as of some
// journal version, plus the Diff describing its enclosing headers.
type Offset struct {
	Start int
	End   int
	Diff  Diff
}

// SentinelInvalid is the version value that marks a Part as permanently
// invalidated. No further alignment is attempted once a handle reaches it.
const SentinelInvalid = -1
