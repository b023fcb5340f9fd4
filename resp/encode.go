// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resp

import (
	"strconv"

	"github.com/valyala/bytebufferpool"
)

var crlf = []byte("\r\n")

// Encode renders r back to its wire form. It exists primarily so the
// parser's round-trip property (encode then decode yields an equal
// Reply) is testable, and so test fakes can script server responses.
func (r Reply) Encode() []byte {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	r.encodeInto(bb)

	out := make([]byte, bb.Len())
	copy(out, bb.B)
	return out
}

func (r Reply) encodeInto(bb *bytebufferpool.ByteBuffer) {
	switch r.Type {
	case Null:
		bb.WriteString("$-1\r\n")

	case Integer:
		bb.WriteByte(':')
		bb.WriteString(strconv.FormatInt(r.Int, 10))
		bb.Write(crlf)

	case SimpleString:
		bb.WriteByte('+')
		bb.Write(r.Str)
		bb.Write(crlf)

	case Error, MovedError, AskError:
		bb.WriteByte('-')
		bb.Write(r.Str)
		bb.Write(crlf)

	case BulkString:
		bb.WriteByte('$')
		bb.WriteString(strconv.Itoa(len(r.Str)))
		bb.Write(crlf)
		bb.Write(r.Str)
		bb.Write(crlf)

	case Array:
		bb.WriteByte('*')
		bb.WriteString(strconv.Itoa(len(r.Items)))
		bb.Write(crlf)
		for _, it := range r.Items {
			it.encodeInto(bb)
		}
	}
}
