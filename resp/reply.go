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

// Package resp implements an incremental decoder for the Redis
// Serialization Protocol (RESP2) and the Reply value it produces.
package resp

import (
	"strconv"
	"strings"
)

// Type tags the concrete shape carried by a Reply.
type Type uint8

const (
	// Null represents the absence of a value: a bulk string of length
	// -1 or an array of length -1.
	Null Type = iota
	Integer
	SimpleString
	BulkString
	Error
	MovedError
	AskError
	Array
)

func (t Type) String() string {
	switch t {
	case Null:
		return "Null"
	case Integer:
		return "Integer"
	case SimpleString:
		return "SimpleString"
	case BulkString:
		return "BulkString"
	case Error:
		return "Error"
	case MovedError:
		return "MovedError"
	case AskError:
		return "AskError"
	case Array:
		return "Array"
	default:
		return "Unknown"
	}
}

// Reply is a tagged value representing a single RESP reply. It is a
// plain struct rather than an interface hierarchy: exactly one of the
// payload fields is meaningful, selected by Type.
type Reply struct {
	Type  Type
	Int   int64
	Str   []byte  // SimpleString / BulkString / Error / MovedError / AskError
	Items []Reply // Array
}

// NewNull returns the Null reply.
func NewNull() Reply { return Reply{Type: Null} }

// NewInteger returns an Integer reply.
func NewInteger(n int64) Reply { return Reply{Type: Integer, Int: n} }

// NewSimpleString returns a SimpleString reply.
func NewSimpleString(s []byte) Reply { return Reply{Type: SimpleString, Str: s} }

// NewBulkString returns a BulkString reply. A nil, zero-length slice is
// distinct from Null: it renders back to the wire as "$0\r\n\r\n", not
// "$-1\r\n".
func NewBulkString(s []byte) Reply {
	if s == nil {
		s = []byte{}
	}
	return Reply{Type: BulkString, Str: s}
}

// NewArray returns an Array reply. A nil slice is distinct from Null: it
// renders back to the wire as "*0\r\n", not "*-1\r\n".
func NewArray(items []Reply) Reply {
	if items == nil {
		items = []Reply{}
	}
	return Reply{Type: Array, Items: items}
}

// classifyError inspects an error payload and returns the correctly
// tagged Type: MovedError / AskError / plain Error.
func classifyError(s []byte) Type {
	switch {
	case hasPrefixSpace(s, "MOVED"):
		return MovedError
	case hasPrefixSpace(s, "ASK"):
		return AskError
	default:
		return Error
	}
}

func hasPrefixSpace(s []byte, word string) bool {
	if len(s) < len(word)+1 {
		return false
	}
	return string(s[:len(word)]) == word && s[len(word)] == ' '
}

// NewError returns an Error/MovedError/AskError reply, classified by the
// leading token of s.
func NewError(s []byte) Reply {
	return Reply{Type: classifyError(s), Str: s}
}

// IsString reports whether the reply is one of the string-like
// variants (SimpleString, BulkString, Error, MovedError, AskError all
// qualify; only Integer, Array and Null do not).
func (r Reply) IsString() bool {
	switch r.Type {
	case SimpleString, BulkString, Error, MovedError, AskError:
		return true
	default:
		return false
	}
}

// IsRedirection reports whether the reply is a MOVED or ASK error.
func (r Reply) IsRedirection() bool {
	return r.Type == MovedError || r.Type == AskError
}

// AsArray returns the Array's items. It is defined only for Array
// replies; it returns (nil, false) otherwise.
func (r Reply) AsArray() ([]Reply, bool) {
	if r.Type != Array {
		return nil, false
	}
	return r.Items, true
}

// Redirection holds the target parsed out of a MOVED/ASK error's text:
// "MOVED <slot> <host>:<port>" or "ASK <slot> <host>:<port>".
type Redirection struct {
	Slot int
	Host string
	Port string
}

// ParseRedirection parses the MOVED/ASK text format. It returns false if
// r is not a redirection error or the text is malformed.
func (r Reply) ParseRedirection() (Redirection, bool) {
	if !r.IsRedirection() {
		return Redirection{}, false
	}

	fields := strings.Fields(string(r.Str))
	if len(fields) != 3 {
		return Redirection{}, false
	}

	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		return Redirection{}, false
	}

	hostPort := fields[2]
	idx := strings.LastIndexByte(hostPort, ':')
	if idx < 0 {
		return Redirection{}, false
	}

	return Redirection{Slot: slot, Host: hostPort[:idx], Port: hostPort[idx+1:]}, true
}

// String renders a short human-readable form of the reply, useful for
// REPL-style echoing and log lines.
func (r Reply) String() string {
	switch r.Type {
	case Null:
		return "(nil)"
	case Integer:
		return "(integer) " + strconv.FormatInt(r.Int, 10)
	case SimpleString:
		return string(r.Str)
	case BulkString:
		return strconv.Quote(string(r.Str))
	case Error, MovedError, AskError:
		return "(error) " + string(r.Str)
	case Array:
		var b strings.Builder
		b.WriteByte('[')
		for i, it := range r.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(it.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return "(unknown)"
	}
}

// Equal reports deep equality between two replies, used by round-trip
// tests.
func (r Reply) Equal(o Reply) bool {
	if r.Type != o.Type {
		return false
	}
	switch r.Type {
	case Integer:
		return r.Int == o.Int
	case SimpleString, BulkString, Error, MovedError, AskError:
		return string(r.Str) == string(o.Str)
	case Array:
		if len(r.Items) != len(o.Items) {
			return false
		}
		for i := range r.Items {
			if !r.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
