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

// Package command implements the fluent RESP command builder: Cmd/Key/
// Arg/Ignore accumulate one or more commands, Build finalizes them, and
// Serialize renders the canonical wire form. Its method surface mirrors
// folly_redis's Command type (redis/command.h in the retrieved original
// source), kept deliberately thin — enumerating one method per Redis
// verb is the command-builder surface this package's caller owns, not
// this package itself.
package command

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// ErrNotPipeline is the value Cmd panics with when a second command is
// started on a non-pipeline Command.
var ErrNotPipeline = errors.New("command: only one Cmd is allowed outside pipeline mode")

// Part is one RESP-encoded command within a pipeline.
type Part struct {
	// Bytes is the already-serialized wire form: "*N\r\n$len\r\n...".
	Bytes []byte
	// Key is the slot-computing key, or empty for keyless commands.
	Key string
	// Ignore suppresses the response: the caller discards it and any
	// error is logged rather than surfaced.
	Ignore bool
}

// Command is an ordered sequence of Parts plus the pipeline flag. With
// Pipeline false, exactly one Part is permitted.
type Command struct {
	pipeline bool
	parts    []Part

	building  []string // arguments accumulated since the last Cmd/Build
	buildingK string
	buildingI bool
}

// New starts a single (non-pipeline) command.
func New() *Command {
	return &Command{}
}

// NewPipeline starts an empty pipeline; each Cmd call appends a new
// command to it.
func NewPipeline() *Command {
	return &Command{pipeline: true}
}

// IsPipeline reports whether c accepts more than one command.
func (c *Command) IsPipeline() bool {
	return c.pipeline
}

// Cmd opens a new command within the pipeline. Outside pipeline mode it
// may only be called once; a second call panics with ErrNotPipeline.
func (c *Command) Cmd(verb string) *Command {
	if !c.pipeline && (len(c.parts) > 0 || len(c.building) > 0) {
		panic(ErrNotPipeline)
	}
	c.build()
	c.building = append(c.building, verb)
	return c
}

// Key appends an argument and records it as the current command's
// slot-computing key.
func (c *Command) Key(k string) *Command {
	c.buildingK = k
	c.building = append(c.building, k)
	return c
}

// Arg appends a further argument, converted to its string form.
func (c *Command) Arg(v any) *Command {
	c.building = append(c.building, toArg(v))
	return c
}

// Args appends every element of vs as a further argument.
func (c *Command) Args(vs ...any) *Command {
	for _, v := range vs {
		c.Arg(v)
	}
	return c
}

// Ignore marks the current command's result as suppressed: callers
// discard it and any error it carries is logged, not returned.
func (c *Command) Ignore() *Command {
	c.buildingI = true
	return c
}

// Build finalizes the in-progress command, appending it to the
// pipeline. It is idempotent when called with nothing pending.
func (c *Command) Build() *Command {
	c.build()
	return c
}

// build is the internal finalizer shared by Cmd and Build.
func (c *Command) build() {
	if len(c.building) == 0 {
		return
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	bb.WriteByte('*')
	bb.WriteString(strconv.Itoa(len(c.building)))
	bb.Write(crlf)
	for _, arg := range c.building {
		bb.WriteByte('$')
		bb.WriteString(strconv.Itoa(len(arg)))
		bb.Write(crlf)
		bb.WriteString(arg)
		bb.Write(crlf)
	}

	out := make([]byte, bb.Len())
	copy(out, bb.B)

	c.parts = append(c.parts, Part{Bytes: out, Key: c.buildingK, Ignore: c.buildingI})
	c.building = nil
	c.buildingK = ""
	c.buildingI = false
}

// Parts returns the finalized commands (calling Build first).
func (c *Command) Parts() []Part {
	c.build()
	return c.parts
}

// Empty reports whether the command has no finalized parts and nothing
// pending.
func (c *Command) Empty() bool {
	return len(c.parts) == 0 && len(c.building) == 0
}

// Serialize renders every finalized part's wire bytes concatenated in
// submission order — the bytes written to the socket for this command
// group. Build is called implicitly first.
func (c *Command) Serialize() []byte {
	parts := c.Parts()

	n := 0
	for _, p := range parts {
		n += len(p.Bytes)
	}

	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p.Bytes...)
	}
	return out
}

var crlf = []byte("\r\n")

func toArg(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", t)
	}
}
