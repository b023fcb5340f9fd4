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

package conn

import (
	"github.com/google/uuid"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/resp"
	"github.com/packetd/rkit/rlog"
)

// pendingEntry is one command group awaiting replies. Replies fill in
// strict arrival order; the entry completes the moment filled equals
// len(parts) — tracked as an explicit counter rather than comparing the
// arriving index to len(parts)-1, which is off by one the moment the
// last reply arrives before it is recorded.
type pendingEntry struct {
	id       string
	parts    []command.Part
	replies  []resp.Reply
	filled   []bool
	done     chan resp.Reply
	ignore   bool
	pipeline bool
}

func newPendingEntry(parts []command.Part, ignore, pipeline bool) *pendingEntry {
	return &pendingEntry{
		id:       uuid.NewString(),
		parts:    parts,
		replies:  make([]resp.Reply, len(parts)),
		filled:   make([]bool, len(parts)),
		done:     make(chan resp.Reply, 1),
		ignore:   ignore,
		pipeline: pipeline,
	}
}

// nextUnfilled returns the index of the first part without a reply, or
// -1 if every part has one.
func (e *pendingEntry) nextUnfilled() int {
	for i, f := range e.filled {
		if !f {
			return i
		}
	}
	return -1
}

// fillNext records reply against the first unfilled slot and reports
// whether the whole entry is now complete.
func (e *pendingEntry) fillNext(reply resp.Reply) (complete bool) {
	i := e.nextUnfilled()
	if i < 0 {
		return true
	}
	e.replies[i] = reply
	e.filled[i] = true
	return e.filledCount() == len(e.parts)
}

func (e *pendingEntry) filledCount() int {
	n := 0
	for _, f := range e.filled {
		if f {
			n++
		}
	}
	return n
}

// result builds the value delivered to the caller: a lone reply for a
// single, non-pipeline part, or an Array wrapping every part's reply in
// submission order otherwise.
func (e *pendingEntry) result() resp.Reply {
	if !e.pipeline && len(e.replies) == 1 {
		return e.replies[0]
	}
	return resp.NewArray(e.replies)
}

// complete finalizes the entry and delivers its result. The done
// channel has capacity 1 and is only ever sent to once, so a caller
// that dropped its Future never blocks this call — the reply is simply
// discarded per spec.md's documented (and accepted) behavior.
//
// An ignore entry (built by Connection.Run) has no caller waiting on
// done at all: its replies are logged on error and otherwise dropped,
// rather than delivered.
func (e *pendingEntry) complete() {
	if e.ignore {
		e.logErrors()
		return
	}
	select {
	case e.done <- e.result():
	default:
	}
}

func (e *pendingEntry) logErrors() {
	for _, r := range e.replies {
		if r.Type == resp.Error {
			rlog.Warnf("conn: error reply to a Run command, discarding: %s", r.Str)
		}
	}
}

// markRedirectsForRetry resets the filled flag on any part whose reply was a
// MOVED/ASK redirection, so a post-reconnect replay resends it instead
// of treating it as settled.
func (e *pendingEntry) markRedirectsForRetry() (asked []int) {
	for i, f := range e.filled {
		if !f {
			continue
		}
		if e.replies[i].IsRedirection() {
			e.filled[i] = false
			if e.replies[i].Type == resp.AskError {
				asked = append(asked, i)
			}
		}
	}
	return asked
}
