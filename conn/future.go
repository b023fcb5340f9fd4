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
	"context"

	"github.com/packetd/rkit/resp"
)

// Future is the awaitable returned by Query. The core has no built-in
// per-query timeout (spec.md §5): callers wrap Wait with their own
// deadline via WaitContext.
type Future struct {
	ch chan resp.Reply
}

// NewFuture returns an unresolved Future. It exists for callers outside
// this package — the cluster router, in particular — that need to hand
// back a Future whose resolution depends on following a redirection
// first, rather than on a single physical reply.
func NewFuture() *Future {
	return &Future{ch: make(chan resp.Reply, 1)}
}

// Resolve delivers r to the Future's waiter. It is safe to call at most
// once; a second call is a no-op.
func (f *Future) Resolve(r resp.Reply) {
	if f.ch == nil {
		f.ch = make(chan resp.Reply, 1)
	}
	select {
	case f.ch <- r:
	default:
	}
}

// Wait blocks until the reply is available.
func (f *Future) Wait() resp.Reply {
	return <-f.ch
}

// WaitContext blocks until the reply is available or ctx is done.
// Dropping ctx does not cancel the server-side work: the reply still
// arrives and is discarded by the connection (spec.md §5).
func (f *Future) WaitContext(ctx context.Context) (resp.Reply, error) {
	select {
	case r := <-f.ch:
		return r, nil
	case <-ctx.Done():
		return resp.Reply{}, ctx.Err()
	}
}
