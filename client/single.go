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

// Package client provides the thin façades applications actually call:
// Single wraps one connection, Cluster wraps a router. Both share the
// same Query/Run submit contract; neither owns any protocol logic of its
// own — that lives in conn and cluster.
package client

import (
	"context"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/conn"
)

// Single is the single-node client: it forwards every command to its one
// Connection.
type Single struct {
	c *conn.Connection
}

// NewSingle builds a Single bound to addr. It does not connect; call
// Connect first.
func NewSingle(addr string, opts conn.Options) *Single {
	return &Single{c: conn.NewConnection(addr, opts)}
}

// Connect dials the underlying connection and runs its handshake.
func (s *Single) Connect(ctx context.Context) error {
	return s.c.Connect(ctx)
}

// IsConnected reports whether the underlying socket is currently usable.
func (s *Single) IsConnected() bool {
	return s.c.IsConnected()
}

// Query submits cmd and returns a Future for its reply.
func (s *Single) Query(cmd *command.Command) (*conn.Future, error) {
	return s.c.Query(cmd)
}

// Run submits cmd without tracking a reply.
func (s *Single) Run(cmd *command.Command) error {
	return s.c.Run(cmd)
}

// Close tears the connection down.
func (s *Single) Close() error {
	return s.c.Close()
}
