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

package client

import (
	"context"

	"github.com/packetd/rkit/cluster"
	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/conn"
)

// Cluster is the sharded-cluster client: it computes each command's slot
// and forwards to the owning node's connection, following MOVED/ASK
// redirection transparently.
type Cluster struct {
	r *cluster.Router
}

// NewCluster builds a Cluster that discovers topology from seeds.
func NewCluster(seeds []string, opts cluster.Options) *Cluster {
	return &Cluster{r: cluster.NewRouter(seeds, opts)}
}

// Connect dials the seed nodes and fetches initial topology.
func (c *Cluster) Connect(ctx context.Context) error {
	return c.r.Connect(ctx)
}

// IsConnected reports whether topology has been discovered and at least
// one node connection is currently established.
func (c *Cluster) IsConnected() bool {
	return c.r.IsConnected()
}

// Query submits cmd to the node owning its slot.
func (c *Cluster) Query(cmd *command.Command) (*conn.Future, error) {
	return c.r.Query(cmd)
}

// Run submits cmd without tracking a reply.
func (c *Cluster) Run(cmd *command.Command) error {
	return c.r.Run(cmd)
}

// Close tears down every pooled node connection.
func (c *Cluster) Close() error {
	return c.r.Close()
}
