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
	"time"

	"github.com/packetd/rkit/resp"
)

// DefaultConnectTimeout is used when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 2000 * time.Millisecond

// Options configures a Connection. Parsing these from a config file is
// an explicit external collaborator (spec.md §1); callers construct
// Options directly.
type Options struct {
	Password string
	DB       int

	// ConnectTimeout bounds the initial dial; it defaults to
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// ClusterMode suppresses the SELECT handshake step: cluster
	// connections never select a database.
	ClusterMode bool

	// Subscriber puts the connection into subscriber dispatch mode:
	// every reply that arrives while no pending entry is tracked is
	// handed to OnSubscriberReply instead of being paired; only the
	// handshake's AUTH/SELECT replies are paired against pending entries.
	Subscriber        bool
	OnSubscriberReply func(reply resp.Reply)
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return o.ConnectTimeout
}
