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

package cluster

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/packetd/rkit/resp"
)

// ErrMalformedTopology is returned by ParseClusterSlots when the server's
// reply does not match the documented CLUSTER SLOTS shape.
var ErrMalformedTopology = errors.New("cluster: malformed CLUSTER SLOTS reply")

// ParseClusterSlots turns a CLUSTER SLOTS reply into Slot entries. Each
// top-level item is `[min, max, [masterHost, masterPort, ...], replica...]`;
// only the master triple is kept (IsReplica is always false here — replica
// awareness, if ever needed, would add a second pass over the trailing
// entries).
func ParseClusterSlots(reply resp.Reply) ([]Slot, error) {
	items, ok := reply.AsArray()
	if !ok {
		return nil, ErrMalformedTopology
	}

	slots := make([]Slot, 0, len(items))
	for _, item := range items {
		parts, ok := item.AsArray()
		if !ok || len(parts) < 3 {
			return nil, ErrMalformedTopology
		}
		if parts[0].Type != resp.Integer || parts[1].Type != resp.Integer {
			return nil, ErrMalformedTopology
		}

		node, err := parseNodeTriple(parts[2])
		if err != nil {
			return nil, err
		}

		slots = append(slots, Slot{
			Min:  int(parts[0].Int),
			Max:  int(parts[1].Int),
			Node: node,
		})
	}
	return slots, nil
}

func parseNodeTriple(r resp.Reply) (Node, error) {
	fields, ok := r.AsArray()
	if !ok || len(fields) < 2 {
		return Node{}, ErrMalformedTopology
	}
	if !fields[0].IsString() || fields[1].Type != resp.Integer {
		return Node{}, ErrMalformedTopology
	}
	return Node{
		Host: string(fields[0].Str),
		Port: strconv.FormatInt(fields[1].Int, 10),
	}, nil
}
