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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/rkit/resp"
)

func bulk(s string) resp.Reply { return resp.NewBulkString([]byte(s)) }

func TestParseClusterSlots(t *testing.T) {
	reply := resp.NewArray([]resp.Reply{
		resp.NewArray([]resp.Reply{
			resp.NewInteger(0), resp.NewInteger(5460),
			resp.NewArray([]resp.Reply{bulk("10.0.0.1"), resp.NewInteger(7000)}),
		}),
		resp.NewArray([]resp.Reply{
			resp.NewInteger(5461), resp.NewInteger(10922),
			resp.NewArray([]resp.Reply{bulk("10.0.0.2"), resp.NewInteger(7001)}),
			resp.NewArray([]resp.Reply{bulk("10.0.0.2"), resp.NewInteger(7011)}),
		}),
	})

	slots, err := ParseClusterSlots(reply)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, 0, slots[0].Min)
	assert.Equal(t, 5460, slots[0].Max)
	assert.Equal(t, "10.0.0.1:7000", slots[0].Node.Addr())

	assert.Equal(t, 5461, slots[1].Min)
	assert.Equal(t, "10.0.0.2:7001", slots[1].Node.Addr())
}

func TestParseClusterSlotsRejectsNonArray(t *testing.T) {
	_, err := ParseClusterSlots(resp.NewInteger(1))
	assert.ErrorIs(t, err, ErrMalformedTopology)
}

func TestParseClusterSlotsRejectsShortEntry(t *testing.T) {
	reply := resp.NewArray([]resp.Reply{
		resp.NewArray([]resp.Reply{resp.NewInteger(0), resp.NewInteger(100)}),
	})
	_, err := ParseClusterSlots(reply)
	assert.ErrorIs(t, err, ErrMalformedTopology)
}

func TestParseClusterSlotsRejectsMalformedNodeTriple(t *testing.T) {
	reply := resp.NewArray([]resp.Reply{
		resp.NewArray([]resp.Reply{
			resp.NewInteger(0), resp.NewInteger(100),
			resp.NewArray([]resp.Reply{bulk("10.0.0.1")}),
		}),
	})
	_, err := ParseClusterSlots(reply)
	assert.ErrorIs(t, err, ErrMalformedTopology)
}
