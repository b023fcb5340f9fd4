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
)

func threeShards() *Shards {
	return NewShards([]Slot{
		{Min: 0, Max: 5460, Node: Node{Host: "10.0.0.1", Port: "7000"}},
		{Min: 5461, Max: 10922, Node: Node{Host: "10.0.0.2", Port: "7001"}},
		{Min: 10923, Max: 16383, Node: Node{Host: "10.0.0.3", Port: "7002"}},
	})
}

func TestShardsNodeForSlot(t *testing.T) {
	s := threeShards()

	n, ok := s.NodeForSlot(0)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1:7000", n.Addr())

	n, ok = s.NodeForSlot(5461)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.2:7001", n.Addr())

	n, ok = s.NodeForSlot(16383)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.3:7002", n.Addr())
}

func TestShardsNodeForSlotOutOfRange(t *testing.T) {
	s := NewShards([]Slot{{Min: 100, Max: 200, Node: Node{Host: "h", Port: "1"}}})
	_, ok := s.NodeForSlot(50)
	assert.False(t, ok)

	_, ok = s.NodeForSlot(9000)
	assert.False(t, ok)
}

func TestShardsNilLookupFails(t *testing.T) {
	var s *Shards
	_, ok := s.NodeForSlot(0)
	assert.False(t, ok)
	assert.Nil(t, s.Nodes())
}

func TestShardsNodesDeduplicates(t *testing.T) {
	s := NewShards([]Slot{
		{Min: 0, Max: 100, Node: Node{Host: "h", Port: "1"}},
		{Min: 101, Max: 200, Node: Node{Host: "h", Port: "1"}},
		{Min: 201, Max: 300, Node: Node{Host: "h2", Port: "2"}},
	})
	assert.Len(t, s.Nodes(), 2)
}

func TestShardsUnsortedInputIsSorted(t *testing.T) {
	s := NewShards([]Slot{
		{Min: 10923, Max: 16383, Node: Node{Host: "c", Port: "3"}},
		{Min: 0, Max: 5460, Node: Node{Host: "a", Port: "1"}},
		{Min: 5461, Max: 10922, Node: Node{Host: "b", Port: "2"}},
	})
	n, ok := s.NodeForSlot(1)
	assert.True(t, ok)
	assert.Equal(t, "a:1", n.Addr())
}
