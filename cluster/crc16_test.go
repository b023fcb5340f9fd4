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

func TestCRC16KnownVector(t *testing.T) {
	assert.Equal(t, uint16(0x31C3), crc16([]byte("123456789")))
}

func TestSlotOfNoHashTag(t *testing.T) {
	key := "somekey"
	want := int(crc16([]byte(key)) & 0x3FFF)
	assert.Equal(t, want, SlotOf(key))
}

func TestSlotOfHashTagCoLocates(t *testing.T) {
	s1 := SlotOf("{user1000}.following")
	s2 := SlotOf("{user1000}.followers")
	assert.Equal(t, s1, s2)
	assert.Equal(t, int(crc16([]byte("user1000"))&0x3FFF), s1)
}

func TestSlotOfEmptyOrMissingHashTagFallsBackToWholeKey(t *testing.T) {
	cases := []string{"foo{}{bar}", "{}foo"}
	for _, key := range cases {
		want := int(crc16([]byte(key)) & 0x3FFF)
		assert.Equal(t, want, SlotOf(key), key)
	}
}

func TestSlotRange(t *testing.T) {
	for _, key := range []string{"a", "abc", "{tag}rest", "", "x{y"} {
		slot := SlotOf(key)
		assert.GreaterOrEqual(t, slot, 0)
		assert.Less(t, slot, NumSlots)
	}
}
