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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/conn"
)

func TestSingleQueryBeforeConnectIsQueuedNotErrored(t *testing.T) {
	// A command submitted before Connect is queued rather than rejected:
	// it is written once the socket comes up, mirroring how the
	// connection defers writes while reconnecting.
	s := NewSingle("127.0.0.1:0", conn.Options{})
	fut, err := s.Query(command.New().Cmd("PING").Build())
	assert.NoError(t, err)
	assert.NotNil(t, fut)
}

func TestSingleQueryAfterCloseFails(t *testing.T) {
	s := NewSingle("127.0.0.1:0", conn.Options{})
	_ = s.Close()
	_, err := s.Query(command.New().Cmd("PING").Build())
	assert.Error(t, err)
}

func TestSingleIsConnectedFalseBeforeConnect(t *testing.T) {
	s := NewSingle("127.0.0.1:0", conn.Options{})
	assert.False(t, s.IsConnected())
}
