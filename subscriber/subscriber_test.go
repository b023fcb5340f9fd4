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

package subscriber

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/rkit/resp"
)

// recordingCallback captures dispatched events for assertion, guarded by
// a mutex since onReply runs on the connection's reader goroutine.
type recordingCallback struct {
	mu       sync.Mutex
	messages [][2]string
	pmsgs    [][3]string
	metas    []metaEvent
}

type metaEvent struct {
	kind    MetaKind
	channel string
	count   int64
}

func (r *recordingCallback) OnMessage(channel, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, [2]string{channel, payload})
}

func (r *recordingCallback) OnPMessage(pattern, channel, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pmsgs = append(r.pmsgs, [3]string{pattern, channel, payload})
}

func (r *recordingCallback) OnMeta(kind MetaKind, channel string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas = append(r.metas, metaEvent{kind, channel, count})
}

func bulk(s string) resp.Reply { return resp.NewBulkString([]byte(s)) }

func TestSubscriberDispatchMessage(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("message"), bulk("news"), bulk("hello")}))

	assert.Equal(t, [][2]string{{"news", "hello"}}, cb.messages)
}

func TestSubscriberDispatchPMessage(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("pmessage"), bulk("news.*"), bulk("news.tech"), bulk("hi")}))

	assert.Equal(t, [][3]string{{"news.*", "news.tech", "hi"}}, cb.pmsgs)
}

func TestSubscriberDispatchMeta(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("subscribe"), bulk("news"), resp.NewInteger(1)}))

	assert.Equal(t, []metaEvent{{KindSubscribe, "news", 1}}, cb.metas)
}

func TestSubscriberUnsubscribeAllHasNullChannel(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("unsubscribe"), resp.NewNull(), resp.NewInteger(0)}))

	assert.Equal(t, []metaEvent{{KindUnsubscribe, "", 0}}, cb.metas)
}

func TestSubscriberMalformedMessageDropped(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("message"), bulk("onlyone")}))

	assert.Empty(t, cb.messages)
}

func TestSubscriberNonArrayReplyDropped(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewInteger(1))

	assert.Empty(t, cb.messages)
	assert.Empty(t, cb.metas)
}

func TestSubscriberUnrecognizedKindDropped(t *testing.T) {
	cb := &recordingCallback{}
	s := &Subscriber{cb: cb}

	s.onReply(resp.NewArray([]resp.Reply{bulk("pong"), bulk("x"), resp.NewInteger(1)}))

	assert.Empty(t, cb.messages)
	assert.Empty(t, cb.metas)
}
