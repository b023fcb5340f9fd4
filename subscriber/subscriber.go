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

// Package subscriber implements the publish/subscribe façade: a
// dedicated conn.Connection running with the subscriber flag set, whose
// unsolicited replies are parsed into message/pmessage/meta shapes and
// handed to a caller-supplied Callback. Shape validation is grounded on
// the normalize-and-validate pattern the decoder package uses for
// untrusted wire data: reject and log on mismatch rather than panic.
package subscriber

import (
	"context"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/conn"
	"github.com/packetd/rkit/resp"
	"github.com/packetd/rkit/rlog"
)

// MetaKind identifies the four control replies a subscribe/unsubscribe
// command can produce.
type MetaKind string

const (
	KindSubscribe    MetaKind = "subscribe"
	KindUnsubscribe  MetaKind = "unsubscribe"
	KindPSubscribe   MetaKind = "psubscribe"
	KindPUnsubscribe MetaKind = "punsubscribe"
)

// Callback receives dispatched pub/sub events. It is an ordinary Go
// interface value: the connection's reader goroutine holds it for as
// long as the Subscriber is alive, and the garbage collector keeps it
// valid for exactly that long — no borrowed-reference lifetime to get
// wrong.
type Callback interface {
	OnMessage(channel, payload string)
	OnPMessage(pattern, channel, payload string)
	OnMeta(kind MetaKind, channel string, count int64)
}

// Subscriber wraps a single conn.Connection dedicated to pub/sub: every
// reply that arrives is unsolicited, so it is dispatched through cb
// rather than paired against a pending queue.
type Subscriber struct {
	c  *conn.Connection
	cb Callback
}

// New builds a Subscriber bound to addr, installing cb as the target of
// every dispatched event. It does not connect; call Connect first.
func New(addr string, opts conn.Options, cb Callback) *Subscriber {
	s := &Subscriber{cb: cb}
	opts.Subscriber = true
	opts.OnSubscriberReply = s.onReply
	s.c = conn.NewConnection(addr, opts)
	return s
}

// Connect dials the underlying connection.
func (s *Subscriber) Connect(ctx context.Context) error {
	return s.c.Connect(ctx)
}

// Close tears the underlying connection down.
func (s *Subscriber) Close() error {
	return s.c.Close()
}

// IsConnected reports whether the underlying socket is currently usable.
func (s *Subscriber) IsConnected() bool {
	return s.c.IsConnected()
}

// Subscribe issues SUBSCRIBE for one or more channels. The server's
// per-channel subscribe acknowledgement arrives asynchronously and is
// routed to Callback.OnMeta, not returned here.
func (s *Subscriber) Subscribe(channels ...string) error {
	return s.run("SUBSCRIBE", channels)
}

// Unsubscribe issues UNSUBSCRIBE. With no channels, it unsubscribes from
// all channels currently joined.
func (s *Subscriber) Unsubscribe(channels ...string) error {
	return s.run("UNSUBSCRIBE", channels)
}

// PSubscribe issues PSUBSCRIBE for one or more glob patterns.
func (s *Subscriber) PSubscribe(patterns ...string) error {
	return s.run("PSUBSCRIBE", patterns)
}

// PUnsubscribe issues PUNSUBSCRIBE.
func (s *Subscriber) PUnsubscribe(patterns ...string) error {
	return s.run("PUNSUBSCRIBE", patterns)
}

func (s *Subscriber) run(verb string, args []string) error {
	cmd := command.New().Cmd(verb)
	for _, a := range args {
		cmd.Arg(a)
	}
	cmd.Build()
	return s.c.Run(cmd)
}

// onReply is installed as the connection's subscriber callback; it
// classifies and dispatches a single arriving Reply.
func (s *Subscriber) onReply(reply resp.Reply) {
	items, ok := reply.AsArray()
	if !ok {
		rlog.Warnf("subscriber: expected array reply, got %s, dropping", reply.Type)
		return
	}

	if len(items) == 0 || !items[0].IsString() {
		rlog.Warnf("subscriber: malformed push with %d element(s), dropping", len(items))
		return
	}
	kind := string(items[0].Str)

	switch kind {
	case "message":
		s.dispatchMessage(items)
	case "pmessage":
		s.dispatchPMessage(items)
	case string(KindSubscribe), string(KindUnsubscribe), string(KindPSubscribe), string(KindPUnsubscribe):
		s.dispatchMeta(MetaKind(kind), items)
	default:
		rlog.Warnf("subscriber: unrecognized push kind %q, dropping", kind)
	}
}

// dispatchMessage validates a `message` push: length 3, string channel
// at [1], string payload at [2].
func (s *Subscriber) dispatchMessage(items []resp.Reply) {
	if len(items) != 3 || !items[1].IsString() || !items[2].IsString() {
		rlog.Warnf("subscriber: malformed message push (len=%d), dropping", len(items))
		return
	}
	s.cb.OnMessage(string(items[1].Str), string(items[2].Str))
}

// dispatchPMessage validates a `pmessage` push: length 4, three string
// fields at [1], [2], [3] (pattern, channel, payload).
func (s *Subscriber) dispatchPMessage(items []resp.Reply) {
	if len(items) != 4 || !items[1].IsString() || !items[2].IsString() || !items[3].IsString() {
		rlog.Warnf("subscriber: malformed pmessage push (len=%d), dropping", len(items))
		return
	}
	s.cb.OnPMessage(string(items[1].Str), string(items[2].Str), string(items[3].Str))
}

// dispatchMeta validates a subscribe/unsubscribe acknowledgement: length
// 3, a nullable string channel at [1] and an integer count at [2]. An
// UNSUBSCRIBE with no channels left replies with a Null at [1].
func (s *Subscriber) dispatchMeta(kind MetaKind, items []resp.Reply) {
	if len(items) != 3 || items[2].Type != resp.Integer {
		rlog.Warnf("subscriber: malformed %s push (len=%d), dropping", kind, len(items))
		return
	}
	if items[1].Type != resp.Null && !items[1].IsString() {
		rlog.Warnf("subscriber: malformed %s push, channel field wrong type, dropping", kind)
		return
	}

	var channel string
	if items[1].IsString() {
		channel = string(items[1].Str)
	}
	s.cb.OnMeta(kind, channel, items[2].Int)
}
