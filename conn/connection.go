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

// Package conn owns a single connection to a Redis-compatible server: the
// socket, the handshake, the reader goroutine that pairs arriving RESP
// replies against in-flight commands, and the reconnect loop that
// replays anything left unanswered by a dropped socket.
package conn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/common"
	"github.com/packetd/rkit/resp"
	"github.com/packetd/rkit/rescue"
	"github.com/packetd/rkit/rlog"
)

const maxBackoff = 5 * time.Second

// Connection is a single socket to one Redis-compatible node. It is safe
// for concurrent use: Query/Run may be called from any goroutine while a
// private reader goroutine drains replies and a reconnect goroutine
// repairs the socket after a failure.
type Connection struct {
	addr string
	opts Options

	mut       sync.Mutex
	netConn   net.Conn
	pending   []*pendingEntry
	parser    *resp.Parser
	connected   bool
	closed      bool
	attempt     int
	reconnecting bool

	firstConnect atomic.Bool
}

// NewConnection builds a Connection for addr ("host:port"). It does not
// dial; call Connect to establish the socket.
func NewConnection(addr string, opts Options) *Connection {
	c := &Connection{
		addr:   addr,
		opts:   opts,
		parser: resp.NewParser(),
	}
	c.firstConnect.Store(true)
	return c
}

// IsConnected reports whether the socket is currently usable.
func (c *Connection) IsConnected() bool {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.connected
}

// Connect dials the socket, runs the AUTH/SELECT handshake, and starts
// the reader goroutine. Subsequent drops are repaired in the background;
// callers only ever call Connect once.
func (c *Connection) Connect(ctx context.Context) error {
	return c.dialAndHandshake(ctx)
}

// dialAndHandshake dials, starts the reader goroutine (the handshake
// replies have to be read by someone), then runs AUTH/SELECT. The
// reader goroutine is already live by the time this returns, so the
// caller need not start one separately.
func (c *Connection) dialAndHandshake(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.opts.connectTimeout()}
	nc, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errors.Wrapf(err, "conn: dial %s", c.addr)
	}

	c.mut.Lock()
	c.netConn = nc
	c.connected = true
	c.parser.Reset()
	c.mut.Unlock()

	go c.readLoop()

	if err := c.handshake(); err != nil {
		c.mut.Lock()
		c.closeSocketLocked()
		c.mut.Unlock()
		return err
	}

	if c.firstConnect.CompareAndSwap(true, false) {
		rlog.Infof("conn: connected to %s", c.addr)
	} else {
		rlog.Infof("conn: reconnected to %s", c.addr)
	}
	return nil
}

// handshake sends AUTH (if a password is configured) and SELECT (if a
// non-default DB is configured and this is not a cluster connection),
// blocking for each reply in turn before the connection is handed back
// to normal traffic.
func (c *Connection) handshake() error {
	var cmds []*command.Command
	if c.opts.Password != "" {
		cmds = append(cmds, command.New().Cmd("AUTH").Arg(c.opts.Password).Build())
	}
	if c.opts.DB != 0 && !c.opts.ClusterMode {
		cmds = append(cmds, command.New().Cmd("SELECT").Arg(c.opts.DB).Build())
	}

	for _, cmd := range cmds {
		c.mut.Lock()
		fut, err := c.queryOnLocked(cmd)
		c.mut.Unlock()
		if err != nil {
			return err
		}
		reply := fut.Wait()
		if reply.Type == resp.Error {
			return errors.Errorf("conn: handshake failed: %s", reply.Str)
		}
	}
	return nil
}

// Query submits cmd and returns a Future for its reply (or replies, for
// a pipeline). It never blocks on the network: bytes are written
// synchronously to the socket buffer and the caller waits on the
// returned Future independently.
func (c *Connection) Query(cmd *command.Command) (*Future, error) {
	if cmd.Empty() {
		return nil, ErrEmptyCommand
	}

	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	return c.queryOnLocked(cmd)
}

// queryOnLocked assumes mut is held.
func (c *Connection) queryOnLocked(cmd *command.Command) (*Future, error) {
	entry := c.enqueueOnLocked(cmd, false)
	return &Future{ch: entry.done}, nil
}

// enqueueOnLocked assumes mut is held. It always pushes a pendingEntry
// before writing, so every command this connection ever sends — tracked
// or not — has exactly one slot in the FIFO queue waiting for its reply.
func (c *Connection) enqueueOnLocked(cmd *command.Command, ignore bool) *pendingEntry {
	entry := newPendingEntry(cmd.Parts(), ignore, cmd.IsPipeline())
	c.pending = append(c.pending, entry)
	c.writeLocked(cmd)
	return entry
}

// writeLocked assumes mut is held. It writes cmd's wire bytes if the
// socket is currently up, deferring to the reconnect loop on failure.
func (c *Connection) writeLocked(cmd *command.Command) {
	if !c.connected {
		return
	}
	if _, err := c.netConn.Write(cmd.Serialize()); err != nil {
		rlog.Warnf("conn: write to %s failed, deferring to reconnect: %v", c.addr, err)
		c.connected = false
		c.triggerReconnectLocked()
	}
}

// Run submits cmd without handing the caller anything to wait on.
//
// On an ordinary connection its reply still travels through the regular
// FIFO pending queue — skipping it would misassign the next Query's
// reply to this command instead — but the entry is marked to discard
// its result: any error reply is logged rather than delivered, per the
// documented fire-and-forget behavior for subscribe/unsubscribe and
// similar control commands.
//
// On a subscriber-mode connection every reply outside the handshake is
// an unsolicited push, routed to Options.OnSubscriberReply by dispatch
// whenever the pending queue is empty — so Run has nothing to enqueue
// there; it only writes.
func (c *Connection) Run(cmd *command.Command) error {
	if cmd.Empty() {
		return ErrEmptyCommand
	}

	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.opts.Subscriber {
		c.writeLocked(cmd)
		return nil
	}
	c.enqueueOnLocked(cmd, true)
	return nil
}

// triggerReconnectLocked assumes mut is held. It starts scheduleReconnect
// at most once per outage: concurrent writers and the reader goroutine
// can all observe the same broken socket, but only one of them should
// spawn the backoff loop.
func (c *Connection) triggerReconnectLocked() {
	if c.reconnecting || c.closed {
		return
	}
	c.reconnecting = true
	go c.scheduleReconnect()
}

// Close permanently shuts the connection down. Any Futures still waiting
// on a reply are left unresolved; callers that Close a live connection
// are expected to have drained or abandoned them already.
func (c *Connection) Close() error {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.closeSocketLocked()
	return nil
}

func (c *Connection) closeSocketLocked() {
	c.connected = false
	if c.netConn != nil {
		_ = c.netConn.Close()
		c.netConn = nil
	}
}

// readLoop owns the socket's read side for its entire lifetime: one
// goroutine per dial. A fresh readLoop is started by scheduleReconnect
// each time the socket is re-dialed.
func (c *Connection) readLoop() {
	defer rescue.HandleCrash()

	buf := make([]byte, common.ReadBufferSize)
	for {
		c.mut.Lock()
		nc := c.netConn
		closed := c.closed
		c.mut.Unlock()
		if closed || nc == nil {
			return
		}

		n, err := nc.Read(buf)
		if err != nil {
			c.onSocketError(err)
			return
		}

		replies, err := c.feed(buf[:n])
		if err != nil {
			rlog.Errorf("conn: protocol error on %s: %v", c.addr, err)
			c.onSocketError(err)
			return
		}
		for _, r := range replies {
			c.dispatch(r)
		}
	}
}

func (c *Connection) feed(b []byte) ([]resp.Reply, error) {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.parser.Feed(b)
}

// dispatch pairs one reply against the head of the pending queue, or
// hands it to the subscriber callback when none is tracked.
func (c *Connection) dispatch(reply resp.Reply) {
	c.mut.Lock()
	if len(c.pending) == 0 {
		c.mut.Unlock()
		if c.opts.Subscriber {
			if c.opts.OnSubscriberReply != nil {
				c.opts.OnSubscriberReply(reply)
			}
			return
		}
		rlog.Warnf("conn: reply from %s with no pending command, dropping", c.addr)
		return
	}
	head := c.pending[0]
	complete := head.fillNext(reply)
	if complete {
		c.pending = c.pending[1:]
	}
	c.mut.Unlock()

	if complete {
		head.complete()
	}
}

func (c *Connection) onSocketError(err error) {
	c.mut.Lock()
	if c.closed || c.reconnecting {
		c.connected = false
		c.closeSocketLocked()
		c.mut.Unlock()
		return
	}
	c.connected = false
	c.closeSocketLocked()
	c.reconnecting = true
	c.mut.Unlock()

	rlog.Warnf("conn: socket to %s broken: %v", c.addr, err)
	c.scheduleReconnect()
}

// scheduleReconnect retries the dial with a bounded linear backoff until
// it succeeds or the connection is closed, replaying every part still
// unanswered once the new socket is up.
func (c *Connection) scheduleReconnect() {
	defer func() {
		c.mut.Lock()
		c.reconnecting = false
		c.mut.Unlock()
	}()

	for {
		c.mut.Lock()
		if c.closed {
			c.mut.Unlock()
			return
		}
		c.attempt++
		attempt := c.attempt
		c.mut.Unlock()

		rescue.ReconnectTotal.Inc()
		backoff := time.Duration(attempt) * time.Second
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		time.Sleep(backoff)

		c.mut.Lock()
		if c.closed {
			c.mut.Unlock()
			return
		}
		c.mut.Unlock()

		if err := c.dialAndHandshake(context.Background()); err != nil {
			rlog.Warnf("conn: reconnect to %s failed (attempt %d): %v", c.addr, attempt, err)
			continue
		}

		c.mut.Lock()
		c.attempt = 0
		c.mut.Unlock()

		c.replayUnfilled()
		return
	}
}

// replayUnfilled resends every part of every pending entry that never
// got a reply before the socket dropped. Parts whose last reply was an
// ASK redirection are preceded by a one-shot ASKING command, mirroring
// what a fresh dispatch through the cluster router would have sent.
func (c *Connection) replayUnfilled() {
	c.mut.Lock()
	nc := c.netConn
	var toSend [][]byte
	for _, entry := range c.pending {
		asked := entry.markRedirectsForRetry()
		askSet := make(map[int]bool, len(asked))
		for _, i := range asked {
			askSet[i] = true
		}
		for i, f := range entry.filled {
			if f {
				continue
			}
			if askSet[i] {
				toSend = append(toSend, command.New().Cmd("ASKING").Build().Serialize())
			}
			toSend = append(toSend, entry.parts[i].Bytes)
		}
	}
	c.mut.Unlock()

	if nc == nil || len(toSend) == 0 {
		return
	}
	for _, b := range toSend {
		if _, err := nc.Write(b); err != nil {
			rlog.Warnf("conn: replay write to %s failed: %v", c.addr, err)
			return
		}
	}
	rlog.Debugf("conn: replayed %d part(s) to %s (fingerprint %x)", len(toSend), c.addr, fingerprint(toSend))
}

func fingerprint(parts [][]byte) uint64 {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	return h.Sum64()
}

func (c *Connection) String() string {
	return fmt.Sprintf("conn(%s)", c.addr)
}
