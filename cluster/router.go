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

// Package cluster implements slot computation, topology tracking, and
// MOVED/ASK redirection over a table of per-node connections. The
// per-node table is grounded on the teacher's connPool: a mutex-guarded
// map keyed by address, generalized from "one entry per observed TCP
// tuple" to "one entry per cluster node".
package cluster

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/rkit/command"
	"github.com/packetd/rkit/common"
	"github.com/packetd/rkit/conn"
	"github.com/packetd/rkit/rescue"
	"github.com/packetd/rkit/resp"
	"github.com/packetd/rkit/rlog"
)

// ErrCrossSlot is returned when a pipeline's parts hash to more than one
// slot: the spec's pipeline-atomicity invariant.
var ErrCrossSlot = errors.New("cluster: pipeline parts span more than one slot")

// ErrNoRoute is returned when no node is known for a computed slot.
var ErrNoRoute = errors.New("cluster: no node known for slot")

// ErrTooManyRedirects is returned when a single command group has been
// redirected more than maxRedirects times.
var ErrTooManyRedirects = errors.New("cluster: too many redirects")

const maxRedirects = 5

// Options configures a Router.
type Options struct {
	Password       string
	DB             int
	ConnectTimeout int64 // milliseconds; 0 uses conn.DefaultConnectTimeout
}

// node wraps a pooled connection with the back-reference the
// redirection path needs to re-dispatch. The router owns this pointer;
// conn.Connection itself stays router-agnostic, per the non-owning
// back-reference design recorded for the connection↔router association.
type node struct {
	addr string
	c    *conn.Connection
	r    *Router
}

// Router maintains the slot→node map and the per-node connection table,
// computes target slots, and re-dispatches MOVED/ASK redirections.
type Router struct {
	opts Options

	shards atomic.Pointer[Shards]

	mu    sync.RWMutex
	nodes map[string]*node

	seeds []string
}

// NewRouter builds a Router that will dial seeds to discover topology on
// the first Connect call. seeds are kept distinct from the live
// node table: they bootstrap discovery but are never themselves assumed
// to own any slot.
func NewRouter(seeds []string, opts Options) *Router {
	return &Router{
		opts:  opts,
		nodes: make(map[string]*node),
		seeds: append([]string(nil), seeds...),
	}
}

// Connect dials the seeds in order, fetches CLUSTER SLOTS from the first
// one that answers, and populates the node table and slot map; seeds
// after that one are not dialed.
func (r *Router) Connect(ctx context.Context) error {
	var lastErr error
	for _, addr := range r.seeds {
		n, err := r.dial(ctx, addr)
		if err != nil {
			lastErr = err
			continue
		}
		if err := r.refreshFrom(n); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("cluster: no seed nodes configured")
	}
	return errors.Wrap(lastErr, "cluster: failed to discover topology from any seed")
}

func (r *Router) dial(ctx context.Context, addr string) (*node, error) {
	copts := conn.Options{
		Password:       r.opts.Password,
		DB:             r.opts.DB,
		ConnectTimeout: time.Duration(r.opts.ConnectTimeout) * time.Millisecond,
		ClusterMode:    true,
	}
	c := conn.NewConnection(addr, copts)
	if err := c.Connect(ctx); err != nil {
		return nil, errors.Wrapf(err, "cluster: dial %s", addr)
	}
	n := &node{addr: addr, c: c, r: r}
	return n, nil
}

func (r *Router) refreshFrom(n *node) error {
	fut, err := n.c.Query(command.New().Cmd("CLUSTER").Arg("SLOTS").Build())
	if err != nil {
		return err
	}
	reply := fut.Wait()
	if reply.Type == resp.Error {
		return errors.Errorf("cluster: CLUSTER SLOTS failed: %s", reply.Str)
	}

	slots, err := ParseClusterSlots(reply)
	if err != nil {
		return err
	}
	return r.UpdateShards(context.Background(), slots)
}

// UpdateShards installs a new topology: it dials connections to any
// newly-seen node, closes connections to any node no longer referenced,
// and swaps in the new slot map atomically. Dial errors for individual
// new nodes are aggregated rather than aborting the whole refresh.
func (r *Router) UpdateShards(ctx context.Context, slots []Slot) error {
	next := NewShards(slots)
	wantAddrs := make(map[string]bool)
	for _, n := range next.Nodes() {
		wantAddrs[n.Addr()] = true
	}

	r.mu.Lock()
	var toClose []*node
	for addr, n := range r.nodes {
		if !wantAddrs[addr] {
			toClose = append(toClose, n)
			delete(r.nodes, addr)
		}
	}
	var toDial []string
	for addr := range wantAddrs {
		if _, ok := r.nodes[addr]; !ok {
			toDial = append(toDial, addr)
		}
	}
	r.mu.Unlock()

	for _, n := range toClose {
		_ = n.c.Close()
	}

	dialed, merr := r.dialAll(ctx, toDial)

	r.mu.Lock()
	for addr, n := range dialed {
		r.nodes[addr] = n
	}
	r.mu.Unlock()

	r.shards.Store(next)

	if merr != nil {
		return merr.ErrorOrNil()
	}
	return nil
}

// dialAll dials every address in addrs concurrently, bounded by
// common.Concurrency() workers, and aggregates per-address failures
// rather than letting one bad node block the whole topology refresh.
func (r *Router) dialAll(ctx context.Context, addrs []string) (map[string]*node, *multierror.Error) {
	dialed := make(map[string]*node, len(addrs))
	if len(addrs) == 0 {
		return dialed, nil
	}

	type result struct {
		addr string
		n    *node
		err  error
	}

	results := make(chan result, len(addrs))
	work := make(chan string, len(addrs))
	for _, addr := range addrs {
		work <- addr
	}
	close(work)

	workers := common.Concurrency()
	if workers > len(addrs) {
		workers = len(addrs)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range work {
				n, err := r.dial(ctx, addr)
				results <- result{addr: addr, n: n, err: err}
			}
		}()
	}
	wg.Wait()
	close(results)

	var merr *multierror.Error
	for res := range results {
		if res.err != nil {
			merr = multierror.Append(merr, res.err)
			continue
		}
		dialed[res.addr] = res.n
	}
	return dialed, merr
}

// IsConnected reports whether topology has been discovered and at least
// one node connection is currently established.
func (r *Router) IsConnected() bool {
	if r.shards.Load() == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes) > 0
}

func (r *Router) nodeForAddr(addr string) (*node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[addr]
	return n, ok
}

// Query computes cmd's slot, dispatches it to the owning node, and
// follows MOVED/ASK redirection up to maxRedirects times.
func (r *Router) Query(cmd *command.Command) (*conn.Future, error) {
	n, err := r.routeTo(cmd)
	if err != nil {
		return nil, err
	}
	return r.dispatch(n, cmd, 0)
}

// Run computes cmd's slot and writes it to the owning node without
// tracking a reply: no one observes whether it came back as a
// redirection, so there is nothing for Run to follow.
func (r *Router) Run(cmd *command.Command) error {
	n, err := r.routeTo(cmd)
	if err != nil {
		return err
	}
	return n.c.Run(cmd)
}

func (r *Router) routeTo(cmd *command.Command) (*node, error) {
	slot, err := slotForParts(cmd.Parts())
	if err != nil {
		return nil, err
	}

	shards := r.shards.Load()
	target, ok := shards.NodeForSlot(slot)
	if !ok {
		return nil, ErrNoRoute
	}
	n, ok := r.nodeForAddr(target.Addr())
	if !ok {
		return nil, errors.Wrapf(ErrNoRoute, "node %s not in connection table", target.Addr())
	}
	return n, nil
}

func (r *Router) dispatch(n *node, cmd *command.Command, depth int) (*conn.Future, error) {
	if depth > maxRedirects {
		return nil, ErrTooManyRedirects
	}

	fut, err := n.c.Query(cmd)
	if err != nil {
		return nil, err
	}

	out := conn.NewFuture()
	go r.watchForRedirect(n, cmd, fut, out, depth)
	return out, nil
}

// watchForRedirect waits on the physical reply and, if it is itself a
// MOVED/ASK error, re-dispatches before resolving out, so the caller
// only observes the final value. Only a top-level redirection is
// followed: a pipeline's Array reply is delivered as-is, even when some
// of its parts are MOVED/ASK errors.
func (r *Router) watchForRedirect(n *node, cmd *command.Command, fut *conn.Future, out *conn.Future, depth int) {
	defer rescue.HandleCrash()

	reply := fut.Wait()

	redir, isRedir := reply.ParseRedirection()
	if !isRedir {
		out.Resolve(reply)
		return
	}

	rescue.RedirectTotal.Inc()
	targetAddr := redir.Host + ":" + redir.Port
	target, ok := r.nodeForAddr(targetAddr)
	if !ok {
		dialed, err := r.dial(context.Background(), targetAddr)
		if err != nil {
			rlog.Errorf("cluster: redirect target %s unreachable: %v", targetAddr, err)
			out.Resolve(reply)
			return
		}
		r.mu.Lock()
		r.nodes[targetAddr] = dialed
		r.mu.Unlock()
		target = dialed
	}

	if reply.Type == resp.AskError {
		_ = target.c.Run(command.New().Cmd("ASKING").Build())
	} else {
		rlog.Debugf("cluster: MOVED observed, scheduling topology refresh")
		go r.refreshFromAny()
	}

	next, err := r.dispatch(target, cmd, depth+1)
	if err != nil {
		rlog.Warnf("cluster: redirect re-dispatch failed: %v", err)
		out.Resolve(reply)
		return
	}
	out.Resolve(next.Wait())
}

// refreshFromAny re-issues CLUSTER SLOTS against any currently known
// node, used to refresh topology after observing a MOVED.
func (r *Router) refreshFromAny() {
	r.mu.RLock()
	var any *node
	for _, n := range r.nodes {
		any = n
		break
	}
	r.mu.RUnlock()

	if any == nil {
		return
	}
	if err := r.refreshFrom(any); err != nil {
		rlog.Warnf("cluster: topology refresh failed: %v", err)
	}
}

// Close tears down every pooled connection.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, n := range r.nodes {
		_ = n.c.Close()
		delete(r.nodes, addr)
	}
	return nil
}

// slotForParts computes the single slot every keyed part of a command
// group must share; keyless parts are ignored. A command group with no
// keys at all (PING, INFO, ...) has no slot to agree on, so it is spread
// uniformly at random across the cluster rather than pinned to whichever
// node happens to own a fixed slot.
func slotForParts(parts []command.Part) (int, error) {
	slot := -1
	for _, p := range parts {
		if p.Key == "" {
			continue
		}
		s := SlotOf(p.Key)
		if slot == -1 {
			slot = s
		} else if s != slot {
			return 0, ErrCrossSlot
		}
	}
	if slot == -1 {
		return rand.Intn(NumSlots), nil
	}
	return slot, nil
}
