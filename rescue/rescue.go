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

// Package rescue contains the panic-containment and minimal internal
// counters wrapped around each connection's reader goroutine, so a
// decode bug on one socket can never take the whole process down.
package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/rkit/rlog"
)

const namespace = "rkit"

var panicTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panic_total",
		Help:      "panics recovered from a connection goroutine",
	},
)

// ReconnectTotal counts reconnect attempts across all connections.
var ReconnectTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_total",
		Help:      "reconnect attempts made after a socket error",
	},
)

// RedirectTotal counts MOVED/ASK redirections handled by the cluster
// router.
var RedirectTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirect_total",
		Help:      "MOVED/ASK redirections re-dispatched by the cluster router",
	},
)

// PanicHandlers runs, in order, whenever HandleCrash recovers a panic.
var PanicHandlers = []func(any){
	incPanicCounter,
	logPanic,
}

func incPanicCounter(_ any) {
	panicTotal.Inc()
}

func logPanic(r any) {
	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	if _, ok := r.(string); ok {
		rlog.Errorf("observed a panic: %s\n%s", r, stacktrace)
	} else {
		rlog.Errorf("observed a panic: %#v (%v)\n%s", r, r, stacktrace)
	}
}

// HandleCrash is deferred at the top of every long-running connection
// goroutine.
func HandleCrash() {
	if r := recover(); r != nil {
		for _, fn := range PanicHandlers {
			fn(r)
		}
	}
}
