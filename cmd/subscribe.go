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

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/rkit/conn"
	"github.com/packetd/rkit/internal/sigs"
	"github.com/packetd/rkit/rlog"
	"github.com/packetd/rkit/subscriber"
)

var subscribePatterns bool

var subscribeCmd = &cobra.Command{
	Use:     "subscribe CHANNEL [CHANNEL ...]",
	Short:   "Join one or more channels and print messages until interrupted",
	Args:    cobra.MinimumNArgs(1),
	Example: "# rkit-cli subscribe --config rkit.yaml news.*  --pattern",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadFileConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if err := runSubscribe(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "subscribe failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	subscribeCmd.Flags().BoolVar(&subscribePatterns, "pattern", false, "treat the given channels as glob patterns (PSUBSCRIBE)")
	rootCmd.AddCommand(subscribeCmd)
}

type printCallback struct{}

func (printCallback) OnMessage(channel, payload string) {
	fmt.Printf("message  %s: %s\n", channel, payload)
}

func (printCallback) OnPMessage(pattern, channel, payload string) {
	fmt.Printf("pmessage %s (%s): %s\n", channel, pattern, payload)
}

func (printCallback) OnMeta(kind subscriber.MetaKind, channel string, count int64) {
	fmt.Printf("%s %s (now joined to %d)\n", kind, channel, count)
}

// runSubscribe connects a dedicated Subscriber, joins the requested
// channels, and blocks until a termination signal arrives. Grounded on
// the teacher's agent run loop: block on the terminate signal channel,
// then tear everything down in reverse order.
func runSubscribe(cfg fileConfig, channels []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.connectTimeoutOrDefault())
	defer cancel()

	sub := subscriber.New(cfg.Addr, conn.Options{Password: cfg.Password, DB: cfg.DB}, printCallback{})
	if err := sub.Connect(ctx); err != nil {
		return err
	}
	defer sub.Close()

	var joinErr error
	if subscribePatterns {
		joinErr = sub.PSubscribe(channels...)
	} else {
		joinErr = sub.Subscribe(channels...)
	}
	if joinErr != nil {
		return joinErr
	}

	rlog.Infof("subscribe: joined %d channel(s), waiting for messages", len(channels))

	<-sigs.Terminate()
	rlog.Infof("subscribe: termination signal received, shutting down")
	return nil
}
