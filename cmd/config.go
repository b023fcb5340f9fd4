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

// Package cmd implements the rkit-cli command tree: a small example
// program demonstrating the façades in client against a YAML-configured
// deployment (single, cluster, or subscriber).
package cmd

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/packetd/rkit/confengine"
)

// fileConfig mirrors the shape of rkit.yaml; it is unpacked by ucfg
// straight from the confengine.Config tree, and its mapstructure tags
// are used by decodeOverrides when CLI flag overrides are merged on top.
type fileConfig struct {
	Mode     string   `mapstructure:"mode"`
	Addr     string   `mapstructure:"addr"`
	Seeds    []string `mapstructure:"seeds"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
	Timeout  string   `mapstructure:"timeout"`
}

func (c fileConfig) connectTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func loadFileConfig(path string) (fileConfig, error) {
	raw, err := confengine.LoadConfigPath(path)
	if err != nil {
		return fileConfig{}, err
	}

	var cfg fileConfig
	if err := raw.Unpack(&cfg); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

// decodeOverrides merges CLI flag overrides (as an untyped map, the
// common.Options idiom) onto a decoded fileConfig using mapstructure,
// so a flag always wins over the file value when both are set.
func decodeOverrides(cfg *fileConfig, overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(overrides)
}
