// Copyright 2024 The LC Sched Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package config holds the user-visible, pflag-bound configuration for
// a running lcsched process: which environments to open, which
// handlers back each one, the back-off schedule, and the optional
// snapshot store.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcsched"
)

// EnvConfig is one `--environment` declaration: a name and the ordered
// `name=command` handler specs that back it.
type EnvConfig struct {
	Name     string
	Handlers []handler.Spec
}

// Config is the top-level process configuration.
type Config struct {
	Environments []EnvConfig

	BackoffBase        time.Duration
	BackoffCapExponent uint32

	StoreDSN string

	environmentFlags []string
}

// Bind registers every flag this config understands. Repeatable flags
// follow the teacher's convention of a pflag.StringArray collected
// into a slice and parsed during Preflight, once all flags are known.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringArrayVar(
		&c.environmentFlags,
		"environment",
		nil,
		"an environment declaration: name:handler1=cmd1,handler2=cmd2 (repeatable)")
	flags.DurationVar(
		&c.BackoffBase,
		"backoffBase",
		lcsched.DefaultBackoff.Base,
		"the base delay added to a due attribute-program's offered fire time each time it is found still due")
	flags.Uint32Var(
		&c.BackoffCapExponent,
		"backoffCapExponent",
		lcsched.DefaultBackoff.CapExponent,
		"the miss count at which the back-off delay stops doubling")
	flags.StringVar(
		&c.StoreDSN,
		"storeDSN",
		"",
		"optional postgres DSN for the read-only snapshot store; snapshotting is disabled if unset")
}

// Preflight parses the repeated --environment flags and validates the
// result. It must be called once, after flags have been parsed.
func (c *Config) Preflight() error {
	if len(c.environmentFlags) == 0 {
		return errors.New("at least one --environment is required")
	}

	seen := make(map[string]bool, len(c.environmentFlags))
	for _, raw := range c.environmentFlags {
		ec, err := parseEnvConfig(raw)
		if err != nil {
			return errors.Wrapf(err, "parsing --environment %q", raw)
		}
		if seen[ec.Name] {
			return errors.Errorf("duplicate environment name %q", ec.Name)
		}
		seen[ec.Name] = true
		c.Environments = append(c.Environments, ec)
	}

	if c.BackoffBase <= 0 {
		return errors.New("backoffBase must be positive")
	}

	return nil
}

// Backoff returns the lcsched.Backoff this config describes.
func (c *Config) Backoff() lcsched.Backoff {
	return lcsched.Backoff{Base: c.BackoffBase, CapExponent: c.BackoffCapExponent}
}

func parseEnvConfig(raw string) (EnvConfig, error) {
	name, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return EnvConfig{}, errors.New("missing ':' separating environment name from handler specs")
	}
	if name == "" {
		return EnvConfig{}, errors.New("environment name is empty")
	}

	parts := strings.Split(rest, ",")
	specs := make([]handler.Spec, 0, len(parts))
	for _, p := range parts {
		spec, err := handler.ParseSpec(p)
		if err != nil {
			return EnvConfig{}, err
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return EnvConfig{}, errors.New("environment has no handler specs")
	}

	return EnvConfig{Name: name, Handlers: specs}, nil
}
