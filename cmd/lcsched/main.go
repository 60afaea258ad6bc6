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

// Command lcsched runs a life-cycle event scheduler process: it opens
// the environments named on the command line, each with its own
// handler table and service worker, then reads the demonstration
// ingest protocol (see ingest.go) from standard input until EOF.
//
// This binary's stdin reader is a stand-in transport: the real
// directory-facing ingest protocol is external to this repository, per
// spec.md's non-goals. It exists so internal/lctxn.Engine's boundary
// is runnable and testable end to end.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/orvelte/lcsched/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Error("lcsched exiting with error")
		os.Exit(1)
	}
}

func run() error {
	cfg := &config.Config{}
	flags := pflag.NewFlagSet("lcsched", pflag.ExitOnError)
	cfg.Bind(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if err := cfg.Preflight(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	printStatus(os.Stdout, a, cfg)

	if err := diagnoseAll(ctx, a); err != nil {
		log.WithError(err).Warn("lcsched: an environment failed its startup diagnostic")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.ingest(os.Stdin, os.Stdout)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Info("lcsched: shutdown signal received, draining workers")
	}

	if err := a.sc.Stop(5 * time.Second); err != nil {
		log.WithError(err).Warn("lcsched: worker shutdown reported an error")
	}
	return nil
}
