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

package lcsched

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcenv"
	"github.com/orvelte/lcsched/internal/lcstore"
	"github.com/orvelte/lcsched/internal/stopper"
)

// Open implements spec.md §6's `open` call: it builds one ExecHandler
// per `name=command` declaration, creates the Environment, and spawns
// its service worker under sc. A failure to start any handler is a
// fatal open error: every handler already started is closed and the
// whole attempt is torn down, per §4.4. store may be nil, in which case
// the worker never mirrors committed state anywhere.
func Open(ctx context.Context, sc *stopper.Context, name string, specs []handler.Spec, cfg Backoff, store *lcstore.Store) (*lcenv.Environment, error) {
	if len(specs) < 1 {
		return nil, errors.New("open: at least one handler is required")
	}

	handlers := make(map[string]handler.Handler, len(specs))
	for _, s := range specs {
		h, err := handler.NewExecHandler(ctx, s.Command)
		if err != nil {
			closeAll(handlers)
			return nil, errors.Wrapf(err, "open: starting handler %q", s.Name)
		}
		handlers[s.Name] = h
	}

	env := lcenv.New(name, handlers)
	startWorker(sc, env, cfg, store)
	return env, nil
}

// OpenWithHandlers is the test-facing equivalent of Open: it takes an
// already-built handler table (typically *handler.Collector doubles)
// instead of spawning processes.
func OpenWithHandlers(sc *stopper.Context, name string, handlers map[string]handler.Handler, cfg Backoff, store *lcstore.Store) *lcenv.Environment {
	env := lcenv.New(name, handlers)
	startWorker(sc, env, cfg, store)
	return env
}

func startWorker(sc *stopper.Context, env *lcenv.Environment, cfg Backoff, store *lcstore.Store) {
	w := NewWorker(env, cfg, store)
	sc.Go(func() error { return w.Run(sc) })
}

// Close releases every handler registered on env. Called once, at
// environment close, after the worker has been stopped.
func Close(env *lcenv.Environment) {
	closeAll(env.Handlers)
}

func closeAll(handlers map[string]handler.Handler) {
	for name, h := range handlers {
		if err := h.Close(); err != nil {
			log.WithError(err).WithField("handler", name).Warn("error closing handler")
		}
	}
}
