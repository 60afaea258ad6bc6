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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lcadvance"
	"github.com/orvelte/lcsched/internal/lcenv"
	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/lcstore"
)

// Worker is the §4.8 per-environment cooperative loop: advance, sort
// and fire, then wait for either a commit signal or the head object's
// fire time deadline.
type Worker struct {
	env   *lcenv.Environment
	queue *Queue
	cfg   Backoff

	// store mirrors committed state after every pass when configured;
	// nil when the deployment never set --storeDSN, in which case Run
	// skips the mirror write entirely.
	store *lcstore.Store

	// now is overridable by tests; production code leaves it nil and
	// Run falls back to time.Now.
	now func() time.Time
}

// NewWorker returns a Worker for env using cfg as its back-off
// parameters. store may be nil, in which case the worker never mirrors
// committed state anywhere.
func NewWorker(env *lcenv.Environment, cfg Backoff, store *lcstore.Store) *Worker {
	return &Worker{env: env, queue: NewQueue(env.Name), cfg: cfg, store: store}
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// Run executes the worker loop until the environment's SERVICED flag
// is cleared or ctx is done. It is meant to be launched with
// stopper.Context.Go.
func (w *Worker) Run(ctx context.Context) error {
	env := w.env
	env.Lock()
	for {
		if !env.Serviced() {
			env.Unlock()
			return nil
		}

		w.syncChurn()

		snapshot := make(map[string]*lcobject.Object)
		env.RangeObjects(func(dn string, o *lcobject.Object) {
			lcadvance.AdvanceObject(o, o.Committed())
			snapshot[dn] = o
		})

		w.queue.Pass(w.clock, env.Handlers, w.cfg)

		_, woken := env.Wake.Get()
		var deadline time.Duration
		haveDeadline := false
		if head, ok := w.queue.Head(); ok {
			if head.Dirty() {
				head.Recompute(w.clock())
			}
			deadline = head.EarliestNextFire().Sub(w.clock())
			haveDeadline = true
		}
		env.Unlock()

		w.mirror(ctx, snapshot)

		if err := w.wait(ctx, woken, deadline, haveDeadline); err != nil {
			return err
		}

		env.Lock()
	}
}

func (w *Worker) wait(ctx context.Context, woken <-chan struct{}, deadline time.Duration, haveDeadline bool) error {
	if haveDeadline && deadline <= 0 {
		return nil
	}
	if !haveDeadline {
		select {
		case <-woken:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-woken:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// mirror writes snapshot to the configured Store, if any. It runs
// outside the environment lock: a slow or failing write must not stall
// the next pass. Errors are logged and otherwise ignored, matching
// Store's own best-effort contract.
func (w *Worker) mirror(ctx context.Context, snapshot map[string]*lcobject.Object) {
	if w.store == nil {
		return
	}
	if err := w.store.Replace(ctx, w.env.Name, snapshot); err != nil {
		log.WithError(err).WithField("env", w.env.Name).Warn("could not mirror committed state to snapshot store")
	}
}

// syncChurn folds object-table churn recorded since the last pass into
// the queue, so newly-added objects are scheduled and removed ones drop
// out without a full table rescan.
func (w *Worker) syncChurn() {
	added, removed := w.env.DrainChurn()
	for _, o := range added {
		w.queue.Add(o)
	}
	for _, o := range removed {
		w.queue.Remove(o)
		log.WithField("dn", o.DN()).Debug("object reaped; dropped from scheduler queue")
	}
}
