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

// Package lcsched computes attribute-program fire times, keeps a
// partially-sorted view of an environment's objects so the soonest-due
// one always leads, and runs the per-environment worker that advances,
// fires, and waits.
package lcsched

import (
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/lcvalue"
	"github.com/orvelte/lcsched/internal/metrics"
)

// Backoff controls how fast a due-but-unadvanced attribute-program's
// offered fire time is pushed forward on each repeated firing, so the
// worker stops re-selecting it every pass while its directory
// round-trip is still pending. This resolves the "design hook" spec.md
// §4.8.3/§9 leaves to the implementer.
type Backoff struct {
	Base        time.Duration
	CapExponent uint32
}

// DefaultBackoff is the documented default: 1s doubling up to a ~64s
// ceiling (2^6 == 64).
var DefaultBackoff = Backoff{Base: time.Second, CapExponent: 6}

// Queue is the partially-sorted object view of spec.md §4.6: prefix is
// kept sorted ascending by EarliestNextFire, tail is unordered. Unlike
// the spec's one-at-a-time splice-on-use, accepted tail objects are
// batched and the prefix is rebuilt with one stable sort per pass; the
// end-of-pass invariant (sorted prefix, arbitrary tail, window-gated
// acceptance) is identical, it is just computed without hand-rolled
// slice surgery on every accepted object.
type Queue struct {
	env string

	prefix []*lcobject.Object
	tail   []*lcobject.Object
}

// NewQueue returns an empty Queue for the named environment, used only
// to label the metrics it reports.
func NewQueue(env string) *Queue { return &Queue{env: env} }

// Add admits a newly-created object into the tail.
func (q *Queue) Add(o *lcobject.Object) { q.tail = append(q.tail, o) }

// Remove drops o from whichever region holds it. A no-op if absent.
func (q *Queue) Remove(o *lcobject.Object) {
	if removeObject(&q.prefix, o) {
		return
	}
	removeObject(&q.tail, o)
}

func removeObject(list *[]*lcobject.Object, o *lcobject.Object) bool {
	for i, x := range *list {
		if x == o {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// Head returns the soonest-due object and true, or nil, false if the
// prefix is empty (nothing currently scheduled).
func (q *Queue) Head() (*lcobject.Object, bool) {
	if len(q.prefix) == 0 {
		return nil, false
	}
	return q.prefix[0], true
}

// sortPass implements spec.md §4.6 steps 1-2: walk the tail once,
// refreshing dirty fire times and classifying each object relative to
// now and the narrowing window, then splice every accepted object into
// the sorted prefix. It returns the final window, used by the caller to
// decide whether firing overran it (step 4).
func (q *Queue) sortPass(now time.Time) time.Duration {
	window := time.Duration(math.MaxInt64)
	var used, kept []*lcobject.Object

	for _, o := range q.tail {
		if o.Dirty() {
			o.Recompute(now)
		}
		fire := o.EarliestNextFire()
		delta := fire.Sub(now)

		switch {
		case !fire.After(now):
			used = append(used, o)
		case delta <= window:
			used = append(used, o)
			if delta < window/2 {
				window = 2 * delta
			}
		default:
			kept = append(kept, o)
		}
	}

	q.tail = kept
	if len(used) > 0 {
		q.prefix = append(q.prefix, used...)
		sort.SliceStable(q.prefix, func(i, j int) bool {
			return q.prefix[i].EarliestNextFire().Before(q.prefix[j].EarliestNextFire())
		})
	}
	return window
}

// fireDuePrefix implements spec.md §4.6 step 3 / §4.8.3: while the
// prefix head's fire time is due, fire it and either re-splice it (if
// firing pushed its fire time forward, e.g. via backoff) or leave it at
// the head for the next iteration.
func (q *Queue) fireDuePrefix(now time.Time, handlers map[string]handler.Handler, b Backoff) {
	for len(q.prefix) > 0 {
		head := q.prefix[0]
		if head.Dirty() {
			head.Recompute(now)
		}
		target := head.EarliestNextFire()
		if target.After(now) {
			return
		}

		fireDueTimers(q.env, head, now, target, handlers, b)

		head.Recompute(now)
		if !head.EarliestNextFire().After(now) {
			// Still due (shouldn't happen with Base > 0, but firing
			// again next iteration matches "advance only when no more
			// of its APs want to fire now").
			continue
		}
		q.prefix = q.prefix[1:]
		ins := sort.Search(len(q.prefix), func(i int) bool {
			return q.prefix[i].EarliestNextFire().After(head.EarliestNextFire())
		})
		q.prefix = append(q.prefix, nil)
		copy(q.prefix[ins+1:], q.prefix[ins:])
		q.prefix[ins] = head
	}
}

// fireDueTimers implements spec.md §4.8.3 for a single object: every
// committed timer-kind AP whose fire time is at or before target is
// due; each is written to its named handler (or skipped, logged, if
// none matches) and backed off so the next pass does not immediately
// re-select it.
func fireDueTimers(env string, obj *lcobject.Object, now, target time.Time, handlers map[string]handler.Handler, b Backoff) {
	fired := 0
	for _, ap := range obj.Committed() {
		if ap.Kind() != lcvalue.KindTimer || ap.FireTime().After(target) {
			continue
		}
		h, ok := handlers[ap.Name()]
		if !ok {
			metrics.FireMissingHandlerCount.WithLabelValues(env).Inc()
			log.WithFields(log.Fields{"dn": obj.DN(), "name": ap.Name()}).
				Warn("no handler registered for attribute-program name; skipping firing")
		} else if err := h.Write(obj.DN(), ap.Text()); err != nil {
			metrics.FireWriteErrors.WithLabelValues(env).Inc()
			log.WithError(err).WithFields(log.Fields{"dn": obj.DN(), "name": ap.Name()}).
				Warn("handler write failed; continuing pass")
		} else {
			metrics.FireCount.WithLabelValues(env).Inc()
		}
		ap.Backoff(now, b.Base, b.CapExponent)
		fired++
	}
	if fired == 0 {
		log.WithField("dn", obj.DN()).Warn("fire-due-timers invoked on an object with no due attribute-program")
	}
}

// Pass runs one full §4.6 sort-and-fire cycle, restarting from step 1
// whenever firing takes longer than the window it was computed under
// (step 4: "partial-sort invalidated").
func (q *Queue) Pass(nowFn func() time.Time, handlers map[string]handler.Handler, b Backoff) {
	start := nowFn()
	defer func() { metrics.ObservePass(q.env, nowFn().Sub(start)) }()

	for {
		now := nowFn()
		window := q.sortPass(now)

		fireStart := nowFn()
		q.fireDuePrefix(fireStart, handlers, b)
		elapsed := nowFn().Sub(fireStart)

		if elapsed <= window {
			return
		}
	}
}
