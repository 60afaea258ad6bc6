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

// Package metrics holds the process-wide prometheus collectors shared
// across environments: transaction outcomes, firing counts, and pass
// latency. Labeled by environment name the way the teacher labels
// staging metrics by table.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets mirrors the teacher's staging-layer bucket set: fine
// enough near the low end (where most passes land) while still
// covering a slow outlier pass.
var LatencyBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// EnvLabels is the single-label convention every environment-scoped
// metric below uses.
var EnvLabels = []string{"environment"}

var (
	// CommitCount counts successful commits per environment.
	CommitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcsched_commit_total",
		Help: "the number of transactions successfully committed",
	}, EnvLabels)
	// AbortCount counts transactions that ended aborted (malformed
	// input, duplicate add, missing delete target, or propagated via
	// collaborate) per environment.
	AbortCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcsched_abort_total",
		Help: "the number of transactions that ended aborted",
	}, EnvLabels)

	// FireCount counts individual attribute-program firings dispatched
	// to a handler.
	FireCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcsched_fire_total",
		Help: "the number of attribute-program firings dispatched to a handler",
	}, EnvLabels)
	// FireMissingHandlerCount counts due attribute-programs whose
	// program name had no registered handler.
	FireMissingHandlerCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcsched_fire_missing_handler_total",
		Help: "the number of due attribute-programs skipped for lack of a matching handler",
	}, EnvLabels)
	// FireWriteErrors counts handler writes that returned an error.
	FireWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lcsched_fire_write_errors_total",
		Help: "the number of handler writes that returned an error",
	}, EnvLabels)

	// PassDurations records the wall-clock length of one worker pass
	// (advance + sort + fire).
	PassDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lcsched_pass_duration_seconds",
		Help:    "the length of time a worker pass (advance, sort, fire) took",
		Buckets: LatencyBuckets,
	}, EnvLabels)
)

// ObservePass records the duration of one worker pass for environment.
func ObservePass(environment string, d time.Duration) {
	PassDurations.WithLabelValues(environment).Observe(d.Seconds())
}
