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
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcenv"
	"github.com/orvelte/lcsched/internal/lcstore"
	"github.com/orvelte/lcsched/internal/stopper"
)

func TestWorkerFiresDueAttributeProgramAndStops(t *testing.T) {
	collector := &handler.Collector{}
	env := lcenv.New("env1", map[string]handler.Handler{"x": collector})

	env.Lock()
	obj := env.GetOrCreateObject("cn=alice,dc=example")
	obj.BeginTxn()
	obj.StageAdd(fmt.Sprintf("x . go@%d", time.Now().Add(-time.Second).Unix()))
	obj.CommitTxn()
	env.Unlock()

	w := NewWorker(env, Backoff{Base: 20 * time.Millisecond, CapExponent: 6}, nil)

	sc := stopper.WithContext(context.Background())
	sc.Go(func() error { return w.Run(sc) })

	require.Eventually(t, func() bool {
		return len(collector.Snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	firings := collector.Snapshot()
	assert.Equal(t, "cn=alice,dc=example", firings[0].DN)

	env.Shutdown()
	assert.NoError(t, sc.Stop(time.Second))
}

// TestWorkerMirrorsCommittedStateToStore exercises the worker's
// snapshot-store wiring end to end: a configured Store must actually
// receive the committed state of each pass, not just sit unused on the
// Worker. Skips without a real postgres instance, same as lcstore's own
// suite.
func TestWorkerMirrorsCommittedStateToStore(t *testing.T) {
	d := os.Getenv("LCSCHED_TEST_DSN")
	if d == "" {
		t.Skip("LCSCHED_TEST_DSN not set; skipping snapshot store test")
	}

	collector := &handler.Collector{}
	env := lcenv.New("env1", map[string]handler.Handler{"x": collector})

	env.Lock()
	obj := env.GetOrCreateObject("cn=carol,dc=example")
	obj.BeginTxn()
	obj.StageAdd(fmt.Sprintf("x . go@%d", time.Now().Add(time.Hour).Unix()))
	obj.CommitTxn()
	env.Unlock()

	sc := stopper.WithContext(context.Background())
	store, err := lcstore.Open(context.Background(), sc, d)
	require.NoError(t, err)

	w := NewWorker(env, Backoff{Base: 20 * time.Millisecond, CapExponent: 6}, store)
	sc.Go(func() error { return w.Run(sc) })

	require.Eventually(t, func() bool {
		row := store.Pool().QueryRow(context.Background(),
			"SELECT count(*) FROM lcsched_snapshot WHERE environment = $1 AND dn = $2", "env1", "cn=carol,dc=example")
		var count int
		if err := row.Scan(&count); err != nil {
			return false
		}
		return count == 1
	}, time.Second, 10*time.Millisecond)

	env.Shutdown()
	assert.NoError(t, sc.Stop(time.Second))
}

func TestWorkerWakesOnCommitSignal(t *testing.T) {
	collector := &handler.Collector{}
	env := lcenv.New("env1", map[string]handler.Handler{"x": collector})

	w := NewWorker(env, Backoff{Base: 20 * time.Millisecond, CapExponent: 6}, nil)
	sc := stopper.WithContext(context.Background())
	sc.Go(func() error { return w.Run(sc) })

	// Give the worker a chance to reach its first wait with nothing
	// scheduled (no deadline, blocked purely on Wake).
	time.Sleep(20 * time.Millisecond)

	env.Lock()
	obj := env.GetOrCreateObject("cn=bob,dc=example")
	obj.BeginTxn()
	obj.StageAdd(fmt.Sprintf("x . go@%d", time.Now().Add(-time.Second).Unix()))
	obj.CommitTxn()
	env.Signal()
	env.Unlock()

	require.Eventually(t, func() bool {
		return len(collector.Snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	env.Shutdown()
	assert.NoError(t, sc.Stop(time.Second))
}
