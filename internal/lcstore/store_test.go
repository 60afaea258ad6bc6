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

package lcstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/stopper"
)

// dsn returns the snapshot-store DSN to exercise against, skipping the
// test when unset: lcstore is optional and the suite must pass without
// a postgres instance available.
func dsn(t *testing.T) string {
	t.Helper()
	v := os.Getenv("LCSCHED_TEST_DSN")
	if v == "" {
		t.Skip("LCSCHED_TEST_DSN not set; skipping snapshot store test")
	}
	return v
}

func TestReplaceMirrorsCommittedState(t *testing.T) {
	d := dsn(t)
	ctx := context.Background()
	sc := stopper.WithContext(ctx)
	defer func() { _ = sc.Stop(0) }()

	store, err := Open(ctx, sc, d)
	require.NoError(t, err)

	obj := lcobject.New("cn=alice,dc=example")
	obj.BeginTxn()
	obj.StageAdd("x . go@0")
	obj.CommitTxn()

	err = store.Replace(ctx, "env1", map[string]*lcobject.Object{obj.DN(): obj})
	require.NoError(t, err)

	var count int
	row := store.pool.QueryRow(ctx, "SELECT count(*) FROM lcsched_snapshot WHERE environment = $1", "env1")
	require.NoError(t, row.Scan(&count))
	require.Equal(t, 1, count)
}
