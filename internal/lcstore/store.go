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

// Package lcstore is an optional, read-only mirror of committed
// attribute-program state, written after each environment pass for
// operational inspection (e.g. a status CLI). It is never on the
// commit-path critical section: a deployment that never configures a
// DSN never constructs a Store, and the in-memory model remains the
// only source of truth, per the "persistent state: none" contract.
package lcstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/stopper"
)

// Snapshot is one committed attribute-program, flattened for storage.
type Snapshot struct {
	Environment string
	DN          string
	Name        string
	Text        string
	FireTime    time.Time
	Missed      uint32
}

// Store mirrors committed object state into a postgres table. Writes
// are best-effort: a failed snapshot write is logged and does not
// affect the scheduler pass that produced it.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the snapshot table exists. The
// returned Store is closed automatically when sc stops, matching the
// teacher's convention of tying pool lifetime to the owning
// stopper.Context rather than requiring an explicit Close call.
func Open(ctx context.Context, sc *stopper.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "could not create snapshot store pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "could not ping snapshot store")
	}

	const schema = `CREATE TABLE IF NOT EXISTS lcsched_snapshot (
		environment TEXT NOT NULL,
		dn TEXT NOT NULL,
		name TEXT NOT NULL,
		text TEXT NOT NULL,
		fire_time TIMESTAMPTZ NOT NULL,
		missed INTEGER NOT NULL,
		PRIMARY KEY (environment, dn, text)
	)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "could not create snapshot table")
	}

	sc.Go(func() error {
		<-sc.Stopping()
		pool.Close()
		return nil
	})

	return &Store{pool: pool}, nil
}

// Replace overwrites every row for environment with the current
// committed state of objects. Called once per worker pass when a
// Store is configured; errors are returned to the caller, which logs
// and continues rather than failing the pass.
func (s *Store) Replace(ctx context.Context, environment string, objects map[string]*lcobject.Object) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "could not begin snapshot transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.WithError(err).Warn("could not roll back snapshot transaction")
		}
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM lcsched_snapshot WHERE environment = $1", environment); err != nil {
		return errors.Wrap(err, "could not clear previous snapshot")
	}

	for dn, obj := range objects {
		for _, ap := range obj.Committed() {
			_, err := tx.Exec(ctx,
				`INSERT INTO lcsched_snapshot (environment, dn, name, text, fire_time, missed)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				environment, dn, ap.Name(), ap.Text(), ap.FireTime(), ap.Missed())
			if err != nil {
				return errors.Wrapf(err, "could not insert snapshot row for %q/%q", dn, ap.Name())
			}
		}
	}

	return errors.Wrap(tx.Commit(ctx), "could not commit snapshot transaction")
}

// Pool exposes the underlying connection pool for callers that need to
// query the mirror directly (e.g. an operational status check).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the underlying pool immediately, bypassing the
// stopper-driven cleanup. Nothing in this repository calls it; the
// pool is otherwise closed when the owning stopper.Context stops.
func (s *Store) Close() {
	s.pool.Close()
}
