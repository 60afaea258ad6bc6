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

// Package lcenv models one backend environment: a DN-indexed object
// table, a handler table, the ABORTED/SERVICED flags, and the
// synchronization primitives shared by the transaction side and the
// service worker.
package lcenv

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/notify"
)

var idSeq uint64

// Environment is one backend instance. All mutation of its object
// table, staging regions, and flags happens with mu held: the
// transaction side holds it from Open through Commit/Rollback; the
// worker holds it for the duration of one pass, per §5.
type Environment struct {
	// Name identifies the environment (the first `open` argument).
	Name string

	id uint64

	mu sync.Mutex

	// Wake is bumped (under mu) whenever the worker should re-examine
	// its state: after a commit, after a shutdown request. The worker
	// waits on the channel Wake.Get returns rather than blocking on a
	// sync.Cond, so it can multiplex that wakeup against a fire-time
	// deadline with a plain select -- the same shape the teacher's
	// resolver uses to wait for either a mark or a timeout.
	Wake *notify.Var[uint64]

	aborted  bool
	serviced bool

	// Cycle is the intrusive next-pointer forming the transaction
	// cycle this environment belongs to. Nil when no transaction is
	// active on it. It is only ever walked or mutated while every
	// member environment's mu is held (the transaction side's
	// responsibility, never the worker's).
	Cycle *Environment

	objects map[string]*lcobject.Object

	// New and Removed record object-table churn since the scheduler
	// last drained them, so its partially-sorted view can stay in sync
	// without rescanning the whole table every pass.
	New     []*lcobject.Object
	Removed []*lcobject.Object

	Handlers map[string]handler.Handler
}

// New constructs an Environment. Handlers must be non-empty per §6; it
// is the caller's responsibility (internal/lcsched.Open) to have
// already validated and built the handler table.
func New(name string, handlers map[string]handler.Handler) *Environment {
	e := &Environment{
		Name:     name,
		id:       atomic.AddUint64(&idSeq, 1),
		serviced: true,
		objects:  make(map[string]*lcobject.Object),
		Handlers: handlers,
		Wake:     notify.New(uint64(0)),
	}
	return e
}

// ID is a stable, monotonically-assigned surrogate for "address order",
// used to pick a deterministic lock-acquisition order in Collaborate.
func (e *Environment) ID() uint64 { return e.id }

// Lock and Unlock expose the environment mutex directly: the
// transaction engine holds it across a whole Open..Commit/Rollback
// sequence, and the worker holds it for one pass, per §5.
func (e *Environment) Lock()   { e.mu.Lock() }
func (e *Environment) Unlock() { e.mu.Unlock() }

// Aborted reports the ABORTED flag. Caller must hold the lock.
func (e *Environment) Aborted() bool { return e.aborted }

// SetAborted sets or clears the ABORTED flag. Caller must hold the lock.
func (e *Environment) SetAborted(v bool) { e.aborted = v }

// Serviced reports the SERVICED flag the worker loops on. Caller must
// hold the lock.
func (e *Environment) Serviced() bool { return e.serviced }

// SetServiced sets or clears the SERVICED flag. Caller must hold the
// lock; see Shutdown for the full stop protocol, which additionally
// wakes the worker.
func (e *Environment) SetServiced(v bool) { e.serviced = v }

// Signal wakes any worker blocked on Wake, e.g. after a commit has
// installed new staged state. Caller must hold the lock.
func (e *Environment) Signal() {
	rev, _ := e.Wake.Get()
	e.Wake.Set(rev + 1)
}

// Shutdown implements the §4.8.1 stop protocol: acquire the mutex,
// clear SERVICED, signal, release the mutex. It does not wait for the
// worker goroutine to exit; the caller does that separately (e.g. via
// a stopper.Context).
func (e *Environment) Shutdown() {
	e.Lock()
	defer e.Unlock()
	e.serviced = false
	e.Signal()
}

// GetObject looks up an object by DN. Caller must hold the lock.
func (e *Environment) GetObject(dn string) (*lcobject.Object, bool) {
	o, ok := e.objects[dn]
	return o, ok
}

// GetOrCreateObject returns the object for dn, creating and recording
// it as new (for the scheduler to pick up) if absent. Caller must hold
// the lock.
func (e *Environment) GetOrCreateObject(dn string) *lcobject.Object {
	if o, ok := e.objects[dn]; ok {
		return o
	}
	o := lcobject.New(dn)
	e.objects[dn] = o
	e.New = append(e.New, o)
	return o
}

// RemoveObject unlinks dn from the table (used when a commit leaves an
// object empty) and records it for the scheduler to drop from its
// sorted view. Caller must hold the lock.
func (e *Environment) RemoveObject(dn string) {
	o, ok := e.objects[dn]
	if !ok {
		return
	}
	delete(e.objects, dn)
	e.Removed = append(e.Removed, o)
}

// DrainChurn returns and clears the New/Removed slices, for the
// scheduler to fold into its partially-sorted view. Caller must hold
// the lock.
func (e *Environment) DrainChurn() (added []*lcobject.Object, removed []*lcobject.Object) {
	added, e.New = e.New, nil
	removed, e.Removed = e.Removed, nil
	return added, removed
}

// RangeObjects calls fn once for every object currently in the table,
// in an unspecified order. fn may call RemoveObject on the DN it was
// given; it must not call GetOrCreateObject. Caller must hold the lock.
func (e *Environment) RangeObjects(fn func(dn string, o *lcobject.Object)) {
	dns := make([]string, 0, len(e.objects))
	for dn := range e.objects {
		dns = append(dns, dn)
	}
	for _, dn := range dns {
		if o, ok := e.objects[dn]; ok {
			fn(dn, o)
		}
	}
}

// Diagnostic implements diag.Diagnostic: an environment is healthy as
// long as it is still serviced, i.e. the worker has not been asked to
// shut down.
func (e *Environment) Diagnostic(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.serviced {
		return errors.Errorf("environment %q is shutting down", e.Name)
	}
	return nil
}
