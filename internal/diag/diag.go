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

// Package diag is a liveness-probe registry: components register a
// name and a Diagnostic to report their own health, and anything
// embedding a Diagnostics (e.g. a future /healthz handler) can walk the
// set. This is deliberately not an HTTP server -- wiring one up is
// packaging, a named non-goal -- just the registry the teacher's own
// components (connection pools, statement caches) register against.
package diag

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Diagnostic reports whether a registered component is healthy.
type Diagnostic interface {
	Diagnostic(ctx context.Context) error
}

// Diagnostics is a registry of named Diagnostic probes.
type Diagnostics struct {
	mu    sync.Mutex
	items map[string]Diagnostic
}

// New creates an empty Diagnostics registry; ctx is unused. The returned cleanup
// function clears the registry; it does not stop anything, since
// Diagnostics owns no goroutines of its own.
func New(_ context.Context) (*Diagnostics, func()) {
	d := &Diagnostics{items: make(map[string]Diagnostic)}
	return d, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.items = nil
	}
}

// Register adds a named Diagnostic. It returns an error if the name is
// already registered.
func (d *Diagnostics) Register(name string, diag Diagnostic) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, found := d.items[name]; found {
		return errors.Errorf("diagnostic %q already registered", name)
	}
	d.items[name] = diag
	return nil
}

// Unregister removes a named Diagnostic, if present.
func (d *Diagnostics) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.items, name)
}

// Check runs every registered Diagnostic and returns the first error
// encountered, annotated with the failing component's name.
func (d *Diagnostics) Check(ctx context.Context) error {
	d.mu.Lock()
	items := make(map[string]Diagnostic, len(d.items))
	for k, v := range d.items {
		items[k] = v
	}
	d.mu.Unlock()

	for name, probe := range items {
		if err := probe.Diagnostic(ctx); err != nil {
			return errors.Wrapf(err, "diagnostic %q", name)
		}
	}
	return nil
}
