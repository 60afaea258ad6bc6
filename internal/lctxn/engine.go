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

// Package lctxn implements the transactional staging protocol over one
// or more environments: Open/Add/Delete/Reset/Prepare/Commit/Rollback,
// plus Collaborate for splicing two transactions into one commit/abort
// cycle. Every exported function here assumes a single feeder goroutine
// drives a given environment's transaction at a time, matching the
// single transaction-side caller the environment mutex is built around;
// concurrent transaction-side callers on the same environment are not
// supported, same as the worker side is the only other lock holder.
package lctxn

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lcenv"
	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/lcvalue"
	"github.com/orvelte/lcsched/internal/metrics"
)

// Open begins a transaction on env: it locks the environment, seeds
// every existing object's staging regions, and makes env its own
// one-member cycle. It reports false if env was already active or
// aborted (the caller is expected to Commit or Rollback first).
func Open(env *lcenv.Environment) bool {
	if env.Cycle != nil || env.Aborted() {
		return false
	}
	env.Lock()
	env.Cycle = env
	env.RangeObjects(func(_ string, o *lcobject.Object) { o.BeginTxn() })
	return true
}

// OpenMany opens transactions on every one of envs, always locking in
// ascending Environment.ID order regardless of the order envs is given
// in. This is the deadlock-avoidance discipline the design note asks
// for: a feeder that is about to Collaborate two or more environments
// together should open them with OpenMany rather than individual Open
// calls in caller-chosen order, so that no two feeder goroutines can
// ever lock the same pair of environments in opposite orders.
func OpenMany(envs ...*lcenv.Environment) bool {
	ordered := append([]*lcenv.Environment(nil), envs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID() < ordered[j].ID() })
	opened := make([]*lcenv.Environment, 0, len(ordered))
	for _, e := range ordered {
		if !Open(e) {
			for _, done := range opened {
				Rollback(done)
			}
			return false
		}
		opened = append(opened, e)
	}
	return true
}

func abortCycle(env *lcenv.Environment) {
	walkCycle(env, func(e *lcenv.Environment) {
		e.RangeObjects(func(dn string, o *lcobject.Object) {
			o.RollbackTxn()
			if o.Empty() {
				e.RemoveObject(dn)
			}
		})
		e.Cycle = nil
		e.SetAborted(true)
		metrics.AbortCount.WithLabelValues(e.Name).Inc()
		e.Unlock()
	})
}

// walkCycle visits every environment in the cycle env belongs to
// exactly once, starting at env. visit may mutate e.Cycle (e.g. to
// nil it out), so the next link is captured before visit runs.
func walkCycle(env *lcenv.Environment, visit func(e *lcenv.Environment)) {
	cur := env
	for {
		next := cur.Cycle
		visit(cur)
		if next == nil || next == env {
			return
		}
		cur = next
	}
}

func decodeAndValidate(dnRaw, attrRaw []byte, validateAttr func(string) error) (dn, attr string, err error) {
	dn, err = lcvalue.DecodeString(dnRaw)
	if err != nil {
		return "", "", err
	}
	if err = lcvalue.ValidateDN(dn); err != nil {
		return "", "", err
	}
	attr, err = lcvalue.DecodeString(attrRaw)
	if err != nil {
		return "", "", err
	}
	if err = validateAttr(attr); err != nil {
		return "", "", err
	}
	return dn, attr, nil
}

// Add stages a new attribute-program add for dn within env's current
// transaction, opening one implicitly if env was inactive. It reports
// false, aborting the whole cycle, on malformed input or a duplicate
// (by exact text) attribute-program; per property 2, every later
// add/delete/reset on the cycle then short-circuits until Commit or
// Rollback.
func Add(env *lcenv.Environment, dnRaw, attrRaw []byte) bool {
	if env.Aborted() {
		return false
	}
	if env.Cycle == nil {
		Open(env)
	}

	dn, attr, err := decodeAndValidate(dnRaw, attrRaw, lcvalue.ValidateAttribute)
	if err != nil {
		log.WithError(err).Warn("add: malformed dn or attribute; aborting transaction")
		abortCycle(env)
		return false
	}

	obj := env.GetOrCreateObject(dn)
	if _, dup := obj.FindInToAdd(attr); dup {
		log.WithFields(log.Fields{"dn": dn, "attribute": attr}).Warn("add: duplicate attribute-program; aborting transaction")
		abortCycle(env)
		return false
	}
	obj.StageAdd(attr)
	return true
}

// Delete stages the removal of the attribute-program with the given
// exact text from dn, opening a transaction implicitly if needed. It
// reports false, aborting the cycle, if the object or the exact
// attribute-program text is not currently visible.
func Delete(env *lcenv.Environment, dnRaw, attrRaw []byte) bool {
	if env.Aborted() {
		return false
	}
	if env.Cycle == nil {
		Open(env)
	}

	dn, attr, err := decodeAndValidate(dnRaw, attrRaw, lcvalue.ValidateAttribute)
	if err != nil {
		log.WithError(err).Warn("delete: malformed dn or attribute; aborting transaction")
		abortCycle(env)
		return false
	}

	obj, ok := env.GetObject(dn)
	if !ok {
		log.WithField("dn", dn).Warn("delete: no such object; aborting transaction")
		abortCycle(env)
		return false
	}
	if !obj.StageDelete(attr) {
		log.WithFields(log.Fields{"dn": dn, "attribute": attr}).Warn("delete: no matching attribute-program; aborting transaction")
		abortCycle(env)
		return false
	}
	return true
}

// Reset marks every attribute-program currently visible on every object
// of env for deletion, so that a Commit leaves env's object table
// empty. It requires an active, non-aborted transaction.
func Reset(env *lcenv.Environment) bool {
	if env.Aborted() {
		return false
	}
	if env.Cycle == nil {
		return false
	}
	env.RangeObjects(func(_ string, o *lcobject.Object) { o.ResetTxn() })
	return true
}

// Prepare reports whether env's transaction is still viable, i.e. not
// aborted. It never alters state.
func Prepare(env *lcenv.Environment) bool {
	return !env.Aborted()
}

// Commit finalizes env's transaction cycle. If env was aborted it
// simply clears the flag and reports failure: the cycle was already
// unwound at the moment of the abort. Otherwise it walks the cycle,
// installing every member's staged changes, reaping any object left
// empty, waking its worker, and releasing its mutex.
func Commit(env *lcenv.Environment) bool {
	if env.Aborted() {
		env.SetAborted(false)
		return false
	}
	if env.Cycle == nil {
		return true
	}
	walkCycle(env, func(e *lcenv.Environment) {
		e.RangeObjects(func(dn string, o *lcobject.Object) {
			o.CommitTxn()
			if o.Empty() {
				e.RemoveObject(dn)
			}
		})
		e.Cycle = nil
		metrics.CommitCount.WithLabelValues(e.Name).Inc()
		e.Signal()
		e.Unlock()
	})
	return true
}

// Rollback discards env's transaction cycle. If env was already
// aborted this just clears the flag (the unwind already happened).
// Otherwise it walks the cycle, restoring every member's objects to
// their pre-transaction state and releasing its mutex.
func Rollback(env *lcenv.Environment) {
	if env.Aborted() {
		env.SetAborted(false)
		return
	}
	if env.Cycle == nil {
		return
	}
	walkCycle(env, func(e *lcenv.Environment) {
		e.RangeObjects(func(dn string, o *lcobject.Object) {
			o.RollbackTxn()
			if o.Empty() {
				e.RemoveObject(dn)
			}
		})
		e.Cycle = nil
		e.SetAborted(false)
		e.Unlock()
	})
}

// Collaborate merges env1's and env2's transaction cycles into one, so
// that a later Commit or Rollback on either applies to both (and every
// other environment already sharing either cycle). The caller must
// already hold an open transaction on both (via Open or OpenMany) --
// Collaborate itself never locks.
//
// If either side is already aborted, the other is aborted too (or, if
// both already are, nothing happens); this is how an abort on one leg
// of a multi-environment transaction propagates to its collaborators.
// Otherwise the two cycles are spliced into one by exchanging the link
// immediately following each given environment.
func Collaborate(env1, env2 *lcenv.Environment) bool {
	a1, a2 := env1.Aborted(), env2.Aborted()
	switch {
	case a1 && a2:
		return true
	case a1:
		abortCycle(env2)
		return true
	case a2:
		abortCycle(env1)
		return true
	}

	one1 := env1.Cycle
	one2 := env2.Cycle
	env1.Cycle = one2
	env2.Cycle = one1
	return true
}
