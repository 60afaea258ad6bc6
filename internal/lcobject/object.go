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

// Package lcobject aggregates attribute-programs under one
// distinguished name and tracks the three-region (to-add / committed /
// to-del) staging chain a transaction manipulates.
package lcobject

import (
	"time"

	"github.com/orvelte/lcsched/internal/lcattr"
)

// Object is a directory object: a distinguished name plus the set of
// life-cycle attribute-programs staged or committed against it.
type Object struct {
	dn string

	chain *chain

	earliestNextFire time.Time // zero means dirty
	determinedBy     *lcattr.Program
}

// New creates an empty Object for dn.
func New(dn string) *Object {
	return &Object{dn: dn, chain: newChain()}
}

// DN returns the object's distinguished name.
func (o *Object) DN() string { return o.dn }

// MarkDirty implements lcattr.Dirtier. It dirties the object's own
// summary iff ap is the committed AP that currently determines it, or
// the object has no determination yet.
func (o *Object) MarkDirty(ap *lcattr.Program) {
	if o.determinedBy == nil || o.determinedBy == ap {
		o.earliestNextFire = time.Time{}
	}
}

// Dirty reports whether the object's earliest-fire summary needs
// recomputation.
func (o *Object) Dirty() bool { return o.earliestNextFire.IsZero() }

// EarliestNextFire returns the last-computed earliest fire time across
// committed member APs. Call Recompute first if Dirty().
func (o *Object) EarliestNextFire() time.Time { return o.earliestNextFire }

// Recompute implements §4.3: set to Never, iterate every committed AP
// refreshing any dirty fire time in place, then take the minimum. After
// this call no dirty AP remains and earliestNextFire equals the
// minimum (possibly Never).
func (o *Object) Recompute(now time.Time) {
	min := lcattr.Never
	var which *lcattr.Program
	o.chain.rangeCommitted(func(ap *lcattr.Program) {
		ap.Recompute(now)
		if ap.FireTime().Before(min) {
			min = ap.FireTime()
			which = ap
		}
	})
	o.earliestNextFire = min
	o.determinedBy = which
}

// Committed returns the committed APs in chain order (to-add and to-del
// regions excluded). Exposed for advancement and firing.
func (o *Object) Committed() []*lcattr.Program {
	var out []*lcattr.Program
	o.chain.rangeCommitted(func(ap *lcattr.Program) { out = append(out, ap) })
	return out
}

// ByName returns the first committed AP whose program name equals name,
// resolving the "first committed AP of that name" rule used by `?`
// matching.
func (o *Object) ByName(name string) (*lcattr.Program, bool) {
	var found *lcattr.Program
	o.chain.rangeCommitted(func(ap *lcattr.Program) {
		if found == nil && ap.Name() == name {
			found = ap
		}
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// Empty reports whether the object has no committed APs (used to decide
// whether to reap the object once a commit or rollback has folded the
// staging regions away). The to-add and to-del regions are not
// consulted.
func (o *Object) Empty() bool { return o.chain.empty() }

// --- transaction-facing staging operations, used only by internal/lctxn ---

// StageAdd creates a new Program from text and appends it to the
// to-add region, marking the object's earliest-fire summary dirty so
// the new AP is taken into account. It returns the new Program.
func (o *Object) StageAdd(text string) *lcattr.Program {
	ap := lcattr.New(o, text)
	o.chain.appendToAdd(ap)
	o.earliestNextFire = time.Time{}
	return ap
}

// FindInToAdd returns the AP with the given exact text within the
// to-add-prefix-plus-committed region (i.e. everything not yet marked
// for deletion), per the add-duplicate-detection rule.
func (o *Object) FindInToAdd(text string) (*lcattr.Program, bool) {
	return o.chain.findBeforeToDel(text)
}

// StageDelete detaches the AP with the given exact text (searched in
// the to-add-prefix-plus-committed region) and moves it to the to-del
// tail. It reports whether the AP was found.
func (o *Object) StageDelete(text string) bool {
	return o.chain.moveToDel(text)
}

// BeginTxn seeds the staging regions: to-add and to-del start empty
// (lookups search to-add and then the committed region), and the
// committed region is snapshotted so RollbackTxn can restore it.
func (o *Object) BeginTxn() { o.chain.beginTxn() }

// ResetTxn marks every currently-visible AP (committed plus anything
// already staged to-add) for deletion, emptying the object on commit.
func (o *Object) ResetTxn() { o.chain.resetTxn() }

// CommitTxn frees every to-del AP, installs to-add as the new committed
// head, and clears staging pointers.
func (o *Object) CommitTxn() { o.chain.commitTxn() }

// RollbackTxn frees every newly-added AP (the ones added in this
// transaction, i.e. everything from to-add up to the pre-transaction
// committed head) and clears staging pointers.
func (o *Object) RollbackTxn() { o.chain.rollbackTxn() }
