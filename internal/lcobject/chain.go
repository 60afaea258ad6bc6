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

package lcobject

import "github.com/orvelte/lcsched/internal/lcattr"

// chain implements the three-region (to-add / committed / to-del)
// partition described in the object aggregate's design note, as three
// ordered slices rather than an intrusive pointer list: insertion order
// is what the spec's "first AP of a given name" rule needs, and a slice
// gives that for free without hand-rolled node bookkeeping. Outside of
// a transaction only committed is non-empty; toAdd/toDel/original are
// nil.
type chain struct {
	committed []*lcattr.Program // the live, currently-visible committed region
	toAdd     []*lcattr.Program // newly staged APs, insertion order
	toDel     []*lcattr.Program // APs detached this transaction, pending free

	original []*lcattr.Program // snapshot of committed at BeginTxn, for rollback
}

func newChain() *chain { return &chain{} }

func (c *chain) empty() bool { return len(c.committed) == 0 }

func (c *chain) rangeCommitted(fn func(*lcattr.Program)) {
	for _, ap := range c.committed {
		fn(ap)
	}
}

func (c *chain) appendToAdd(ap *lcattr.Program) {
	c.toAdd = append(c.toAdd, ap)
}

func findByText(list []*lcattr.Program, text string) (int, bool) {
	for i, ap := range list {
		if ap.Text() == text {
			return i, true
		}
	}
	return -1, false
}

// findBeforeToDel searches the to-add-prefix-plus-committed region
// (everything visible, i.e. not yet marked for deletion) for an exact
// text match.
func (c *chain) findBeforeToDel(text string) (*lcattr.Program, bool) {
	if i, ok := findByText(c.toAdd, text); ok {
		return c.toAdd[i], true
	}
	if i, ok := findByText(c.committed, text); ok {
		return c.committed[i], true
	}
	return nil, false
}

// moveToDel detaches the AP with the given text from to-add or
// committed and appends it to the to-del tail. Reports whether found.
func (c *chain) moveToDel(text string) bool {
	if i, ok := findByText(c.toAdd, text); ok {
		ap := c.toAdd[i]
		c.toAdd = append(c.toAdd[:i], c.toAdd[i+1:]...)
		c.toDel = append(c.toDel, ap)
		return true
	}
	if i, ok := findByText(c.committed, text); ok {
		ap := c.committed[i]
		c.committed = append(c.committed[:i], c.committed[i+1:]...)
		c.toDel = append(c.toDel, ap)
		return true
	}
	return false
}

// beginTxn seeds the staging regions: to-add aliases the current
// committed view by starting empty (new adds append to it), to-del
// starts empty, and original snapshots committed for a possible
// rollback.
func (c *chain) beginTxn() {
	c.original = append([]*lcattr.Program(nil), c.committed...)
	c.toAdd = nil
	c.toDel = nil
}

// resetTxn marks everything currently visible for deletion: on commit
// the object will contain nothing.
func (c *chain) resetTxn() {
	c.toDel = append(c.toDel, c.toAdd...)
	c.toDel = append(c.toDel, c.committed...)
	c.toAdd = nil
	c.committed = nil
}

// commitTxn frees to-del (simply drops the references) and installs
// to-add, followed by the surviving committed region, as the new
// committed chain.
func (c *chain) commitTxn() {
	next := make([]*lcattr.Program, 0, len(c.toAdd)+len(c.committed))
	next = append(next, c.toAdd...)
	next = append(next, c.committed...)
	c.committed = next
	c.toAdd = nil
	c.toDel = nil
	c.original = nil
}

// rollbackTxn discards every newly-added AP (to-add, per the note:
// "free APs from to-add up to to-first, the newly added ones") and
// restores committed to its pre-transaction snapshot, undoing any
// deletes staged this transaction.
func (c *chain) rollbackTxn() {
	c.toAdd = nil
	c.toDel = nil
	c.committed = c.original
	c.original = nil
}
