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

// Package lcadvance advances cross-process `lcname?event` waits within
// one object until every attribute-program blocks on a timer or value
// step (or has no more steps). It never touches more than one object
// at a time and never runs while a transaction is active.
package lcadvance

import (
	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lcattr"
	"github.com/orvelte/lcsched/internal/lcvalue"
)

// Object is the minimal surface lcadvance needs from lcobject.Object,
// kept as an interface to avoid a package import cycle (lcobject needs
// no awareness of advancement).
type Object interface {
	ByName(name string) (*lcattr.Program, bool)
}

// splitWait parses a `lcname?event` cursor word into its two halves.
func splitWait(word string) (lcname, event string) {
	idLen := len(word)
	for i, c := range word {
		if c == '?' {
			idLen = i
			break
		}
	}
	lcname = word[:idLen]
	if idLen < len(word) {
		event = word[idLen+1:]
	}
	return lcname, event
}

// satisfied reports whether event appears among the past words of
// target (i.e. before its own cursor).
func satisfied(target *lcattr.Program, event string) bool {
	for _, w := range target.Past() {
		if w == "." {
			continue
		}
		name := w[:lcvalue.IdentifierLen(w)]
		// A past word is either a bare event name (from a `?` step
		// that advanced across it) or carries its own `@`/`?`/`=`
		// suffix; either way the leading identifier is what `?`
		// matching compares against.
		if name == event || w == event {
			return true
		}
	}
	return false
}

// advanceOne advances a single AP across as many consecutive `?` steps
// as are satisfied, stopping at a timer, value, or terminal step. It
// reports whether any step was advanced.
func advanceOne(owner Object, ap *lcattr.Program) bool {
	advanced := false
	for ap.Kind() == lcvalue.KindWait {
		lcname, event := splitWait(ap.CursorWord())

		var doAdvance bool
		if lcname == "" {
			doAdvance = true
		} else {
			target, ok := owner.ByName(lcname)
			if !ok {
				log.WithFields(log.Fields{
					"attribute": ap.Text(),
					"waitingOn": lcname,
				}).Warn("no attribute-program with that name in this object; skipping wait")
				doAdvance = true
			} else {
				doAdvance = satisfied(target, event)
			}
		}

		if !doAdvance {
			break
		}
		ap.AdvanceCursor()
		advanced = true
	}
	return advanced
}

// AdvanceObject advances every AP in aps, repeating the whole pass
// until one makes no further progress: one AP's advance can newly
// satisfy another's wait within the same pass. It is idempotent:
// calling it again on an already-quiescent object is a no-op
// (property 5).
func AdvanceObject(o Object, aps []*lcattr.Program) (advancedAny bool) {
	for {
		progressed := false
		for _, ap := range aps {
			if advanceOne(o, ap) {
				progressed = true
				advancedAny = true
			}
		}
		if !progressed {
			return advancedAny
		}
	}
}
