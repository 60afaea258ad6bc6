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

// Package lcattr models one life-cycle attribute-program (AP): the
// immutable text of a directory attribute value, the cursor that splits
// it into past and future words, and the next-fire-time computation for
// its current cursor position.
package lcattr

import (
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lcvalue"
)

// Never is the fire-time sentinel meaning "this AP has no pending timer
// step and will not fire again until its cursor moves."
var Never = time.Unix(1<<62, 0).UTC()

// Dirtier receives notice that one of its attribute-programs' fire
// times changed, so it can refresh its own earliest-fire summary. An
// interface (rather than an import of lcobject) keeps the cheap,
// allocation-sensitive Program type decoupled from its owner the way
// the teacher's internal/types keeps dialects decoupled from
// concrete environments.
type Dirtier interface {
	MarkDirty(ap *Program)
}

// Program is one life-cycle attribute-program.
type Program struct {
	text   string
	cursor int
	kind   lcvalue.Kind

	fireTime time.Time // zero value is the dirty sentinel
	missed   uint32

	owner Dirtier
}

// New parses text into a Program belonging to owner. A text whose
// cursor is its final word ("." alone or ending in " .") gets its
// cursor at the end of the text and kind KindNone. A text with no
// cursor word at all is logged as an operational flaw (per the
// error-handling design, this never aborts) and is left permanently
// inert the same way: cursor pinned to the end, kind KindNone, so it is
// silent and never fires.
func New(owner Dirtier, text string) *Program {
	p := &Program{text: text, owner: owner}
	idx := strings.Index(text, " . ")
	switch {
	case idx >= 0:
		p.cursor = idx + len(" . ")
		p.kind = lcvalue.ClassifyAt(text, p.cursor)
	case text == "." || strings.HasSuffix(text, " ."):
		// Cursor is the final word with nothing after it.
		p.cursor = len(text)
		p.kind = lcvalue.KindNone
	default:
		log.WithField("attribute", text).Warn("attribute-program has no cursor; it will never fire")
		p.cursor = len(text)
		p.kind = lcvalue.KindNone
	}
	if owner != nil {
		owner.MarkDirty(p)
	}
	return p
}

// Text returns the immutable attribute text.
func (p *Program) Text() string { return p.text }

// Cursor returns the byte offset of the word following the `.` marker.
func (p *Program) Cursor() int { return p.cursor }

// Kind returns the classification of the word at the cursor.
func (p *Program) Kind() lcvalue.Kind { return p.kind }

// Missed returns the number of consecutive passes this AP has been
// found due without its cursor having advanced.
func (p *Program) Missed() uint32 { return p.missed }

// IncrementMissed bumps the miss counter and returns the new value.
func (p *Program) IncrementMissed() uint32 {
	p.missed++
	return p.missed
}

// ResetMissed clears the miss counter, e.g. once the cursor advances.
func (p *Program) ResetMissed() { p.missed = 0 }

// Name returns the program name: the first identifier of the text.
func (p *Program) Name() string {
	n := lcvalue.IdentifierLen(p.text)
	return p.text[:n]
}

// CursorWord returns the word beginning at the cursor, i.e. everything
// up to (not including) the next space or end of text.
func (p *Program) CursorWord() string {
	rest := p.text[p.cursor:]
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		return rest[:i]
	}
	return rest
}

// Past returns the words of the text strictly before the cursor.
func (p *Program) Past() []string {
	if p.cursor == 0 {
		return nil
	}
	pastText := strings.TrimSuffix(p.text[:p.cursor], " . ")
	if pastText == "" {
		return nil
	}
	return strings.Fields(pastText)
}

// FireTime returns the currently computed fire time. A zero value means
// dirty (must be recomputed before use); Never means the AP has no
// pending timer step.
func (p *Program) FireTime() time.Time { return p.fireTime }

// Dirty reports whether the fire time needs recomputation.
func (p *Program) Dirty() bool { return p.fireTime.IsZero() }

// MarkDirty sets the fire time back to the dirty sentinel and notifies
// the owning object so it can refresh its own summary.
func (p *Program) MarkDirty() {
	p.fireTime = time.Time{}
	if p.owner != nil {
		p.owner.MarkDirty(p)
	}
}

// AdvanceCursor moves the cursor past the current word (to the start of
// the next word, or end of text if none), reclassifies the new cursor
// word, marks the fire time dirty, and resets the miss counter. It is
// the single mutation point used both by event advancement (§4.5) and,
// in principle, by any future external cursor-advance path.
func (p *Program) AdvanceCursor() {
	rest := p.text[p.cursor:]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		p.cursor = len(p.text)
	} else {
		p.cursor += sp + 1
	}
	p.kind = lcvalue.ClassifyAt(p.text, p.cursor)
	p.ResetMissed()
	p.MarkDirty()
}

// Recompute refreshes the fire time from the current cursor word. Only
// KindTimer words carry a concrete fire time; everything else computes
// to Never. Recompute is a no-op with respect to dirtiness tracking: the
// caller (lcobject.Object.Recompute) is responsible for clearing its own
// dirty flag once every member AP has been refreshed.
func (p *Program) Recompute(now time.Time) {
	if !p.Dirty() {
		return
	}
	if p.kind != lcvalue.KindTimer {
		p.fireTime = Never
		return
	}
	p.fireTime = computeTimerFire(p.CursorWord(), now)
}

// Backoff records one more miss (a firing after which the cursor did
// not advance) and pushes the AP's offered fire time forward by
// base*2^min(missed,capExponent), so the scheduler stops re-selecting
// it every pass while it waits for the directory round-trip to
// actually advance its cursor. It does not touch the miss counter's
// reset, which only AdvanceCursor performs.
func (p *Program) Backoff(now time.Time, base time.Duration, capExponent uint32) {
	n := p.IncrementMissed()
	shift := n - 1
	if shift > capExponent {
		shift = capExponent
	}
	p.fireTime = now.Add(base * time.Duration(uint64(1)<<shift))
}

// computeTimerFire implements the §4.2 fire-time computation for a
// `event@timestamp` word.
func computeTimerFire(word string, now time.Time) time.Time {
	at := strings.IndexByte(word, '@')
	if at < 0 {
		return Never
	}
	ts := word[at+1:]
	if ts == "" {
		return now
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		log.WithField("word", word).Warn("could not parse timer timestamp; leaving unscheduled")
		return Never
	}
	if n == 0 {
		return now
	}
	return time.Unix(n, 0).UTC()
}
