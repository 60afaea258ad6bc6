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

package lcattr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/lcvalue"
)

type fakeOwner struct {
	dirtied []*Program
}

func (f *fakeOwner) MarkDirty(ap *Program) { f.dirtied = append(f.dirtied, ap) }

func TestNewCursorAndKind(t *testing.T) {
	owner := &fakeOwner{}
	p := New(owner, "x . go@ gone@")
	assert.Equal(t, "x", p.Name())
	assert.Equal(t, lcvalue.KindTimer, p.Kind())
	assert.Equal(t, "go@", p.CursorWord())
	require.Len(t, owner.dirtied, 1)
}

func TestNewMissingCursorIsSilent(t *testing.T) {
	owner := &fakeOwner{}
	p := New(owner, "x go@ gone@")
	assert.Equal(t, lcvalue.KindNone, p.Kind())
	assert.Equal(t, len(p.Text()), p.Cursor())
}

func TestComputeFireTimeNowVariants(t *testing.T) {
	now := time.Unix(1000, 0).UTC()

	p := New(&fakeOwner{}, "x . go@")
	p.Recompute(now)
	assert.Equal(t, now, p.FireTime())

	p2 := New(&fakeOwner{}, "x . go@0")
	p2.Recompute(now)
	assert.Equal(t, now, p2.FireTime())

	p3 := New(&fakeOwner{}, "x . go@12345")
	p3.Recompute(now)
	assert.Equal(t, time.Unix(12345, 0).UTC(), p3.FireTime())
}

func TestComputeFireTimeNonTimerIsNever(t *testing.T) {
	p := New(&fakeOwner{}, "x . y?done")
	p.Recompute(time.Unix(1, 0))
	assert.Equal(t, Never, p.FireTime())
}

func TestAdvanceCursorPastWaitToTimer(t *testing.T) {
	p := New(&fakeOwner{}, "a b@0 . c?b d@0")
	assert.Equal(t, lcvalue.KindWait, p.Kind())
	p.AdvanceCursor()
	assert.Equal(t, lcvalue.KindTimer, p.Kind())
	assert.Equal(t, "d@0", p.CursorWord())
}

func TestPastWords(t *testing.T) {
	p := New(&fakeOwner{}, "a b@0 c@0 . d@0")
	assert.Equal(t, []string{"a", "b@0", "c@0"}, p.Past())
}
