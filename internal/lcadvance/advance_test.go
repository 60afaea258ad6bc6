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

package lcadvance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/lcattr"
	"github.com/orvelte/lcsched/internal/lcobject"
	"github.com/orvelte/lcsched/internal/lcvalue"
)

func commit(o *lcobject.Object, texts ...string) []*lcattr.Program {
	o.BeginTxn()
	for _, t := range texts {
		o.StageAdd(t)
	}
	o.CommitTxn()
	return o.Committed()
}

func TestAdvanceWaitsOnEventInAnotherAP(t *testing.T) {
	o := lcobject.New("dn")
	// x has already fired "go" (it is in x's past); y waits on it.
	aps := commit(o, "x go@0 . gone@0", "y . x?go mies@0")

	advanced := AdvanceObject(o, aps)
	assert.True(t, advanced)

	y, ok := o.ByName("y")
	require.True(t, ok)
	assert.Equal(t, lcvalue.KindTimer, y.Kind())
	assert.Equal(t, "mies@0", y.CursorWord())
}

func TestAdvanceIsIdempotent(t *testing.T) {
	o := lcobject.New("dn")
	aps := commit(o, "x go@0 . gone@0", "y . x?go mies@0")

	AdvanceObject(o, aps)
	before := aps[1].CursorWord()
	again := AdvanceObject(o, aps)
	assert.False(t, again)
	assert.Equal(t, before, aps[1].CursorWord())
}

func TestAdvanceSkipsWhenTargetMissing(t *testing.T) {
	o := lcobject.New("dn")
	aps := commit(o, "a b@0 . c?b d@0")

	advanced := AdvanceObject(o, aps)
	assert.True(t, advanced)
	assert.Equal(t, lcvalue.KindTimer, aps[0].Kind())
	assert.Equal(t, "d@0", aps[0].CursorWord())
}

func TestAdvanceStopsOnUnsatisfiedWait(t *testing.T) {
	o := lcobject.New("dn")
	aps := commit(o, "x . y@123", "y . x?never mies@")

	AdvanceObject(o, aps)
	target, _ := o.ByName("y")
	assert.Equal(t, lcvalue.KindWait, target.Kind())
}
