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

package lctxn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/lcenv"
)

// raw builds a short-form length-prefixed value: an unused tag byte,
// a one-byte length, then the payload, matching what lcvalue.Decode
// expects to find past the dispatch tag.
func raw(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, 0, byte(len(s)))
	return append(out, s...)
}

func newEnv(name string) *lcenv.Environment {
	return lcenv.New(name, nil)
}

func TestAddCommitMakesAttributeProgramVisible(t *testing.T) {
	env := newEnv("e1")
	require.True(t, Add(env, raw("cn=alice,dc=example"), raw("x go@0 . gone@0")))
	require.True(t, Commit(env))

	obj, ok := env.GetObject("cn=alice,dc=example")
	require.True(t, ok)
	ap, ok := obj.ByName("x")
	require.True(t, ok)
	assert.Equal(t, "x go@0 . gone@0", ap.Text())
}

func TestDuplicateAddAbortsWholeTransaction(t *testing.T) {
	env := newEnv("e1")
	require.True(t, Add(env, raw("cn=bob,dc=example"), raw("x . go@0")))
	require.True(t, Add(env, raw("cn=bob,dc=example"), raw("y . stay@0")))
	// Same exact text as the first add: rejected as a duplicate.
	ok := Add(env, raw("cn=bob,dc=example"), raw("x . go@0"))
	assert.False(t, ok)
	assert.True(t, env.Aborted())

	// Abort stickiness: every further call on the cycle short-circuits.
	assert.False(t, Add(env, raw("cn=bob,dc=example"), raw("z . z@0")))
	assert.False(t, Reset(env))
	assert.False(t, Prepare(env))

	// Commit observes the abort, clears it, and reports failure; the
	// object table must show no trace of either staged add.
	assert.False(t, Commit(env))
	assert.False(t, env.Aborted())
	_, ok = env.GetObject("cn=bob,dc=example")
	assert.False(t, ok)
}

func TestDeleteOfMissingAttributeAborts(t *testing.T) {
	env := newEnv("e1")
	require.True(t, Add(env, raw("cn=carol,dc=example"), raw("x . go@0")))
	require.True(t, Commit(env))

	ok := Delete(env, raw("cn=carol,dc=example"), raw("y . nope@0"))
	assert.False(t, ok)
	assert.True(t, env.Aborted())

	Rollback(env)
	assert.False(t, env.Aborted())

	obj, ok := env.GetObject("cn=carol,dc=example")
	require.True(t, ok)
	_, found := obj.ByName("x")
	assert.True(t, found, "rollback after the delete-abort must not disturb the already-committed x")
}

func TestRollbackRestoresPreTransactionState(t *testing.T) {
	env := newEnv("e1")
	require.True(t, Add(env, raw("cn=dave,dc=example"), raw("x . go@0")))
	require.True(t, Commit(env))

	require.True(t, Delete(env, raw("cn=dave,dc=example"), raw("x . go@0")))
	require.True(t, Add(env, raw("cn=dave,dc=example"), raw("y . stay@0")))
	Rollback(env)

	obj, ok := env.GetObject("cn=dave,dc=example")
	require.True(t, ok)
	_, xFound := obj.ByName("x")
	_, yFound := obj.ByName("y")
	assert.True(t, xFound, "deleted-then-rolled-back x must still be committed")
	assert.False(t, yFound, "added-then-rolled-back y must not be committed")
}

func TestResetEmptiesEveryObjectOnCommit(t *testing.T) {
	env := newEnv("e1")
	require.True(t, Add(env, raw("cn=erin,dc=example"), raw("x . go@0")))
	require.True(t, Commit(env))

	require.True(t, Open(env))
	require.True(t, Reset(env))
	require.True(t, Commit(env))

	_, ok := env.GetObject("cn=erin,dc=example")
	assert.False(t, ok, "an object with no committed or staged attribute-programs left must be reaped")
}

func TestCollaborateSplicesTwoEnvironmentsIntoOneCommit(t *testing.T) {
	env1 := newEnv("e1")
	env2 := newEnv("e2")
	require.True(t, OpenMany(env2, env1))

	require.True(t, Add(env1, raw("cn=f,dc=example"), raw("x . go@0")))
	require.True(t, Add(env2, raw("cn=g,dc=example"), raw("y . go@0")))
	require.True(t, Collaborate(env1, env2))

	require.True(t, Commit(env1))
	// Committing the spliced cycle via env1 must also have finalized
	// env2, including unlocking it and signalling its worker.
	obj2, ok := env2.GetObject("cn=g,dc=example")
	require.True(t, ok)
	_, found := obj2.ByName("y")
	assert.True(t, found)
}

func TestCollaborateAbortPropagatesToBothLegs(t *testing.T) {
	env1 := newEnv("e1")
	env2 := newEnv("e2")
	require.True(t, OpenMany(env1, env2))

	require.True(t, Add(env1, raw("cn=h,dc=example"), raw("x . go@0")))
	// Malformed attribute text (fails the lifecycleState grammar) aborts env2.
	assert.False(t, Add(env2, raw("cn=i,dc=example"), raw("not a valid attribute program")))
	require.True(t, env2.Aborted())

	ok := Collaborate(env1, env2)
	assert.True(t, ok)
	assert.True(t, env1.Aborted(), "collaborate must abort env1 once it observes env2 already aborted")

	assert.False(t, Commit(env1))
	assert.False(t, Commit(env2))
	assert.False(t, env1.Aborted())
	assert.False(t, env2.Aborted())
}
