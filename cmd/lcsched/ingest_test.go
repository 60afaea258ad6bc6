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

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvelte/lcsched/internal/handler"
	"github.com/orvelte/lcsched/internal/lcenv"
)

func testApp() *app {
	return &app{
		environments: map[string]*lcenv.Environment{
			"env1": lcenv.New("env1", map[string]handler.Handler{"x": &handler.Collector{}}),
			"env2": lcenv.New("env2", map[string]handler.Handler{"x": &handler.Collector{}}),
		},
	}
}

func TestDispatchAddCommitRoundTrip(t *testing.T) {
	a := testApp()
	require.Equal(t, "1", a.dispatch("env1 ADD cn=alice,dc=example x . go@0"))
	require.Equal(t, "1", a.dispatch("env1 COMMIT"))

	env, _ := a.env("env1")
	obj, ok := env.GetObject("cn=alice,dc=example")
	require.True(t, ok)
	assert.Len(t, obj.Committed(), 1)
}

func TestDispatchUnknownEnvironment(t *testing.T) {
	a := testApp()
	assert.Contains(t, a.dispatch("ghost ADD dn attr"), "unknown environment")
}

func TestDispatchCollaborateMergesCycles(t *testing.T) {
	a := testApp()
	env1, _ := a.env("env1")
	env2, _ := a.env("env2")

	require.Equal(t, "1", a.dispatch("env1 ADD cn=p1,dc=example x . go@0"))
	require.Equal(t, "1", a.dispatch("env2 ADD cn=p2,dc=example y . go@0"))
	require.Equal(t, "1", a.dispatch("COLLABORATE env1 env2"))

	assert.Same(t, env1, env2.Cycle)
	assert.Same(t, env2, env1.Cycle)
}

func TestIngestWritesOneResultPerLine(t *testing.T) {
	a := testApp()
	in := strings.NewReader("env1 ADD cn=a,dc=example x . go@0\nenv1 COMMIT\n")
	var out strings.Builder
	a.ingest(in, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0])
	assert.Equal(t, "1", lines[1])
}
