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
	"bufio"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/orvelte/lcsched/internal/lctxn"
)

// ingest reads the demonstration line protocol from r until EOF or a
// read error, writing one result line per command to w. This is
// explicitly not the directory protocol (external, non-goal) -- it is
// a stand-in transport so internal/lctxn.Engine's boundary is callable
// end to end from a terminal or a test harness.
//
// Line grammar, one command per line:
//
//	<env> ADD <dn> <attr-program-text>
//	<env> DEL <dn> <attr-program-text>
//	<env> RESET
//	<env> PREPARE
//	<env> COMMIT
//	<env> ROLLBACK
//	COLLABORATE <env1> <env2>
//
// attr-program-text runs to the end of the line and may itself contain
// spaces (its grammar requires them, e.g. "x . go@0"); dn must not.
func (a *app) ingest(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintln(w, a.dispatch(line))
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("ingest: stdin read error")
	}
}

func (a *app) dispatch(line string) string {
	head := strings.SplitN(line, " ", 4)
	if len(head) == 0 || head[0] == "" {
		return "0 empty command"
	}

	if strings.EqualFold(head[0], "COLLABORATE") {
		if len(head) != 3 {
			return "0 usage: COLLABORATE env1 env2"
		}
		env1, ok1 := a.env(head[1])
		env2, ok2 := a.env(head[2])
		if !ok1 || !ok2 {
			return "0 unknown environment"
		}
		return boolResult(lctxn.Collaborate(env1, env2))
	}

	if len(head) < 2 {
		return "0 usage: <env> <command> [args...]"
	}
	env, ok := a.env(head[0])
	if !ok {
		return fmt.Sprintf("0 unknown environment %q", head[0])
	}

	switch strings.ToUpper(head[1]) {
	case "ADD":
		dn, attr, ok := splitDNAndAttr(head)
		if !ok {
			return "0 usage: env ADD dn attr"
		}
		return boolResult(lctxn.Add(env, []byte(encode(dn)), []byte(encode(attr))))
	case "DEL":
		dn, attr, ok := splitDNAndAttr(head)
		if !ok {
			return "0 usage: env DEL dn attr"
		}
		return boolResult(lctxn.Delete(env, []byte(encode(dn)), []byte(encode(attr))))
	case "RESET":
		return boolResult(lctxn.Reset(env))
	case "PREPARE":
		return boolResult(lctxn.Prepare(env))
	case "COMMIT":
		return boolResult(lctxn.Commit(env))
	case "ROLLBACK":
		lctxn.Rollback(env)
		return "1"
	default:
		return fmt.Sprintf("0 unknown command %q", head[1])
	}
}

// splitDNAndAttr pulls the dn and the (possibly space-containing)
// attribute-program text out of a 4-field ADD/DEL split.
func splitDNAndAttr(head []string) (dn, attr string, ok bool) {
	if len(head) != 4 {
		return "", "", false
	}
	return head[2], head[3], true
}

func boolResult(ok bool) string {
	if ok {
		return "1"
	}
	return "0"
}

// encode wraps s in the short-form length-prefixed encoding
// internal/lcvalue.Decode expects: a tag byte (unused by Decode itself,
// here always zero), a length byte, then the payload. Short-form only
// supports payloads under 128 bytes, sufficient for this line-oriented
// demonstration transport.
func encode(s string) string {
	if len(s) >= 128 {
		s = s[:127]
	}
	out := make([]byte, 0, len(s)+2)
	out = append(out, 0, byte(len(s)))
	out = append(out, s...)
	return string(out)
}
