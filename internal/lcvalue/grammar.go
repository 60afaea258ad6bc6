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

package lcvalue

import (
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

// The grammar regexes are process-scoped. The distinguishedName regex
// is compiled at package initialization; the lifecycleState regex is
// compiled lazily on first use, the way the teacher lazily compiles and
// caches dialect-specific artifacts (e.g. script.Loader). Tests may
// override them with SetGrammars to exercise malformed-input paths
// without fighting the defaults.
var (
	grammarOnce     sync.Once
	dnPattern       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*=[^,=]+(?:,[A-Za-z][A-Za-z0-9]*=[^,=]+)*$`)
	lcStatePattern  *regexp.Regexp
	grammarMu       sync.RWMutex
)

const (
	identPat = `[A-Za-z0-9_-]+`
	timerPat = identPat + `@[0-9]*`
	waitPat  = identPat + `\?` + identPat
	valuePat = identPat + `=\S*`
	donePat  = `(?:` + timerPat + `|` + waitPat + `|` + identPat + `=\S+` + `)`
	nextPat  = `(?:` + timerPat + `|` + waitPat + `|` + valuePat + `)`
	todoPat  = donePat
)

func compileDefaultLifecycleState() *regexp.Regexp {
	full := `^` + identPat + `(?:\s+` + donePat + `)*\s+\.(?:\s+` + nextPat + `)?(?:\s+` + todoPat + `)*$`
	return regexp.MustCompile(full)
}

func ensureGrammars() {
	grammarOnce.Do(func() {
		grammarMu.Lock()
		defer grammarMu.Unlock()
		if lcStatePattern == nil {
			lcStatePattern = compileDefaultLifecycleState()
		}
	})
}

// SetGrammars overrides the package-scoped distinguishedName and
// lifecycleState grammars. Passing nil for either leaves that grammar
// unchanged. Intended for tests; production code should rely on the
// compiled-in defaults, which describe the grammar documented in the
// attribute-program data model.
func SetGrammars(dn, lcState *regexp.Regexp) {
	ensureGrammars()
	grammarMu.Lock()
	defer grammarMu.Unlock()
	if dn != nil {
		dnPattern = dn
	}
	if lcState != nil {
		lcStatePattern = lcState
	}
}

// ValidateDN checks s against the distinguishedName grammar.
func ValidateDN(s string) error {
	ensureGrammars()
	grammarMu.RLock()
	defer grammarMu.RUnlock()
	if !dnPattern.MatchString(s) {
		return errors.WithStack(ErrGrammarMismatch)
	}
	return nil
}

// ValidateAttribute checks s against the lifecycleState (attribute
// program) grammar: `name (SP done)* SP . SP? next (SP todo)*`.
func ValidateAttribute(s string) error {
	ensureGrammars()
	grammarMu.RLock()
	defer grammarMu.RUnlock()
	if !lcStatePattern.MatchString(s) {
		return errors.WithStack(ErrGrammarMismatch)
	}
	return nil
}
