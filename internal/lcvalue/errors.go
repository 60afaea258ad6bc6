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

// Package lcvalue decodes the length-prefixed attribute values that
// arrive at the ingest boundary and validates them against the
// distinguishedName and lifecycleState grammars.
package lcvalue

import "github.com/pkg/errors"

// Sentinel errors returned by Decode and the grammar validators. Callers
// should compare with errors.Is, since the concrete error returned is
// usually wrapped with positional context.
var (
	// ErrMalformed indicates a header whose length-of-length byte did
	// not describe a supported short or long form, or a value too short
	// to hold its header or the payload length it declares.
	ErrMalformed = errors.New("malformed attribute value")
	// ErrEmbeddedNUL indicates a value containing a NUL byte, which
	// cannot be made into a NUL-terminated C-style string for the
	// grammar regexes.
	ErrEmbeddedNUL = errors.New("embedded NUL in attribute value")
	// ErrGrammarMismatch indicates a value that failed the
	// distinguishedName or lifecycleState grammar.
	ErrGrammarMismatch = errors.New("value does not match grammar")
)
