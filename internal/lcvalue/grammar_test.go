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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAttributeAcceptsExamples(t *testing.T) {
	// From the end-to-end scenarios: A1 and A2.
	assert.NoError(t, ValidateAttribute("x . go@ gone@"))
	assert.NoError(t, ValidateAttribute("y aap@12345 . noot@ mies@"))
}

func TestValidateAttributeRejectsTwoCursors(t *testing.T) {
	// A3: ill-formed, two cursors.
	assert.Error(t, ValidateAttribute("y aap@12345 . noot@ . mies@"))
}

func TestValidateAttributeRejectsMissingCursor(t *testing.T) {
	assert.Error(t, ValidateAttribute("x go@ gone@"))
}

func TestValidateAttributeAcceptsWaitStep(t *testing.T) {
	assert.NoError(t, ValidateAttribute("a b@0 . c?b d@0"))
}

func TestValidateDN(t *testing.T) {
	assert.NoError(t, ValidateDN("uid=bakker,dc=orvelte,dc=nep"))
	assert.Error(t, ValidateDN("not a dn"))
}
