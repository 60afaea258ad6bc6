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
	"github.com/orvelte/lcsched/internal/lcenv"
	"github.com/orvelte/lcsched/internal/lcstore"
	"github.com/orvelte/lcsched/internal/stopper"
)

// app is the fully-wired process: every configured environment, each
// with its own running worker, plus the optional snapshot store.
type app struct {
	sc           *stopper.Context
	environments map[string]*lcenv.Environment
	store        *lcstore.Store
}

func (a *app) env(name string) (*lcenv.Environment, bool) {
	e, ok := a.environments[name]
	return e, ok
}
