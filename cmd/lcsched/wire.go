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

//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/orvelte/lcsched/internal/config"
)

// newApp builds the process from cfg: every declared environment opened
// with its worker running, plus the optional snapshot store. The
// cleanup function closes every environment's handlers; it does not
// stop the workers, which run under the app's stopper.Context.
func newApp(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	panic(wire.Build(
		wireSet,
	))
}

var wireSet = wire.NewSet(
	provideEnvironments,
	provideStore,
	wire.Struct(new(app), "*"),
)
