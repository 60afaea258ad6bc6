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
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/orvelte/lcsched/internal/config"
)

// printStatus renders the set of environments the process just opened,
// one row per environment/handler pair, so an operator attaching to
// the process's stdout can see what is live before feeding it commands.
func printStatus(w io.Writer, a *app, cfg *config.Config) {
	ok := color.New(color.FgGreen).SprintFunc()

	table := tablewriter.NewTable(w)
	table.Header([]string{"environment", "handler", "command", "status"})
	for _, ec := range cfg.Environments {
		for _, h := range ec.Handlers {
			table.Append([]string{ec.Name, h.Name, h.Command, ok("running")})
		}
	}
	table.Render()

	if a.store != nil {
		fmt.Fprintln(w, color.CyanString("snapshot store: enabled"))
	} else {
		fmt.Fprintln(w, color.YellowString("snapshot store: disabled (no --storeDSN)"))
	}
}

// diagnoseAll runs every environment's liveness probe and reports the
// first failure, if any. Environments implement diag.Diagnostic
// directly (see internal/lcenv.Environment.Diagnostic).
func diagnoseAll(ctx context.Context, a *app) error {
	for _, env := range a.environments {
		if err := env.Diagnostic(ctx); err != nil {
			return err
		}
	}
	return nil
}
