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

// Package handler abstracts the named byte-stream sink a due
// attribute-program is dispatched to: a real deployment backs it with a
// spawned child process reading its own standard input, while tests
// substitute an in-memory collector.
package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// Handler is a named sink that a firing AP is written to: the DN and
// the attribute text, each terminated by '\n', flushed after every
// write.
type Handler interface {
	// Write sends one firing: dn, then attrText, each on its own line.
	Write(dn, attrText string) error
	// Close releases the handler's resources. It is called once, at
	// environment close.
	Close() error
}

// Spec is one `name=command` declaration from the open call.
type Spec struct {
	Name    string
	Command string
}

// ParseSpec splits a `name=command` string per §6: name must be an
// identifier containing no '='.
func ParseSpec(s string) (Spec, error) {
	i := indexByte(s, '=')
	if i < 0 {
		return Spec{}, errors.New("handler spec missing '='")
	}
	name, command := s[:i], s[i+1:]
	if name == "" {
		return Spec{}, errors.New("handler spec has empty name")
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return Spec{}, errors.Errorf("handler name %q is not an identifier", name)
		}
	}
	return Spec{Name: name, Command: command}, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// ExecHandler backs a Handler with a spawned child process's standard
// input. The process is started once, at construction, and its stdin
// pipe is held open until Close; it is never reopened mid-pass, per the
// resource policy.
type ExecHandler struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	w   *bufio.Writer
	pipe io.WriteCloser
}

var _ Handler = (*ExecHandler)(nil)

// NewExecHandler spawns command via `sh -c` and returns a Handler whose
// Write feeds its standard input.
func NewExecHandler(ctx context.Context, command string) (*ExecHandler, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	pipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not open handler stdin pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "could not start handler command %q", command)
	}
	return &ExecHandler{cmd: cmd, pipe: pipe, w: bufio.NewWriter(pipe)}, nil
}

// Write implements Handler.
func (h *ExecHandler) Write(dn, attrText string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := fmt.Fprintf(h.w, "%s\n%s\n", dn, attrText); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(h.w.Flush())
}

// Close implements Handler: it closes the stdin pipe and waits for the
// child process to exit.
func (h *ExecHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.pipe.Close(); err != nil {
		return errors.WithStack(err)
	}
	return h.cmd.Wait()
}

// Firing is one recorded call to Collector.Write.
type Firing struct {
	DN       string
	AttrText string
}

// Collector is an in-memory Handler double for tests: the design note
// calls for exactly this kind of substitute.
type Collector struct {
	mu      sync.Mutex
	Firings []Firing
	closed  bool
}

var _ Handler = (*Collector)(nil)

// Write implements Handler.
func (c *Collector) Write(dn, attrText string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Firings = append(c.Firings, Firing{DN: dn, AttrText: attrText})
	return nil
}

// Close implements Handler.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Snapshot returns a copy of the firings recorded so far.
func (c *Collector) Snapshot() []Firing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Firing(nil), c.Firings...)
}
