/*
 * Copyright 2025 EmojiDB Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package emojidb

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// launchOptions describes how to launch the engine.
type launchOptions struct {
	path string
	args []string
	env  []string
}

// process supervises one engine subprocess.
type process struct {
	cmd    *exec.Cmd
	pid    int
	stdin  io.WriteCloser
	logger *slog.Logger

	// readers tracks the stdout and stderr goroutines. cmd.Wait closes the
	// pipes, so it only runs once both have drained.
	readers sync.WaitGroup

	exited  chan struct{}
	exitErr error // valid after exited is closed
}

// startProcess spawns the engine with all three standard streams attached.
// onStdout runs on its own goroutine and owns the engine's standard output.
func startProcess(opts launchOptions, logger *slog.Logger, onStdout func(io.Reader)) (*process, error) {
	cmd := exec.Command(opts.path, opts.args...)
	if len(opts.env) > 0 {
		cmd.Env = append(os.Environ(), opts.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: opts.path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: opts.path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Path: opts.path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: opts.path, Err: err}
	}

	p := &process{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		stdin:  stdin,
		logger: logger.With("pid", cmd.Process.Pid),
		exited: make(chan struct{}),
	}
	p.logger.Info("Engine started", "path", opts.path)

	p.readers.Add(2)
	go func() {
		defer p.readers.Done()
		onStdout(stdout)
	}()
	go func() {
		defer p.readers.Done()
		p.logStderr(stderr)
	}()

	go func() {
		p.readers.Wait()
		p.exitErr = cmd.Wait()
		if p.exitErr != nil {
			p.logger.Info("Engine exited", "error", p.exitErr)
		} else {
			p.logger.Info("Engine exited")
		}
		close(p.exited)
	}()

	return p, nil
}

// logStderr surfaces the engine's diagnostic stream. It is never parsed.
func (p *process) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		p.logger.Warn("Engine stderr", "output", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		p.logger.Error("Error reading engine stderr", "error", err)
		// Keep draining so the engine never blocks on a full stderr pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// alive reports whether the process has started and not exited.
func (p *process) alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// terminate kills the process unconditionally and waits for it to be reaped.
func (p *process) terminate() {
	if p.alive() {
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Debug("Kill engine", "error", err)
		}
	}
	<-p.exited
}
