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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionState is the liveness of the engine process.
type ConnectionState string

const (
	// StateConnected means the engine process is running.
	StateConnected ConnectionState = "connected"
	// StateDisconnected means no engine process is running.
	StateDisconnected ConnectionState = "disconnected"
)

// ConnectionStatus is a point-in-time view of the engine process.
type ConnectionStatus struct {
	State ConnectionState `json:"state"`
	PID   int             `json:"pid,omitempty"`
}

// session is one running engine and its multiplexer.
type session struct {
	proc *process
	mux  *mux
}

func (s *session) alive() bool {
	if s.proc == nil {
		return s.mux.running()
	}
	return s.proc.alive() && s.mux.running()
}

func (s *session) pid() int {
	if s.proc == nil {
		return 0
	}
	return s.proc.pid
}

// teardown stops the multiplexer, kills the engine and waits for every goroutine.
func (s *session) teardown() {
	s.mux.shutdown()
	if s.proc != nil {
		s.proc.terminate()
	}
	s.mux.join()
}

// Client runs an engine process and issues calls to it.
//
// A Client is safe for concurrent use. Calls may be issued from any number of
// goroutines; each is answered by its own response regardless of the order
// the engine replies in.
type Client struct {
	config *Config
	http   HTTPClient
	logger *slog.Logger
	binary *BinaryDescriptor
	newID  func() string

	mu   sync.Mutex
	sess *session
}

// NewClient creates a new client. It does not start the engine; call Connect.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := config.HTTP
	if h == nil {
		h = NewHTTPClient()
	}

	return &Client{
		config: config,
		http:   h,
		logger: logger.With("component", "emojidb"),
		binary: NewBinaryDescriptor(runtime.GOOS, runtime.GOARCH, config.cacheDir()),
		newID:  uuid.NewString,
	}
}

// Connect resolves the engine binary, starts it and waits until it answers.
//
// If the client is already connected, the current status is returned.
func (c *Client) Connect(ctx context.Context) (*ConnectionStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		if c.sess.alive() {
			return &ConnectionStatus{State: StateConnected, PID: c.sess.pid()}, nil
		}
		c.sess.teardown()
		c.sess = nil
	}

	path := c.config.EnginePath
	if path == "" {
		var err error
		if path, err = c.EnsureBinary(ctx); err != nil {
			return nil, err
		}
	}

	inbound := make(chan *Response)
	m := newMux(c.logger, inbound, c.config.outboundQueueSize())
	proc, err := startProcess(launchOptions{
		path: path,
		args: c.config.EngineArgs,
		env:  c.config.EngineEnv,
	}, c.logger, func(stdout io.Reader) {
		readResponses(stdout, inbound, m.done, c.logger)
	})
	if err != nil {
		return nil, err
	}
	m.start(proc.stdin)

	sess := &session{proc: proc, mux: m}
	if err := c.awaitReady(ctx, sess); err != nil {
		sess.teardown()
		return nil, err
	}

	c.sess = sess
	return &ConnectionStatus{State: StateConnected, PID: proc.pid}, nil
}

func (c *Client) awaitReady(ctx context.Context, sess *session) error {
	if c.config.SkipHandshake {
		timer := time.NewTimer(c.config.readyGracePeriod())
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-sess.proc.exited:
			return fmt.Errorf("%w: engine exited on startup: %v", ErrNotReady, sess.proc.exitErr)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.readyTimeout())
	defer cancel()

	h, err := submitCall(ctx, sess.mux, c.newID, methodPing, nil, 0)
	if err == nil {
		_, err = h.Wait(ctx)
	}

	var engineErr *Error
	if err == nil || errors.As(err, &engineErr) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotReady, err)
}

// Status reports whether the engine process is running.
func (c *Client) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil && c.sess.alive() {
		return ConnectionStatus{State: StateConnected, PID: c.sess.pid()}
	}
	return ConnectionStatus{State: StateDisconnected}
}

func (c *Client) activeSession() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || !c.sess.alive() {
		return nil, ErrNotConnected
	}
	return c.sess, nil
}

// Submit sends a request to the engine and returns immediately.
//
// params must serialize to a JSON object; nil sends {}. The returned handle
// resolves when the engine answers. Submit fails with ErrNotConnected without
// touching the engine if the client is not connected.
func (c *Client) Submit(ctx context.Context, method string, params any) (*CallHandle, error) {
	sess, err := c.activeSession()
	if err != nil {
		return nil, err
	}
	return submitCall(ctx, sess.mux, c.newID, method, params, c.config.CallTimeout)
}

// Call sends a request to the engine and waits for its response data.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	h, err := c.Submit(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

// Pending returns the number of calls awaiting a response.
func (c *Client) Pending() int {
	sess, err := c.activeSession()
	if err != nil {
		return 0
	}
	return sess.mux.pendingCount()
}

// Close sends the engine a close request, waits for in-flight calls within
// Config.ShutdownTimeout, then terminates the engine unconditionally.
//
// Calls still pending at that point fail with ErrClosed. The engine's reply
// to the close request, if it was an error, is returned.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	var closeErr error
	if sess.alive() {
		ctx, cancel := context.WithTimeout(ctx, c.config.shutdownTimeout())
		defer cancel()

		var h *CallHandle
		h, closeErr = submitCall(ctx, sess.mux, c.newID, MethodClose, nil, 0)
		if closeErr == nil {
			_, closeErr = h.Wait(ctx)
		}
		if err := sess.mux.drain(ctx); err != nil {
			c.logger.Warn("Closing with calls in flight", "pending", sess.mux.pendingCount(), "error", err)
		}
	}

	sess.teardown()
	return closeErr
}
