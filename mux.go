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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type callResult struct {
	data json.RawMessage
	err  error
}

// pendingCall is a registered request awaiting its response.
type pendingCall struct {
	id     string
	method string
	// result receives exactly one value. It is buffered so delivery never blocks the loop.
	result chan callResult
}

type registration struct {
	call *pendingCall
	ack  chan error
}

type settlement struct {
	id  string
	err error
}

type outbound struct {
	call *pendingCall
	line []byte
}

// mux correlates requests and responses for one engine session.
//
// The pending map is owned by the run goroutine; every other goroutine talks
// to it over channels.
type mux struct {
	logger *slog.Logger

	register chan registration
	forget   chan string
	settle   chan settlement
	count    chan chan int
	inbound  <-chan *Response
	queue    chan outbound

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error // terminal error, valid after done is closed
	wg       sync.WaitGroup

	pending map[string]*pendingCall
}

func newMux(logger *slog.Logger, inbound <-chan *Response, queueSize int) *mux {
	return &mux{
		logger:   logger,
		register: make(chan registration),
		forget:   make(chan string),
		settle:   make(chan settlement),
		count:    make(chan chan int),
		inbound:  inbound,
		queue:    make(chan outbound, queueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*pendingCall),
	}
}

// start runs the correlation loop and the writer that drains the outbound queue into w.
func (m *mux) start(w io.Writer) {
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.run()
	}()
	go func() {
		defer m.wg.Done()
		m.writeLoop(w)
	}()
}

func (m *mux) run() {
	defer close(m.done)
	for {
		select {
		case reg := <-m.register:
			if _, exists := m.pending[reg.call.id]; exists {
				reg.ack <- errDuplicateID
				continue
			}
			m.pending[reg.call.id] = reg.call
			reg.ack <- nil
		case id := <-m.forget:
			delete(m.pending, id)
		case s := <-m.settle:
			if call, ok := m.pending[s.id]; ok {
				delete(m.pending, s.id)
				call.result <- callResult{err: s.err}
			}
		case reply := <-m.count:
			reply <- len(m.pending)
		case resp, more := <-m.inbound:
			if !more {
				m.failAll(ErrEngineExited)
				return
			}
			m.dispatch(resp)
		case <-m.stop:
			m.failAll(ErrClosed)
			return
		}
	}
}

func (m *mux) dispatch(resp *Response) {
	call, ok := m.pending[resp.ID]
	if !ok {
		m.logger.Debug("Dropping response for unknown call", "id", resp.ID)
		return
	}
	delete(m.pending, resp.ID)

	if resp.Error != "" {
		call.result <- callResult{err: &Error{Method: call.method, Message: resp.Error}}
		return
	}
	call.result <- callResult{data: resp.Data}
}

func (m *mux) failAll(err error) {
	m.err = err
	if len(m.pending) > 0 {
		m.logger.Info("Rejecting pending calls", "count", len(m.pending), "reason", err)
	}
	for id, call := range m.pending {
		delete(m.pending, id)
		call.result <- callResult{err: fmt.Errorf("%s %s: %w", call.method, id, err)}
	}
}

func (m *mux) writeLoop(w io.Writer) {
	for {
		select {
		case item := <-m.queue:
			if _, err := w.Write(item.line); err != nil {
				m.settleCall(item.call.id, fmt.Errorf("write %s request: %w", item.call.method, err))
			}
		case <-m.done:
			return
		}
	}
}

// submit registers a call and queues its request line for writing.
func (m *mux) submit(ctx context.Context, id, method string, line []byte) (*pendingCall, error) {
	call := &pendingCall{
		id:     id,
		method: method,
		result: make(chan callResult, 1),
	}

	// Register before writing so a fast reply always finds its call.
	ack := make(chan error, 1)
	select {
	case m.register <- registration{call: call, ack: ack}:
	case <-m.done:
		return nil, m.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := <-ack; err != nil {
		return nil, err
	}

	select {
	case m.queue <- outbound{call: call, line: line}:
		return call, nil
	default:
		m.forgetCall(id)
		return nil, ErrQueueFull
	}
}

// wait blocks until the call settles or ctx is done. An expired call is
// removed from the pending set.
func (m *mux) wait(ctx context.Context, call *pendingCall) (json.RawMessage, error) {
	select {
	case res := <-call.result:
		return res.data, res.err
	case <-ctx.Done():
		m.forgetCall(call.id)
		// The reply may have landed before the forget was processed.
		select {
		case res := <-call.result:
			return res.data, res.err
		default:
		}
		return nil, fmt.Errorf("%s %s: %w", call.method, call.id, ctx.Err())
	}
}

func (m *mux) forgetCall(id string) {
	select {
	case m.forget <- id:
	case <-m.done:
	}
}

func (m *mux) settleCall(id string, err error) {
	select {
	case m.settle <- settlement{id: id, err: err}:
	case <-m.done:
	}
}

// pendingCount returns the number of in-flight calls.
func (m *mux) pendingCount() int {
	reply := make(chan int, 1)
	select {
	case m.count <- reply:
		return <-reply
	case <-m.done:
		return 0
	}
}

// drain waits until no calls are in flight or ctx is done.
func (m *mux) drain(ctx context.Context) error {
	tick := 5 * time.Millisecond
	maxTick := 100 * time.Millisecond

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if m.pendingCount() == 0 {
			return nil
		}

		if tick < maxTick {
			tick = min(tick*2, maxTick)
			ticker.Reset(tick)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *mux) running() bool {
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// shutdown rejects any calls still pending with ErrClosed and stops the loop.
func (m *mux) shutdown() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// join waits for the loop and writer goroutines to exit.
func (m *mux) join() {
	m.wg.Wait()
}
