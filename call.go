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
	"sync"
	"time"
)

const maxIDAttempts = 3

// CallHandle is a handle to a request that has been sent to the engine.
type CallHandle struct {
	m    *mux
	call *pendingCall

	// ID is the correlation id of the request.
	ID string
	// Method is the engine method called.
	Method string
	// Deadline is when the call expires. Zero means no deadline beyond the
	// context passed to Wait.
	Deadline time.Time

	mu      sync.Mutex
	settled bool
	res     callResult
}

// Wait waits for the engine's response.
//
// It returns the response data on success, an *Error if the engine reported a
// failure, or a context error if ctx or the call deadline expired first. Once
// settled, further calls return the same result.
func (h *CallHandle) Wait(ctx context.Context) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.settled {
		return h.res.data, h.res.err
	}

	if !h.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, h.Deadline)
		defer cancel()
	}

	data, err := h.m.wait(ctx, h.call)
	h.settled = true
	h.res = callResult{data: data, err: err}
	return data, err
}

// submitCall builds a request with a fresh correlation id and hands it to m.
func submitCall(ctx context.Context, m *mux, newID func() string, method string, params any, timeout time.Duration) (*CallHandle, error) {
	if params == nil {
		params = emptyParams{}
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		req := &Request{
			ID:     newID(),
			Method: method,
			Params: params,
		}
		line, err := encodeRequest(req)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", method, err)
		}

		call, err := m.submit(ctx, req.ID, method, line)
		if errors.Is(err, errDuplicateID) {
			continue
		}
		if err != nil {
			return nil, err
		}

		h := &CallHandle{
			m:      m,
			call:   call,
			ID:     req.ID,
			Method: method,
		}
		if timeout > 0 {
			h.Deadline = time.Now().Add(timeout)
		}
		return h, nil
	}
	return nil, errDuplicateID
}
