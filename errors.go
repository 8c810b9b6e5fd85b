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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

var (
	// ErrNotConnected is returned by calls issued while no engine is running.
	ErrNotConnected = errors.New("database not connected, call Connect first")
	// ErrQueueFull is returned when the outbound request queue is full.
	ErrQueueFull = errors.New("outbound request queue is full")
	// ErrEngineExited rejects calls that were pending when the engine's output closed.
	ErrEngineExited = errors.New("engine exited")
	// ErrClosed rejects calls that were pending when the client was closed.
	ErrClosed = errors.New("client closed")
	// ErrNotReady is returned by Connect when the engine did not answer the handshake.
	ErrNotReady = errors.New("engine not ready")

	errDuplicateID = errors.New("duplicate correlation id")
)

// Error represents an error reported by the engine for a single call.
type Error struct {
	// Method is the method of the failed call.
	Method string `json:"method,omitempty"`
	// Message is the error text returned by the engine, unchanged.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// ProvisionError is returned when the engine binary cannot be acquired.
type ProvisionError struct {
	// FileName is the expected engine file name, e.g. "engine-darwin-arm64".
	FileName string
	// URL is the download URL, if a download was attempted.
	URL string
	// StatusCode is the terminal HTTP status, if the server answered.
	StatusCode int
	// Err is the underlying transport or filesystem error, if any.
	Err error
}

func (e *ProvisionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provision engine %s: server returned HTTP %d for %s; ensure a release exists with the correctly named binary: %s",
			e.FileName, e.StatusCode, e.URL, e.FileName)
	}
	if e.URL != "" {
		return fmt.Sprintf("provision engine %s from %s: %v", e.FileName, e.URL, e.Err)
	}
	return fmt.Sprintf("provision engine %s: %v", e.FileName, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// SpawnError is returned when the engine process cannot be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start engine %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func checkStatusCodeOK(resp *http.Response, fileName string, u *url.URL) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &ProvisionError{
		FileName:   fileName,
		URL:        u.String(),
		StatusCode: resp.StatusCode,
	}
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
