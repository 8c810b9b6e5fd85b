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
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
)

const maxLoggedLine = 256

// readResponses reads newline-delimited responses from r and pushes them to out
// until r is exhausted or done is closed. out is closed on return.
//
// Lines that do not parse are logged and dropped; they never end the loop.
func readResponses(r io.Reader, out chan<- *Response, done <-chan struct{}, logger *slog.Logger) {
	defer close(out)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			resp, perr := decodeResponse(trimmed)
			if perr != nil {
				logger.Warn("Dropping malformed engine output", "error", perr, "line", truncateLine(trimmed))
			} else {
				select {
				case out <- resp:
				case <-done:
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				logger.Error("Error reading engine output", "error", err)
			}
			return
		}
	}
}

func truncateLine(line []byte) string {
	if len(line) <= maxLoggedLine {
		return string(line)
	}
	return string(line[:maxLoggedLine]) + "..."
}
