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
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func collect(r io.Reader, logger *slog.Logger) []*Response {
	out := make(chan *Response)
	done := make(chan struct{})
	go readResponses(r, out, done, logger)

	var got []*Response
	for resp := range out {
		got = append(got, resp)
	}
	return got
}

func TestReadResponsesFraming(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"1","data":"a"}`,
		``,
		`   `,
		`{"id":"2","error":"boom"}`,
		`{"id":"3","data":[1,2]}`,
	}, "\n")

	// One byte per read exercises lines split across chunks.
	got := collect(iotest.OneByteReader(strings.NewReader(input)), discardLogger())
	require.Len(t, got, 3)
	require.Equal(t, "1", got[0].ID)
	require.Equal(t, "boom", got[1].Error)
	// The final line has no trailing newline but is still delivered.
	require.JSONEq(t, `[1,2]`, string(got[2].Data))
}

func TestReadResponsesDropsMalformed(t *testing.T) {
	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	input := "garbage\n" + `{"data":"no id"}` + "\n" + `{"id":"ok","data":1}` + "\n"
	got := collect(strings.NewReader(input), logger)
	require.Len(t, got, 1)
	require.Equal(t, "ok", got[0].ID)

	out := logs.String()
	require.Equal(t, 2, strings.Count(out, "Dropping malformed engine output"))
	require.Contains(t, out, "line=garbage")
}

func TestReadResponsesStopsOnDone(t *testing.T) {
	out := make(chan *Response)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		readResponses(strings.NewReader(`{"id":"x"}`+"\n"), out, done, discardLogger())
	}()

	// Nobody receives; closing done must release the reader.
	close(done)
	<-finished
	_, more := <-out
	require.False(t, more)
}

func TestTruncateLine(t *testing.T) {
	require.Equal(t, "short", truncateLine([]byte("short")))
	long := strings.Repeat("x", maxLoggedLine+10)
	require.Equal(t, strings.Repeat("x", maxLoggedLine)+"...", truncateLine([]byte(long)))
}
