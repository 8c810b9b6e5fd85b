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
	"encoding/json"
	"errors"
)

// Methods understood by the engine.
const (
	MethodOpen         = "open"
	MethodDefineSchema = "define_schema"
	MethodSyncSchema   = "sync_schema"
	MethodPullSchema   = "pull_schema"
	MethodDropTable    = "drop_table"
	MethodInsert       = "insert"
	MethodBatchInsert  = "batch_insert"
	MethodQuery        = "query"
	MethodCount        = "count"
	MethodUpdate       = "update"
	MethodDelete       = "delete"
	MethodFlush        = "flush"
	MethodSecure       = "secure"
	MethodRekey        = "rekey"
	MethodClose        = "close"

	// methodPing is not an engine method. Any correlated reply to it, including
	// the engine's "unknown method" error, proves the engine is reading requests.
	methodPing = "ping"
)

// Request is one line sent to the engine's standard input.
type Request struct {
	// ID correlates the request with its Response.
	ID string `json:"id"`
	// Method is the engine operation to run.
	Method string `json:"method"`
	// Params is serialized as a JSON object.
	Params any `json:"params"`
}

// Response is one line read from the engine's standard output.
//
// Exactly one of Data and Error is meaningful. Both empty means a null result.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

var errMissingID = errors.New("response has no id")

// encodeRequest serializes req as a single newline-terminated line.
func encodeRequest(req *Request) ([]byte, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// decodeResponse parses one line of engine output.
func decodeResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errMissingID
	}
	return &resp, nil
}

type emptyParams struct{}

type openParams struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

type schemaParams struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

type syncSchemaParams struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
	Force  bool    `json:"force"`
}

type tableParams struct {
	Table string `json:"table"`
}

type insertParams struct {
	Table string `json:"table"`
	Row   Row    `json:"row"`
}

type batchInsertParams struct {
	Table   string `json:"table"`
	Records []Row  `json:"records"`
}

type matchParams struct {
	Table string `json:"table"`
	Match Row    `json:"match"`
}

type updateParams struct {
	Table  string `json:"table"`
	Match  Row    `json:"match"`
	Update Row    `json:"update"`
}

type rekeyParams struct {
	NewKey    string `json:"new_key"`
	MasterKey string `json:"master_key"`
}
