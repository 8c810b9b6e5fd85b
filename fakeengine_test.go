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
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// fakeEngineEnv makes the test binary act as an engine. Values:
//
//	1       serve requests from memory
//	silent  read requests, never answer
//	exit    exit immediately with status 2
const fakeEngineEnv = "EMOJIDB_FAKE_ENGINE"

type fakeRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type fakeResponse struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type fakeEngine struct {
	mu     sync.Mutex
	stdout io.Writer
	out    *json.Encoder
	stderr io.Writer

	open   bool
	tables map[string][]map[string]any
	schema map[string][]Field
}

func runFakeEngine(mode string, stdin io.Reader, stdout, stderr io.Writer) int {
	switch mode {
	case "exit":
		fmt.Fprintln(stderr, "fake engine: exiting on startup")
		return 2
	case "silent":
		_, _ = io.Copy(io.Discard, stdin)
		return 0
	}

	e := &fakeEngine{
		stdout: stdout,
		out:    json.NewEncoder(stdout),
		stderr: stderr,
		tables: make(map[string][]map[string]any),
		schema: make(map[string][]Field),
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var req fakeRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			e.send(fakeResponse{ID: req.ID, Error: "invalid json: " + err.Error()})
			continue
		}
		if exit, code := e.handle(&req); exit {
			return code
		}
	}
	return 0
}

func (e *fakeEngine) send(resp fakeResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.out.Encode(resp)
}

func (e *fakeEngine) ok(id string, data any) {
	e.send(fakeResponse{ID: id, Data: data})
}

func (e *fakeEngine) fail(id, msg string) {
	e.send(fakeResponse{ID: id, Error: msg})
}

func matches(row, match map[string]any) bool {
	for k, v := range match {
		if row[k] != v {
			return false
		}
	}
	return true
}

func (e *fakeEngine) handle(req *fakeRequest) (exit bool, code int) {
	var p struct {
		Path    string           `json:"path"`
		Table   string           `json:"table"`
		Fields  []Field          `json:"fields"`
		Row     map[string]any   `json:"row"`
		Records []map[string]any `json:"records"`
		Match   map[string]any   `json:"match"`
		Update  map[string]any   `json:"update"`
		NewKey  string           `json:"new_key"`

		Millis int    `json:"ms"`
		Reply  any    `json:"reply"`
		Text   string `json:"text"`
	}
	_ = json.Unmarshal(req.Params, &p)

	// Test-only methods that work without an open database.
	switch req.Method {
	case "sleep":
		go func() {
			time.Sleep(time.Duration(p.Millis) * time.Millisecond)
			e.ok(req.ID, p.Reply)
		}()
		return false, 0
	case "echo":
		e.ok(req.ID, req.Params)
		return false, 0
	case "stderr":
		fmt.Fprintln(e.stderr, p.Text)
		e.ok(req.ID, "logged")
		return false, 0
	case "garbage":
		e.mu.Lock()
		fmt.Fprintln(e.stdout, "this is not json")
		e.mu.Unlock()
		e.ok(req.ID, "after garbage")
		return false, 0
	case "crash":
		return true, 3
	case MethodOpen:
		e.open = true
		e.ok(req.ID, "opened")
		return false, 0
	}

	if !e.open {
		if req.Method == MethodClose || isEngineMethod(req.Method) {
			e.fail(req.ID, "db not open")
		} else {
			e.fail(req.ID, "unknown method")
		}
		return false, 0
	}

	switch req.Method {
	case MethodDefineSchema:
		if _, ok := e.schema[p.Table]; ok {
			e.fail(req.ID, "schema already defined for table: "+p.Table)
			return false, 0
		}
		e.schema[p.Table] = p.Fields
		e.ok(req.ID, "defined")
	case MethodSyncSchema:
		e.schema[p.Table] = p.Fields
		e.ok(req.ID, "migrated")
	case MethodPullSchema:
		e.ok(req.ID, "pulled")
	case MethodDropTable:
		delete(e.schema, p.Table)
		delete(e.tables, p.Table)
		e.ok(req.ID, "dropped")
	case MethodInsert:
		if err := e.check(p.Table, p.Row); err != "" {
			e.fail(req.ID, err)
			return false, 0
		}
		e.tables[p.Table] = append(e.tables[p.Table], p.Row)
		e.ok(req.ID, "inserted")
	case MethodBatchInsert:
		if _, ok := e.schema[p.Table]; !ok {
			e.fail(req.ID, "table not found: "+p.Table)
			return false, 0
		}
		for i, r := range p.Records {
			if err := e.check(p.Table, r); err != "" {
				e.fail(req.ID, fmt.Sprintf("row %d: %s", i, err))
				return false, 0
			}
		}
		e.tables[p.Table] = append(e.tables[p.Table], p.Records...)
		e.ok(req.ID, "inserted")
	case MethodQuery:
		results := make([]map[string]any, 0)
		for _, r := range e.tables[p.Table] {
			if matches(r, p.Match) {
				results = append(results, r)
			}
		}
		e.ok(req.ID, results)
	case MethodCount:
		n := 0
		for _, r := range e.tables[p.Table] {
			if matches(r, p.Match) {
				n++
			}
		}
		e.ok(req.ID, n)
	case MethodUpdate:
		for _, r := range e.tables[p.Table] {
			if matches(r, p.Match) {
				for k, v := range p.Update {
					r[k] = v
				}
			}
		}
		e.ok(req.ID, "updated")
	case MethodDelete:
		kept := e.tables[p.Table][:0]
		for _, r := range e.tables[p.Table] {
			if !matches(r, p.Match) {
				kept = append(kept, r)
			}
		}
		e.tables[p.Table] = kept
		e.ok(req.ID, "deleted")
	case MethodFlush:
		e.ok(req.ID, "flushed")
	case MethodSecure:
		e.ok(req.ID, "secured")
	case MethodRekey:
		if p.NewKey == "" {
			e.fail(req.ID, "new key must not be empty")
			return false, 0
		}
		e.ok(req.ID, "rotated")
	case MethodClose:
		e.open = false
		e.ok(req.ID, "closed")
	default:
		e.fail(req.ID, "unknown method")
	}
	return false, 0
}

// check validates a row against the table schema the way the engine does.
func (e *fakeEngine) check(table string, row map[string]any) string {
	fields, ok := e.schema[table]
	if !ok {
		return "table not found: " + table
	}
	for _, f := range fields {
		v, present := row[f.Name]
		if !present {
			return "missing field: " + f.Name
		}
		if !f.Unique {
			continue
		}
		for _, existing := range e.tables[table] {
			if existing[f.Name] == v {
				return "unique constraint violation: " + f.Name
			}
		}
	}
	return ""
}

func isEngineMethod(method string) bool {
	switch method {
	case MethodDefineSchema, MethodSyncSchema, MethodPullSchema, MethodDropTable,
		MethodInsert, MethodBatchInsert, MethodQuery, MethodCount, MethodUpdate,
		MethodDelete, MethodFlush, MethodSecure, MethodRekey:
		return true
	}
	return false
}
