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
)

// databaseAPI lists the engine operations. Arguments are passed through
// unvalidated; the engine reports bad input as an *Error.
type databaseAPI interface {
	Open(ctx context.Context, path, key string) (string, error)
	DefineSchema(ctx context.Context, table string, fields []Field) (string, error)
	SyncSchema(ctx context.Context, table string, fields []Field, force bool) (string, error)
	PullSchema(ctx context.Context) (string, error)
	DropTable(ctx context.Context, table string) (string, error)
	Insert(ctx context.Context, table string, row Row) (string, error)
	BatchInsert(ctx context.Context, table string, rows []Row) (string, error)
	Query(ctx context.Context, table string, match Row) ([]Row, error)
	Count(ctx context.Context, table string, match Row) (int64, error)
	Update(ctx context.Context, table string, match, patch Row) (string, error)
	Delete(ctx context.Context, table string, match Row) (string, error)
	Flush(ctx context.Context, table string) (string, error)
	Secure(ctx context.Context) (string, error)
	Rekey(ctx context.Context, newKey, masterKey string) (string, error)
}

var _ databaseAPI = (*Client)(nil)

func (c *Client) callString(ctx context.Context, method string, params any) (string, error) {
	data, err := c.Call(ctx, method, params)
	if err != nil {
		return "", err
	}
	return decodeString(method, data)
}

// Open opens or creates the database file at path, encrypted with key.
func (c *Client) Open(ctx context.Context, path, key string) (string, error) {
	return c.callString(ctx, MethodOpen, &openParams{Path: path, Key: key})
}

// DefineSchema declares the fields of table.
func (c *Client) DefineSchema(ctx context.Context, table string, fields []Field) (string, error) {
	return c.callString(ctx, MethodDefineSchema, &schemaParams{Table: table, Fields: fields})
}

// SyncSchema reconciles the stored schema of table with fields. With force
// set the engine may drop data that no longer fits.
func (c *Client) SyncSchema(ctx context.Context, table string, fields []Field, force bool) (string, error) {
	return c.callString(ctx, MethodSyncSchema, &syncSchemaParams{Table: table, Fields: fields, Force: force})
}

// PullSchema asks the engine to write its schema file from the open database.
func (c *Client) PullSchema(ctx context.Context) (string, error) {
	return c.callString(ctx, MethodPullSchema, nil)
}

// DropTable removes table and its records.
func (c *Client) DropTable(ctx context.Context, table string) (string, error) {
	return c.callString(ctx, MethodDropTable, &tableParams{Table: table})
}

// Insert adds one row to table.
func (c *Client) Insert(ctx context.Context, table string, row Row) (string, error) {
	return c.callString(ctx, MethodInsert, &insertParams{Table: table, Row: row})
}

// BatchInsert adds rows to table in one request.
func (c *Client) BatchInsert(ctx context.Context, table string, rows []Row) (string, error) {
	if rows == nil {
		rows = []Row{}
	}
	return c.callString(ctx, MethodBatchInsert, &batchInsertParams{Table: table, Records: rows})
}

// Query returns the rows of table whose fields equal every entry in match.
// A nil match selects all rows.
func (c *Client) Query(ctx context.Context, table string, match Row) ([]Row, error) {
	data, err := c.Call(ctx, MethodQuery, &matchParams{Table: table, Match: orEmpty(match)})
	if err != nil {
		return nil, err
	}
	return decodeRows(MethodQuery, data)
}

// Count returns the number of rows of table matching match.
func (c *Client) Count(ctx context.Context, table string, match Row) (int64, error) {
	data, err := c.Call(ctx, MethodCount, &matchParams{Table: table, Match: orEmpty(match)})
	if err != nil {
		return 0, err
	}
	return decodeCount(MethodCount, data)
}

// Update applies patch to the rows of table matching match.
func (c *Client) Update(ctx context.Context, table string, match, patch Row) (string, error) {
	return c.callString(ctx, MethodUpdate, &updateParams{Table: table, Match: match, Update: patch})
}

// Delete removes the rows of table matching match.
func (c *Client) Delete(ctx context.Context, table string, match Row) (string, error) {
	return c.callString(ctx, MethodDelete, &matchParams{Table: table, Match: match})
}

// Flush persists buffered writes of table.
func (c *Client) Flush(ctx context.Context, table string) (string, error) {
	return c.callString(ctx, MethodFlush, &tableParams{Table: table})
}

// Secure generates a master key for the open database. The engine writes it to
// secure.pem next to the database file.
func (c *Client) Secure(ctx context.Context) (string, error) {
	return c.callString(ctx, MethodSecure, nil)
}

// Rekey re-encrypts the database with newKey, authorized by masterKey.
func (c *Client) Rekey(ctx context.Context, newKey, masterKey string) (string, error) {
	return c.callString(ctx, MethodRekey, &rekeyParams{NewKey: newKey, MasterKey: masterKey})
}

func orEmpty(r Row) Row {
	if r == nil {
		return Row{}
	}
	return r
}
