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

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Table binds a table name, and optionally its fields, to a client.
type Table struct {
	c *Client

	// Name is the name of the table.
	Name string
	// Fields is the schema used by Define, Sync and QueryAsArrow.
	//
	// This is optional and may be empty.
	Fields []Field
}

func (c *Client) Table(name string, fields ...Field) *Table {
	return &Table{
		c:      c,
		Name:   name,
		Fields: fields,
	}
}

// Schema returns the table's name and fields.
func (t *Table) Schema() *Schema {
	return &Schema{Table: t.Name, Fields: t.Fields}
}

func (t *Table) Define(ctx context.Context) error {
	_, err := t.c.DefineSchema(ctx, t.Name, t.Fields)
	return err
}

func (t *Table) Sync(ctx context.Context, force bool) error {
	_, err := t.c.SyncSchema(ctx, t.Name, t.Fields, force)
	return err
}

func (t *Table) Insert(ctx context.Context, row Row) error {
	_, err := t.c.Insert(ctx, t.Name, row)
	return err
}

func (t *Table) InsertBatch(ctx context.Context, rows []Row) error {
	_, err := t.c.BatchInsert(ctx, t.Name, rows)
	return err
}

func (t *Table) Query(ctx context.Context, match Row) ([]Row, error) {
	return t.c.Query(ctx, t.Name, match)
}

// QueryAsArrow runs Query and converts the rows into a record shaped by t.Fields.
// The caller must release the record.
func (t *Table) QueryAsArrow(ctx context.Context, mem memory.Allocator, match Row) (arrow.Record, error) {
	rows, err := t.Query(ctx, match)
	if err != nil {
		return nil, err
	}
	return RowsToArrow(mem, t.Fields, rows)
}

func (t *Table) Update(ctx context.Context, match, patch Row) error {
	_, err := t.c.Update(ctx, t.Name, match, patch)
	return err
}

func (t *Table) Delete(ctx context.Context, match Row) error {
	_, err := t.c.Delete(ctx, t.Name, match)
	return err
}

func (t *Table) Count(ctx context.Context, match Row) (int64, error) {
	return t.c.Count(ctx, t.Name, match)
}

func (t *Table) Flush(ctx context.Context) error {
	_, err := t.c.Flush(ctx, t.Name)
	return err
}

func (t *Table) Drop(ctx context.Context) error {
	_, err := t.c.DropTable(ctx, t.Name)
	return err
}
