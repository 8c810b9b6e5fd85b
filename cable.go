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
	"sync"
	"time"
)

// InsertCable buffers rows for one table and writes them with batch_insert.
//
// A batch is sent when BatchSize rows are buffered or BatchInterval elapses,
// whichever comes first. Set the fields before calling Start.
type InsertCable struct {
	c     *Client
	table string

	sendRowCh chan *cableRow
	sendRows  []*cableRow

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	// BatchSize is the number of rows per batch. Values below 1 send every row alone.
	BatchSize int
	// BatchInterval is the longest a buffered row waits.
	BatchInterval time.Duration
}

type cableRow struct {
	row Row
	err chan error
}

func (c *Client) InsertCable(table string) *InsertCable {
	return &InsertCable{
		c:             c,
		table:         table,
		sendRowCh:     make(chan *cableRow),
		closed:        make(chan struct{}),
		done:          make(chan struct{}),
		BatchSize:     512,
		BatchInterval: time.Second,
	}
}

// Start runs the batching loop. Rows still buffered when ctx is done fail with
// the context error.
func (c *InsertCable) Start(ctx context.Context) {
	batchSize := max(c.BatchSize, 1)
	interval := c.BatchInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush(ctx)
			case r := <-c.sendRowCh:
				c.sendRows = append(c.sendRows, r)
				if len(c.sendRows) >= batchSize {
					c.flush(ctx)
				}
			case <-c.closed:
				c.flush(ctx)
				return
			case <-ctx.Done():
				c.fail(ctx.Err())
				return
			}
		}
	}()
}

func (c *InsertCable) flush(ctx context.Context) {
	if len(c.sendRows) == 0 {
		return
	}

	rows := make([]Row, 0, len(c.sendRows))
	for _, r := range c.sendRows {
		rows = append(rows, r.row)
	}

	_, err := c.c.BatchInsert(ctx, c.table, rows)
	if err != nil {
		c.c.logger.Warn("Batch insert failed", "table", c.table, "rows", len(rows), "error", err)
	}
	c.fail(err)
}

// fail settles every buffered row with err, which may be nil.
func (c *InsertCable) fail(err error) {
	for _, r := range c.sendRows {
		if err != nil {
			r.err <- err
		}
		close(r.err)
	}
	c.sendRows = c.sendRows[:0]
}

// Send buffers row. The returned channel yields the batch error, or is closed
// without a value once the row is written.
func (c *InsertCable) Send(row Row) <-chan error {
	r := &cableRow{
		row: row,
		err: make(chan error, 1),
	}
	select {
	case c.sendRowCh <- r:
	case <-c.closed:
		r.err <- ErrClosed
		close(r.err)
	case <-c.done:
		r.err <- ErrClosed
		close(r.err)
	}
	return r.err
}

// Close writes the remaining rows and stops the loop. It blocks until the final
// batch is settled, so it must follow Start.
func (c *InsertCable) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	<-c.done
}
