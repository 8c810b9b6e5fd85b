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
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

type stressUser struct {
	Name  string  `fake:"{name}"`
	Email string  `fake:"{email}"`
	City  string  `fake:"{city}"`
	Score float64 `fake:"{float64range:0,100}"`
}

func fakeUserRow(faker *gofakeit.Faker, id int64) (Row, error) {
	var u stressUser
	if err := faker.Struct(&u); err != nil {
		return nil, err
	}
	return Row{
		"id":    id,
		"name":  u.Name,
		"email": u.Email,
		"city":  u.City,
		"score": u.Score,
	}, nil
}

func TestStressConcurrentReadWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in short mode")
	}

	cfg := fakeConfig("1")
	cfg.CallTimeout = 10 * time.Second
	c := connectFake(t, cfg)
	ctx := context.Background()

	_, err := c.Open(ctx, filepath.Join(t.TempDir(), "stress.db"), "k")
	require.NoError(t, err)
	users := c.Table("users",
		Field{Name: "id", Type: FieldTypeInt, Unique: true},
		Field{Name: "name", Type: FieldTypeString},
		Field{Name: "email", Type: FieldTypeString},
		Field{Name: "city", Type: FieldTypeString},
		Field{Name: "score", Type: FieldTypeFloat},
	)
	require.NoError(t, users.Define(ctx))

	const (
		writers      = 8
		rowsPerWrite = 50
		readers      = 4
	)

	var (
		idGen   atomic.Int64
		wg      sync.WaitGroup
		errOnce sync.Once
		failure error
	)
	fail := func(err error) {
		errOnce.Do(func() { failure = err })
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			faker := gofakeit.New(seed)
			for i := 0; i < rowsPerWrite; i++ {
				row, err := fakeUserRow(faker, idGen.Add(1))
				if err != nil {
					fail(err)
					return
				}
				if err := users.Insert(ctx, row); err != nil {
					fail(fmt.Errorf("insert %v: %w", row["id"], err))
					return
				}
			}
		}(uint64(w + 1))
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rowsPerWrite; i++ {
				if _, err := users.Count(ctx, nil); err != nil {
					fail(fmt.Errorf("count: %w", err))
					return
				}
			}
		}()
	}

	wg.Wait()
	require.NoError(t, failure)
	require.Equal(t, 0, c.Pending())

	n, err := users.Count(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, writers*rowsPerWrite, n)

	rows, err := users.Query(ctx, Row{"id": float64(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
