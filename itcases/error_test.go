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

package itcases

import (
	"context"
	"testing"

	emojidb "github.com/emojidb/emojidb-sdk/go"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func TestQueryBeforeOpen(t *testing.T) {
	c := NewClient(t)

	_, err := c.Query(context.Background(), "users", nil)
	var engineErr *emojidb.Error
	require.ErrorAs(t, err, &engineErr)
	snaps.MatchSnapshot(t, err.Error())
}

func TestUnknownMethod(t *testing.T) {
	c := NewClient(t)

	_, err := c.Call(context.Background(), "no_such_method", nil)
	require.Error(t, err)
	snaps.MatchSnapshot(t, err.Error())
	require.Equal(t, emojidb.StateConnected, c.Status().State)
}

func TestInsertIntoMissingTable(t *testing.T) {
	c := OpenClient(t)

	_, err := c.Insert(context.Background(), "missing_table", emojidb.Row{"id": 1})
	require.Error(t, err)
	snaps.MatchSnapshot(t, err.Error())
}
