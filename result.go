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
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is a single record. Keys are field names.
//
// Values decoded from the engine follow encoding/json rules, so numbers are float64.
type Row map[string]any

// Schema describes the fields of a table.
type Schema struct {
	// Table is the table name.
	Table string `json:"table"`
	// Fields is the ordered list of fields. Uniqueness is by name.
	Fields []Field `json:"fields"`
}

// Field describes a single field.
type Field struct {
	// Name is the field name.
	Name string `json:"Name"`
	// Type is the field data type.
	Type FieldType `json:"Type"`
	// Unique marks the field as a unique index.
	Unique bool `json:"Unique"`
}

// FieldType is the type of field.
type FieldType int

const (
	// FieldTypeInt is an integer field.
	FieldTypeInt FieldType = iota
	// FieldTypeString is a string field.
	FieldTypeString
	// FieldTypeFloat is a floating point field.
	FieldTypeFloat
	// FieldTypeBool is a boolean field.
	FieldTypeBool
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeInt:
		return "int"
	case FieldTypeString:
		return "string"
	case FieldTypeFloat:
		return "float"
	case FieldTypeBool:
		return "bool"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeString reads the status text most engine methods reply with, e.g. "inserted".
func decodeString(method string, data json.RawMessage) (string, error) {
	if isNull(data) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("decode %s result: %w", method, err)
	}
	return s, nil
}

func decodeRows(method string, data json.RawMessage) ([]Row, error) {
	if isNull(data) {
		return []Row{}, nil
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return rows, nil
}

func decodeCount(method string, data json.RawMessage) (int64, error) {
	if isNull(data) {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, fmt.Errorf("decode %s result: %w", method, err)
	}
	return n, nil
}
