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
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// ArrowType returns the arrow data type used for t.
func (t FieldType) ArrowType() (arrow.DataType, error) {
	switch t {
	case FieldTypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case FieldTypeString:
		return arrow.BinaryTypes.String, nil
	case FieldTypeFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case FieldTypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	default:
		return nil, fmt.Errorf("unsupported field type: %s", t)
	}
}

// ArrowSchema returns an arrow schema with one nullable column per field.
func (s *Schema) ArrowSchema() (*arrow.Schema, error) {
	return arrowSchema(s.Fields)
}

func arrowSchema(fields []Field) (*arrow.Schema, error) {
	arrowFields := make([]arrow.Field, 0, len(fields))
	for _, f := range fields {
		dt, err := f.Type.ArrowType()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		arrowFields = append(arrowFields, arrow.Field{Name: f.Name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(arrowFields, nil), nil
}

// RowsToArrow builds a record with a column per field from rows. Keys missing
// from a row, or holding nil, become nulls. Keys not in fields are ignored.
//
// The caller must release the returned record.
func RowsToArrow(mem memory.Allocator, fields []Field, rows []Row) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	schema, err := arrowSchema(fields)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, row := range rows {
		for j, f := range fields {
			if err := appendValue(b.Field(j), f, row[f.Name]); err != nil {
				return nil, fmt.Errorf("row %d: field %s: %w", i, f.Name, err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(fb array.Builder, f Field, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}

	switch f.Type {
	case FieldTypeInt:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		fb.(*array.Int64Builder).Append(n)
	case FieldTypeFloat:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		fb.(*array.Float64Builder).Append(x)
	case FieldTypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		fb.(*array.StringBuilder).Append(s)
	case FieldTypeBool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		fb.(*array.BooleanBuilder).Append(x)
	default:
		return fmt.Errorf("unsupported field type: %s", f.Type)
	}
	return nil
}

// toInt64 accepts any Go integer kind plus integral floats, which is how
// encoding/json decodes numbers.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		return floatToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case json.Number:
		return x.Int64()
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// floatToInt64 rejects fractions and values outside [-2^63, 2^63).
func floatToInt64(x float64) (int64, error) {
	if x != math.Trunc(x) || x < math.MinInt64 || x >= 1<<63 {
		return 0, fmt.Errorf("%v is not an int64", x)
	}
	return int64(x), nil
}

func uintToInt64(x uint64) (int64, error) {
	if x > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", x)
	}
	return int64(x), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case uint:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		n, err := toInt64(x)
		return float64(n), err
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// WriteArrowIPC writes records as an arrow IPC stream. All records must share
// the first record's schema.
func WriteArrowIPC(w io.Writer, records ...arrow.Record) (err error) {
	if len(records) == 0 {
		return errors.New("cannot encode empty records")
	}

	writer := ipc.NewWriter(w, ipc.WithSchema(records[0].Schema()))
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadArrowIPC reads every record of an arrow IPC stream. The caller must
// release the returned records.
func ReadArrowIPC(r io.Reader) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(r, ipc.WithDelayReadSchema(true))
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	records := make([]arrow.Record, 0)
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	return records, reader.Err()
}
