// Package codec translates between the domain models in internal/models
// and the flat bson.M records the Store Adapter persists. Each entity
// carries a schema_version field so a future field rename can be
// migrated in one place instead of scattered across every caller, with
// an explicit encode/decode pair per entity so decoding failures surface
// as a typed DecodeError rather than a panic deep inside a handler.
package codec

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"adaptive-quiz-core/internal/store"
)

// CurrentSchemaVersion is stamped onto every record this codec encodes.
const CurrentSchemaVersion = "1"

// DecodeError names the offending field when a persisted record doesn't
// match the shape an entity decoder expects.
type DecodeError struct {
	Entity string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: %s.%s: %s", e.Entity, e.Field, e.Reason)
}

func newDecodeError(entity, field, reason string) *DecodeError {
	return &DecodeError{Entity: entity, Field: field, Reason: reason}
}

func getString(rec store.Record, field string) (string, bool) {
	v, ok := rec[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func getInt(rec store.Record, field string) (int, bool) {
	switch v := rec[field].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func getBool(rec store.Record, field string) (bool, bool) {
	b, ok := rec[field].(bool)
	return b, ok
}

func getTime(rec store.Record, field string) (time.Time, bool) {
	t, ok := rec[field].(time.Time)
	return t, ok
}

func getFloat(rec store.Record, field string) (float64, bool) {
	switch v := rec[field].(type) {
	case float64:
		return v, true
	case primitive.Decimal128:
		f, err := decimalToFloat(v)
		return f, err == nil
	default:
		return 0, false
	}
}

// decimalToFloat converts a Decimal128 to float64 for in-memory
// arithmetic; persistence always goes back through floatToDecimal so
// repeated encode/decode cycles never compound binary rounding error
// into the stored aggregate.
func decimalToFloat(d primitive.Decimal128) (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}

// floatToDecimal is decimalToFloat's inverse, used by every encoder that
// persists a difficulty value.
func floatToDecimal(f float64) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(strconv.FormatFloat(f, 'f', -1, 64))
}
