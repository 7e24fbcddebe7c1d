// Package record implements record instances: a value bag keyed by declared
// field name plus the persisted id
package record

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Value is a tagged column value: null, string, integer or boolean.
// The zero Value is null.
type Value struct {
	kind schema.NativeType
	s    string
	i    int64
	b    bool
}

// Null returns the null value
func Null() Value { return Value{} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: schema.String, s: s} }

// IntValue wraps an integer
func IntValue(i int64) Value { return Value{kind: schema.Integer, i: i} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{kind: schema.Boolean, b: b} }

// FromAny converts a Go value into a Value. Integer kinds are widened to int64.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case uint64:
		return fromUint(x)
	}
	return Value{}, fmt.Errorf("unsupported value type %T", v)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return IntValue(int64(u)), nil
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == "" }

// Type returns the native type, or "" for null
func (v Value) Type() schema.NativeType { return v.kind }

// Str returns the string payload; ok is false unless the value is a string
func (v Value) Str() (string, bool) { return v.s, v.kind == schema.String }

// Int returns the integer payload; ok is false unless the value is an integer
func (v Value) Int() (int64, bool) { return v.i, v.kind == schema.Integer }

// Bool returns the boolean payload; ok is false unless the value is a boolean
func (v Value) Bool() (bool, bool) { return v.b, v.kind == schema.Boolean }

// Any returns the payload as nil, string, int64 or bool
func (v Value) Any() any {
	switch v.kind {
	case schema.String:
		return v.s
	case schema.Integer:
		return v.i
	case schema.Boolean:
		return v.b
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case schema.String:
		return strconv.Quote(v.s)
	case schema.Integer:
		return strconv.FormatInt(v.i, 10)
	case schema.Boolean:
		return strconv.FormatBool(v.b)
	}
	return "null"
}
