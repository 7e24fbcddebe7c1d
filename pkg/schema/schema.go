// Package schema provides field descriptors, schema snapshots and the model
// registry that record types are declared with
package schema

import (
	"fmt"
	"maps"
	"slices"
)

// NativeType is the Go-side value type a column holds
type NativeType string

const (
	String  NativeType = "string"
	Integer NativeType = "integer"
	Boolean NativeType = "boolean"
)

// Valid reports whether t is one of the supported native types
func (t NativeType) Valid() bool {
	switch t {
	case String, Integer, Boolean:
		return true
	}
	return false
}

// Field describes one column. Two fields are equal when their native type and
// max length are equal, regardless of dialect.
type Field struct {
	Type      NativeType `json:"type"`
	MaxLength int        `json:"max_length,omitempty"`
}

// CharField returns a string field; maxLength 0 leaves the length to the dialect
func CharField(maxLength int) Field {
	return Field{Type: String, MaxLength: maxLength}
}

// IntField returns an integer field
func IntField() Field {
	return Field{Type: Integer}
}

// BoolField returns a boolean field
func BoolField() Field {
	return Field{Type: Boolean}
}

// Equal reports structural equality
func (f Field) Equal(other Field) bool {
	return f == other
}

// Accepts reports whether v may be stored in the field. nil is always accepted.
func (f Field) Accepts(v any) bool {
	if v == nil {
		return true
	}

	switch f.Type {
	case String:
		_, ok := v.(string)
		return ok
	case Integer:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case Boolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}

func (f Field) String() string {
	if f.MaxLength > 0 {
		return fmt.Sprintf("%s(%d)", f.Type, f.MaxLength)
	}
	return string(f.Type)
}

// Snapshot maps lower-cased column names to their descriptors
type Snapshot map[string]Field

// Equal reports whether both snapshots hold the same columns and descriptors
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// Without returns a copy of the snapshot without the named column
func (s Snapshot) Without(name string) Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		if k != name {
			out[k] = v
		}
	}
	return out
}

// Names returns the column names in sorted order
func (s Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
