package schema

import (
	"regexp"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
)

// IDColumn is the implicit auto-incrementing primary key of every table
const IDColumn = "id"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FieldDef names a field in a model declaration
type FieldDef struct {
	Name  string
	Field Field
}

// Def pairs a name with an arbitrary descriptor
func Def(name string, field Field) FieldDef {
	return FieldDef{Name: name, Field: field}
}

// Char declares a string field
func Char(name string, maxLength int) FieldDef {
	return Def(name, CharField(maxLength))
}

// Int declares an integer field
func Int(name string) FieldDef {
	return Def(name, IntField())
}

// Bool declares a boolean field
func Bool(name string) FieldDef {
	return Def(name, BoolField())
}

// Model is the registry of a record type: its name and declared fields in
// declaration order. A Model is immutable; Redefine produces a new one.
type Model struct {
	name   string
	fields []FieldDef
	index  map[string]int
}

// Define validates the declaration and builds a Model
func Define(name string, defs ...FieldDef) (*Model, error) {
	if !identifierRe.MatchString(name) {
		return nil, errors.Newf(errors.ErrTypeInvalidField, "invalid model name %q", name)
	}

	m := &Model{
		name:   name,
		fields: make([]FieldDef, 0, len(defs)),
		index:  make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if !identifierRe.MatchString(def.Name) {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "invalid field name %q in %s model", def.Name, name)
		}
		col := strings.ToLower(def.Name)
		if col == IDColumn {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "field %q is reserved in %s model", IDColumn, name)
		}
		if _, dup := m.index[col]; dup {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "field %q declared twice in %s model", col, name)
		}
		if !def.Field.Type.Valid() {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "field %q in %s model has unknown type %q", col, name, def.Field.Type)
		}
		if def.Field.MaxLength < 0 {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "field %q in %s model has negative max length", col, name)
		}
		if def.Field.MaxLength > 0 && def.Field.Type != String {
			return nil, errors.Newf(errors.ErrTypeInvalidField, "field %q in %s model: max length applies to string fields only", col, name)
		}

		m.index[col] = len(m.fields)
		m.fields = append(m.fields, FieldDef{Name: col, Field: def.Field})
	}

	return m, nil
}

// MustDefine is Define for package-level declarations; it panics on error
func MustDefine(name string, defs ...FieldDef) *Model {
	m, err := Define(name, defs...)
	if err != nil {
		panic(err)
	}
	return m
}

// Redefine returns a model with the same name and a new field set. The
// receiver is left untouched, so records built from it stay consistent.
func (m *Model) Redefine(defs ...FieldDef) (*Model, error) {
	return Define(m.name, defs...)
}

// Name returns the declared model name
func (m *Model) Name() string {
	return m.name
}

// TableName returns the lower-cased table name
func (m *Model) TableName() string {
	return strings.ToLower(m.name)
}

// FieldNames returns declared field names in declaration order, without id
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.fields))
	for i, def := range m.fields {
		names[i] = def.Name
	}
	return names
}

// Fields returns the declared fields in declaration order, without id
func (m *Model) Fields() []FieldDef {
	out := make([]FieldDef, len(m.fields))
	copy(out, m.fields)
	return out
}

// DeclaredFields returns the declared snapshot without id
func (m *Model) DeclaredFields() Snapshot {
	s := make(Snapshot, len(m.fields))
	for _, def := range m.fields {
		s[def.Name] = def.Field
	}
	return s
}

// AllFields returns the declared snapshot including id
func (m *Model) AllFields() Snapshot {
	s := m.DeclaredFields()
	s[IDColumn] = IntField()
	return s
}

// Field looks up a field by name, id included. Lookup is case-insensitive.
func (m *Model) Field(name string) (Field, bool) {
	col := strings.ToLower(name)
	if col == IDColumn {
		return IntField(), true
	}
	i, ok := m.index[col]
	if !ok {
		return Field{}, false
	}
	return m.fields[i].Field, true
}

// Validate checks that every key names a field (or id) and every value fits
// its field's native type
func (m *Model) Validate(values map[string]any) error {
	for name, value := range values {
		field, ok := m.Field(name)
		if !ok {
			return errors.InvalidField(name, m.name)
		}
		if !field.Accepts(value) {
			return errors.InvalidFieldValue(name, string(field.Type), goTypeName(value))
		}
	}
	return nil
}
