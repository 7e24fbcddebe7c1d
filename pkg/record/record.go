package record

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Record is one instance of a model. Every declared field holds a value
// (possibly null); the id is unset until the first successful insert.
type Record struct {
	model  *schema.Model
	values map[string]Value
	id     int64
	hasID  bool
}

// New builds a record from keyword values. Unknown keys, mistyped values and
// missing declared fields are rejected. An "id" key is accepted so persisted
// rows can be materialised.
func New(model *schema.Model, values map[string]any) (*Record, error) {
	if err := model.Validate(values); err != nil {
		return nil, err
	}

	r := &Record{
		model:  model,
		values: make(map[string]Value, len(values)),
	}

	for name, raw := range values {
		col := strings.ToLower(name)
		v, err := FromAny(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInvalidFieldValue, col)
		}
		if col == schema.IDColumn {
			// ids start at 1, a zero id is unset
			if id, ok := v.Int(); ok && id > 0 {
				r.id, r.hasID = id, true
			}
			continue
		}
		r.values[col] = v
	}

	for _, name := range model.FieldNames() {
		if _, ok := r.values[name]; !ok {
			return nil, errors.ValueNotInitialized(name)
		}
	}

	return r, nil
}

// Model returns the record's model
func (r *Record) Model() *schema.Model {
	return r.model
}

// ID returns the persisted id; ok is false before the first insert
func (r *Record) ID() (int64, bool) {
	return r.id, r.hasID
}

// AssignID sets the id. It may only be called once per record.
func (r *Record) AssignID(id int64) error {
	if r.hasID {
		return errors.Newf(errors.ErrTypeIDAlreadyAssigned, "%s record already has id %d", r.model.Name(), r.id)
	}
	r.id, r.hasID = id, true
	return nil
}

// Get returns the value of a declared field or id
func (r *Record) Get(name string) (Value, error) {
	col := strings.ToLower(name)
	if col == schema.IDColumn {
		if !r.hasID {
			return Null(), nil
		}
		return IntValue(r.id), nil
	}
	v, ok := r.values[col]
	if !ok {
		return Value{}, errors.InvalidField(name, r.model.Name())
	}
	return v, nil
}

// Str returns a string field; ok is false when the value is null
func (r *Record) Str(name string) (string, bool, error) {
	v, err := r.typed(name, schema.String)
	if err != nil {
		return "", false, err
	}
	s, ok := v.Str()
	return s, ok, nil
}

// Int returns an integer field; ok is false when the value is null
func (r *Record) Int(name string) (int64, bool, error) {
	v, err := r.typed(name, schema.Integer)
	if err != nil {
		return 0, false, err
	}
	i, ok := v.Int()
	return i, ok, nil
}

// Bool returns a boolean field; ok is false when the value is null
func (r *Record) Bool(name string) (bool, bool, error) {
	v, err := r.typed(name, schema.Boolean)
	if err != nil {
		return false, false, err
	}
	b, ok := v.Bool()
	return b, ok, nil
}

func (r *Record) typed(name string, want schema.NativeType) (Value, error) {
	field, ok := r.model.Field(name)
	if !ok {
		return Value{}, errors.InvalidField(name, r.model.Name())
	}
	if field.Type != want {
		return Value{}, errors.InvalidFieldValue(name, string(field.Type), string(want))
	}
	return r.Get(name)
}

// Set assigns a declared field. The id cannot be set this way.
func (r *Record) Set(name string, value any) error {
	col := strings.ToLower(name)
	if col == schema.IDColumn {
		return errors.Newf(errors.ErrTypeInvalidField, "field %q is managed by the database", schema.IDColumn)
	}
	if err := r.model.Validate(map[string]any{col: value}); err != nil {
		return err
	}
	v, err := FromAny(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInvalidFieldValue, col)
	}
	r.values[col] = v
	return nil
}

// Args returns the declared field values in declaration order
func (r *Record) Args() []any {
	names := r.model.FieldNames()
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = r.values[name].Any()
	}
	return args
}

// Matches reports whether every criterion equals the record's value.
// Criteria are expected to be validated against the model already.
func (r *Record) Matches(criteria map[string]any) bool {
	for name, raw := range criteria {
		want, err := FromAny(raw)
		if err != nil {
			return false
		}
		got, err := r.Get(name)
		if err != nil || got != want {
			return false
		}
	}
	return true
}

// ToMap returns all values, id included, as plain Go values
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.values)+1)
	if r.hasID {
		out[schema.IDColumn] = r.id
	} else {
		out[schema.IDColumn] = nil
	}
	for name, v := range r.values {
		out[name] = v.Any()
	}
	return out
}

// String renders the record as {id: 1, name: "1984"} in declaration order
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("{id: ")
	if r.hasID {
		fmt.Fprintf(&sb, "%d", r.id)
	} else {
		sb.WriteString("null")
	}
	for _, name := range r.model.FieldNames() {
		fmt.Fprintf(&sb, ", %s: %s", name, r.values[name])
	}
	sb.WriteString("}")
	return sb.String()
}

// GoString renders the record as Book(name="1984") with sorted keys
func (r *Record) GoString() string {
	parts := make([]string, 0, len(r.values)+1)
	if r.hasID {
		parts = append(parts, fmt.Sprintf("id=%d", r.id))
	}
	for name, v := range r.values {
		parts = append(parts, fmt.Sprintf("%s=%s", name, v))
	}
	slices.Sort(parts)
	return fmt.Sprintf("%s(%s)", r.model.Name(), strings.Join(parts, ", "))
}
