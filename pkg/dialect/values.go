package dialect

import (
	"fmt"
	"strconv"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// EncodeArg converts a bound value to what the backend stores. Booleans
// become 0/1 on backends without a boolean type.
func (d *Dialect) EncodeArg(v any) any {
	if b, ok := v.(bool); ok && !d.nativeBool {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// EncodeArgs applies EncodeArg to every argument
func (d *Dialect) EncodeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = d.EncodeArg(a)
	}
	return out
}

// DecodeValue converts a scanned driver value into the Go type of f: string,
// int64 or bool. NULL decodes to nil.
func (d *Dialect) DecodeValue(column string, f schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	var (
		v   any
		err error
	)
	switch f.Type {
	case schema.String:
		v, err = decodeString(raw)
	case schema.Integer:
		v, err = decodeInt(raw)
	case schema.Boolean:
		v, err = decodeBool(raw)
	default:
		return nil, errors.UnsupportedNativeType(string(f.Type), string(d.name))
	}

	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeInvalidFieldValue, "decode column %s", column)
	}
	return v, nil
}

func decodeString(raw any) (string, error) {
	switch x := raw.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", fmt.Errorf("cannot read %T as string", raw)
}

func decodeInt(raw any) (int64, error) {
	switch x := raw.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as integer", raw)
}

func decodeBool(raw any) (bool, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}

	if s, ok := raw.([]byte); ok {
		raw = string(s)
	}
	if s, ok := raw.(string); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("cannot read %q as boolean", s)
		}
		return b, nil
	}

	i, err := decodeInt(raw)
	if err != nil {
		return false, fmt.Errorf("cannot read %T as boolean", raw)
	}
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("cannot read integer %d as boolean", i)
}
