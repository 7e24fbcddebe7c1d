package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrTypeInvalidField, "bad field"),
			expected: "invalid_field: bad field",
		},
		{
			name:     "error with cause",
			err:      Wrap(errors.New("connection reset"), ErrTypeDatabase, "query failed"),
			expected: "database: query failed (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("syntax error")
	err := Wrapf(cause, ErrTypeDatabase, "execute %q", "SELECT 1")

	assert.Equal(t, ErrTypeDatabase, err.Type)
	assert.Equal(t, `execute "SELECT 1"`, err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("save book: %w", InvalidField("page", "Book"))

	assert.True(t, IsType(err, ErrTypeInvalidField))
	assert.False(t, IsType(err, ErrTypeInvalidFieldValue))
	assert.False(t, IsType(errors.New("plain"), ErrTypeInvalidField))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeNoConnection, GetType(NoConnection(errors.New("exhausted"))))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	assert.Contains(t, InvalidField("page", "Book").Error(), `field "page" not defined in Book model`)
	assert.Contains(t, InvalidFieldValue("name", "string", "int").Error(), "expected a value of type string")
	assert.Contains(t, ValueNotInitialized("name").Error(), `field "name" was not initialized`)
	assert.Equal(t, "feature_not_implemented: Modify table is not implemented", FeatureNotImplemented("Modify table").Error())
	assert.Equal(t, ErrTypeUnsupportedNativeType, UnsupportedNativeType("float", "sqlite").Type)
	assert.Contains(t, IndexOutOfRange(0, 0).Error(), "index 0 out of range for 0 results")
}

func TestIsAndAs(t *testing.T) {
	sentinel := errors.New("pool exhausted")
	err := NoConnection(sentinel)

	assert.True(t, Is(err, sentinel))

	var structured *Error
	assert.True(t, As(fmt.Errorf("save: %w", err), &structured))
	assert.Equal(t, ErrTypeNoConnection, structured.Type)
}

func TestJoinKeepsTypes(t *testing.T) {
	err := Join(FeatureNotImplemented("Modify table"), nil)

	assert.True(t, IsType(err, ErrTypeFeatureNotImplemented))
	assert.Nil(t, Join(nil, nil))
}
