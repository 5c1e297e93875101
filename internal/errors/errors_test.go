package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewSchemaError("table activity_hr missing column heartRate", nil)
	assert.Equal(t, "[SCHEMA] table activity_hr missing column heartRate", err.Error())

	wrapped := NewStorageError("failed to open table file", fs.ErrNotExist)
	assert.Equal(t, "[STORAGE] failed to open table file: file does not exist", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := NewStorageError("failed to open table file", cause)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestIsType(t *testing.T) {
	err := NewConfigError("unknown training mode", nil)
	assert.True(t, IsType(err, ErrTypeConfig))
	assert.False(t, IsType(err, ErrTypeSchema))

	// Type is still detected through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("processing user 706293: %w", err)
	assert.True(t, IsType(wrapped, ErrTypeConfig))

	assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}

func TestWithContext(t *testing.T) {
	err := NewParsingError("bad timestamp", nil).
		WithContext("user_id", "706293").
		WithContext("line", 42)

	require.NotNil(t, err.Context)
	assert.Equal(t, "706293", err.Context["user_id"])
	assert.Equal(t, 42, err.Context["line"])
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("input directory")
	assert.True(t, IsType(err, ErrTypeNotFound))
	assert.Equal(t, "[NOT_FOUND] input directory not found", err.Error())
}
