package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelErrorError(t *testing.T) {
	testCases := []struct {
		name     string
		err      *KernelError
		expected string
	}{
		{
			name:     "code and message",
			err:      NewValidationError("ERR_X", "bad input"),
			expected: "[ERR_X] bad input",
		},
		{
			name:     "with path",
			err:      NewConfigError(ErrCodeConfigLoad, "cannot load", nil).WithPath("/cfg/app.yaml"),
			expected: "[ERR_CONFIG_LOAD] /cfg/app.yaml cannot load",
		},
		{
			name:     "with cause",
			err:      NewIOError("ERR_IO", "read failed", errors.New("disk gone")),
			expected: "[ERR_IO] read failed: disk gone",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestErrAppNotFound(t *testing.T) {
	err := ErrAppNotFound("admin")

	assert.Equal(t, ErrorTypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Error(), "app not exists: admin")
	assert.Equal(t, "admin", err.Context["app"])
	assert.True(t, IsNotFound(err))
	assert.False(t, IsClassNotFound(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("parse: %w", err)))
}

func TestClassNotFound(t *testing.T) {
	err := NewClassNotFoundError(`app\model\Ghost`)

	assert.True(t, IsClassNotFound(err))
	class, ok := ClassOf(fmt.Errorf("factory: %w", err))
	require.True(t, ok)
	assert.Equal(t, `app\model\Ghost`, class)

	_, ok = ClassOf(errors.New("plain"))
	assert.False(t, ok)

	wrapped := Wrap(err, ErrorTypeConfig, ErrCodeConfigInvalid, "cannot resolve handler")
	assert.True(t, IsClassNotFound(wrapped))
	class, ok = ClassOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, `app\model\Ghost`, class)
	assert.False(t, IsNotFound(wrapped))
}

func TestKernelErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewStateError(ErrCodeAlreadyInitialized, "already initialized"))

	assert.True(t, errors.Is(err, NewStateError(ErrCodeAlreadyInitialized, "")))
	assert.False(t, errors.Is(err, NewStateError(ErrCodeNotInitialized, "")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewClassNotFoundError("x")))
}

func TestWrapPreservesClassification(t *testing.T) {
	inner := ErrAppNotFound("admin")
	wrapped := Wrap(inner, ErrorTypeInternal, "ERR_PARSE", "parse failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, http.StatusNotFound, wrapped.Status)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
	assert.ErrorIs(t, wrapped, inner)
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "x", "y"))
}

func TestWrapIOAndConfig(t *testing.T) {
	cause := errors.New("permission denied")

	ioErr := WrapIO(cause, "ERR_READ", "/tmp/x")
	assert.Equal(t, ErrorTypeIO, ioErr.Type)
	assert.Equal(t, "/tmp/x", ioErr.Path)
	assert.ErrorIs(t, ioErr, cause)

	cfgErr := WrapConfig(cause, ErrCodeConfigLoad, "/cfg/db.yaml")
	assert.Equal(t, ErrorTypeConfig, cfgErr.Type)
	assert.Contains(t, cfgErr.Error(), "/cfg/db.yaml")
}

func TestExtractCause(t *testing.T) {
	root := errors.New("root")
	err := Wrap(Wrap(root, ErrorTypeIO, "A", "a"), ErrorTypeConfig, "B", "b")

	assert.Equal(t, root, ExtractCause(err))
	assert.Nil(t, ExtractCause(nil))
}

func TestCombineErrors(t *testing.T) {
	assert.Nil(t, CombineErrors(nil, nil))

	single := errors.New("one")
	assert.Equal(t, single, CombineErrors(nil, single))

	two := errors.New("two")
	combined := CombineErrors(single, two)
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "2 errors")
	assert.ErrorIs(t, combined, two)
}

type recordingLogger struct {
	errors []string
	warns  []string
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	h := NewErrorHandler(logger)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, ErrAppNotFound("x"))
	h.Handle(ctx, NewClassNotFoundError("y"))
	h.Handle(ctx, errors.New("plain"))

	assert.Equal(t, []string{"Request rejected"}, logger.warns)
	assert.Equal(t, []string{"Error occurred", "Unhandled error occurred"}, logger.errors)
}
