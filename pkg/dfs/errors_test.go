package dfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
)

var errTaken = errors.New("taken")

func TestWrap(t *testing.T) {
	known := map[string]error{"user signup: user name already present": errTaken}

	tests := []struct {
		name    string
		err     error
		target  error
		status  int
		message string
	}{
		{
			name:    "known message",
			err:     &httpx.HTTPError{StatusCode: http.StatusBadRequest, Message: "user signup: user name already present"},
			target:  errTaken,
			status:  http.StatusBadRequest,
			message: "user signup: user name already present",
		},
		{
			name:    "unknown message",
			err:     &httpx.HTTPError{StatusCode: http.StatusInternalServerError, Message: "boom"},
			target:  ErrRequest,
			status:  http.StatusInternalServerError,
			message: "boom",
		},
		{
			name:    "raw body",
			err:     &httpx.HTTPError{StatusCode: http.StatusNotFound, Body: []byte("404 page not found")},
			target:  ErrRequest,
			status:  http.StatusNotFound,
			message: "404 page not found",
		},
		{
			name:   "no session",
			err:    fmt.Errorf("%w %q", httpx.ErrNoSession, "alice"),
			target: ErrNotLoggedIn,
		},
		{
			name:   "transport",
			err:    fmt.Errorf("%w: %w", httpx.ErrCouldNotConnect, context.DeadlineExceeded),
			target: ErrCouldNotConnect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(GroupUser, "signup", tt.err, known)
			require.ErrorIs(t, err, tt.target)
			var dfsErr *Error
			require.ErrorAs(t, err, &dfsErr)
			assert.Equal(t, GroupUser, dfsErr.Group)
			assert.Equal(t, "signup", dfsErr.Op)
			assert.Equal(t, tt.status, dfsErr.Status)
			assert.Equal(t, tt.message, dfsErr.Message)
		})
	}

	assert.NoError(t, Wrap(GroupPod, "open", nil, nil))

	plain := Wrap(GroupKV, "get", errors.New("decode"), nil)
	assert.EqualError(t, plain, "kv get: decode")
}

func TestCheck(t *testing.T) {
	err := Check(GroupPod, "open", Required("pod_name", "  "), Required("password", "secret"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "pod_name")
	assert.NotContains(t, err.Error(), "password")

	assert.NoError(t, Check(GroupPod, "open", Required("pod_name", "photos")))
}
