// Package dfs holds the error model shared by the FairOS-dfs API clients.
//
// Every client method returns either nil or an error that unwraps to one of
// the sentinels below, so callers can branch with errors.Is regardless of the
// API group that produced it:
//
//	if errors.Is(err, dfs.ErrCouldNotConnect) { ... }
//
// Group specific sentinels (for example user.ErrInvalidPassword) are wrapped
// the same way. The server status code and message stay available through
// errors.As with *dfs.Error.
package dfs

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
)

// Group names the API area an operation belongs to.
type Group string

const (
	GroupUser Group = "user"
	GroupPod  Group = "pod"
	GroupFS   Group = "fs"
	GroupKV   Group = "kv"
	GroupDoc  Group = "doc"
)

var (
	// ErrCouldNotConnect reports a transport failure: no response was received.
	ErrCouldNotConnect = httpx.ErrCouldNotConnect
	// ErrNotLoggedIn is returned when an authenticated call is made for a
	// user without a session cookie.
	ErrNotLoggedIn = errors.New("dfs: user is not logged in")
	// ErrRequest reports a non-2xx answer without a more specific mapping.
	ErrRequest = errors.New("dfs: request failed")
	// ErrUnsupported marks client features the server protocol cannot express.
	ErrUnsupported = errors.New("dfs: unsupported")
	// ErrInvalidArgument is returned before any request is sent when an
	// argument fails validation.
	ErrInvalidArgument = errors.New("dfs: invalid argument")
)

// Error describes a failed API operation.
type Error struct {
	Group   Group
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s %s: %s (status %d)", e.Group, e.Op, e.Message, e.Status)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %s", e.Group, e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Group, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: failed", e.Group, e.Op)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap converts a transport error into an *Error. Server messages listed in
// known are mapped to their sentinel; any other non-2xx answer wraps
// ErrRequest. Errors the transport did not produce are returned wrapped with
// the operation name only.
func Wrap(group Group, op string, err error, known map[string]error) error {
	if err == nil {
		return nil
	}
	var httpErr *httpx.HTTPError
	switch {
	case errors.As(err, &httpErr):
		sentinel := ErrRequest
		if s, ok := known[httpErr.Message]; ok {
			sentinel = s
		}
		msg := httpErr.Message
		if msg == "" {
			msg = string(httpErr.Body)
		}
		return &Error{Group: group, Op: op, Status: httpErr.StatusCode, Message: msg, Err: sentinel}
	case errors.Is(err, httpx.ErrNoSession):
		return &Error{Group: group, Op: op, Err: ErrNotLoggedIn}
	case errors.Is(err, httpx.ErrCouldNotConnect):
		return &Error{Group: group, Op: op, Err: err}
	default:
		return fmt.Errorf("%s %s: %w", group, op, err)
	}
}

// Arg is one named argument checked by Check.
type Arg struct {
	Name  string
	Value any
	Rules []validation.Rule
}

// Required builds an Arg that must hold a non-blank string.
func Required(name, value string) Arg {
	return Arg{Name: name, Value: strings.TrimSpace(value), Rules: []validation.Rule{validation.Required}}
}

// Check validates args before a request is built. Failures wrap
// ErrInvalidArgument.
func Check(group Group, op string, args ...Arg) error {
	errs := make(validation.Errors, len(args))
	for _, a := range args {
		errs[a.Name] = validation.Validate(a.Value, a.Rules...)
	}
	if err := errs.Filter(); err != nil {
		return &Error{Group: group, Op: op, Message: err.Error(), Err: ErrInvalidArgument}
	}
	return nil
}
