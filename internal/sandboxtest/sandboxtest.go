// Package sandboxtest starts a sandbox server for client tests.
package sandboxtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/pod"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/sandbox"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/user"
)

// Env is a running sandbox and a client pointed at it.
type Env struct {
	Server *sandbox.Server
	URL    string
	HTTP   *httpx.Client
}

// New starts a sandbox that is shut down when the test ends.
func New(t testing.TB, opts ...httpx.Option) *Env {
	t.Helper()
	srv := sandbox.New()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cl, err := httpx.NewClient(ts.URL+"/v1", opts...)
	require.NoError(t, err)
	return &Env{Server: srv, URL: ts.URL + "/v1", HTTP: cl}
}

// Signup creates and logs in username.
func (e *Env) Signup(t testing.TB, username, password string) {
	t.Helper()
	_, err := user.NewWithHTTPClient(e.HTTP).Signup(context.Background(), username, password, "")
	require.NoError(t, err)
}

// Pod signs up username and creates an open pod owned by it.
func (e *Env) Pod(t testing.TB, username, password, name string) {
	t.Helper()
	e.Signup(t, username, password)
	require.NoError(t, pod.NewWithHTTPClient(e.HTTP).Create(context.Background(), username, name, password))
}

// Counter starts a server that answers every request with an empty JSON
// object. It returns the base URL and the number of requests served.
func Counter(t testing.TB) (string, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(ts.Close)
	return ts.URL + "/v1", &hits
}
