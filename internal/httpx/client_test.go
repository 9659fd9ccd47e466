package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoKeepsBasePath(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"present":true}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/v1")
	require.NoError(t, err)

	var out struct {
		Present bool `json:"present"`
	}
	err = c.DoJSON(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/user/present",
		Query:  map[string][]string{"user_name": {"alice"}},
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.Present)
	assert.Equal(t, "/v1/user/present", gotPath)
	assert.Equal(t, "user_name=alice", gotQuery)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/user/login":
			http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "abc123", Path: "/"})
			w.WriteHeader(http.StatusOK)
		default:
			ck, err := r.Cookie(CookieName)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			seen.Store(ck.Value)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/v1")
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "user/login", JSON: map[string]string{"user_name": "alice"}})
	require.NoError(t, err)
	require.True(t, c.CaptureSession("alice", resp))
	closeBody(resp.Body)

	require.NoError(t, c.DoJSON(ctx, &Request{Method: http.MethodGet, Path: "user/stat", User: "alice"}, nil))
	assert.Equal(t, "abc123", seen.Load())
	assert.Equal(t, []string{"alice"}, c.Session().Users())
}

func TestDoWithoutSessionFailsLocally(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "user/stat", User: "bob"})
	require.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestHTTPErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "user login: invalid password", "code": 400})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodPost, Path: "user/login"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "user login: invalid password", httpErr.Message)
	assert.Equal(t, 400, httpErr.Code)
	assert.False(t, httpErr.Retryable())
}

func TestNoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "pod/ls"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRetryPolicyReplaysBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"pod_name":"p"}` {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))
	require.NoError(t, err)

	err = c.DoJSON(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "pod/sync",
		JSON:   map[string]string{"pod_name": "p"},
	}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCouldNotConnect(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "user/present"})
	require.ErrorIs(t, err, ErrCouldNotConnect)
}

func TestMultipartRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"pod":  r.FormValue("pod_name"),
			"name": hdr.Filename,
			"type": hdr.Header.Get("Content-Type"),
			"data": string(data),
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	form := NewMultipart()
	require.NoError(t, form.WriteField("pod_name", "photos"))
	require.NoError(t, form.WriteFile("files", "a.txt", "text/plain", strings.NewReader("hello")))
	req, err := form.Request("file/upload", "")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.DoJSON(context.Background(), req, &out))
	assert.Equal(t, map[string]string{"pod": "photos", "name": "a.txt", "type": "text/plain", "data": "hello"}, out)
}

func TestHandlerTransport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `"pong"`)
	})
	c, err := NewClient("http://sandbox.local/v1", WithHTTPClient(&http.Client{Transport: HandlerTransport(mux)}))
	require.NoError(t, err)

	var out string
	require.NoError(t, c.DoJSON(context.Background(), &Request{Method: http.MethodGet, Path: "ping"}, &out))
	assert.Equal(t, "pong", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Do(ctx, &Request{Method: http.MethodGet, Path: "ping"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "localhost:9090", "::"} {
		_, err := NewClient(raw)
		assert.Error(t, err, raw)
	}
}
