package kv_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/internal/sandboxtest"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/kv"
)

type tag struct {
	Count int    `json:"count"`
	Color string `json:"color,omitempty"`
}

func setup(t *testing.T, index kv.IndexType) *kv.Client {
	t.Helper()
	env := sandboxtest.New(t)
	env.Pod(t, "alice", "secret", "photos")
	c := kv.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()
	require.NoError(t, c.CreateStore(ctx, "alice", "photos", "tags", index))
	require.NoError(t, c.OpenStore(ctx, "alice", "photos", "tags"))
	return c
}

func TestPutGet(t *testing.T) {
	c := setup(t, kv.IndexString)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "alice", "photos", "tags", "sunset", tag{Count: 3, Color: "orange"}))

	var got tag
	require.NoError(t, c.Get(ctx, "alice", "photos", "tags", "sunset", &got))
	assert.Equal(t, tag{Count: 3, Color: "orange"}, got)

	generic, err := kv.GetValue[tag](ctx, c, "alice", "photos", "tags", "sunset")
	require.NoError(t, err)
	assert.Equal(t, got, generic)

	ok, err := c.Exists(ctx, "alice", "photos", "tags", "sunset")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := c.Count(ctx, "alice", "photos", "tags")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, c.Delete(ctx, "alice", "photos", "tags", "sunset"))
	err = c.Get(ctx, "alice", "photos", "tags", "sunset", &got)
	assert.ErrorIs(t, err, dfs.ErrRequest)
}

func TestStores(t *testing.T) {
	c := setup(t, kv.IndexString)
	ctx := context.Background()
	require.NoError(t, c.CreateStore(ctx, "alice", "photos", "counters", kv.IndexNumber))

	stores, err := c.ListStores(ctx, "alice", "photos")
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "counters", stores[0].Name)
	assert.Equal(t, "number", stores[0].Type)
	assert.Equal(t, "tags", stores[1].Name)

	assert.ErrorIs(t, c.CreateStore(ctx, "alice", "photos", "x", "float"), dfs.ErrInvalidArgument)

	require.NoError(t, c.DeleteStore(ctx, "alice", "photos", "counters"))
	stores, err = c.ListStores(ctx, "alice", "photos")
	require.NoError(t, err)
	assert.Len(t, stores, 1)
}

func TestSeek(t *testing.T) {
	c := setup(t, kv.IndexString)
	ctx := context.Background()
	for i, k := range []string{"apple", "apricot", "banana", "blueberry", "cherry"} {
		require.NoError(t, c.Put(ctx, "alice", "photos", "tags", k, tag{Count: i}))
	}

	tests := []struct {
		name  string
		start string
		end   string
		limit int
		want  []string
	}{
		{name: "everything", want: []string{"apple", "apricot", "banana", "blueberry", "cherry"}},
		{name: "prefix range", start: "b", end: "b", want: []string{"banana", "blueberry"}},
		{name: "limit", start: "a", limit: 3, want: []string{"apple", "apricot", "banana"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := c.Seek(ctx, "alice", "photos", "tags", tt.start, tt.end, tt.limit)
			require.NoError(t, err)
			var keys []string
			for it.Next(ctx) {
				keys = append(keys, it.Key())
				var v tag
				require.NoError(t, it.Decode(&v))
			}
			require.NoError(t, it.Err())
			assert.Equal(t, tt.want, keys)
			assert.False(t, it.Next(ctx))
		})
	}
}

func TestNumberIndex(t *testing.T) {
	c := setup(t, kv.IndexNumber)
	ctx := context.Background()
	for _, k := range []string{"10", "2", "33"} {
		require.NoError(t, c.Put(ctx, "alice", "photos", "tags", k, k))
	}
	assert.ErrorIs(t, c.Put(ctx, "alice", "photos", "tags", "ten", 10), dfs.ErrRequest)

	it, err := c.Seek(ctx, "alice", "photos", "tags", "", "", 0)
	require.NoError(t, err)
	var keys []string
	for it.Next(ctx) {
		keys = append(keys, it.Key())
		assert.Equal(t, `"`+it.Key()+`"`, it.Value())
	}
	assert.Equal(t, []string{"2", "10", "33"}, keys)
}

func TestLoadCSV(t *testing.T) {
	c := setup(t, kv.IndexString)
	ctx := context.Background()
	csv := "name,count,color\nsunset,3,orange\nforest,7,green\n"

	require.NoError(t, c.LoadCSV(ctx, "alice", "photos", "tags", strings.NewReader(csv), true))
	n, err := c.Count(ctx, "alice", "photos", "tags")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	got, err := kv.GetValue[map[string]string](ctx, c, "alice", "photos", "tags", "forest")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "forest", "count": "7", "color": "green"}, got)

	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/more.csv", []byte("name,count\nriver,1\n"), 0o644))
	withFs := setupWithFs(t, local)
	require.NoError(t, withFs.LoadCSVFile(ctx, "alice", "photos", "tags", "/more.csv", false))
	ok, err := withFs.Exists(ctx, "alice", "photos", "tags", "river")
	require.NoError(t, err)
	assert.True(t, ok)
}

func setupWithFs(t *testing.T, local afero.Fs) *kv.Client {
	t.Helper()
	env := sandboxtest.New(t)
	env.Pod(t, "alice", "secret", "photos")
	c := kv.NewWithHTTPClient(env.HTTP, kv.WithFs(local))
	ctx := context.Background()
	require.NoError(t, c.CreateStore(ctx, "alice", "photos", "tags", kv.IndexString))
	require.NoError(t, c.OpenStore(ctx, "alice", "photos", "tags"))
	return c
}

func TestStoreMustBeOpen(t *testing.T) {
	env := sandboxtest.New(t)
	env.Pod(t, "alice", "secret", "photos")
	c := kv.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()
	require.NoError(t, c.CreateStore(ctx, "alice", "photos", "tags", kv.IndexString))

	err := c.Put(ctx, "alice", "photos", "tags", "k", 1)
	var dfsErr *dfs.Error
	require.ErrorAs(t, err, &dfsErr)
	assert.Equal(t, "kv put: table not open", dfsErr.Message)

	assert.ErrorIs(t, c.Put(ctx, "alice", "photos", "tags", "", 1), dfs.ErrInvalidArgument)
}

func TestEmptyUsernameRejected(t *testing.T) {
	url, hits := sandboxtest.Counter(t)
	c, err := kv.New(url)
	require.NoError(t, err)
	ctx := context.Background()

	calls := map[string]func() error{
		"new":     func() error { return c.CreateStore(ctx, "", "photos", "tags", kv.IndexString) },
		"open":    func() error { return c.OpenStore(ctx, "", "photos", "tags") },
		"delete":  func() error { return c.DeleteStore(ctx, "", "photos", "tags") },
		"ls":      func() error { _, err := c.ListStores(ctx, "", "photos"); return err },
		"put":     func() error { return c.Put(ctx, "", "photos", "tags", "k", 1) },
		"get":     func() error { var v int; return c.Get(ctx, "", "photos", "tags", "k", &v) },
		"del":     func() error { return c.Delete(ctx, "", "photos", "tags", "k") },
		"count":   func() error { _, err := c.Count(ctx, "", "photos", "tags"); return err },
		"present": func() error { _, err := c.Exists(ctx, "", "photos", "tags", "k"); return err },
		"loadcsv": func() error { return c.LoadCSV(ctx, "", "photos", "tags", strings.NewReader("k,v\n"), false) },
		"seek":    func() error { _, err := c.Seek(ctx, "", "photos", "tags", "a", "z", 10); return err },
	}
	for op, call := range calls {
		assert.ErrorIs(t, call(), dfs.ErrInvalidArgument, op)
	}
	assert.Zero(t, hits.Load())
}

// seekServer accepts any kv/seek and answers kv/seek/next with next.
func seekServer(t *testing.T, next http.HandlerFunc) *kv.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/kv/seek", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"seeked","code":200}`))
	})
	mux.HandleFunc("/v1/kv/seek/next", next)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	session := httpx.NewSession()
	session.Set("alice", "cookie")
	c, err := kv.New(ts.URL+"/v1", httpx.WithSession(session))
	require.NoError(t, err)
	return c
}

func TestSeekEndsOnServerError(t *testing.T) {
	c := seekServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "photos", r.URL.Query().Get("pod_name"))
		assert.Equal(t, "tags", r.URL.Query().Get("table_name"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"no more keys","code":400}`))
	})
	ctx := context.Background()

	it, err := c.Seek(ctx, "alice", "photos", "tags", "a", "", 0)
	require.NoError(t, err)
	assert.False(t, it.Next(ctx))
	assert.NoError(t, it.Err())
	assert.False(t, it.Next(ctx))
}

func TestSeekReportsTransportFailure(t *testing.T) {
	var calls atomic.Int64
	c := seekServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"keys":["a"],"values":"1"}`))
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	ctx := context.Background()

	it, err := c.Seek(ctx, "alice", "photos", "tags", "a", "", 0)
	require.NoError(t, err)
	require.True(t, it.Next(ctx))
	assert.Equal(t, "a", it.Key())
	assert.Equal(t, "1", it.Value())

	assert.False(t, it.Next(ctx))
	require.Error(t, it.Err())
	assert.ErrorIs(t, it.Err(), dfs.ErrCouldNotConnect)
	var dfsErr *dfs.Error
	require.ErrorAs(t, it.Err(), &dfsErr)
	assert.Equal(t, "seek/next", dfsErr.Op)
	assert.False(t, it.Next(ctx))
}
