package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/spf13/afero"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

// Client provides access to the key-value endpoints.
type Client struct {
	http  *httpx.Client
	local afero.Fs
}

// Option configures a Client.
type Option func(*Client)

// WithFs sets the filesystem used by LoadCSVFile.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.local = fs
		}
	}
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client, opts ...Option) *Client {
	c := &Client{http: httpClient, local: afero.NewOsFs()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateStore creates a store in pod whose keys are ordered by indexType.
func (c *Client) CreateStore(ctx context.Context, username, pod, store string, indexType IndexType) error {
	const op = "new"
	if err := checkStore(op, username, pod, store); err != nil {
		return err
	}
	if _, err := ParseIndexType(string(indexType)); err != nil {
		return &dfs.Error{Group: dfs.GroupKV, Op: op, Message: err.Error(), Err: dfs.ErrInvalidArgument}
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "kv/new",
		User:   username,
		JSON:   storeRequest{PodName: pod, TableName: store, IndexType: indexType},
	}, nil)
	return dfs.Wrap(dfs.GroupKV, op, err, nil)
}

// OpenStore opens a store for reads and writes.
func (c *Client) OpenStore(ctx context.Context, username, pod, store string) error {
	const op = "open"
	if err := checkStore(op, username, pod, store); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "kv/open",
		User:   username,
		JSON:   storeRequest{PodName: pod, TableName: store},
	}, nil)
	return dfs.Wrap(dfs.GroupKV, op, err, nil)
}

// DeleteStore removes a store and all of its entries.
func (c *Client) DeleteStore(ctx context.Context, username, pod, store string) error {
	const op = "delete"
	if err := checkStore(op, username, pod, store); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "kv/delete",
		User:   username,
		JSON:   storeRequest{PodName: pod, TableName: store},
	}, nil)
	return dfs.Wrap(dfs.GroupKV, op, err, nil)
}

// ListStores returns the stores of pod sorted by name.
func (c *Client) ListStores(ctx context.Context, username, pod string) ([]Store, error) {
	const op = "ls"
	if err := dfs.Check(dfs.GroupKV, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod)); err != nil {
		return nil, err
	}
	var res listResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "kv/ls",
		User:   username,
		Query:  url.Values{"pod_name": {pod}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	stores := make([]Store, 0, len(res.Tables))
	for _, t := range res.Tables {
		stores = append(stores, Store{Name: t.TableName, Indexes: t.Indexes, Type: t.Type})
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

// Put stores value under key. The value is JSON encoded.
func (c *Client) Put(ctx context.Context, username, pod, store, key string, value any) error {
	const op = "put"
	if err := checkKey(op, username, pod, store, key); err != nil {
		return err
	}
	encoded, err := httpx.MarshalJSON(value)
	if err != nil {
		return fmt.Errorf("kv put: encode value: %w", err)
	}
	err = c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "kv/entry/put",
		User:   username,
		JSON:   entryRequest{PodName: pod, TableName: store, Key: key, Value: string(encoded)},
	}, nil)
	return dfs.Wrap(dfs.GroupKV, op, err, nil)
}

// Get decodes the value stored under key into out.
func (c *Client) Get(ctx context.Context, username, pod, store, key string, out any) error {
	const op = "get"
	if err := checkKey(op, username, pod, store, key); err != nil {
		return err
	}
	var res entryResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "kv/entry/get",
		User:   username,
		Query: url.Values{
			"pod_name":   {pod},
			"table_name": {store},
			"key":        {key},
			"format":     {"byte-string"},
		},
	}, &res)
	if err != nil {
		return dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	if err := dfsapi.DecodeBase64JSON(res.Values, out); err != nil {
		return dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	return nil
}

// GetValue is the generic form of Client.Get.
func GetValue[T any](ctx context.Context, c *Client, username, pod, store, key string) (T, error) {
	var value T
	err := c.Get(ctx, username, pod, store, key, &value)
	return value, err
}

// Delete removes key from store.
func (c *Client) Delete(ctx context.Context, username, pod, store, key string) error {
	const op = "del"
	if err := checkKey(op, username, pod, store, key); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "kv/entry/del",
		User:   username,
		JSON:   entryRequest{PodName: pod, TableName: store, Key: key},
	}, nil)
	return dfs.Wrap(dfs.GroupKV, op, err, nil)
}

// Count returns the number of entries in store.
func (c *Client) Count(ctx context.Context, username, pod, store string) (uint64, error) {
	const op = "count"
	if err := checkStore(op, username, pod, store); err != nil {
		return 0, err
	}
	var res countResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "kv/count",
		User:   username,
		JSON:   storeRequest{PodName: pod, TableName: store},
	}, &res)
	if err != nil {
		return 0, dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	return uint64(res.Count), nil
}

// Exists reports whether key is present in store.
func (c *Client) Exists(ctx context.Context, username, pod, store, key string) (bool, error) {
	const op = "present"
	if err := checkKey(op, username, pod, store, key); err != nil {
		return false, err
	}
	var res dfsapi.Present
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "kv/present",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "table_name": {store}, "key": {key}},
	}, &res)
	if err != nil {
		return false, dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	return res.Present, nil
}

// LoadCSV bulk loads rows read from r into store. The first CSV column is
// the key. memory asks the server to buffer the whole load in memory.
func (c *Client) LoadCSV(ctx context.Context, username, pod, store string, r io.Reader, memory bool) error {
	const op = "loadcsv"
	if err := checkStore(op, username, pod, store); err != nil {
		return err
	}
	form := httpx.NewMultipart()
	if err := form.WriteField("pod_name", pod); err != nil {
		return err
	}
	if err := form.WriteField("table_name", store); err != nil {
		return err
	}
	if memory {
		if err := form.WriteField("memory", "true"); err != nil {
			return err
		}
	}
	if err := form.WriteFile("csv", "data.csv", "text/csv", r); err != nil {
		return fmt.Errorf("kv loadcsv: %w", err)
	}
	req, err := form.Request("kv/loadcsv", username)
	if err != nil {
		return err
	}
	return dfs.Wrap(dfs.GroupKV, op, c.http.DoJSON(ctx, req, nil), nil)
}

// LoadCSVFile is LoadCSV reading from a local file.
func (c *Client) LoadCSVFile(ctx context.Context, username, pod, store, localPath string, memory bool) error {
	f, err := c.local.Open(localPath)
	if err != nil {
		return fmt.Errorf("kv loadcsv: open %s: %w", localPath, err)
	}
	defer f.Close()
	return c.LoadCSV(ctx, username, pod, store, f, memory)
}

// Seek positions the server-side cursor of store at start and returns an
// iterator over the following entries. An empty end leaves the range open;
// limit > 0 caps the number of entries returned.
func (c *Client) Seek(ctx context.Context, username, pod, store, start, end string, limit int) (*Iterator, error) {
	const op = "seek"
	if err := checkStore(op, username, pod, store); err != nil {
		return nil, err
	}
	body := seekRequest{PodName: pod, TableName: store, StartPrefix: start}
	if end != "" {
		body.EndPrefix = &end
	}
	if limit > 0 {
		body.Limit = &limit
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "kv/seek",
		User:   username,
		JSON:   body,
	}, nil)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupKV, op, err, nil)
	}
	return &Iterator{client: c, username: username, pod: pod, store: store, limit: limit}, nil
}

// Iterator walks the entries selected by Seek. It is not safe for
// concurrent use.
type Iterator struct {
	client   *Client
	username string
	pod      string
	store    string
	limit    int

	count int
	key   string
	value string
	err   error
	done  bool
}

// Next advances to the next entry. It returns false once the range is
// exhausted, the limit is reached or a request fails; Err distinguishes the
// last case.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.limit > 0 && it.count >= it.limit {
		it.done = true
		return false
	}
	var res entryResponse
	err := it.client.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "kv/seek/next",
		User:   it.username,
		Query:  url.Values{"pod_name": {it.pod}, "table_name": {it.store}},
	}, &res)
	if err != nil {
		// The server answers with an error status once the cursor is past
		// the end of the range.
		var httpErr *httpx.HTTPError
		if !errors.As(err, &httpErr) {
			it.err = dfs.Wrap(dfs.GroupKV, "seek/next", err, nil)
		}
		it.done = true
		return false
	}
	if len(res.Keys) == 0 {
		it.done = true
		return false
	}
	it.key = res.Keys[0]
	it.value = res.Values
	it.count++
	return true
}

// Key returns the key of the current entry.
func (it *Iterator) Key() string { return it.key }

// Value returns the JSON encoded value of the current entry.
func (it *Iterator) Value() string { return it.value }

// Decode unmarshals the current value into out.
func (it *Iterator) Decode(out any) error {
	if err := json.Unmarshal([]byte(it.value), out); err != nil {
		return fmt.Errorf("kv: decode value of %q: %w", it.key, err)
	}
	return nil
}

// Err returns the transport error that stopped the iteration, if any.
func (it *Iterator) Err() error { return it.err }

func checkStore(op, username, pod, store string) error {
	return dfs.Check(dfs.GroupKV, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", store))
}

func checkKey(op, username, pod, store, key string) error {
	return dfs.Check(dfs.GroupKV, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", store), dfs.Required("key", key))
}
