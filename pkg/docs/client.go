package docs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

// IDField is the document field holding the id assigned by Put.
const IDField = "id"

// Client provides access to the document database endpoints.
type Client struct {
	http  *httpx.Client
	local afero.Fs
	newID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithFs sets the filesystem used by LoadJSONFile.
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
	c := &Client{
		http:  httpClient,
		local: afero.NewOsFs(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateDatabase creates a database indexing fields.
func (c *Client) CreateDatabase(ctx context.Context, username, pod, name string, fields []Field, mutable bool) error {
	const op = "new"
	if err := checkTable(op, username, pod, name); err != nil {
		return err
	}
	si, err := SimpleIndexes(fields)
	if err != nil {
		return &dfs.Error{Group: dfs.GroupDoc, Op: op, Message: err.Error(), Err: dfs.ErrInvalidArgument}
	}
	err = c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "doc/new",
		User:   username,
		JSON:   createRequest{PodName: pod, TableName: name, Indexes: si, Mutable: mutable},
	}, nil)
	return dfs.Wrap(dfs.GroupDoc, op, err, nil)
}

// OpenDatabase opens a database for reads and writes.
func (c *Client) OpenDatabase(ctx context.Context, username, pod, name string) error {
	const op = "open"
	if err := checkTable(op, username, pod, name); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "doc/open",
		User:   username,
		JSON:   tableRequest{PodName: pod, TableName: name},
	}, nil)
	return dfs.Wrap(dfs.GroupDoc, op, err, nil)
}

// DeleteDatabase removes a database and its documents.
func (c *Client) DeleteDatabase(ctx context.Context, username, pod, name string) error {
	const op = "delete"
	if err := checkTable(op, username, pod, name); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "doc/delete",
		User:   username,
		JSON:   tableRequest{PodName: pod, TableName: name},
	}, nil)
	return dfs.Wrap(dfs.GroupDoc, op, err, nil)
}

// ListDatabases returns the databases of pod. Databases and their fields
// are sorted by name.
func (c *Client) ListDatabases(ctx context.Context, username, pod string) ([]Database, error) {
	const op = "ls"
	if err := dfs.Check(dfs.GroupDoc, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod)); err != nil {
		return nil, err
	}
	var res listResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "doc/ls",
		User:   username,
		Query:  url.Values{"pod_name": {pod}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	dbs := make([]Database, 0, len(res.Tables))
	for _, t := range res.Tables {
		fields := make([]Field, 0, len(t.Indexes))
		for _, idx := range t.Indexes {
			switch idx.Type {
			case FieldString, FieldNumber, FieldMap:
			default:
				return nil, dfs.Wrap(dfs.GroupDoc, op, fmt.Errorf("field %q has unknown type %d", idx.Name, int(idx.Type)), nil)
			}
			fields = append(fields, Field{Name: idx.Name, Type: idx.Type})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		dbs = append(dbs, Database{Name: t.TableName, Fields: fields})
	}
	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Name < dbs[j].Name })
	return dbs, nil
}

// Put stores doc, which must encode to a JSON object, and returns the id
// assigned to it. Any existing "id" field is overwritten.
func (c *Client) Put(ctx context.Context, username, pod, name string, doc any) (string, error) {
	const op = "put"
	if err := checkTable(op, username, pod, name); err != nil {
		return "", err
	}
	raw, err := httpx.MarshalJSON(doc)
	if err != nil {
		return "", fmt.Errorf("docs put: encode document: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", &dfs.Error{Group: dfs.GroupDoc, Op: op, Message: "document must be a JSON object", Err: dfs.ErrInvalidArgument}
	}
	id := c.newID()
	fields[IDField], _ = json.Marshal(id)
	encoded, err := httpx.MarshalJSON(fields)
	if err != nil {
		return "", fmt.Errorf("docs put: encode document: %w", err)
	}

	err = c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "doc/entry/put",
		User:   username,
		JSON:   putRequest{PodName: pod, TableName: name, Doc: string(encoded)},
	}, nil)
	if err != nil {
		return "", dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	return id, nil
}

// Get decodes the document with the given id into out.
func (c *Client) Get(ctx context.Context, username, pod, name, id string, out any) error {
	const op = "get"
	if err := dfs.Check(dfs.GroupDoc, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", name), dfs.Required("id", id)); err != nil {
		return err
	}
	var res getResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "doc/entry/get",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "table_name": {name}, "id": {id}},
	}, &res)
	if err != nil {
		return dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	if err := dfsapi.DecodeBase64JSON(res.Doc, out); err != nil {
		return dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	return nil
}

// Find decodes the documents matching expr into out, which must point to a
// slice. limit <= 0 lets the server apply its default.
func (c *Client) Find(ctx context.Context, username, pod, name string, expr Expr, limit int, out any) error {
	const op = "find"
	if err := checkTable(op, username, pod, name); err != nil {
		return err
	}
	rendered, err := expr.Render()
	if err != nil {
		return dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	q := url.Values{"pod_name": {pod}, "table_name": {name}, "expr": {rendered}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res findResponse
	err = c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "doc/find",
		User:   username,
		Query:  q,
	}, &res)
	if err != nil {
		return dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, encoded := range res.Docs {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return dfs.Wrap(dfs.GroupDoc, op, fmt.Errorf("decode document %d: %w", i, err), nil)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(bytes.TrimSpace(data))
	}
	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return dfs.Wrap(dfs.GroupDoc, op, fmt.Errorf("decode documents: %w", err), nil)
	}
	return nil
}

// FindAs is the generic form of Client.Find.
func FindAs[T any](ctx context.Context, c *Client, username, pod, name string, expr Expr, limit int) ([]T, error) {
	var docs []T
	if err := c.Find(ctx, username, pod, name, expr, limit, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// Delete removes the document with the given id.
func (c *Client) Delete(ctx context.Context, username, pod, name, id string) error {
	const op = "del"
	if err := dfs.Check(dfs.GroupDoc, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", name), dfs.Required("id", id)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "doc/entry/del",
		User:   username,
		JSON:   deleteRequest{PodName: pod, TableName: name, ID: id},
	}, nil)
	return dfs.Wrap(dfs.GroupDoc, op, err, nil)
}

// Count returns the number of documents matching expr.
func (c *Client) Count(ctx context.Context, username, pod, name string, expr Expr) (uint64, error) {
	const op = "count"
	if err := checkTable(op, username, pod, name); err != nil {
		return 0, err
	}
	rendered, err := expr.Render()
	if err != nil {
		return 0, dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	var res dfsapi.Message
	err = c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "doc/count",
		User:   username,
		JSON:   countRequest{PodName: pod, TableName: name, Expr: rendered},
	}, &res)
	if err != nil {
		return 0, dfs.Wrap(dfs.GroupDoc, op, err, nil)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(res.Message), 10, 64)
	if err != nil {
		return 0, dfs.Wrap(dfs.GroupDoc, op, fmt.Errorf("invalid count %q", res.Message), nil)
	}
	return n, nil
}

// LoadJSON bulk loads documents read from r, one JSON object per line.
func (c *Client) LoadJSON(ctx context.Context, username, pod, name string, r io.Reader) error {
	const op = "loadjson"
	if err := checkTable(op, username, pod, name); err != nil {
		return err
	}
	form := httpx.NewMultipart()
	if err := form.WriteField("pod_name", pod); err != nil {
		return err
	}
	if err := form.WriteField("table_name", name); err != nil {
		return err
	}
	if err := form.WriteFile("json", "data.json", "application/json", r); err != nil {
		return fmt.Errorf("docs loadjson: %w", err)
	}
	req, err := form.Request("doc/loadjson", username)
	if err != nil {
		return err
	}
	return dfs.Wrap(dfs.GroupDoc, op, c.http.DoJSON(ctx, req, nil), nil)
}

// LoadJSONFile is LoadJSON reading from a local file.
func (c *Client) LoadJSONFile(ctx context.Context, username, pod, name, localPath string) error {
	f, err := c.local.Open(localPath)
	if err != nil {
		return fmt.Errorf("docs loadjson: open %s: %w", localPath, err)
	}
	defer f.Close()
	return c.LoadJSON(ctx, username, pod, name, f)
}

// IndexJSON indexes a JSON file already stored in pod into the database.
func (c *Client) IndexJSON(ctx context.Context, username, pod, name, file string) error {
	const op = "indexjson"
	if err := dfs.Check(dfs.GroupDoc, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", name), dfs.Required("file_name", file)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "doc/indexjson",
		User:   username,
		JSON:   indexRequest{PodName: pod, TableName: name, FileName: file},
	}, nil)
	return dfs.Wrap(dfs.GroupDoc, op, err, nil)
}

func checkTable(op, username, pod, name string) error {
	return dfs.Check(dfs.GroupDoc, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("table_name", name))
}
