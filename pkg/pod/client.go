package pod

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

// Client provides access to the pod endpoints.
type Client struct {
	http *httpx.Client
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
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{http: httpClient}
}

// Create makes a new pod owned by username.
func (c *Client) Create(ctx context.Context, username, name, password string) error {
	return c.post(ctx, "new", username, podRequest{PodName: name, Password: password}, true)
}

// Open decrypts a pod so its contents can be used.
func (c *Client) Open(ctx context.Context, username, name, password string) error {
	return c.post(ctx, "open", username, podRequest{PodName: name, Password: password}, true)
}

// Sync refreshes the metadata of an open pod.
func (c *Client) Sync(ctx context.Context, username, name string) error {
	return c.post(ctx, "sync", username, podRequest{PodName: name}, false)
}

// Close closes an open pod.
func (c *Client) Close(ctx context.Context, username, name string) error {
	return c.post(ctx, "close", username, podRequest{PodName: name}, false)
}

func (c *Client) post(ctx context.Context, op, username string, body podRequest, withPassword bool) error {
	args := []dfs.Arg{dfs.Required("user_name", username), dfs.Required("pod_name", body.PodName)}
	if withPassword {
		args = append(args, dfs.Required("password", body.Password))
	}
	if err := dfs.Check(dfs.GroupPod, op, args...); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "pod/" + op,
		User:   username,
		JSON:   body,
	}, nil)
	return dfs.Wrap(dfs.GroupPod, op, err, nil)
}

// Share publishes a pod and returns its sharing reference.
func (c *Client) Share(ctx context.Context, username, name, password string) (string, error) {
	const op = "share"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("pod_name", name), dfs.Required("password", password)); err != nil {
		return "", err
	}
	var res shareResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "pod/share",
		User:   username,
		JSON:   podRequest{PodName: name, Password: password},
	}, &res)
	if err != nil {
		return "", dfs.Wrap(dfs.GroupPod, op, err, nil)
	}
	return res.Reference, nil
}

// Delete removes a pod and everything in it.
func (c *Client) Delete(ctx context.Context, username, name, password string) error {
	const op = "delete"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("pod_name", name), dfs.Required("password", password)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "pod/delete",
		User:   username,
		JSON:   podRequest{PodName: name, Password: password},
	}, nil)
	return dfs.Wrap(dfs.GroupPod, op, err, nil)
}

// Exists reports whether username owns a pod called name.
func (c *Client) Exists(ctx context.Context, username, name string) (bool, error) {
	const op = "present"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("pod_name", name)); err != nil {
		return false, err
	}
	var res dfsapi.Present
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "pod/present",
		User:   username,
		Query:  url.Values{"pod_name": {name}},
	}, &res)
	if err != nil {
		return false, dfs.Wrap(dfs.GroupPod, op, err, nil)
	}
	return res.Present, nil
}

// List returns the owned and the received pod names.
func (c *Client) List(ctx context.Context, username string) (*List, error) {
	if err := dfs.Check(dfs.GroupPod, "ls", dfs.Required("user_name", username)); err != nil {
		return nil, err
	}
	var res List
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "pod/ls",
		User:   username,
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupPod, "ls", err, nil)
	}
	if res.Pods == nil {
		res.Pods = []string{}
	}
	if res.SharedPods == nil {
		res.SharedPods = []string{}
	}
	return &res, nil
}

// Info returns the name and address of a pod.
func (c *Client) Info(ctx context.Context, username, name string) (*Info, error) {
	const op = "stat"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("pod_name", name)); err != nil {
		return nil, err
	}
	var res statResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "pod/stat",
		User:   username,
		Query:  url.Values{"pod_name": {name}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupPod, op, err, nil)
	}
	return &Info{Name: res.PodName, Address: res.Address}, nil
}

// Receive adds the pod behind reference to the shared pods of username.
func (c *Client) Receive(ctx context.Context, username, reference string) error {
	const op = "receive"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("sharing_ref", reference)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "pod/receive",
		User:   username,
		Query:  url.Values{"sharing_ref": {reference}},
	}, nil)
	return dfs.Wrap(dfs.GroupPod, op, err, nil)
}

// SharedInfo describes the pod behind reference without receiving it.
func (c *Client) SharedInfo(ctx context.Context, username, reference string) (*SharedInfo, error) {
	const op = "receiveinfo"
	if err := dfs.Check(dfs.GroupPod, op, dfs.Required("user_name", username), dfs.Required("sharing_ref", reference)); err != nil {
		return nil, err
	}
	var res receiveInfoResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "pod/receiveinfo",
		User:   username,
		Query:  url.Values{"sharing_ref": {reference}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupPod, op, err, nil)
	}
	return &SharedInfo{
		Name:        res.PodName,
		Address:     res.PodAddress,
		Username:    res.UserName,
		UserAddress: res.UserAddress,
		SharedTime:  res.SharedTime.Time,
	}, nil
}
