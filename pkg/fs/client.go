package fs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

// CompressionHeader carries the requested block compression on upload.
const CompressionHeader = "fairOS-dfs-Compression"

// Client provides access to the directory and file endpoints.
type Client struct {
	http  *httpx.Client
	local afero.Fs
}

// Option configures a Client.
type Option func(*Client)

// WithFs sets the filesystem used by UploadFile and DownloadFile.
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

// Mkdir creates a directory inside pod.
func (c *Client) Mkdir(ctx context.Context, username, pod, path string) error {
	const op = "mkdir"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", path)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "dir/mkdir",
		User:   username,
		JSON:   dirRequest{PodName: pod, DirPath: path},
	}, nil)
	return dfs.Wrap(dfs.GroupFS, op, err, nil)
}

// Rmdir removes a directory and its contents.
func (c *Client) Rmdir(ctx context.Context, username, pod, path string) error {
	const op = "rmdir"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", path)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "dir/rmdir",
		User:   username,
		JSON:   dirRequest{PodName: pod, DirPath: path},
	}, nil)
	return dfs.Wrap(dfs.GroupFS, op, err, nil)
}

// List returns the directories and files directly under path.
func (c *Client) List(ctx context.Context, username, pod, path string) ([]DirEntry, []FileEntry, error) {
	const op = "ls"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", path)); err != nil {
		return nil, nil, err
	}
	var res listResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "dir/ls",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "dir_path": {path}},
	}, &res)
	if err != nil {
		return nil, nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}

	dirs := make([]DirEntry, 0, len(res.Dirs))
	for _, d := range res.Dirs {
		dirs = append(dirs, DirEntry{
			Name:             d.Name,
			ContentType:      d.ContentType,
			CreationTime:     d.CreationTime.Time,
			ModificationTime: d.ModificationTime.Time,
			AccessTime:       d.AccessTime.Time,
		})
	}
	files := make([]FileEntry, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, FileEntry{
			Name:             f.Name,
			ContentType:      f.ContentType,
			Size:             uint64(f.Size),
			BlockSize:        BlockSize(f.BlockSize),
			CreationTime:     f.CreationTime.Time,
			ModificationTime: f.ModificationTime.Time,
			AccessTime:       f.AccessTime.Time,
		})
	}
	return dirs, files, nil
}

// DirExists reports whether path is a directory of pod.
func (c *Client) DirExists(ctx context.Context, username, pod, path string) (bool, error) {
	const op = "present"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", path)); err != nil {
		return false, err
	}
	var res dfsapi.Present
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "dir/present",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "dir_path": {path}},
	}, &res)
	if err != nil {
		return false, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	return res.Present, nil
}

// DirInfo returns the metadata of a directory.
func (c *Client) DirInfo(ctx context.Context, username, pod, path string) (*DirInfo, error) {
	const op = "dirstat"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", path)); err != nil {
		return nil, err
	}
	var res dirStatResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "dir/stat",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "dir_path": {path}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	return &DirInfo{
		Pod:              res.PodName,
		Path:             res.DirPath,
		Name:             res.DirName,
		CreationTime:     res.CreationTime.Time,
		ModificationTime: res.ModificationTime.Time,
		AccessTime:       res.AccessTime.Time,
		Dirs:             uint64(res.Dirs),
		Files:            uint64(res.Files),
	}, nil
}

// Upload stores the contents of r as dir/name and returns the stored file
// name.
func (c *Client) Upload(ctx context.Context, username, pod, dir, name string, r io.Reader, opts *UploadOptions) (string, error) {
	const op = "upload"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("dir_path", dir), dfs.Required("file_name", name)); err != nil {
		return "", err
	}
	if opts == nil {
		opts = &UploadOptions{}
	}
	compression, err := ParseCompression(string(opts.Compression))
	if err != nil {
		return "", &dfs.Error{Group: dfs.GroupFS, Op: op, Message: err.Error(), Err: dfs.ErrInvalidArgument}
	}
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}

	form := httpx.NewMultipart()
	if err := form.WriteField("pod_name", pod); err != nil {
		return "", err
	}
	if err := form.WriteField("dir_path", dir); err != nil {
		return "", err
	}
	if err := form.WriteField("block_size", blockSize.String()); err != nil {
		return "", err
	}
	if err := form.WriteFile("files", name, contentType, r); err != nil {
		return "", fmt.Errorf("fs upload: %w", err)
	}
	req, err := form.Request("file/upload", username)
	if err != nil {
		return "", err
	}
	if compression != CompressionNone {
		req.Header.Set(CompressionHeader, string(compression))
	}

	var res uploadResponse
	if err := c.http.DoJSON(ctx, req, &res); err != nil {
		return "", dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	for _, item := range res.Responses {
		if item.FileName != "" {
			return item.FileName, nil
		}
	}
	return name, nil
}

// UploadFile uploads a local file into dir, keeping its base name.
func (c *Client) UploadFile(ctx context.Context, username, pod, dir, localPath string, opts *UploadOptions) (string, error) {
	f, err := c.local.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("fs upload: open %s: %w", localPath, err)
	}
	defer f.Close()
	return c.Upload(ctx, username, pod, dir, filepath.Base(localPath), f, opts)
}

// Download writes the contents of the file at path into w and returns the
// number of bytes written.
func (c *Client) Download(ctx context.Context, username, pod, path string, w io.Writer) (int64, error) {
	const op = "download"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("file_path", path)); err != nil {
		return 0, err
	}
	form := httpx.NewMultipart()
	if err := form.WriteField("pod_name", pod); err != nil {
		return 0, err
	}
	if err := form.WriteField("file_path", path); err != nil {
		return 0, err
	}
	req, err := form.Request("file/download", username)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return 0, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("fs download: copy body: %w", err)
	}
	return n, nil
}

// DownloadFile writes the file at path to localPath. A partially written
// file is removed on failure.
func (c *Client) DownloadFile(ctx context.Context, username, pod, path, localPath string) (int64, error) {
	f, err := c.local.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("fs download: create %s: %w", localPath, err)
	}
	n, err := c.Download(ctx, username, pod, path, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("fs download: close %s: %w", localPath, cerr)
	}
	if err != nil {
		_ = c.local.Remove(localPath)
		return 0, err
	}
	return n, nil
}

// Share makes the file at path available to receiver and returns the
// sharing reference.
func (c *Client) Share(ctx context.Context, username, pod, path, receiver string) (string, error) {
	const op = "share"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("file_path", path), dfs.Required("dest_user", receiver)); err != nil {
		return "", err
	}
	var res shareResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "file/share",
		User:   username,
		JSON:   fileRequest{PodName: pod, FilePath: path, DestUser: receiver},
	}, &res)
	if err != nil {
		return "", dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	return res.Reference, nil
}

// Remove deletes the file at path.
func (c *Client) Remove(ctx context.Context, username, pod, path string) error {
	const op = "rm"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("file_path", path)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "file/delete",
		User:   username,
		JSON:   fileRequest{PodName: pod, FilePath: path},
	}, nil)
	return dfs.Wrap(dfs.GroupFS, op, err, nil)
}

// Info returns the metadata and block layout of the file at path.
func (c *Client) Info(ctx context.Context, username, pod, path string) (*FileInfo, error) {
	const op = "stat"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("file_path", path)); err != nil {
		return nil, err
	}
	var res fileStatResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "file/stat",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "file_path": {path}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	compression, err := ParseCompression(res.Compression)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	blocks := make([]FileBlock, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		blocks = append(blocks, FileBlock{
			Name:           b.Name,
			Reference:      b.Reference,
			Size:           uint64(b.Size),
			CompressedSize: uint64(b.CompressedSize),
		})
	}
	return &FileInfo{
		Pod:              res.PodName,
		Path:             res.FilePath,
		Name:             res.FileName,
		ContentType:      res.ContentType,
		Size:             uint64(res.FileSize),
		BlockSize:        BlockSize(res.BlockSize),
		Compression:      compression,
		CreationTime:     res.CreationTime.Time,
		ModificationTime: res.ModificationTime.Time,
		AccessTime:       res.AccessTime.Time,
		Blocks:           blocks,
	}, nil
}

// Receive copies a shared file into dir of pod and returns its name.
func (c *Client) Receive(ctx context.Context, username, pod, reference, dir string) (string, error) {
	const op = "receive"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("sharing_ref", reference), dfs.Required("dir_path", dir)); err != nil {
		return "", err
	}
	var res receiveResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "file/receive",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "sharing_ref": {reference}, "dir_path": {dir}},
	}, &res)
	if err != nil {
		return "", dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	return res.FileName, nil
}

// SharedInfo describes the file behind reference without receiving it.
func (c *Client) SharedInfo(ctx context.Context, username, pod, reference string) (*SharedFileInfo, error) {
	const op = "receiveinfo"
	if err := dfs.Check(dfs.GroupFS, op, dfs.Required("user_name", username), dfs.Required("pod_name", pod), dfs.Required("sharing_ref", reference)); err != nil {
		return nil, err
	}
	var res receiveInfoResponse
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "file/receiveinfo",
		User:   username,
		Query:  url.Values{"pod_name": {pod}, "sharing_ref": {reference}},
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	compression, err := ParseCompression(res.Compression)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupFS, op, err, nil)
	}
	return &SharedFileInfo{
		Pod:         res.PodName,
		Name:        res.Name,
		ContentType: res.ContentType,
		Size:        uint64(res.Size),
		BlockSize:   BlockSize(res.BlockSize),
		Blocks:      uint64(res.NumberOfBlocks),
		Compression: compression,
		Sender:      res.SourceAddress,
		Receiver:    res.DestAddress,
		SharedTime:  res.SharedTime.Time,
	}, nil
}
