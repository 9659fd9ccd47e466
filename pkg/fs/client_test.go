package fs_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/sandboxtest"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/fs"
)

func setup(t *testing.T) (*sandboxtest.Env, *fs.Client, afero.Fs) {
	t.Helper()
	env := sandboxtest.New(t)
	env.Pod(t, "alice", "secret", "photos")
	local := afero.NewMemMapFs()
	return env, fs.NewWithHTTPClient(env.HTTP, fs.WithFs(local)), local
}

func TestDirectories(t *testing.T) {
	_, c, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Mkdir(ctx, "alice", "photos", "/albums"))
	require.NoError(t, c.Mkdir(ctx, "alice", "photos", "/albums/2023"))
	assert.ErrorIs(t, c.Mkdir(ctx, "alice", "photos", "/albums"), dfs.ErrRequest)

	ok, err := c.DirExists(ctx, "alice", "photos", "/albums/2023")
	require.NoError(t, err)
	assert.True(t, ok)

	dirs, files, err := c.List(ctx, "alice", "photos", "/")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "albums", dirs[0].Name)
	assert.False(t, dirs[0].CreationTime.IsZero())
	assert.Empty(t, files)

	info, err := c.DirInfo(ctx, "alice", "photos", "/albums")
	require.NoError(t, err)
	assert.Equal(t, "albums", info.Name)
	assert.Equal(t, uint64(1), info.Dirs)
	assert.Equal(t, uint64(0), info.Files)

	require.NoError(t, c.Rmdir(ctx, "alice", "photos", "/albums"))
	ok, err = c.DirExists(ctx, "alice", "photos", "/albums/2023")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadDownload(t *testing.T) {
	tests := []struct {
		name string
		opts *fs.UploadOptions
	}{
		{name: "defaults"},
		{name: "gzip", opts: &fs.UploadOptions{BlockSize: fs.Kilobyte, Compression: fs.CompressionGzip}},
		{name: "snappy", opts: &fs.UploadOptions{BlockSize: 2 * fs.Kilobyte, Compression: fs.CompressionSnappy, ContentType: "application/x-digits"}},
	}
	data := strings.Repeat("0123456789", 400)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c, _ := setup(t)
			ctx := context.Background()

			name, err := c.Upload(ctx, "alice", "photos", "/", "digits.txt", strings.NewReader(data), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "digits.txt", name)

			var buf bytes.Buffer
			n, err := c.Download(ctx, "alice", "photos", "/digits.txt", &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), n)
			assert.Equal(t, data, buf.String())

			info, err := c.Info(ctx, "alice", "photos", "/digits.txt")
			require.NoError(t, err)
			assert.Equal(t, "digits.txt", info.Name)
			assert.Equal(t, uint64(len(data)), info.Size)

			want := fs.UploadOptions{BlockSize: fs.DefaultBlockSize, ContentType: "text/plain; charset=utf-8"}
			if tt.opts != nil {
				want.BlockSize, want.Compression = tt.opts.BlockSize, tt.opts.Compression
				if tt.opts.ContentType != "" {
					want.ContentType = tt.opts.ContentType
				}
			}
			assert.Equal(t, want.BlockSize, info.BlockSize)
			assert.Equal(t, want.Compression, info.Compression)
			assert.Equal(t, want.ContentType, info.ContentType)
			blocks := (uint64(len(data)) + uint64(want.BlockSize) - 1) / uint64(want.BlockSize)
			assert.Len(t, info.Blocks, int(blocks))
			for _, b := range info.Blocks {
				assert.Len(t, b.Reference, 64)
			}

			_, files, err := c.List(ctx, "alice", "photos", "/")
			require.NoError(t, err)
			require.Len(t, files, 1)
			assert.Equal(t, uint64(len(data)), files[0].Size)
		})
	}
}

func TestUploadRejectsBadCompression(t *testing.T) {
	_, c, _ := setup(t)
	_, err := c.Upload(context.Background(), "alice", "photos", "/", "a.txt", strings.NewReader("x"), &fs.UploadOptions{Compression: "zstd"})
	assert.ErrorIs(t, err, dfs.ErrInvalidArgument)
}

func TestLocalFiles(t *testing.T) {
	_, c, local := setup(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(local, "/tmp/notes.md", []byte("# notes"), 0o644))

	name, err := c.UploadFile(ctx, "alice", "photos", "/", "/tmp/notes.md", nil)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", name)

	n, err := c.DownloadFile(ctx, "alice", "photos", "/notes.md", "/out/notes.md")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	got, err := afero.ReadFile(local, "/out/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "# notes", string(got))

	_, err = c.DownloadFile(ctx, "alice", "photos", "/missing.md", "/out/missing.md")
	assert.ErrorIs(t, err, dfs.ErrRequest)
	exists, err := afero.Exists(local, "/out/missing.md")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Remove(ctx, "alice", "photos", "/notes.md"))
	_, err = c.Info(ctx, "alice", "photos", "/notes.md")
	assert.ErrorIs(t, err, dfs.ErrRequest)
}

func TestShareAndReceive(t *testing.T) {
	env, c, _ := setup(t)
	ctx := context.Background()
	env.Pod(t, "bob", "hunter2", "inbox")

	_, err := c.Upload(ctx, "alice", "photos", "/", "hello.txt", strings.NewReader("hello bob"), &fs.UploadOptions{Compression: fs.CompressionSnappy})
	require.NoError(t, err)

	ref, err := c.Share(ctx, "alice", "photos", "/hello.txt", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	shared, err := c.SharedInfo(ctx, "bob", "inbox", ref)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", shared.Name)
	assert.Equal(t, uint64(9), shared.Size)
	assert.Equal(t, uint64(1), shared.Blocks)
	assert.Equal(t, fs.CompressionSnappy, shared.Compression)
	assert.Equal(t, "bob", shared.Receiver)

	name, err := c.Receive(ctx, "bob", "inbox", ref, "/")
	require.NoError(t, err)
	assert.Equal(t, "/hello.txt", name)

	var buf bytes.Buffer
	_, err = c.Download(ctx, "bob", "inbox", name, &buf)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", buf.String())
}

func TestEmptyUsernameRejected(t *testing.T) {
	url, hits := sandboxtest.Counter(t)
	c, err := fs.New(url)
	require.NoError(t, err)
	ctx := context.Background()

	calls := map[string]func() error{
		"mkdir":   func() error { return c.Mkdir(ctx, "", "photos", "/a") },
		"rmdir":   func() error { return c.Rmdir(ctx, "", "photos", "/a") },
		"ls":      func() error { _, _, err := c.List(ctx, "", "photos", "/"); return err },
		"present": func() error { _, err := c.DirExists(ctx, "", "photos", "/a"); return err },
		"dirstat": func() error { _, err := c.DirInfo(ctx, "", "photos", "/a"); return err },
		"upload": func() error {
			_, err := c.Upload(ctx, "", "photos", "/", "a.txt", strings.NewReader("x"), nil)
			return err
		},
		"download":    func() error { _, err := c.Download(ctx, "", "photos", "/a.txt", &bytes.Buffer{}); return err },
		"share":       func() error { _, err := c.Share(ctx, "", "photos", "/a.txt", "bob"); return err },
		"delete":      func() error { return c.Remove(ctx, "", "photos", "/a.txt") },
		"stat":        func() error { _, err := c.Info(ctx, "", "photos", "/a.txt"); return err },
		"receive":     func() error { _, err := c.Receive(ctx, "", "photos", "ref", "/"); return err },
		"receiveinfo": func() error { _, err := c.SharedInfo(ctx, "", "photos", "ref"); return err },
	}
	for op, call := range calls {
		assert.ErrorIs(t, call(), dfs.ErrInvalidArgument, op)
	}
	assert.Zero(t, hits.Load())
}
