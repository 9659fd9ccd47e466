package fairos_sdk_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/pkg/fairos_sdk"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/kv"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/sandbox"
)

const seedYAML = `
users:
  - username: alice
    password: secret
    pods:
      - name: photos
        files:
          - path: /readme.txt
            content: seed-data
        kv:
          - name: tags
            entries:
              sunset: {count: 3}
`

func TestNewHTTPMode(t *testing.T) {
	srv := httptest.NewServer(sandbox.New())
	defer srv.Close()

	cfg := fairos_sdk.DefaultConfig()
	cfg.Mode = fairos_sdk.ModeHTTP
	cfg.BaseURL = srv.URL + "/v1"
	sdk, err := fairos_sdk.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeHTTP, sdk.Mode)
	assert.Nil(t, sdk.Sandbox)

	ctx := context.Background()
	_, err = sdk.User.Signup(ctx, "alice", "secret", "")
	require.NoError(t, err)
	require.NoError(t, sdk.Pod.Create(ctx, "alice", "photos", "secret"))
	assert.Equal(t, []string{"alice"}, sdk.Session.Users())
}

func TestNewAutoFallsBackToMock(t *testing.T) {
	sdk, err := fairos_sdk.New(fairos_sdk.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeMock, sdk.Mode)
	require.NotNil(t, sdk.Sandbox)

	ctx := context.Background()
	_, err = sdk.User.Signup(ctx, "alice", "secret", "")
	require.NoError(t, err)
	exists, err := sdk.User.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewMockSeeded(t *testing.T) {
	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/seed.yaml", []byte(seedYAML), 0o644))

	cfg := fairos_sdk.DefaultConfig()
	cfg.Mode = fairos_sdk.ModeMock
	cfg.SeedFile = "/seed.yaml"
	sdk, err := fairos_sdk.New(cfg, fairos_sdk.WithFs(local))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sdk.User.Login(ctx, "alice", "secret"))
	require.NoError(t, sdk.Pod.Open(ctx, "alice", "photos", "secret"))

	var buf bytes.Buffer
	_, err = sdk.FS.Download(ctx, "alice", "photos", "/readme.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, "seed-data", buf.String())

	require.NoError(t, sdk.KV.OpenStore(ctx, "alice", "photos", "tags"))
	got, err := kv.GetValue[map[string]int](ctx, sdk.KV, "alice", "photos", "tags", "sunset")
	require.NoError(t, err)
	assert.Equal(t, 3, got["count"])
}

func TestNewRejectsBadSeed(t *testing.T) {
	cfg := fairos_sdk.DefaultConfig()
	cfg.SeedFile = "/missing.yaml"
	_, err := fairos_sdk.New(cfg, fairos_sdk.WithFs(afero.NewMemMapFs()))
	assert.Error(t, err)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("FAIROS_MODE", "http")
	t.Setenv("FAIROS_BASE_URL", "")
	_, err := fairos_sdk.NewFromEnv()
	assert.Error(t, err)

	t.Setenv("FAIROS_MODE", "mock")
	sdk, err := fairos_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeMock, sdk.Mode)
}
