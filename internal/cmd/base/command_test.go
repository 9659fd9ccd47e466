package base

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/pkg/fairos_sdk"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FAIROS_MODE", "FAIROS_BASE_URL", "FAIROS_SEED_FILE", "FAIROS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestSDKDefaultsToLocalServer(t *testing.T) {
	clearEnv(t)
	c := &Command{Log: hclog.NewNullLogger(), UI: cli.NewMockUi()}

	sdk, err := c.SDK()
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeHTTP, sdk.Mode)
	assert.Nil(t, sdk.Sandbox)

	t.Setenv("FAIROS_MODE", "mock")
	sdk, err = c.SDK()
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeMock, sdk.Mode)
	assert.NotNil(t, sdk.Sandbox)
}

func TestSDKConfigFileSelectsMock(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fairos.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "Mock"`), 0o600))
	c := &Command{Log: hclog.NewNullLogger(), UI: cli.NewMockUi(), flagConfig: path}

	sdk, err := c.SDK()
	require.NoError(t, err)
	assert.Equal(t, fairos_sdk.ModeMock, sdk.Mode)
}
