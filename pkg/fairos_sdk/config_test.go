package fairos_sdk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeTempFile(t, "fairos.hcl", `
mode        = "http"
base_url    = "http://dfs.example:9090/v1"
timeout     = "10s"
max_retries = 2
log_level   = "debug"
`)
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		BaseURL:        "http://dfs.example:9090/v1",
		Mode:           ModeHTTP,
		Timeout:        10 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: 250 * time.Millisecond,
		LogLevel:       "debug",
	}, cfg)
}

func TestLoadConfigFileModeCase(t *testing.T) {
	path := writeTempFile(t, "fairos.hcl", `
mode     = "HTTP"
base_url = "http://dfs.example:9090/v1"
`)
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeHTTP, cfg.Mode)
}

func TestServerDefaults(t *testing.T) {
	cfg := ServerDefaults(DefaultConfig())
	assert.Equal(t, ModeHTTP, cfg.Mode)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.NoError(t, cfg.Validate())

	mock := DefaultConfig()
	mock.Mode = ModeMock
	assert.Equal(t, mock, ServerDefaults(mock))

	remote := DefaultConfig()
	remote.BaseURL = "http://dfs.example:9090/v1"
	assert.Equal(t, remote, ServerDefaults(remote))
}

func TestLoadConfigFileErrors(t *testing.T) {
	tests := map[string]string{
		"bad duration":  `timeout = "soon"`,
		"unknown mode":  `mode = "grpc"`,
		"http no url":   `mode = "http"`,
		"unknown field": `colour = "blue"`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFile(writeTempFile(t, "fairos.hcl", body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FAIROS_MODE", "MOCK")
	t.Setenv("FAIROS_MAX_RETRIES", "3")
	t.Setenv("FAIROS_RETRY_BASE_DELAY", "5ms")
	t.Setenv("FAIROS_SEED_FILE", "/seed.yaml")
	t.Setenv("FAIROS_BASE_URL", "")

	cfg, err := ConfigFromEnv(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ModeMock, cfg.Mode)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, "/seed.yaml", cfg.SeedFile)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	t.Setenv("FAIROS_MAX_RETRIES", "many")
	_, err = ConfigFromEnv(DefaultConfig())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxRetries = -1
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}
