package fairos_sdk

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/mitchellh/mapstructure"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	// DefaultBaseURL is where a locally started dfs-server listens.
	DefaultBaseURL = "http://localhost:9090/v1"

	envPrefix = "FAIROS_"
)

// Config selects the server and tunes the shared transport.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Mode           string        `mapstructure:"mode"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	LogLevel       string        `mapstructure:"log_level"`
	SeedFile       string        `mapstructure:"seed_file"`
}

// DefaultConfig returns the configuration used when nothing is set: auto
// mode without a base URL, which resolves to the sandbox.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeAuto,
		Timeout:        30 * time.Second,
		RetryBaseDelay: 250 * time.Millisecond,
		LogLevel:       "off",
	}
}

// Validate checks field values and their combination.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required, validation.In(ModeAuto, ModeHTTP, ModeMock)),
		validation.Field(&c.BaseURL, validation.When(c.Mode == ModeHTTP, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.RetryBaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "off")),
	)
}

// fileConfig is the HCL form of Config. Durations are written as strings
// such as "10s".
type fileConfig struct {
	BaseURL        *string `hcl:"base_url,optional"`
	Mode           *string `hcl:"mode,optional"`
	Timeout        *string `hcl:"timeout,optional"`
	MaxRetries     *int    `hcl:"max_retries,optional"`
	RetryBaseDelay *string `hcl:"retry_base_delay,optional"`
	LogLevel       *string `hcl:"log_level,optional"`
	SeedFile       *string `hcl:"seed_file,optional"`
}

func (f fileConfig) values() map[string]any {
	values := make(map[string]any)
	for key, v := range map[string]*string{
		"base_url":         f.BaseURL,
		"mode":             f.Mode,
		"timeout":          f.Timeout,
		"retry_base_delay": f.RetryBaseDelay,
		"log_level":        f.LogLevel,
		"seed_file":        f.SeedFile,
	} {
		if v != nil {
			values[key] = *v
		}
	}
	if f.MaxRetries != nil {
		values["max_retries"] = *f.MaxRetries
	}
	return values
}

// LoadConfigFile reads an HCL file on top of DefaultConfig:
//
//	mode        = "http"
//	base_url    = "http://localhost:9090/v1"
//	timeout     = "10s"
//	max_retries = 2
func LoadConfigFile(path string) (Config, error) {
	var f fileConfig
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return Config{}, fmt.Errorf("fairos_sdk: load config: %w", err)
	}
	cfg := DefaultConfig()
	if err := apply(&cfg, f.values()); err != nil {
		return Config{}, fmt.Errorf("fairos_sdk: load config %s: %w", path, err)
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("fairos_sdk: invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv overlays FAIROS_BASE_URL, FAIROS_MODE, FAIROS_TIMEOUT,
// FAIROS_MAX_RETRIES, FAIROS_RETRY_BASE_DELAY, FAIROS_LOG_LEVEL and
// FAIROS_SEED_FILE onto base. Unset or blank variables keep the base value.
func ConfigFromEnv(base Config) (Config, error) {
	values := make(map[string]any)
	for _, key := range []string{"base_url", "mode", "timeout", "max_retries", "retry_base_delay", "log_level", "seed_file"} {
		if v := strings.TrimSpace(os.Getenv(envPrefix + strings.ToUpper(key))); v != "" {
			values[key] = v
		}
	}
	cfg := base
	if err := apply(&cfg, values); err != nil {
		return Config{}, fmt.Errorf("fairos_sdk: read environment: %w", err)
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("fairos_sdk: invalid environment: %w", err)
	}
	return cfg, nil
}

// ServerDefaults points cfg at DefaultBaseURL when it names no server and
// mock mode was not asked for. The fairos command uses it so an
// unconfigured run talks to a local dfs-server.
func ServerDefaults(cfg Config) Config {
	if strings.ToLower(cfg.Mode) == ModeMock || strings.TrimSpace(cfg.BaseURL) != "" {
		return cfg
	}
	cfg.BaseURL = DefaultBaseURL
	if strings.ToLower(cfg.Mode) == ModeAuto {
		cfg.Mode = ModeHTTP
	}
	return cfg
}

func apply(cfg *Config, values map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}
