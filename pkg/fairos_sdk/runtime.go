package fairos_sdk

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/fairdatasociety/fairos_sdk_go/internal/devseed"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/docs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/fs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/kv"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/pod"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/sandbox"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/user"
)

// mockBaseURL addresses the in-process sandbox; no listener is involved.
const mockBaseURL = "http://sandbox.fairos.invalid/v1"

// SDK bundles the API group clients. All of them share one transport and
// one session store, so a Login through User authenticates the others.
type SDK struct {
	User *user.Client
	Pod  *pod.Client
	FS   *fs.Client
	KV   *kv.Client
	Docs *docs.Client

	// Mode is the resolved runtime mode, "http" or "mock".
	Mode string
	// Session holds the cookie of every logged-in user.
	Session *httpx.Session
	// Sandbox is the in-process server in mock mode and nil otherwise.
	Sandbox *sandbox.Server
	Logger  hclog.Logger
}

// Option tunes New.
type Option func(*options)

type options struct {
	logger     hclog.Logger
	httpClient *http.Client
	local      afero.Fs
}

// WithLogger replaces the logger built from Config.LogLevel.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sets the HTTP client used in http mode.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

// WithFs sets the local filesystem used by file based helpers such as
// fs.Client.UploadFile.
func WithFs(local afero.Fs) Option {
	return func(o *options) { o.local = local }
}

// New builds the clients described by cfg.
func New(cfg Config, opts ...Option) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fairos_sdk: invalid config: %w", err)
	}
	o := options{local: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = newLogger(cfg.LogLevel)
	}

	mode := strings.ToLower(cfg.Mode)
	if mode == ModeAuto {
		mode = ModeMock
		if strings.TrimSpace(cfg.BaseURL) != "" {
			mode = ModeHTTP
		}
	}

	sdk := &SDK{Mode: mode, Session: httpx.NewSession(), Logger: o.logger}
	baseURL := cfg.BaseURL
	httpClient := o.httpClient
	switch mode {
	case ModeHTTP:
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Timeout}
		}
	case ModeMock:
		srv := sandbox.New(sandbox.WithLogger(o.logger.Named("sandbox")))
		if path := strings.TrimSpace(cfg.SeedFile); path != "" {
			seed, err := devseed.Load(o.local, path)
			if err != nil {
				return nil, fmt.Errorf("fairos_sdk: load seed: %w", err)
			}
			if err := srv.Seed(seed); err != nil {
				return nil, fmt.Errorf("fairos_sdk: apply seed: %w", err)
			}
		}
		sdk.Sandbox = srv
		baseURL = mockBaseURL
		httpClient = &http.Client{Transport: httpx.HandlerTransport(srv), Timeout: cfg.Timeout}
	}

	policy := httpx.DefaultRetryPolicy
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}
	cl, err := httpx.NewClient(baseURL,
		httpx.WithHTTPClient(httpClient),
		httpx.WithRetryPolicy(policy),
		httpx.WithLogger(o.logger.Named("http")),
		httpx.WithSession(sdk.Session),
	)
	if err != nil {
		return nil, fmt.Errorf("fairos_sdk: init %s client: %w", mode, err)
	}

	sdk.User = user.NewWithHTTPClient(cl)
	sdk.Pod = pod.NewWithHTTPClient(cl)
	sdk.FS = fs.NewWithHTTPClient(cl, fs.WithFs(o.local))
	sdk.KV = kv.NewWithHTTPClient(cl, kv.WithFs(o.local))
	sdk.Docs = docs.NewWithHTTPClient(cl, docs.WithFs(o.local))
	o.logger.Debug("sdk initialised", "mode", mode, "base_url", baseURL)
	return sdk, nil
}

// NewFromEnv is New with DefaultConfig overlaid by the FAIROS_*
// environment variables.
func NewFromEnv(opts ...Option) (*SDK, error) {
	cfg, err := ConfigFromEnv(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func newLogger(level string) hclog.Logger {
	if level == "" || level == "off" {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "fairos",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}
