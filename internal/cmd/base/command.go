// Package base holds what every fairos subcommand shares: the logger, the
// UI and the connection flags used to reach a dfs server.
package base

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/fairdatasociety/fairos_sdk_go/pkg/fairos_sdk"
)

const (
	envUser     = "FAIROS_USER"
	envPassword = "FAIROS_PASSWORD"
)

// Command is embedded by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	flagConfig   string
	flagUser     string
	flagPassword string
}

// ConnFlags registers -config, -user and -password on f.
func (c *Command) ConnFlags(f *FlagSet) {
	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to an HCL config file. FAIROS_* environment variables override it.",
	)
	f.StringVar(
		&c.flagUser, "user", "",
		"[FAIROS_USER] Account name.",
	)
	f.StringVar(
		&c.flagPassword, "password", "",
		"[FAIROS_PASSWORD] Account password.",
	)
}

// Credentials returns the account from flags, falling back to the
// environment.
func (c *Command) Credentials() (string, string, error) {
	user, password := c.flagUser, c.flagPassword
	if val, ok := os.LookupEnv(envUser); ok && user == "" {
		user = val
	}
	if val, ok := os.LookupEnv(envPassword); ok && password == "" {
		password = val
	}
	if user == "" || password == "" {
		return "", "", errors.New("user and password are required")
	}
	return user, password, nil
}

// SDK builds the clients from the config file and environment. Without
// either it connects to fairos_sdk.DefaultBaseURL; the sandbox is only used
// when mode is "mock".
func (c *Command) SDK() (*fairos_sdk.SDK, error) {
	cfg := fairos_sdk.DefaultConfig()
	if c.flagConfig != "" {
		var err error
		if cfg, err = fairos_sdk.LoadConfigFile(c.flagConfig); err != nil {
			return nil, err
		}
	}
	cfg, err := fairos_sdk.ConfigFromEnv(fairos_sdk.ServerDefaults(cfg))
	if err != nil {
		return nil, err
	}
	sdk, err := fairos_sdk.New(cfg)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("connected", "mode", sdk.Mode, "base_url", cfg.BaseURL)
	return sdk, nil
}

// Session is a logged-in account.
type Session struct {
	*fairos_sdk.SDK
	Username string
	Password string
}

// Login builds the clients and logs the account in.
func (c *Command) Login(ctx context.Context) (*Session, error) {
	user, password, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	sdk, err := c.SDK()
	if err != nil {
		return nil, err
	}
	if err := sdk.User.Login(ctx, user, password); err != nil {
		return nil, err
	}
	return &Session{SDK: sdk, Username: user, Password: password}, nil
}

// OpenPod opens pod with the account password.
func (s *Session) OpenPod(ctx context.Context, pod string) error {
	if pod == "" {
		return errors.New("pod flag is required")
	}
	return s.Pod.Open(ctx, s.Username, pod, s.Password)
}

// Logout ends the session. Failures are only logged.
func (s *Session) Logout(ctx context.Context) {
	if err := s.User.Logout(ctx, s.Username); err != nil {
		s.Logger.Warn("logout failed", "error", err)
	}
}

// Fail reports err and returns the exit code for it.
func (c *Command) Fail(format string, err error) int {
	c.UI.Error(fmt.Sprintf(format+": %v", err))
	return 1
}

// Context is cancelled on interrupt.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// GroupCommand is the parent of a set of subcommands such as "pod ls".
type GroupCommand struct {
	Name    string
	Summary string
	Usage   string
}

func (g *GroupCommand) Synopsis() string { return g.Summary }

func (g *GroupCommand) Help() string {
	return fmt.Sprintf("Usage: fairos %s <subcommand> [options] [args]\n\n  %s", g.Name, g.Usage)
}

func (g *GroupCommand) Run(args []string) int { return cli.RunResultHelp }
