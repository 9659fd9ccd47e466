package user

import (
	"flag"
	"fmt"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
)

func Group() *base.GroupCommand {
	return &base.GroupCommand{
		Name:    "user",
		Summary: "Manage accounts",
		Usage:   "Create, inspect and delete dfs accounts.",
	}
}

type SignupCommand struct {
	*base.Command

	flagMnemonic string
}

func (c *SignupCommand) Synopsis() string {
	return "Create an account"
}

func (c *SignupCommand) Help() string {
	return `Usage: fairos user signup -user=<name> -password=<password>

  Creates an account. Without -mnemonic the server generates one and it is
  printed once; keep it, it is the only way to recover the account.` + c.Flags().Help()
}

func (c *SignupCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("user signup", flag.ContinueOnError))
	c.ConnFlags(f)
	f.StringVar(
		&c.flagMnemonic, "mnemonic", "",
		"12 word BIP-39 mnemonic to derive the account from.",
	)
	return f
}

func (c *SignupCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return 1
	}
	username, password, err := c.Credentials()
	if err != nil {
		return c.Fail("error reading credentials", err)
	}
	sdk, err := c.SDK()
	if err != nil {
		return c.Fail("error initializing client", err)
	}
	ctx, cancel := base.Context()
	defer cancel()

	res, err := sdk.User.Signup(ctx, username, password, c.flagMnemonic)
	if err != nil {
		return c.Fail("error creating account", err)
	}
	c.UI.Output(fmt.Sprintf("address:  %s", res.Address))
	if res.Mnemonic != "" {
		c.UI.Output(fmt.Sprintf("mnemonic: %s", res.Mnemonic))
	}
	return 0
}

type InfoCommand struct {
	*base.Command
}

func (c *InfoCommand) Synopsis() string {
	return "Show the account name and address"
}

func (c *InfoCommand) Help() string {
	return "Usage: fairos user info -user=<name> -password=<password>" + c.Flags().Help()
}

func (c *InfoCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("user info", flag.ContinueOnError))
	c.ConnFlags(f)
	return f
}

func (c *InfoCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return 1
	}
	ctx, cancel := base.Context()
	defer cancel()
	s, err := c.Login(ctx)
	if err != nil {
		return c.Fail("error logging in", err)
	}
	defer s.Logout(ctx)

	info, err := s.User.Info(ctx, s.Username)
	if err != nil {
		return c.Fail("error reading account", err)
	}
	c.UI.Output(fmt.Sprintf("user:    %s", info.Username))
	c.UI.Output(fmt.Sprintf("address: %s", info.Address))
	return 0
}

type PresentCommand struct {
	*base.Command
}

func (c *PresentCommand) Synopsis() string {
	return "Check whether an account name is taken"
}

func (c *PresentCommand) Help() string {
	return "Usage: fairos user present <name>" + c.Flags().Help()
}

func (c *PresentCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("user present", flag.ContinueOnError))
	c.ConnFlags(f)
	return f
}

func (c *PresentCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return 1
	}
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one account name")
		return 1
	}
	sdk, err := c.SDK()
	if err != nil {
		return c.Fail("error initializing client", err)
	}
	ctx, cancel := base.Context()
	defer cancel()

	present, err := sdk.User.Exists(ctx, f.Arg(0))
	if err != nil {
		return c.Fail("error checking account", err)
	}
	c.UI.Output(fmt.Sprintf("%t", present))
	return 0
}

type DeleteCommand struct {
	*base.Command
}

func (c *DeleteCommand) Synopsis() string {
	return "Delete the account"
}

func (c *DeleteCommand) Help() string {
	return `Usage: fairos user delete -user=<name> -password=<password>

  Deletes the account. It can be restored later with its mnemonic.` + c.Flags().Help()
}

func (c *DeleteCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("user delete", flag.ContinueOnError))
	c.ConnFlags(f)
	return f
}

func (c *DeleteCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		return 1
	}
	ctx, cancel := base.Context()
	defer cancel()
	s, err := c.Login(ctx)
	if err != nil {
		return c.Fail("error logging in", err)
	}
	if err := s.User.Delete(ctx, s.Username, s.Password); err != nil {
		return c.Fail("error deleting account", err)
	}
	c.UI.Output(fmt.Sprintf("deleted %s", s.Username))
	return 0
}
