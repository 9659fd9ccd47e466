package pod

import (
	"context"
	"flag"
	"fmt"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
)

func Group() *base.GroupCommand {
	return &base.GroupCommand{
		Name:    "pod",
		Summary: "Manage pods",
		Usage:   "Create, list, share and delete the pods of an account.",
	}
}

// podCommand is the shape shared by the pod subcommands that take one pod
// name argument.
type podCommand struct {
	*base.Command
}

func (c *podCommand) flags(name string) *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))
	c.ConnFlags(f)
	return f
}

// run parses args, logs in and calls fn with the single pod name argument.
func (c *podCommand) run(name string, args []string, fn func(ctx context.Context, s *base.Session, pod string) error) int {
	f := c.flags(name)
	if err := f.Parse(args); err != nil {
		return 1
	}
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one pod name")
		return 1
	}
	ctx, cancel := base.Context()
	defer cancel()
	s, err := c.Login(ctx)
	if err != nil {
		return c.Fail("error logging in", err)
	}
	defer s.Logout(ctx)
	if err := fn(ctx, s, f.Arg(0)); err != nil {
		return c.Fail(fmt.Sprintf("error running %s", name), err)
	}
	return 0
}

type NewCommand struct {
	*base.Command
}

func (c *NewCommand) Synopsis() string { return "Create a pod" }

func (c *NewCommand) Help() string {
	return "Usage: fairos pod new <pod>" + (&podCommand{c.Command}).flags("pod new").Help()
}

func (c *NewCommand) Run(args []string) int {
	return (&podCommand{c.Command}).run("pod new", args, func(ctx context.Context, s *base.Session, pod string) error {
		if err := s.Pod.Create(ctx, s.Username, pod, s.Password); err != nil {
			return err
		}
		c.UI.Output(fmt.Sprintf("created pod %s", pod))
		return nil
	})
}

type StatCommand struct {
	*base.Command
}

func (c *StatCommand) Synopsis() string { return "Show the address of a pod" }

func (c *StatCommand) Help() string {
	return "Usage: fairos pod stat <pod>" + (&podCommand{c.Command}).flags("pod stat").Help()
}

func (c *StatCommand) Run(args []string) int {
	return (&podCommand{c.Command}).run("pod stat", args, func(ctx context.Context, s *base.Session, pod string) error {
		info, err := s.Pod.Info(ctx, s.Username, pod)
		if err != nil {
			return err
		}
		c.UI.Output(fmt.Sprintf("pod:     %s", info.Name))
		c.UI.Output(fmt.Sprintf("address: %s", info.Address))
		return nil
	})
}

type ShareCommand struct {
	*base.Command
}

func (c *ShareCommand) Synopsis() string { return "Share a pod and print its reference" }

func (c *ShareCommand) Help() string {
	return "Usage: fairos pod share <pod>" + (&podCommand{c.Command}).flags("pod share").Help()
}

func (c *ShareCommand) Run(args []string) int {
	return (&podCommand{c.Command}).run("pod share", args, func(ctx context.Context, s *base.Session, pod string) error {
		ref, err := s.Pod.Share(ctx, s.Username, pod, s.Password)
		if err != nil {
			return err
		}
		c.UI.Output(ref)
		return nil
	})
}

type DeleteCommand struct {
	*base.Command
}

func (c *DeleteCommand) Synopsis() string { return "Delete a pod and everything in it" }

func (c *DeleteCommand) Help() string {
	return "Usage: fairos pod delete <pod>" + (&podCommand{c.Command}).flags("pod delete").Help()
}

func (c *DeleteCommand) Run(args []string) int {
	return (&podCommand{c.Command}).run("pod delete", args, func(ctx context.Context, s *base.Session, pod string) error {
		if err := s.Pod.Delete(ctx, s.Username, pod, s.Password); err != nil {
			return err
		}
		c.UI.Output(fmt.Sprintf("deleted pod %s", pod))
		return nil
	})
}

type ListCommand struct {
	*base.Command
}

func (c *ListCommand) Synopsis() string { return "List owned and received pods" }

func (c *ListCommand) Help() string {
	return "Usage: fairos pod ls" + (&podCommand{c.Command}).flags("pod ls").Help()
}

func (c *ListCommand) Run(args []string) int {
	if err := (&podCommand{c.Command}).flags("pod ls").Parse(args); err != nil {
		return 1
	}
	ctx, cancel := base.Context()
	defer cancel()
	s, err := c.Login(ctx)
	if err != nil {
		return c.Fail("error logging in", err)
	}
	defer s.Logout(ctx)

	list, err := s.Pod.List(ctx, s.Username)
	if err != nil {
		return c.Fail("error listing pods", err)
	}
	for _, name := range list.Pods {
		c.UI.Output(name)
	}
	for _, name := range list.SharedPods {
		c.UI.Output(name + " (shared)")
	}
	return 0
}
