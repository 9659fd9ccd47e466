package kv

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
	dfskv "github.com/fairdatasociety/fairos_sdk_go/pkg/kv"
)

func Group() *base.GroupCommand {
	return &base.GroupCommand{
		Name:    "kv",
		Summary: "Work with key-value stores of a pod",
		Usage:   "Create stores, put and get values, seek over key ranges and bulk load CSV files.",
	}
}

func podFlags(c *base.Command, name string, pod *string) *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))
	c.ConnFlags(f)
	f.StringVar(pod, "pod", "", "(Required) Pod holding the store.")
	return f
}

// session parses f, logs in, opens the pod and, when the first of want
// positional arguments names a store, opens that store too.
func session(ctx context.Context, c *base.Command, f *base.FlagSet, args []string, pod string, want int, openStore bool) (*base.Session, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() != want {
		return nil, fmt.Errorf("expected %d arguments, got %d", want, f.NArg())
	}
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.OpenPod(ctx, pod); err != nil {
		s.Logout(ctx)
		return nil, err
	}
	if openStore {
		if err := s.KV.OpenStore(ctx, s.Username, pod, f.Arg(0)); err != nil {
			s.Logout(ctx)
			return nil, err
		}
	}
	return s, nil
}

type NewCommand struct {
	*base.Command

	flagPod   string
	flagIndex string
}

func (c *NewCommand) Synopsis() string { return "Create a store" }

func (c *NewCommand) Help() string {
	return "Usage: fairos kv new -pod=<pod> [-index=string|number] <store>" + c.Flags().Help()
}

func (c *NewCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "kv new", &c.flagPod)
	f.StringVar(&c.flagIndex, "index", string(dfskv.IndexString), "Key order: string or number.")
	return f
}

func (c *NewCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, false)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	index, err := dfskv.ParseIndexType(c.flagIndex)
	if err != nil {
		return c.Fail("error parsing index", err)
	}
	if err := s.KV.CreateStore(ctx, s.Username, c.flagPod, f.Arg(0), index); err != nil {
		return c.Fail("error creating store", err)
	}
	return 0
}

type ListCommand struct {
	*base.Command

	flagPod string
}

func (c *ListCommand) Synopsis() string { return "List the stores of a pod" }

func (c *ListCommand) Help() string {
	return "Usage: fairos kv ls -pod=<pod>" + podFlags(c.Command, "kv ls", &c.flagPod).Help()
}

func (c *ListCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	s, err := session(ctx, c.Command, podFlags(c.Command, "kv ls", &c.flagPod), args, c.flagPod, 0, false)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	stores, err := s.KV.ListStores(ctx, s.Username, c.flagPod)
	if err != nil {
		return c.Fail("error listing stores", err)
	}
	for _, st := range stores {
		c.UI.Output(fmt.Sprintf("%s\t%s", st.Name, st.Type))
	}
	return 0
}

type PutCommand struct {
	*base.Command

	flagPod string
}

func (c *PutCommand) Synopsis() string { return "Store a value" }

func (c *PutCommand) Help() string {
	return `Usage: fairos kv put -pod=<pod> <store> <key> <value>

  A value that parses as JSON is stored as is; anything else is stored as a
  JSON string.` + podFlags(c.Command, "kv put", &c.flagPod).Help()
}

func (c *PutCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "kv put", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 3, true)
	if err != nil {
		return c.Fail("error opening store", err)
	}
	defer s.Logout(ctx)

	var value any = f.Arg(2)
	if raw := strings.TrimSpace(f.Arg(2)); json.Valid([]byte(raw)) {
		value = json.RawMessage(raw)
	}
	if err := s.KV.Put(ctx, s.Username, c.flagPod, f.Arg(0), f.Arg(1), value); err != nil {
		return c.Fail("error storing value", err)
	}
	return 0
}

type GetCommand struct {
	*base.Command

	flagPod string
}

func (c *GetCommand) Synopsis() string { return "Print a value" }

func (c *GetCommand) Help() string {
	return "Usage: fairos kv get -pod=<pod> <store> <key>" + podFlags(c.Command, "kv get", &c.flagPod).Help()
}

func (c *GetCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "kv get", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 2, true)
	if err != nil {
		return c.Fail("error opening store", err)
	}
	defer s.Logout(ctx)

	var value json.RawMessage
	if err := s.KV.Get(ctx, s.Username, c.flagPod, f.Arg(0), f.Arg(1), &value); err != nil {
		return c.Fail("error reading value", err)
	}
	c.UI.Output(string(value))
	return 0
}

type CountCommand struct {
	*base.Command

	flagPod string
}

func (c *CountCommand) Synopsis() string { return "Count the entries of a store" }

func (c *CountCommand) Help() string {
	return "Usage: fairos kv count -pod=<pod> <store>" + podFlags(c.Command, "kv count", &c.flagPod).Help()
}

func (c *CountCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "kv count", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, true)
	if err != nil {
		return c.Fail("error opening store", err)
	}
	defer s.Logout(ctx)

	n, err := s.KV.Count(ctx, s.Username, c.flagPod, f.Arg(0))
	if err != nil {
		return c.Fail("error counting", err)
	}
	c.UI.Output(fmt.Sprintf("%d", n))
	return 0
}

type SeekCommand struct {
	*base.Command

	flagPod   string
	flagStart string
	flagEnd   string
	flagLimit int
}

func (c *SeekCommand) Synopsis() string { return "Print the entries of a key range" }

func (c *SeekCommand) Help() string {
	return "Usage: fairos kv seek -pod=<pod> [-start=<key>] [-end=<key>] [-limit=<n>] <store>" + c.Flags().Help()
}

func (c *SeekCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "kv seek", &c.flagPod)
	f.StringVar(&c.flagStart, "start", "", "First key of the range.")
	f.StringVar(&c.flagEnd, "end", "", "End of the range. Empty leaves it open.")
	f.IntVar(&c.flagLimit, "limit", 0, "Maximum number of entries. 0 means no limit.")
	return f
}

func (c *SeekCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, true)
	if err != nil {
		return c.Fail("error opening store", err)
	}
	defer s.Logout(ctx)

	it, err := s.KV.Seek(ctx, s.Username, c.flagPod, f.Arg(0), c.flagStart, c.flagEnd, c.flagLimit)
	if err != nil {
		return c.Fail("error seeking", err)
	}
	for it.Next(ctx) {
		c.UI.Output(fmt.Sprintf("%s\t%s", it.Key(), it.Value()))
	}
	if err := it.Err(); err != nil {
		return c.Fail("error reading entries", err)
	}
	return 0
}

type LoadCommand struct {
	*base.Command

	flagPod    string
	flagMemory bool
}

func (c *LoadCommand) Synopsis() string { return "Bulk load a CSV file into a store" }

func (c *LoadCommand) Help() string {
	return `Usage: fairos kv load -pod=<pod> <store> <file.csv>

  The first row names the columns and the first column is the key. Each
  value is stored as a JSON object of column to cell.` + c.Flags().Help()
}

func (c *LoadCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "kv load", &c.flagPod)
	f.BoolVar(&c.flagMemory, "memory", false, "Ask the server to buffer the load in memory.")
	return f
}

func (c *LoadCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := session(ctx, c.Command, f, args, c.flagPod, 2, true)
	if err != nil {
		return c.Fail("error opening store", err)
	}
	defer s.Logout(ctx)

	if err := s.KV.LoadCSVFile(ctx, s.Username, c.flagPod, f.Arg(0), f.Arg(1), c.flagMemory); err != nil {
		return c.Fail("error loading csv", err)
	}
	n, err := s.KV.Count(ctx, s.Username, c.flagPod, f.Arg(0))
	if err != nil {
		return c.Fail("error counting", err)
	}
	c.UI.Output(fmt.Sprintf("%s now holds %d entries", f.Arg(0), n))
	return 0
}
