package docs

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
	dfsdocs "github.com/fairdatasociety/fairos_sdk_go/pkg/docs"
)

func Group() *base.GroupCommand {
	return &base.GroupCommand{
		Name:    "doc",
		Summary: "Work with document databases of a pod",
		Usage:   "Create databases, put and find JSON documents and bulk load JSON files.",
	}
}

func podFlags(c *base.Command, name string, pod *string) *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))
	c.ConnFlags(f)
	f.StringVar(pod, "pod", "", "(Required) Pod holding the database.")
	return f
}

// session parses f, checks that between lo and hi positional arguments
// were given, logs in and opens the pod. When openDB is set the first
// argument names a database that is opened as well.
func session(ctx context.Context, c *base.Command, f *base.FlagSet, args []string, pod string, lo, hi int, openDB bool) (*base.Session, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if n := f.NArg(); n < lo || n > hi {
		return nil, fmt.Errorf("expected %d to %d arguments, got %d", lo, hi, n)
	}
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.OpenPod(ctx, pod); err != nil {
		s.Logout(ctx)
		return nil, err
	}
	if openDB {
		if err := s.Docs.OpenDatabase(ctx, s.Username, pod, f.Arg(0)); err != nil {
			s.Logout(ctx)
			return nil, err
		}
	}
	return s, nil
}

// parseFields reads "title=string,year=number".
func parseFields(raw string) ([]dfsdocs.Field, error) {
	var fields []dfsdocs.Field
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("index %q is not name=type", part)
		}
		ft, err := dfsdocs.ParseFieldType(typ)
		if err != nil {
			return nil, err
		}
		fields = append(fields, dfsdocs.Field{Name: strings.TrimSpace(name), Type: ft})
	}
	return fields, nil
}

type NewCommand struct {
	*base.Command

	flagPod     string
	flagIndex   string
	flagMutable bool
}

func (c *NewCommand) Synopsis() string { return "Create a database" }

func (c *NewCommand) Help() string {
	return "Usage: fairos doc new -pod=<pod> -index=title=string,year=number <database>" + c.Flags().Help()
}

func (c *NewCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "doc new", &c.flagPod)
	f.StringVar(&c.flagIndex, "index", "", "Indexed fields as name=type pairs. Types: string, number, map.")
	f.BoolVar(&c.flagMutable, "mutable", true, "Allow documents to be replaced.")
	return f
}

func (c *NewCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, 1, false)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	fields, err := parseFields(c.flagIndex)
	if err != nil {
		return c.Fail("error parsing index", err)
	}
	if err := s.Docs.CreateDatabase(ctx, s.Username, c.flagPod, f.Arg(0), fields, c.flagMutable); err != nil {
		return c.Fail("error creating database", err)
	}
	return 0
}

type ListCommand struct {
	*base.Command

	flagPod string
}

func (c *ListCommand) Synopsis() string { return "List the databases of a pod" }

func (c *ListCommand) Help() string {
	return "Usage: fairos doc ls -pod=<pod>" + podFlags(c.Command, "doc ls", &c.flagPod).Help()
}

func (c *ListCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	s, err := session(ctx, c.Command, podFlags(c.Command, "doc ls", &c.flagPod), args, c.flagPod, 0, 0, false)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	dbs, err := s.Docs.ListDatabases(ctx, s.Username, c.flagPod)
	if err != nil {
		return c.Fail("error listing databases", err)
	}
	for _, db := range dbs {
		si, err := dfsdocs.SimpleIndexes(db.Fields)
		if err != nil {
			si = "?"
		}
		c.UI.Output(fmt.Sprintf("%s\t%s", db.Name, si))
	}
	return 0
}

type PutCommand struct {
	*base.Command

	flagPod string
}

func (c *PutCommand) Synopsis() string { return "Store a JSON document" }

func (c *PutCommand) Help() string {
	return "Usage: fairos doc put -pod=<pod> <database> <json>" + podFlags(c.Command, "doc put", &c.flagPod).Help()
}

func (c *PutCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "doc put", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 2, 2, true)
	if err != nil {
		return c.Fail("error opening database", err)
	}
	defer s.Logout(ctx)

	raw := json.RawMessage(f.Arg(1))
	if !json.Valid(raw) {
		c.UI.Error("document is not valid JSON")
		return 1
	}
	id, err := s.Docs.Put(ctx, s.Username, c.flagPod, f.Arg(0), raw)
	if err != nil {
		return c.Fail("error storing document", err)
	}
	c.UI.Output(id)
	return 0
}

type GetCommand struct {
	*base.Command

	flagPod string
}

func (c *GetCommand) Synopsis() string { return "Print a document by id" }

func (c *GetCommand) Help() string {
	return "Usage: fairos doc get -pod=<pod> <database> <id>" + podFlags(c.Command, "doc get", &c.flagPod).Help()
}

func (c *GetCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "doc get", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 2, 2, true)
	if err != nil {
		return c.Fail("error opening database", err)
	}
	defer s.Logout(ctx)

	var doc json.RawMessage
	if err := s.Docs.Get(ctx, s.Username, c.flagPod, f.Arg(0), f.Arg(1), &doc); err != nil {
		return c.Fail("error reading document", err)
	}
	c.UI.Output(string(doc))
	return 0
}

type FindCommand struct {
	*base.Command

	flagPod   string
	flagLimit int
}

func (c *FindCommand) Synopsis() string { return "Print the documents matching an expression" }

func (c *FindCommand) Help() string {
	return `Usage: fairos doc find -pod=<pod> [-limit=<n>] <database> [expr]

  expr compares one indexed field, for example 'year>=2000' or
  'title="Dune"'. Without it every document matches.` + c.Flags().Help()
}

func (c *FindCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "doc find", &c.flagPod)
	f.IntVar(&c.flagLimit, "limit", 0, "Maximum number of documents. 0 uses the server default.")
	return f
}

func (c *FindCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, 2, true)
	if err != nil {
		return c.Fail("error opening database", err)
	}
	defer s.Logout(ctx)

	expr, err := dfsdocs.ParseExpr(f.Arg(1))
	if err != nil {
		return c.Fail("error parsing expression", err)
	}
	found, err := dfsdocs.FindAs[json.RawMessage](ctx, s.Docs, s.Username, c.flagPod, f.Arg(0), expr, c.flagLimit)
	if err != nil {
		return c.Fail("error finding documents", err)
	}
	for _, doc := range found {
		c.UI.Output(string(doc))
	}
	return 0
}

type CountCommand struct {
	*base.Command

	flagPod string
}

func (c *CountCommand) Synopsis() string { return "Count the documents matching an expression" }

func (c *CountCommand) Help() string {
	return "Usage: fairos doc count -pod=<pod> <database> [expr]" + podFlags(c.Command, "doc count", &c.flagPod).Help()
}

func (c *CountCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "doc count", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 1, 2, true)
	if err != nil {
		return c.Fail("error opening database", err)
	}
	defer s.Logout(ctx)

	expr, err := dfsdocs.ParseExpr(f.Arg(1))
	if err != nil {
		return c.Fail("error parsing expression", err)
	}
	n, err := s.Docs.Count(ctx, s.Username, c.flagPod, f.Arg(0), expr)
	if err != nil {
		return c.Fail("error counting", err)
	}
	c.UI.Output(fmt.Sprintf("%d", n))
	return 0
}

type LoadCommand struct {
	*base.Command

	flagPod string
}

func (c *LoadCommand) Synopsis() string { return "Bulk load a JSON file into a database" }

func (c *LoadCommand) Help() string {
	return `Usage: fairos doc load -pod=<pod> <database> <file.json>

  The file holds a JSON array of objects or one object per line.` +
		podFlags(c.Command, "doc load", &c.flagPod).Help()
}

func (c *LoadCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "doc load", &c.flagPod)
	s, err := session(ctx, c.Command, f, args, c.flagPod, 2, 2, true)
	if err != nil {
		return c.Fail("error opening database", err)
	}
	defer s.Logout(ctx)

	if err := s.Docs.LoadJSONFile(ctx, s.Username, c.flagPod, f.Arg(0), f.Arg(1)); err != nil {
		return c.Fail("error loading json", err)
	}
	return 0
}
