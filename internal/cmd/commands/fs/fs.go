package fs

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
	dfsfs "github.com/fairdatasociety/fairos_sdk_go/pkg/fs"
)

func Group() *base.GroupCommand {
	return &base.GroupCommand{
		Name:    "fs",
		Summary: "Work with files and directories of a pod",
		Usage:   "List, upload, download and remove files stored in a pod.",
	}
}

// podFlags registers the connection flags and -pod.
func podFlags(c *base.Command, name string, pod *string) *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))
	c.ConnFlags(f)
	f.StringVar(pod, "pod", "", "(Required) Pod to operate on.")
	return f
}

// open parses f, logs in and opens the pod.
func open(ctx context.Context, c *base.Command, f *base.FlagSet, args []string, pod string) (*base.Session, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.OpenPod(ctx, pod); err != nil {
		s.Logout(ctx)
		return nil, err
	}
	return s, nil
}

type ListCommand struct {
	*base.Command

	flagPod string
}

func (c *ListCommand) Synopsis() string { return "List a directory" }

func (c *ListCommand) Help() string {
	return "Usage: fairos fs ls -pod=<pod> [dir]" + podFlags(c.Command, "fs ls", &c.flagPod).Help()
}

func (c *ListCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "fs ls", &c.flagPod)
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	dir := "/"
	if f.NArg() > 0 {
		dir = f.Arg(0)
	}
	dirs, files, err := s.FS.List(ctx, s.Username, c.flagPod, dir)
	if err != nil {
		return c.Fail("error listing directory", err)
	}
	for _, d := range dirs {
		c.UI.Output(fmt.Sprintf("%-8s  %-20s  %s/", "-", d.ModificationTime.Format("2006-01-02 15:04:05"), d.Name))
	}
	for _, fe := range files {
		c.UI.Output(fmt.Sprintf("%-8s  %-20s  %s", humanize.Bytes(fe.Size), fe.ModificationTime.Format("2006-01-02 15:04:05"), fe.Name))
	}
	return 0
}

type MkdirCommand struct {
	*base.Command

	flagPod string
}

func (c *MkdirCommand) Synopsis() string { return "Create a directory" }

func (c *MkdirCommand) Help() string {
	return "Usage: fairos fs mkdir -pod=<pod> <dir>" + podFlags(c.Command, "fs mkdir", &c.flagPod).Help()
}

func (c *MkdirCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "fs mkdir", &c.flagPod)
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one directory")
		return 1
	}
	if err := s.FS.Mkdir(ctx, s.Username, c.flagPod, f.Arg(0)); err != nil {
		return c.Fail("error creating directory", err)
	}
	return 0
}

type PutCommand struct {
	*base.Command

	flagPod         string
	flagDir         string
	flagBlockSize   string
	flagCompression string
	flagParallel    int
}

func (c *PutCommand) Synopsis() string { return "Upload local files" }

func (c *PutCommand) Help() string {
	return `Usage: fairos fs put -pod=<pod> [options] <file>...

  Uploads each local file into -dir, keeping its base name. Files are
  uploaded concurrently.` + c.Flags().Help()
}

func (c *PutCommand) Flags() *base.FlagSet {
	f := podFlags(c.Command, "fs put", &c.flagPod)
	f.StringVar(&c.flagDir, "dir", "/", "Destination directory in the pod.")
	f.StringVar(&c.flagBlockSize, "block-size", "1M", "Block size, such as 512K or 1M.")
	f.StringVar(&c.flagCompression, "compression", "", "Block compression: gzip or snappy.")
	f.IntVar(&c.flagParallel, "parallel", 4, "Number of concurrent uploads.")
	return f
}

func (c *PutCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := c.Flags()
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	if f.NArg() == 0 {
		c.UI.Error("expected at least one file")
		return 1
	}
	if c.flagParallel < 1 {
		c.UI.Error("parallel must be at least 1")
		return 1
	}
	bs, err := dfsfs.ParseBlockSize(c.flagBlockSize)
	if err != nil {
		return c.Fail("error parsing block size", err)
	}
	compression, err := dfsfs.ParseCompression(c.flagCompression)
	if err != nil {
		return c.Fail("error parsing compression", err)
	}
	opts := &dfsfs.UploadOptions{BlockSize: bs, Compression: compression}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.flagParallel)
	for _, local := range f.Args() {
		local := local
		g.Go(func() error {
			st, err := os.Stat(local)
			if err != nil {
				return err
			}
			if _, err := s.FS.UploadFile(gctx, s.Username, c.flagPod, c.flagDir, local, opts); err != nil {
				return fmt.Errorf("%s: %w", local, err)
			}
			c.Log.Debug("uploaded", "file", local, "bytes", st.Size())
			c.UI.Output(fmt.Sprintf("%s -> %s (%s)", local, path.Join(c.flagDir, filepath.Base(local)), humanize.Bytes(uint64(st.Size()))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.Fail("error uploading", err)
	}
	return 0
}

type GetCommand struct {
	*base.Command

	flagPod string
}

func (c *GetCommand) Synopsis() string { return "Download a file" }

func (c *GetCommand) Help() string {
	return `Usage: fairos fs get -pod=<pod> <path> [local]

  Writes the file to local, or to its base name in the working directory.` +
		podFlags(c.Command, "fs get", &c.flagPod).Help()
}

func (c *GetCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "fs get", &c.flagPod)
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)

	if f.NArg() < 1 || f.NArg() > 2 {
		c.UI.Error("expected a path and an optional local file")
		return 1
	}
	remote := f.Arg(0)
	local := path.Base(remote)
	if f.NArg() == 2 {
		local = f.Arg(1)
	}
	n, err := s.FS.DownloadFile(ctx, s.Username, c.flagPod, remote, local)
	if err != nil {
		return c.Fail("error downloading", err)
	}
	c.UI.Output(fmt.Sprintf("%s -> %s (%s)", remote, local, humanize.Bytes(uint64(n))))
	return 0
}

type StatCommand struct {
	*base.Command

	flagPod string
}

func (c *StatCommand) Synopsis() string { return "Show file details and blocks" }

func (c *StatCommand) Help() string {
	return "Usage: fairos fs stat -pod=<pod> <path>" + podFlags(c.Command, "fs stat", &c.flagPod).Help()
}

func (c *StatCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "fs stat", &c.flagPod)
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one path")
		return 1
	}

	info, err := s.FS.Info(ctx, s.Username, c.flagPod, f.Arg(0))
	if err != nil {
		return c.Fail("error reading file", err)
	}
	compression := string(info.Compression)
	if compression == "" {
		compression = "none"
	}
	c.UI.Output(fmt.Sprintf("path:         %s", path.Join(info.Path, info.Name)))
	c.UI.Output(fmt.Sprintf("content type: %s", info.ContentType))
	c.UI.Output(fmt.Sprintf("size:         %s", humanize.Bytes(info.Size)))
	c.UI.Output(fmt.Sprintf("block size:   %s", info.BlockSize.Human()))
	c.UI.Output(fmt.Sprintf("compression:  %s", compression))
	c.UI.Output(fmt.Sprintf("modified:     %s", humanize.Time(info.ModificationTime)))
	for _, b := range info.Blocks {
		c.UI.Output(fmt.Sprintf("  %s  %s  %s", b.Name, b.Reference, humanize.Bytes(b.Size)))
	}
	return 0
}

type RemoveCommand struct {
	*base.Command

	flagPod string
}

func (c *RemoveCommand) Synopsis() string { return "Remove a file or directory" }

func (c *RemoveCommand) Help() string {
	return "Usage: fairos fs rm -pod=<pod> <path>" + podFlags(c.Command, "fs rm", &c.flagPod).Help()
}

func (c *RemoveCommand) Run(args []string) int {
	ctx, cancel := base.Context()
	defer cancel()
	f := podFlags(c.Command, "fs rm", &c.flagPod)
	s, err := open(ctx, c.Command, f, args, c.flagPod)
	if err != nil {
		return c.Fail("error opening pod", err)
	}
	defer s.Logout(ctx)
	if f.NArg() != 1 {
		c.UI.Error("expected exactly one path")
		return 1
	}

	target := f.Arg(0)
	isDir, err := s.FS.DirExists(ctx, s.Username, c.flagPod, target)
	if err != nil {
		return c.Fail("error checking path", err)
	}
	if isDir {
		err = s.FS.Rmdir(ctx, s.Username, c.flagPod, target)
	} else {
		err = s.FS.Remove(ctx, s.Username, c.flagPod, target)
	}
	if err != nil {
		return c.Fail("error removing", fmt.Errorf("%s: %w", target, err))
	}
	return 0
}
