package version

import (
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
	"github.com/fairdatasociety/fairos_sdk_go/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return "Usage: fairos version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output("fairos " + version.Version)
	return 0
}
