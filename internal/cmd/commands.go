package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/base"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/docs"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/fs"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/kv"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/pod"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/user"
	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd/commands/version"
)

// Commands returns the command table. Subcommands are keyed by their full
// space separated name.
func Commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	b := &base.Command{Log: log, UI: ui}

	table := map[string]cli.Command{
		"version": &version.Command{Command: b},

		"user":         user.Group(),
		"user signup":  &user.SignupCommand{Command: b},
		"user info":    &user.InfoCommand{Command: b},
		"user present": &user.PresentCommand{Command: b},
		"user delete":  &user.DeleteCommand{Command: b},

		"pod":        pod.Group(),
		"pod new":    &pod.NewCommand{Command: b},
		"pod ls":     &pod.ListCommand{Command: b},
		"pod stat":   &pod.StatCommand{Command: b},
		"pod share":  &pod.ShareCommand{Command: b},
		"pod delete": &pod.DeleteCommand{Command: b},

		"fs":       fs.Group(),
		"fs ls":    &fs.ListCommand{Command: b},
		"fs mkdir": &fs.MkdirCommand{Command: b},
		"fs put":   &fs.PutCommand{Command: b},
		"fs get":   &fs.GetCommand{Command: b},
		"fs stat":  &fs.StatCommand{Command: b},
		"fs rm":    &fs.RemoveCommand{Command: b},

		"kv":       kv.Group(),
		"kv new":   &kv.NewCommand{Command: b},
		"kv ls":    &kv.ListCommand{Command: b},
		"kv put":   &kv.PutCommand{Command: b},
		"kv get":   &kv.GetCommand{Command: b},
		"kv count": &kv.CountCommand{Command: b},
		"kv seek":  &kv.SeekCommand{Command: b},
		"kv load":  &kv.LoadCommand{Command: b},

		"doc":       docs.Group(),
		"doc new":   &docs.NewCommand{Command: b},
		"doc ls":    &docs.ListCommand{Command: b},
		"doc put":   &docs.PutCommand{Command: b},
		"doc get":   &docs.GetCommand{Command: b},
		"doc find":  &docs.FindCommand{Command: b},
		"doc count": &docs.CountCommand{Command: b},
		"doc load":  &docs.LoadCommand{Command: b},
	}

	factories := make(map[string]cli.CommandFactory, len(table))
	for name, command := range table {
		command := command
		factories[name] = func() (cli.Command, error) { return command, nil }
	}
	return factories
}
