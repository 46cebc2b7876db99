// Package cli implements the connstats command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/coder/serpent"
)

// RootCmd wires global state into subcommands.
type RootCmd struct {
	verbose bool

	// fs is swapped for an in-memory filesystem in tests.
	fs afero.Fs
}

func (r *RootCmd) Command() *serpent.Command {
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	cmd := &serpent.Command{
		Use:   "connstats",
		Short: "Serve and compute connector statistics time series.",
		Handler: func(i *serpent.Invocation) error {
			return i.Command.HelpHandler(i)
		},
		Children: []*serpent.Command{
			r.server(),
			r.compute(),
		},
	}
	cmd.Options = serpent.OptionSet{
		{
			Flag:          "verbose",
			FlagShorthand: "v",
			Env:           "CONNSTATS_VERBOSE",
			Description:   "Enable debug logging.",
			Value:         serpent.BoolOf(&r.verbose),
		},
	}
	return cmd
}

// RunMain invokes the root command with OS arguments and environment,
// exiting non-zero on error.
func (r *RootCmd) RunMain() {
	err := r.Command().Invoke().WithOS().Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
