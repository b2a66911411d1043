// Package cmd implements the lvsim commands.
//
// lvsim runs lvbind on the reference engine: "run" serves the display and
// accepts input over a websocket, "snapshot" renders a scene to an image.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/lvbind/cmd/lvsim/internal/config"
	"github.com/go-drift/lvbind/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
	// Dir is searched for a default config file when Config is empty.
	Dir string
}

// NewRootCommand creates the root command for the lvsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "lvsim",
		Short:   "lvsim - lvbind on the reference engine",
		Long:    "Run lvbind scenes on the in-memory reference engine, mirror the display over a websocket and render snapshots.",
		Version: Version + " (built " + BuildTime + ")",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			errors.SetLevel(level)
			errors.SetHandler(&errors.LogHandler{Verbose: opts.Verbose})
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default: lvsim.yaml or lvsim.toml in the working directory)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))

	return cmd
}

func (o *RootOptions) load() (*config.Resolved, error) {
	dir := o.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	return config.Load(dir, o.Config)
}
