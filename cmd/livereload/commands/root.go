package commands

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/livetemplate/livereload/internal/config"
)

type rootOptions struct {
	configPath string
	overrides  config.Overrides
}

// NewRootCommand builds the livereload command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "livereload",
		Short: "Live-reload client for pages served by a development server",
		Long: `livereload connects to a development server's push stream on behalf of a
page and applies what the server sends: full reloads, stylesheet swaps and
the diagnostic overlay.

  livereload attach http://localhost:8080/docs --route /_powerpack/stream
  livereload tail http://localhost:8080/docs --route /_powerpack/stream`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "config file path")
	flags.StringVar(&opts.overrides.Route, "route", "", "push endpoint route (overrides config)")
	flags.StringVar(&opts.overrides.Hash, "hash", "", "session hash (random when unset)")
	flags.StringVar(&opts.overrides.Transport, "transport", "", "stream transport: sse or websocket")
	flags.BoolVar(&opts.overrides.Debug, "debug", false, "log every message and action")

	root.AddCommand(
		newAttachCommand(opts),
		newTailCommand(opts),
		newVersionCommand(version),
	)
	return root
}

// load reads the config file, applies flag overrides and validates.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Apply(o.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.EnsureHash()
	return cfg, nil
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.LstdFlags)
}
