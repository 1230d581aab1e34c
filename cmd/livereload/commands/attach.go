package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/livetemplate/livereload/internal/browser"
	"github.com/livetemplate/livereload/internal/config"
)

func newAttachCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <page-url>",
		Short: "Open the page in Chrome and keep it live",
		Long: `attach opens the page in Chrome (launched headless by default, or the
browser at browser.remote_url) and applies every pushed update to it until
interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAttach(ctx, cmd, cfg, args[0])
		},
	}
}

func runAttach(ctx context.Context, cmd *cobra.Command, cfg *config.Config, pageURL string) error {
	logger := newLogger(cmd.ErrOrStderr())

	allocCtx, allocCancel := browser.NewAllocator(ctx, cfg.Browser.RemoteURL, cfg.Browser.Headless)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	doc, err := browser.Open(tabCtx, pageURL, browser.Options{
		Timeout:     cfg.Browser.GetTimeout(),
		CancelClass: cfg.Markers.ToggleButton,
		Logger:      logger,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return err
	}

	s := newSession(cfg, pageURL, logger)
	client, err := s.mount(doc, true, cfg.Debug)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🔌 Attached to %s\n", pageURL)
	fmt.Fprintf(out, "Session: %s\n", cfg.Hash)
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	return s.run(tabCtx, client)
}
