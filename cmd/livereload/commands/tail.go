package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livetemplate/livereload/internal/config"
	"github.com/livetemplate/livereload/internal/dom"
)

// maxPageSize caps how much of the page tail reads.
const maxPageSize = 10 << 20

func newTailCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail <page-url>",
		Short: "Follow the push stream without a browser",
		Long: `tail loads the page into an in-memory document and applies every pushed
update to it, logging what the page would do. A reload fetches the page
again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTail(ctx, cmd, cfg, args[0])
		},
	}
}

func runTail(ctx context.Context, cmd *cobra.Command, cfg *config.Config, pageURL string) error {
	logger := newLogger(cmd.ErrOrStderr())

	doc, err := dom.NewHTMLDocument(pageFetcher(ctx, pageURL))
	if err != nil {
		return err
	}

	s := newSession(cfg, pageURL, logger)
	// Logging every action is the point of tail.
	client, err := s.mount(doc, false, true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "👀 Tailing %s\n", pageURL)
	fmt.Fprintf(out, "Session: %s\n", cfg.Hash)
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	return s.run(ctx, client)
}

// pageFetcher loads pageURL over HTTP. Every call fetches a fresh copy.
func pageFetcher(ctx context.Context, pageURL string) dom.LoadFunc {
	return func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("invalid page URL: %w", err)
		}
		req.Header.Set("Cache-Control", "no-cache")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch page: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to fetch page: %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return "", fmt.Errorf("failed to read page: %w", err)
		}
		return string(body), nil
	}
}
