package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livetemplate/livereload"
	"github.com/livetemplate/livereload/internal/browser"
	"github.com/livetemplate/livereload/internal/config"
	"github.com/livetemplate/livereload/internal/dom"
	"github.com/livetemplate/livereload/internal/highlight"
	"github.com/livetemplate/livereload/internal/metrics"
	"github.com/livetemplate/livereload/internal/stream"
)

// session bundles what both commands need once a document is open.
type session struct {
	cfg     *config.Config
	pageURL string
	logger  *log.Logger
	metrics *metrics.Metrics
}

func newSession(cfg *config.Config, pageURL string, logger *log.Logger) *session {
	return &session{
		cfg:     cfg,
		pageURL: pageURL,
		logger:  logger,
		metrics: metrics.New(cfg.Metrics.Enabled),
	}
}

// highlighter returns nil when highlighting is off. inBrowser reports
// whether the page's own highlighter is reachable.
func (s *session) highlighter(inBrowser bool) livereload.Highlighter {
	switch s.cfg.Highlight.Mode {
	case config.HighlightChroma:
		return highlight.New(s.cfg.Highlight.Style)
	case config.HighlightPage:
		if inBrowser {
			return browser.PageHighlighter{}
		}
		s.logger.Printf("[Client] Page highlighting needs a browser, overlay code stays plain")
	}
	return nil
}

func (s *session) mount(doc dom.Document, inBrowser bool, debug bool) (*livereload.Client, error) {
	opts := []livereload.Option{
		livereload.WithMarkers(s.cfg.Markers.ClientMarkers()),
		livereload.WithPathAttribute(s.cfg.PathAttribute),
		livereload.WithLogger(s.logger),
		livereload.WithDebug(debug),
		livereload.WithMetrics(s.metrics),
	}
	if h := s.highlighter(inBrowser); h != nil {
		opts = append(opts, livereload.WithHighlighter(h))
	}
	return livereload.New(doc, opts...)
}

// run streams into client until ctx ends or the stream fails for good. The
// metrics endpoint, when enabled, is served for as long.
func (s *session) run(ctx context.Context, client *livereload.Client) error {
	sess, err := livereload.SessionForPage(s.pageURL, s.cfg.Route, s.cfg.Hash)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	if s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		srv := &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			s.logger.Printf("Metrics at http://%s/metrics", s.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		conn, err := client.Connect(ctx, sess, s.pageURL, stream.Options{
			Transport: s.cfg.StreamTransport(),
			Reconnect: s.cfg.Reconnect.Stream(),
			Logger:    s.logger,
			Debug:     s.cfg.Debug,
		})
		if err != nil {
			return err
		}
		defer conn.Close()
		s.logger.Printf("[Stream] Listening on %s", conn.Endpoint())

		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return conn.Err()
		}
	})

	return group.Wait()
}
