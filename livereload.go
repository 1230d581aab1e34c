// Package livereload is a development-time live-update client for a served
// page.
//
// A Client is mounted on a dom.Document. It listens on the development
// server's push stream and applies each notification with the smallest
// possible change: a full reload, a stylesheet swap, or a replacement of the
// diagnostic overlay ("HUD") it owns. It also collapses and expands sections
// of that overlay when they are clicked.
package livereload

import (
	"log"

	"github.com/livetemplate/livereload/internal/dom"
	"github.com/livetemplate/livereload/internal/metrics"
)

// DefaultPathAttribute is the link attribute holding a stylesheet's source
// path.
const DefaultPathAttribute = "path"

// Highlighter post-processes code blocks under an element.
type Highlighter interface {
	HighlightAllUnder(el dom.Element) error
}

// Markers are the class names that tag overlay elements for interaction.
type Markers struct {
	ToggleButton    string
	ToggleContainer string
	Collapsed       string
}

// DefaultMarkers returns the class names the development server's overlay
// markup uses.
func DefaultMarkers() Markers {
	return Markers{
		ToggleButton:    "powerpack-toggle",
		ToggleContainer: "powerpack-section",
		Collapsed:       "powerpack-collapsed",
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHighlighter enables highlighting of overlay code blocks.
func WithHighlighter(h Highlighter) Option {
	return func(c *Client) { c.highlighter = h }
}

// WithMarkers overrides the overlay marker classes.
func WithMarkers(m Markers) Option {
	return func(c *Client) { c.markers = m }
}

// WithPathAttribute overrides the link attribute matched by reload-css.
func WithPathAttribute(name string) Option {
	return func(c *Client) { c.pathAttr = name }
}

// WithLogger sets the logger for connection errors and debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDebug logs every payload and action.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// WithMetrics records stream and action counters in m; nil disables them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}
