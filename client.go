package livereload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/livetemplate/livereload/internal/dom"
	"github.com/livetemplate/livereload/internal/metrics"
	"github.com/livetemplate/livereload/internal/protocol"
	"github.com/livetemplate/livereload/internal/stream"
)

// Client applies push notifications to one page.
//
// Messages and clicks are handled one at a time; a Client is safe to feed
// from the stream goroutine and the document's event goroutine at once.
type Client struct {
	mu sync.Mutex

	doc         dom.Document
	host        dom.Element
	highlighter Highlighter
	markers     Markers
	pathAttr    string
	logger      *log.Logger
	debug       bool
	metrics     *metrics.Metrics
}

// New mounts a client on doc: it appends the overlay host to the body and
// installs the delegated click listener.
func New(doc dom.Document, opts ...Option) (*Client, error) {
	if doc == nil {
		return nil, errors.New("livereload: nil document")
	}
	c := &Client{
		doc:      doc,
		markers:  DefaultMarkers(),
		pathAttr: DefaultPathAttribute,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.mount(); err != nil {
		return nil, err
	}
	return c, nil
}

// mount performs the once-per-page-load setup.
func (c *Client) mount() error {
	host, err := c.doc.CreateOverlayHost()
	if err != nil {
		return fmt.Errorf("failed to create overlay host: %w", err)
	}
	if err := c.doc.AddClickListener(c.handleClick); err != nil {
		return fmt.Errorf("failed to install click listener: %w", err)
	}
	c.host = host
	return nil
}

// Host returns the overlay host of the current page load.
func (c *Client) Host() dom.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// HudMarkup returns the current overlay content.
func (c *Client) HudMarkup() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host.InnerHTML()
}

// Connect opens the push stream for session and feeds it to the client.
// base resolves a relative route, normally the page URL.
func (c *Client) Connect(ctx context.Context, session Session, base string, opts stream.Options) (*stream.Conn, error) {
	endpoint, err := session.Endpoint(base)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}

	onState, onError := opts.OnStateChange, opts.OnError
	opts.OnStateChange = func(s stream.State) {
		c.metrics.SetConnected(s == stream.StateOpen)
		if onState != nil {
			onState(s)
		}
	}
	opts.OnError = func(err error) {
		c.metrics.IncConnectionError()
		if onError != nil {
			onError(err)
		}
	}

	if c.debug {
		c.logger.Printf("[Client] Connecting to %s", endpoint)
	}
	return stream.Connect(ctx, endpoint, c.HandleMessage, opts), nil
}

// HandleMessage is the stream handler. Failures are logged and the message
// is dropped; nothing a message contains can stop the stream.
func (c *Client) HandleMessage(msg stream.Message) {
	if !msg.HasData() {
		c.metrics.IncHeartbeat()
		if c.debug {
			c.logger.Printf("[Client] Event source message contained no data")
		}
		return
	}
	if err := c.Dispatch([]byte(msg.Data)); err != nil {
		c.logger.Printf("[Client] Dropped message: %v", err)
	}
}

// Dispatch decodes one message body and applies its action.
func (c *Client) Dispatch(data []byte) error {
	action, err := protocol.Decode(data)
	if err != nil {
		c.metrics.IncDecodeError()
		return err
	}
	if c.debug {
		c.logger.Printf("[Client] Dev stream payload: action=%q", action.Name())
	}
	return c.Apply(action)
}

// Apply runs the handler for a decoded action. Unknown actions are ignored.
func (c *Client) Apply(action protocol.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	switch a := action.(type) {
	case protocol.Reload:
		err = c.reload()
	case protocol.ReloadCSS:
		_, err = c.reloadCSS(a.Path, a.UpdatedPath)
	case protocol.RenderHud:
		err = c.renderHud(a.Markup)
	default:
		if c.debug {
			c.logger.Printf("[Client] Ignoring unknown action %q", action.Name())
		}
		return nil
	}

	c.metrics.IncAction(action.Name())
	if err != nil {
		c.metrics.IncActionError()
	}
	return err
}

// Reload forces a cache-bypassing reload and mounts the client on the new
// page load.
func (c *Client) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reload()
}

func (c *Client) reload() error {
	if err := c.doc.Reload(); err != nil {
		return &ActionError{Action: protocol.ActionReload, Step: "reload page", Err: err}
	}
	if err := c.mount(); err != nil {
		return &ActionError{Action: protocol.ActionReload, Step: "mount after reload", Err: err}
	}
	return nil
}

// ReloadCSS points every link whose path attribute equals oldPath at
// newPath. It returns how many links changed; zero is not an error.
func (c *Client) ReloadCSS(oldPath, newPath string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadCSS(oldPath, newPath)
}

func (c *Client) reloadCSS(oldPath, newPath string) (int, error) {
	links, err := c.doc.Links()
	if err != nil {
		return 0, &ActionError{Action: protocol.ActionReloadCSS, Step: "list links", Err: err}
	}
	updated := 0
	for _, link := range links {
		if path, ok := link.Attr(c.pathAttr); !ok || path != oldPath {
			continue
		}
		if err := link.SetAttr("href", newPath); err != nil {
			return updated, &ActionError{Action: protocol.ActionReloadCSS, Step: "update link href", Err: err}
		}
		updated++
	}
	if c.debug {
		c.logger.Printf("[Client] Swapped %d stylesheet link(s) %s -> %s", updated, oldPath, newPath)
	}
	return updated, nil
}

// RenderHud replaces the overlay content with markup, then highlights code
// blocks inside the overlay when a highlighter is configured.
func (c *Client) RenderHud(markup string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderHud(markup)
}

func (c *Client) renderHud(markup string) error {
	if err := c.host.SetInnerHTML(markup); err != nil {
		return &ActionError{Action: protocol.ActionRenderHud, Step: "replace overlay", Err: err}
	}
	if c.highlighter != nil {
		// Best effort: the overlay is already rendered.
		if err := c.highlighter.HighlightAllUnder(c.host); err != nil {
			c.logger.Printf("[Client] Highlighting overlay failed: %v", err)
		}
	}
	return nil
}

// handleClick is the delegated body listener for overlay toggles.
func (c *Client) handleClick(ev *dom.ClickEvent) {
	if ev == nil || ev.Target == nil || !ev.Target.HasClass(c.markers.ToggleButton) {
		return
	}
	ev.PreventDefault()
	ev.StopPropagation()

	c.mu.Lock()
	defer c.mu.Unlock()

	container, err := ev.Target.Closest(c.markers.ToggleContainer)
	if err != nil {
		c.logger.Printf("[Client] Toggle lookup failed: %v", err)
		return
	}
	if container == nil {
		return
	}
	collapsed, err := container.ToggleClass(c.markers.Collapsed)
	if err != nil {
		c.logger.Printf("[Client] Toggle failed: %v", err)
		return
	}
	c.metrics.IncToggle()
	if c.debug {
		c.logger.Printf("[Client] Overlay section collapsed=%v", collapsed)
	}
}
