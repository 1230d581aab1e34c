// Package browser drives a real page through the Chrome DevTools Protocol and
// exposes it as a dom.Document.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/livetemplate/livereload/internal/dom"
)

// DefaultTimeout bounds each round trip to the browser.
const DefaultTimeout = 30 * time.Second

// Options configures a Document.
type Options struct {
	// Timeout bounds each DevTools call. Navigation and reload get the same
	// budget.
	Timeout time.Duration

	// CancelClass names the class whose clicks are cancelled inside the
	// page. Listeners run asynchronously in Go, too late to stop the
	// browser's default action, so this is decided in the page itself.
	CancelClass string

	Logger *log.Logger
	Debug  bool
}

// Document is a dom.Document backed by one browser tab.
type Document struct {
	ctx  context.Context
	opts Options

	mu        sync.Mutex
	load      int
	listeners []dom.ClickListener

	clicks chan clickPayload
}

var _ dom.Document = (*Document)(nil)

// NewAllocator returns a chromedp allocator context: a remote browser when
// remoteURL is set, otherwise a locally launched Chrome.
func NewAllocator(parent context.Context, remoteURL string, headless bool) (context.Context, context.CancelFunc) {
	if remoteURL != "" {
		return chromedp.NewRemoteAllocator(parent, remoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
	)
	return chromedp.NewExecAllocator(parent, opts...)
}

// Open navigates the tab behind ctx to pageURL and prepares it for use.
// ctx must come from chromedp.NewContext; the Document lives until it is
// cancelled.
func Open(ctx context.Context, pageURL string, opts Options) (*Document, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	d := &Document{
		ctx:    ctx,
		opts:   opts,
		clicks: make(chan clickPayload, 64),
	}

	chromedp.ListenTarget(ctx, d.onEvent)

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	err := chromedp.Run(runCtx,
		runtime.AddBinding(bindingName),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", pageURL, err)
	}
	if err := d.install(); err != nil {
		return nil, err
	}

	go d.dispatch()
	if opts.Debug {
		opts.Logger.Printf("[Browser] Opened %s", pageURL)
	}
	return d, nil
}

// onEvent runs on chromedp's event loop and must not block.
func (d *Document) onEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok || called.Name != bindingName {
		return
	}
	var p clickPayload
	if err := json.Unmarshal([]byte(called.Payload), &p); err != nil {
		d.opts.Logger.Printf("[Browser] Bad click payload: %v", err)
		return
	}
	select {
	case d.clicks <- p:
	default:
		d.opts.Logger.Printf("[Browser] Click queue full, dropping click")
	}
}

func (d *Document) dispatch() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case p := <-d.clicks:
			d.deliver(p)
		}
	}
}

// deliver calls the listeners of the current page load. Clicks reported by
// an earlier page load are dropped.
func (d *Document) deliver(p clickPayload) {
	d.mu.Lock()
	if p.Load != d.load {
		d.mu.Unlock()
		return
	}
	listeners := append([]dom.ClickListener(nil), d.listeners...)
	d.mu.Unlock()

	ev := &dom.ClickEvent{Target: &Element{doc: d, ref: p.Ref}}
	for _, fn := range listeners {
		fn(ev)
	}
}

// install sets up the page runtime for a new page load.
func (d *Document) install() error {
	d.mu.Lock()
	d.load++
	load := d.load
	d.listeners = nil
	d.mu.Unlock()

	var got int
	if err := d.eval(installScript(load, d.opts.CancelClass), &got); err != nil {
		return fmt.Errorf("failed to install page runtime: %w", err)
	}
	if got != load {
		return fmt.Errorf("page runtime already installed by load %d", got)
	}
	return nil
}

func (d *Document) eval(expr string, res any) error {
	ctx, cancel := context.WithTimeout(d.ctx, d.opts.Timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

// CreateOverlayHost appends an empty div to the body.
func (d *Document) CreateOverlayHost() (dom.Element, error) {
	var ref int
	err := d.eval(`(() => {
		const host = document.createElement("div");
		document.body.appendChild(host);
		return window.__livereload.ref(host);
	})()`, &ref)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay host: %w", err)
	}
	return &Element{doc: d, ref: ref}, nil
}

// Links returns every <link> element in document order.
func (d *Document) Links() ([]dom.Element, error) {
	var refs []int
	err := d.eval(`Array.from(document.querySelectorAll("link"), (el) => window.__livereload.ref(el))`, &refs)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	links := make([]dom.Element, len(refs))
	for i, ref := range refs {
		links[i] = &Element{doc: d, ref: ref}
	}
	return links, nil
}

// AddClickListener registers fn for clicks anywhere in the body until the
// next reload.
func (d *Document) AddClickListener(fn dom.ClickListener) error {
	if fn == nil {
		return errors.New("nil click listener")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
	return nil
}

// Reload reloads the tab bypassing the cache and waits for the new page
// load. Elements and listeners of the previous load are invalid afterwards.
func (d *Document) Reload() error {
	d.mu.Lock()
	d.listeners = nil
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(d.ctx, d.opts.Timeout)
	defer cancel()

	loaded := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(ctx, page.Reload().WithIgnoreCache(true)); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	select {
	case <-loaded:
	case <-ctx.Done():
		return fmt.Errorf("failed to reload page: %w", ctx.Err())
	}
	if err := chromedp.Run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	if d.opts.Debug {
		d.opts.Logger.Printf("[Browser] Page reloaded")
	}
	return d.install()
}

func (d *Document) logf(format string, args ...any) {
	if d.opts.Debug {
		d.opts.Logger.Printf("[Browser] "+format, args...)
	}
}
