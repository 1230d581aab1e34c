// Package stream supervises the server-push connection a live-update client
// listens on.
//
// A Conn reads messages on one goroutine and hands them to the handler in the
// order the server sent them. Dropped connections are reopened according to
// a ReconnectConfig; the handler never sees reconnection.
package stream

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEvent is the event type of messages without an explicit type.
const DefaultEvent = "message"

// Message is one push message.
type Message struct {
	ID    string // Last event ID seen on the stream
	Event string // Event type
	Data  string // Empty for heartbeats
}

// HasData reports whether the message carries a body.
func (m Message) HasData() bool { return m.Data != "" }

// Handler receives messages. It runs on the connection's read goroutine and
// must return before the next message is delivered.
type Handler func(Message)

// Transport opens one push connection.
type Transport interface {
	Open(ctx context.Context, endpoint, lastEventID string) (Reader, error)
}

// Reader yields messages from one open connection.
type Reader interface {
	Next() (Message, error)
	Close() error
}

// retryHinter is implemented by readers whose server can set the
// reconnection delay.
type retryHinter interface {
	RetryHint() time.Duration
}

type lastEventIDer interface {
	LastEventID() string
}

// State is the lifecycle state of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Conn.
type Options struct {
	Transport Transport       // Defaults to SSE
	Reconnect ReconnectConfig // Zero value means DefaultReconnectConfig
	Logger    *log.Logger
	Debug     bool

	// OnStateChange and OnError are called from the read goroutine.
	OnStateChange func(State)
	OnError       func(error)
}

// Conn is a supervised push connection.
type Conn struct {
	endpoint string
	opts     Options
	handle   Handler
	logger   *log.Logger

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	lastEventID string
	retry       time.Duration
	err         error
}

// Connect opens a push connection to endpoint and starts delivering messages
// to handle. The connection lives until ctx is cancelled, Close is called, or
// it fails in a way that is not retried.
func Connect(ctx context.Context, endpoint string, handle Handler, opts Options) *Conn {
	if opts.Transport == nil {
		opts.Transport = &SSE{}
	}
	if opts.Reconnect == (ReconnectConfig{}) {
		opts.Reconnect = DefaultReconnectConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		endpoint: endpoint,
		opts:     opts,
		handle:   handle,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// Endpoint returns the address the connection reads from.
func (c *Conn) Endpoint() string { return c.endpoint }

// State returns the current connection state.
func (c *Conn) State() State { return State(c.state.Load()) }

// Done is closed once the connection has shut down for good.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection, or nil when it was
// cancelled.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// LastEventID returns the last event ID received; it is sent back when the
// connection is reopened.
func (c *Conn) LastEventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

// Close shuts the connection down and waits for the read goroutine to exit.
func (c *Conn) Close() {
	c.cancel()
	<-c.done
}

func (c *Conn) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.opts.Debug {
		c.logger.Printf("[Stream] %s: %s", c.endpoint, s)
	}
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateClosed)

	limiter := c.opts.Reconnect.limiter()
	failures := 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		c.setState(StateConnecting)
		opened, err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if opened {
			failures = 0
		}

		c.logger.Printf("[Stream] Dev stream connection error: %v", err)
		if c.opts.OnError != nil {
			c.opts.OnError(err)
		}

		if c.opts.Reconnect.Disabled || !IsRetryable(err) {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		hint := c.retry
		c.mu.Unlock()
		delay := c.opts.Reconnect.delay(failures, hint)
		failures++

		if c.opts.Debug {
			c.logger.Printf("[Stream] Reconnecting to %s in %v", c.endpoint, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// session runs one connection until it fails. It reports whether the
// connection was opened before failing.
func (c *Conn) session(ctx context.Context) (bool, error) {
	r, err := c.opts.Transport.Open(ctx, c.endpoint, c.LastEventID())
	if err != nil {
		return false, err
	}
	defer r.Close()

	c.setState(StateOpen)
	for {
		msg, err := r.Next()
		if h, ok := r.(retryHinter); ok && h.RetryHint() > 0 {
			c.mu.Lock()
			c.retry = h.RetryHint()
			c.mu.Unlock()
		}
		if err != nil {
			if l, ok := r.(lastEventIDer); ok {
				c.mu.Lock()
				c.lastEventID = l.LastEventID()
				c.mu.Unlock()
			}
			return true, err
		}

		c.mu.Lock()
		c.lastEventID = msg.ID
		c.mu.Unlock()

		if msg.Event != DefaultEvent {
			if c.opts.Debug {
				c.logger.Printf("[Stream] Ignoring %q event", msg.Event)
			}
			continue
		}
		c.handle(msg)
	}
}
