package stream

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryDelay matches the reconnection time an EventSource starts with.
const DefaultRetryDelay = 3 * time.Second

// ReconnectConfig configures how a dropped push connection is reopened.
type ReconnectConfig struct {
	Disabled   bool          // Give up after the first transport error
	Delay      time.Duration // Delay before the first reopen (default: 3s; a server "retry" field overrides it)
	MaxDelay   time.Duration // Cap for backed-off delays (default: 30s)
	Multiplier float64       // Backoff multiplier per failed attempt (default: 1, a constant delay)
	Jitter     bool          // Randomize each delay between 80% and 120%
	// MinInterval and Burst rate-limit connection attempts so a server that
	// accepts and immediately closes cannot spin the client. Zero disables it.
	MinInterval time.Duration
	Burst       int
}

// DefaultReconnectConfig is used when Options.Reconnect is the zero value.
// It mirrors the browser's EventSource behaviour.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Delay:       DefaultRetryDelay,
		MaxDelay:    30 * time.Second,
		Multiplier:  1,
		MinInterval: time.Second,
		Burst:       3,
	}
}

// delay computes the wait before reconnect attempt number attempt (0-based,
// counting failures since the connection was last open). base overrides
// c.Delay when the server sent a retry hint.
func (c ReconnectConfig) delay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = c.Delay
	}
	if base <= 0 {
		base = DefaultRetryDelay
	}
	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	d := float64(base) * math.Pow(multiplier, float64(attempt))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		d *= 0.8 + rand.Float64()*0.4
	}
	return time.Duration(d)
}

func (c ReconnectConfig) limiter() *rate.Limiter {
	if c.MinInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(c.MinInterval), burst)
}
