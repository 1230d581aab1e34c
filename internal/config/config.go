package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/livetemplate/livereload"
	"github.com/livetemplate/livereload/internal/stream"
)

// FileName is the config file LoadFromDir looks for.
const FileName = "livereload.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: LIVERELOAD_RECONNECT__MAX_DELAY sets reconnect.max_delay.
const EnvPrefix = "LIVERELOAD_"

const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"

	HighlightChroma = "chroma"
	HighlightPage   = "page"
	HighlightNone   = "none"
)

// Config represents the livereload configuration
type Config struct {
	Route         string          `yaml:"route" koanf:"route"` // Push endpoint route, absolute or relative to the page
	Hash          string          `yaml:"hash" koanf:"hash"`   // Session hash; generated when empty
	Transport     string          `yaml:"transport" koanf:"transport"`
	PathAttribute string          `yaml:"path_attribute" koanf:"path_attribute"`
	Reconnect     ReconnectConfig `yaml:"reconnect" koanf:"reconnect"`
	Markers       MarkersConfig   `yaml:"markers" koanf:"markers"`
	Highlight     HighlightConfig `yaml:"highlight" koanf:"highlight"`
	Browser       BrowserConfig   `yaml:"browser" koanf:"browser"`
	Metrics       MetricsConfig   `yaml:"metrics" koanf:"metrics"`
	Debug         bool            `yaml:"debug" koanf:"debug"`
}

// ReconnectConfig configures how a dropped stream is reopened
type ReconnectConfig struct {
	Enabled     bool    `yaml:"enabled" koanf:"enabled"`
	Delay       string  `yaml:"delay,omitempty" koanf:"delay"`               // Delay before reconnecting (default: 3s, a server retry hint wins)
	MaxDelay    string  `yaml:"max_delay,omitempty" koanf:"max_delay"`       // Upper bound after backoff (default: 30s)
	Multiplier  float64 `yaml:"multiplier,omitempty" koanf:"multiplier"`     // Backoff factor per failure (default: 1, constant delay)
	Jitter      bool    `yaml:"jitter,omitempty" koanf:"jitter"`             // Randomize delays by ±20%
	MinInterval string  `yaml:"min_interval,omitempty" koanf:"min_interval"` // Minimum spacing between attempts (default: 1s)
	Burst       int     `yaml:"burst,omitempty" koanf:"burst"`               // Attempts allowed back to back (default: 3)
}

// MarkersConfig holds the overlay marker class names
type MarkersConfig struct {
	ToggleButton    string `yaml:"toggle_button" koanf:"toggle_button"`
	ToggleContainer string `yaml:"toggle_container" koanf:"toggle_container"`
	Collapsed       string `yaml:"collapsed" koanf:"collapsed"`
}

// HighlightConfig selects how overlay code blocks are highlighted
type HighlightConfig struct {
	Mode  string `yaml:"mode" koanf:"mode"`   // "chroma", "page" or "none"
	Style string `yaml:"style" koanf:"style"` // Chroma style name
}

// BrowserConfig holds settings for the attach command
type BrowserConfig struct {
	Headless  bool   `yaml:"headless" koanf:"headless"`
	RemoteURL string `yaml:"remote_url,omitempty" koanf:"remote_url"` // DevTools URL of an already running browser
	Timeout   string `yaml:"timeout,omitempty" koanf:"timeout"`       // Per-call timeout (default: 30s)
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Addr    string `yaml:"addr" koanf:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	markers := livereload.DefaultMarkers()
	return &Config{
		Transport:     TransportSSE,
		PathAttribute: livereload.DefaultPathAttribute,
		Reconnect: ReconnectConfig{
			Enabled:     true,
			Delay:       "3s",
			MaxDelay:    "30s",
			Multiplier:  1,
			MinInterval: "1s",
			Burst:       3,
		},
		Markers: MarkersConfig{
			ToggleButton:    markers.ToggleButton,
			ToggleContainer: markers.ToggleContainer,
			Collapsed:       markers.Collapsed,
		},
		Highlight: HighlightConfig{
			Mode:  HighlightChroma,
			Style: "github",
		},
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  "30s",
		},
		Metrics: MetricsConfig{
			Addr: "localhost:9464",
		},
	}
}

// Load reads configuration from a YAML file, then overlays LIVERELOAD_*
// environment variables. A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	config := DefaultConfig()
	if err := k.Unmarshal("", config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

// envKey maps LIVERELOAD_BROWSER__REMOTE_URL to browser.remote_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadFromDir loads livereload.yaml from dir, or the defaults if there is none
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration can drive a client.
func (c *Config) Validate() error {
	if c.Route == "" {
		return fmt.Errorf("route is required")
	}
	switch c.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("invalid transport %q: must be sse or websocket", c.Transport)
	}
	switch c.Highlight.Mode {
	case HighlightChroma, HighlightPage, HighlightNone:
	default:
		return fmt.Errorf("invalid highlight mode %q: must be chroma, page or none", c.Highlight.Mode)
	}
	if c.PathAttribute == "" {
		return fmt.Errorf("path_attribute is required")
	}
	if c.Markers.ToggleButton == "" || c.Markers.ToggleContainer == "" || c.Markers.Collapsed == "" {
		return fmt.Errorf("markers: toggle_button, toggle_container and collapsed are required")
	}

	durations := map[string]string{
		"reconnect.delay":        c.Reconnect.Delay,
		"reconnect.max_delay":    c.Reconnect.MaxDelay,
		"reconnect.min_interval": c.Reconnect.MinInterval,
		"browser.timeout":        c.Browser.Timeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("%s: invalid duration %q", key, value)
		}
	}
	if c.Reconnect.Multiplier < 0 {
		return fmt.Errorf("reconnect.multiplier cannot be negative")
	}
	if c.Reconnect.Burst < 0 {
		return fmt.Errorf("reconnect.burst cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetDelay returns the reconnect delay (default: 3s)
func (c ReconnectConfig) GetDelay() time.Duration {
	return parseDuration(c.Delay, stream.DefaultRetryDelay)
}

// GetMaxDelay returns the backoff cap (default: 30s)
func (c ReconnectConfig) GetMaxDelay() time.Duration {
	return parseDuration(c.MaxDelay, 30*time.Second)
}

// GetMinInterval returns the minimum spacing between attempts (default: 1s)
func (c ReconnectConfig) GetMinInterval() time.Duration {
	return parseDuration(c.MinInterval, time.Second)
}

// GetBurst returns the attempt burst size (default: 3)
func (c ReconnectConfig) GetBurst() int {
	if c.Burst <= 0 {
		return 3
	}
	return c.Burst
}

// Stream converts the settings for the stream package.
func (c ReconnectConfig) Stream() stream.ReconnectConfig {
	return stream.ReconnectConfig{
		Disabled:    !c.Enabled,
		Delay:       c.GetDelay(),
		MaxDelay:    c.GetMaxDelay(),
		Multiplier:  c.Multiplier,
		Jitter:      c.Jitter,
		MinInterval: c.GetMinInterval(),
		Burst:       c.GetBurst(),
	}
}

// GetTimeout returns the browser call timeout (default: 30s)
func (c BrowserConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// ClientMarkers converts the marker classes for the client.
func (c MarkersConfig) ClientMarkers() livereload.Markers {
	return livereload.Markers{
		ToggleButton:    c.ToggleButton,
		ToggleContainer: c.ToggleContainer,
		Collapsed:       c.Collapsed,
	}
}

// StreamTransport returns the configured transport.
func (c *Config) StreamTransport() stream.Transport {
	if c.Transport == TransportWebSocket {
		return &stream.WebSocket{}
	}
	return &stream.SSE{}
}
