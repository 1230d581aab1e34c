package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/livereload"
	"github.com/livetemplate/livereload/internal/stream"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Route = "/_stream"
	return cfg
}

func TestReconnectConfigGetDelay(t *testing.T) {
	tests := []struct {
		name     string
		delay    string
		expected time.Duration
	}{
		{"empty", "", 3 * time.Second},
		{"invalid", "soon", 3 * time.Second},
		{"negative", "-1s", 3 * time.Second},
		{"500ms", "500ms", 500 * time.Millisecond},
		{"zero", "0s", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ReconnectConfig{Delay: tt.delay}
			if got := cfg.GetDelay(); got != tt.expected {
				t.Errorf("GetDelay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReconnectConfigStream(t *testing.T) {
	got := DefaultConfig().Reconnect.Stream()
	if got != stream.DefaultReconnectConfig() {
		t.Errorf("default reconnect settings = %+v, want %+v", got, stream.DefaultReconnectConfig())
	}

	got = ReconnectConfig{Enabled: false, Delay: "1s", MaxDelay: "1m", Multiplier: 2, Jitter: true}.Stream()
	assert.True(t, got.Disabled)
	assert.Equal(t, time.Second, got.Delay)
	assert.Equal(t, time.Minute, got.MaxDelay)
	assert.Equal(t, 2.0, got.Multiplier)
	assert.True(t, got.Jitter)
	assert.Equal(t, time.Second, got.MinInterval)
	assert.Equal(t, 3, got.Burst)
}

func TestBrowserConfigGetTimeout(t *testing.T) {
	tests := []struct {
		timeout  string
		expected time.Duration
	}{
		{"", 30 * time.Second},
		{"bad", 30 * time.Second},
		{"5s", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := (BrowserConfig{Timeout: tt.timeout}).GetTimeout(); got != tt.expected {
			t.Errorf("GetTimeout(%q) = %v, want %v", tt.timeout, got, tt.expected)
		}
	}
}

func TestDefaultMarkersRoundTrip(t *testing.T) {
	assert.Equal(t, livereload.DefaultMarkers(), DefaultConfig().Markers.ClientMarkers())
}

func TestStreamTransport(t *testing.T) {
	cfg := validConfig()
	assert.IsType(t, &stream.SSE{}, cfg.StreamTransport())

	cfg.Transport = TransportWebSocket
	assert.IsType(t, &stream.WebSocket{}, cfg.StreamTransport())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing route", func(c *Config) { c.Route = "" }, "route is required"},
		{"bad transport", func(c *Config) { c.Transport = "polling" }, "invalid transport"},
		{"bad highlight mode", func(c *Config) { c.Highlight.Mode = "prism" }, "invalid highlight mode"},
		{"page highlight", func(c *Config) { c.Highlight.Mode = HighlightPage }, ""},
		{"missing path attribute", func(c *Config) { c.PathAttribute = "" }, "path_attribute"},
		{"missing marker", func(c *Config) { c.Markers.Collapsed = "" }, "markers"},
		{"bad delay", func(c *Config) { c.Reconnect.Delay = "3" }, "reconnect.delay"},
		{"negative max delay", func(c *Config) { c.Reconnect.MaxDelay = "-1s" }, "reconnect.max_delay"},
		{"bad browser timeout", func(c *Config) { c.Browser.Timeout = "x" }, "browser.timeout"},
		{"negative multiplier", func(c *Config) { c.Reconnect.Multiplier = -1 }, "multiplier"},
		{"negative burst", func(c *Config) { c.Reconnect.Burst = -1 }, "burst"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should contain %q", err, tt.wantErr)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	yaml := `route: /_powerpack/stream
transport: websocket
reconnect:
  delay: 500ms
  jitter: true
markers:
  collapsed: closed
highlight:
  style: monokai
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yaml), 0644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "/_powerpack/stream", cfg.Route)
	assert.Equal(t, TransportWebSocket, cfg.Transport)
	assert.Equal(t, "500ms", cfg.Reconnect.Delay)
	assert.True(t, cfg.Reconnect.Jitter)

	// Keys absent from the file keep their defaults.
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, "30s", cfg.Reconnect.MaxDelay)
	assert.Equal(t, "closed", cfg.Markers.Collapsed)
	assert.Equal(t, "powerpack-toggle", cfg.Markers.ToggleButton)
	assert.Equal(t, HighlightChroma, cfg.Highlight.Mode)
	assert.Equal(t, "monokai", cfg.Highlight.Style)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("route: /file\ndebug: false\n"), 0644))

	t.Setenv("LIVERELOAD_ROUTE", "/env")
	t.Setenv("LIVERELOAD_DEBUG", "true")
	t.Setenv("LIVERELOAD_BROWSER__REMOTE_URL", "http://localhost:9222")
	t.Setenv("LIVERELOAD_RECONNECT__ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env", cfg.Route)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "http://localhost:9222", cfg.Browser.RemoteURL)
	assert.False(t, cfg.Reconnect.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("route: [unclosed\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := validConfig()
	cfg.Hash = "abc"
	cfg.Metrics.Enabled = true
	cfg.Reconnect.Multiplier = 1.5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "route", envKey("LIVERELOAD_ROUTE"))
	assert.Equal(t, "reconnect.max_delay", envKey("LIVERELOAD_RECONNECT__MAX_DELAY"))
	assert.Equal(t, "path_attribute", envKey("LIVERELOAD_PATH_ATTRIBUTE"))
}
