package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Route = "/from-file"
	cfg.Hash = "file-hash"

	cfg.Apply(Overrides{Transport: "WebSocket", Debug: true})
	assert.Equal(t, "/from-file", cfg.Route)
	assert.Equal(t, "file-hash", cfg.Hash)
	assert.Equal(t, TransportWebSocket, cfg.Transport)
	assert.True(t, cfg.Debug)

	cfg.Apply(Overrides{Route: "/_stream", Hash: "h2"})
	assert.Equal(t, "/_stream", cfg.Route)
	assert.Equal(t, "h2", cfg.Hash)
	// Debug is never switched off by a zero override.
	assert.True(t, cfg.Debug)
}

func TestEnsureHash(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Hash)

	hash := cfg.EnsureHash()
	assert.Len(t, hash, 32)
	assert.NotContains(t, hash, "-")
	assert.Equal(t, hash, cfg.EnsureHash(), "hash is stable once set")

	other := DefaultConfig()
	assert.NotEqual(t, hash, other.EnsureHash())

	cfg.Hash = "fixed"
	assert.Equal(t, "fixed", cfg.EnsureHash())
}
