package config

import (
	"strings"

	"github.com/google/uuid"
)

// Overrides holds values set at runtime via CLI flags. They are applied on
// top of the loaded file and environment, and are never persisted.
type Overrides struct {
	Route     string
	Hash      string
	Transport string
	Debug     bool
}

// Apply copies every non-empty override into c.
func (c *Config) Apply(o Overrides) {
	if o.Route != "" {
		c.Route = o.Route
	}
	if o.Hash != "" {
		c.Hash = o.Hash
	}
	if o.Transport != "" {
		c.Transport = strings.ToLower(o.Transport)
	}
	if o.Debug {
		c.Debug = true
	}
}

// EnsureHash fills in a random session hash when none was configured and
// returns the hash in use.
func (c *Config) EnsureHash() string {
	if c.Hash == "" {
		c.Hash = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return c.Hash
}
