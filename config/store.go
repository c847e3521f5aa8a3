package config

import "fmt"

// StoreConfig selects the allocation persistence backend.
type StoreConfig struct {
	// Backend selects the store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the database file location for the sqlite backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "vestd.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
