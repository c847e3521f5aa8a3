package config

import "fmt"

// LedgerConfig is the registry's config record: the one token type this
// instance vests and the optional grant ceiling.
type LedgerConfig struct {
	// TokenType identifies the vested token at the transfer boundary.
	TokenType string `json:"token_type"`
	// MaxTotalGranted caps the sum of all granted amounts; zero means
	// unlimited.
	MaxTotalGranted uint64 `json:"max_total_granted"`
}

// Validate checks mandatory fields.
func (c LedgerConfig) Validate() error {
	if c.TokenType == "" {
		return fmt.Errorf("token_type is required")
	}
	return nil
}
