// Package pgpcert assembles OpenPGP packets into certificates,
// canonicalizes them, and merges copies of the same certificate
// obtained from different places.
package pgpcert

import (
	"go.uber.org/zap"
)

// Config collects knobs for certificate processing. A nil Config is
// valid and means default behavior everywhere.
type Config struct {
	// Logger receives trace output from canonicalization: quarantined
	// signatures, relocations and ambiguous placements. Nil disables
	// tracing.
	Logger *zap.Logger
}

func (c *Config) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
