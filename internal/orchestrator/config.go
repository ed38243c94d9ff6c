package orchestrator

import (
	"time"

	"github.com/dusk-indust/pdfcompare/internal/input"
)

// Config holds runtime settings for a comparison run.
type Config struct {
	// Extension is the accepted document suffix, e.g. ".pdf".
	Extension string

	// ProbeTimeout bounds the engine availability handshake.
	ProbeTimeout time.Duration

	// AttemptTimeout bounds each strategy attempt. Expiry fails the attempt
	// and the chain advances.
	AttemptTimeout time.Duration

	// PositionTolerance is the distance in points within which two words
	// count as being at the same position.
	PositionTolerance float64

	// ShortCircuitIdentical skips engine strategies for byte-identical
	// inputs.
	ShortCircuitIdentical bool

	// RequireEngine makes an unavailable engine fatal instead of degrading
	// to the metadata report.
	RequireEngine bool

	// Strategies is the escalation order.
	Strategies []StrategyName

	// ManualWait is how long to wait for the operator to save a manually
	// produced report before declaring it unconfirmed.
	ManualWait time.Duration

	// PollInterval is how often the manual report location is checked.
	PollInterval time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Extension:             input.DefaultExtension,
		ProbeTimeout:          15 * time.Second,
		AttemptTimeout:        2 * time.Minute,
		PositionTolerance:     1.0,
		ShortCircuitIdentical: true,
		Strategies:            append([]StrategyName(nil), DefaultStrategyOrder...),
		PollInterval:          2 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Extension == "" {
		c.Extension = d.Extension
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.PositionTolerance < 0 {
		c.PositionTolerance = d.PositionTolerance
	}
	if len(c.Strategies) == 0 {
		c.Strategies = d.Strategies
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
