package research

import (
	"errors"
	"fmt"
)

// Config holds the knobs of a research run. It is read-only once the run
// starts.
type Config struct {
	// UsingIntention gates every planning round behind an intention check
	// by a separate model.
	UsingIntention bool
	// MaxPlanningRounds bounds planning rounds and therefore both model
	// planning calls and search calls. Zero means the default of 5;
	// negative values are rejected.
	MaxPlanningRounds int
	// MaxSearchWords is the per-round query count hint passed to the
	// planning prompt. Zero means the default of 5.
	MaxSearchWords int
	// IntentionTemplate is required when UsingIntention is set.
	IntentionTemplate Template
	// PlanningTemplate defaults to DefaultPlanningTemplate.
	PlanningTemplate Template
	// SummaryTemplate defaults to DefaultSummaryTemplate.
	SummaryTemplate Template
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlanningRounds: 5,
		MaxSearchWords:    5,
		PlanningTemplate:  DefaultPlanningTemplate,
		SummaryTemplate:   DefaultSummaryTemplate,
	}
}

// ErrInvalidConfig marks configuration rejected at construction time.
var ErrInvalidConfig = errors.New("invalid research config")

func (c *Config) validate() error {
	if c.MaxPlanningRounds < 0 {
		return fmt.Errorf("%w: max planning rounds must be positive, got %d", ErrInvalidConfig, c.MaxPlanningRounds)
	}
	if c.UsingIntention && c.IntentionTemplate == nil {
		return fmt.Errorf("%w: intention gating enabled without an intention template", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.MaxPlanningRounds == 0 {
		c.MaxPlanningRounds = 5
	}
	if c.MaxSearchWords <= 0 {
		c.MaxSearchWords = 5
	}
	if c.PlanningTemplate == nil {
		c.PlanningTemplate = DefaultPlanningTemplate
	}
	if c.SummaryTemplate == nil {
		c.SummaryTemplate = DefaultSummaryTemplate
	}
}
