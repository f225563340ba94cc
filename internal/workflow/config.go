package workflow

import "time"

// Config controls a compliance run.
type Config struct {
	// TopK is the number of child hits requested from the index.
	TopK int
	// MaxRevisions bounds the Critique -> Reason loop. The workflow runs
	// Reason at most MaxRevisions+1 times.
	MaxRevisions int
	// GenerationTimeout applies to every single generation call.
	GenerationTimeout time.Duration
	// LLMCritique adds a model review on top of the deterministic checks.
	LLMCritique bool
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		TopK:              5,
		MaxRevisions:      2,
		GenerationTimeout: 60 * time.Second,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.MaxRevisions < 0 {
		c.MaxRevisions = 0
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = def.GenerationTimeout
	}
	return c
}
