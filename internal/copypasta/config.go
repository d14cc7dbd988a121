// Package copypasta learns a Markov model from chat and generates messages
// from it. Every learned message is recorded so it can be retracted later.
package copypasta

import "time"

// Named defaults.
const (
	DefaultContextWindowLength  = 3
	DefaultMinTokenLength       = 1
	DefaultMaxMessageLength     = 500
	DefaultAutonomousDelayCount = 20
	DefaultAutonomousDelay      = 5 * time.Minute
	DefaultGenerationRetryCount = 10
	DefaultReplyCooldown        = 30 * time.Second
)

// Config enumerates every tunable of the generator and its schedule.
type Config struct {
	AllowURLs            bool
	ContextWindowLength  int
	MinTokenLength       int
	MaxMessageLength     int
	AutonomousDelayCount int
	AutonomousDelay      time.Duration
	GenerationRetryCount int
	ReplyCooldown        time.Duration
	UseEqualWeights      bool
	Weight               WeightFunc
}

func DefaultConfig() Config {
	return Config{
		ContextWindowLength:  DefaultContextWindowLength,
		MinTokenLength:       DefaultMinTokenLength,
		MaxMessageLength:     DefaultMaxMessageLength,
		AutonomousDelayCount: DefaultAutonomousDelayCount,
		AutonomousDelay:      DefaultAutonomousDelay,
		GenerationRetryCount: DefaultGenerationRetryCount,
		ReplyCooldown:        DefaultReplyCooldown,
		Weight:               TokenCountWeight{},
	}
}

// normalize fills zero values with defaults.
func (c *Config) normalize() {
	if c.ContextWindowLength < 1 {
		c.ContextWindowLength = DefaultContextWindowLength
	}
	if c.MinTokenLength < 1 {
		c.MinTokenLength = DefaultMinTokenLength
	}
	if c.MaxMessageLength < 1 {
		c.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.GenerationRetryCount < 0 {
		c.GenerationRetryCount = 0
	}
	if c.Weight == nil {
		c.Weight = TokenCountWeight{}
	}
}
