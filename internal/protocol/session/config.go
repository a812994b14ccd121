package session

import "time"

// BackoffConfig defines how long an idle wait sleeps between empty polls.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Config defines link wait defaults.
type Config struct {
	// WaitTimeout bounds one wait; zero waits until the flag clears.
	WaitTimeout   time.Duration
	IdleBackoff   BackoffConfig
	ValueCapacity int
}

func DefaultConfig() Config {
	return Config{
		WaitTimeout:   0,
		ValueCapacity: 256,
		IdleBackoff: BackoffConfig{
			InitialDelay: time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     50 * time.Millisecond,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ValueCapacity <= 0 {
		c.ValueCapacity = def.ValueCapacity
	}
	if c.IdleBackoff.InitialDelay <= 0 {
		c.IdleBackoff = def.IdleBackoff
	}
	if c.WaitTimeout < 0 {
		c.WaitTimeout = 0
	}
	return c
}
