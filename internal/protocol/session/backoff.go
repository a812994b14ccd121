package session

import (
	"math"
	"time"
)

// NextIdleDelay returns the sleep before the next poll after idle consecutive
// empty reads (1-based). Zero idle polls never sleep.
func NextIdleDelay(cfg BackoffConfig, idle int) time.Duration {
	if idle <= 0 || cfg.InitialDelay <= 0 {
		return 0
	}
	if idle == 1 {
		return cfg.InitialDelay
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(idle-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
