package realtime

import (
	"math"
	"time"

	"github.com/desertthunder/genie/internal/shared"
)

// BackoffPolicy computes reconnection delays and bounds the number of retries per episode.
type BackoffPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultBackoff returns 3s base, 30s cap, 1.5 growth and five attempts.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:        3 * time.Second,
		Cap:         30 * time.Second,
		Multiplier:  1.5,
		MaxAttempts: 5,
	}
}

// BackoffFromConfig builds a policy from the [realtime] config section.
func BackoffFromConfig(cfg shared.RealtimeConfig) BackoffPolicy {
	return BackoffPolicy{
		Base:        cfg.BaseDelay(),
		Cap:         cfg.MaxDelay(),
		Multiplier:  cfg.Multiplier,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// Delay returns min(Base·Multiplier^(n-1), Cap) for the 1-indexed attempt n. n < 1 is treated as 1.
func (p BackoffPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.Base) * math.Pow(p.Multiplier, float64(n-1))
	return time.Duration(math.Min(d, float64(p.Cap)))
}

// Exhausted reports whether attempts already made use up the budget.
func (p BackoffPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
