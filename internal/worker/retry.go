package worker

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
)

const (
	defaultMaxRetries    = 5
	defaultInitialDelay  = 2 * time.Second
	defaultMaxDelay      = time.Minute
	defaultBackoffFactor = 2
	defaultJitter        = 0.2
)

// RetryPolicy is the backoff schedule for sync tasks that failed with a
// retryable error.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter is the fraction of each delay that is randomized, in [0, 1).
	Jitter float64
}

// PolicyFromConfig maps worker settings to a jittered retry policy.
func PolicyFromConfig(cfg config.WorkerConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  time.Duration(cfg.InitialDelaySeconds) * time.Second,
		MaxDelay:      time.Duration(cfg.MaxDelaySeconds) * time.Second,
		BackoffFactor: cfg.BackoffFactor,
		Jitter:        defaultJitter,
	}.withDefaults()
}

// withDefaults fills unset fields. Jitter stays as given.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultMaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultInitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultMaxDelay
	}
	if r.MaxDelay < r.InitialDelay {
		r.MaxDelay = r.InitialDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = defaultBackoffFactor
	}
	if r.Jitter < 0 || r.Jitter >= 1 {
		r.Jitter = 0
	}
	return r
}

// Exhausted reports whether a task that has now failed attempt times gets
// no further retry.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay is the base delay before retry number attempt (1-based):
// InitialDelay grown by BackoffFactor per attempt, capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	growth := math.Pow(r.BackoffFactor, float64(attempt-1))
	if math.IsInf(growth, 0) || float64(r.InitialDelay)*growth >= float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(float64(r.InitialDelay) * growth)
}

// Jittered spreads NextDelay uniformly over ±Jitter of its value. random
// returns values in [0, 1); nil uses math/rand.
func (r RetryPolicy) Jittered(attempt int, random func() float64) time.Duration {
	base := r.NextDelay(attempt)
	jitter := r.withDefaults().Jitter
	if jitter == 0 {
		return base
	}
	if random == nil {
		random = rand.Float64
	}

	spread := float64(base) * jitter
	d := time.Duration(math.Round(float64(base) - spread + 2*spread*random()))
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}
