// Package resilience retries upstream calls that fail for transient reasons.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry attempts and exponential backoff.
type Policy struct {
	// Attempts is the total number of calls including the first. Default: 3.
	Attempts int
	// Backoff is the delay before the first retry. Default: 500ms.
	Backoff time.Duration
	// MaxBackoff caps the delay. Default: 10s.
	MaxBackoff time.Duration
	// Jitter randomises each delay by up to ±Jitter of its value. Default: 0.25.
	Jitter float64
	// Name labels retry log lines.
	Name string
}

// DefaultPolicy returns the policy used for weather API calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		Jitter:     0.25,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = d.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// delay returns the backoff before retry number attempt (0-based).
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-transient error, the attempts run out, or
// ctx is done. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var (
		out T
		err error
	)
	for attempt := 0; attempt < p.Attempts; attempt++ {
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !IsTransient(err) || attempt == p.Attempts-1 {
			return out, err
		}

		zap.L().Warn("retrying upstream call",
			zap.String("call", p.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, err
		case <-timer.C:
		}
	}
	return out, err
}
