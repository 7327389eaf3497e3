package game

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter caps the tick rate and measures how long each tick actually took.
type Limiter struct {
	clk    clock.Clock
	period time.Duration
	last   time.Time
}

// NewLimiter returns a Limiter allowing at most hz ticks per second.
func NewLimiter(clk clock.Clock, hz float64) *Limiter {
	return &Limiter{clk: clk, period: time.Duration(float64(time.Second) / hz)}
}

// Period returns the shortest tick.
func (l *Limiter) Period() time.Duration {
	return l.period
}

// Wait blocks until a period has passed since the previous call returned and reports the time
// elapsed since then. The first call returns immediately with one period.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := l.clk.Now()
	if l.last.IsZero() {
		l.last = now
		return l.period, nil
	}
	if remaining := l.last.Add(l.period).Sub(now); remaining > 0 {
		timer := l.clk.Timer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
		now = l.clk.Now()
	}
	dt := now.Sub(l.last)
	l.last = now
	return dt, nil
}
