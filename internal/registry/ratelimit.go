package registry

import (
	"context"
	"time"
)

// Limiter spaces successive calls to the aggregator. The spacing is a hard
// sequencing rule of the provider, not a performance knob: violating it risks
// the provider rejecting the whole batch.
type Limiter interface {
	Wait(ctx context.Context) error
}

// IntervalLimiter enforces a fixed minimum interval between calls. Each
// pipeline run gets its own instance; waits suspend only that run.
type IntervalLimiter struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewIntervalLimiter creates a limiter with the given minimum spacing.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the spacing from the previous call has elapsed. The
// first call never waits.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if !l.last.IsZero() {
		if wait := l.interval - l.now().Sub(l.last); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}

// NopLimiter never waits. Used by tests to run fan-outs at full speed.
type NopLimiter struct{}

// Wait returns immediately.
func (NopLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
