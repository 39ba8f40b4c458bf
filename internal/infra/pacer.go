package infra

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for the pacer so tests can record call timestamps
// without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Pacer enforces a minimum wall-clock interval between consecutive calls.
// Calls arriving early are delayed, never rejected. Waiters are serialized.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
	clock    Clock
	last     time.Time
}

// NewPacer creates a pacer with the given minimum interval. A zero interval
// disables pacing.
func NewPacer(interval time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = RealClock
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
	}
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Wait blocks until the next call may start, then records it as the last call.
// It returns ctx.Err() if the context ends first; the slot is then released.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	// The limiter tracks tokens, the watermark tracks the actual last start.
	if !p.last.IsZero() {
		if gap := p.interval - now.Sub(p.last); gap > delay {
			delay = gap
		}
	}

	if delay > 0 {
		if err := p.clock.Sleep(ctx, delay); err != nil {
			r.CancelAt(now)
			return err
		}
	}
	p.last = p.clock.Now()
	return nil
}

// LastCall returns the start time of the most recent paced call.
func (p *Pacer) LastCall() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
