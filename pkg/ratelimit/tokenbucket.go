package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer wraps golang.org/x/time/rate for purely in-process pacing that
// doesn't warrant a Redis round-trip. No component in this module constructs
// one: the LLM scorer and PDF enhancer bound their fan-out with Semaphore
// below, and collectors are paced by the Redis-backed SlidingWindowLimiter
// in limiter.go.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a token bucket allowing ratePerSecond steady-state with
// the given burst.
func NewPacer(ratePerSecond float64, burst int) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Semaphore is a simple counting semaphore for bounded fan-out, used by the
// LLM scorer (capacity N, default 50) and the PDF enhancer (capacity 3).
type Semaphore struct {
	slots chan struct{}
}

func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() { <-s.slots }

// Sleep is a context-aware sleep for inter-batch/inter-push throttling
// (spreadsheet 0.6s, notifier 0.5s).
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
