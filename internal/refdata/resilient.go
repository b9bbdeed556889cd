package refdata

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"hcert/pkg/platform/circuit"
)

// Resilient serves lookups from primary and falls back to a local provider
// when primary fails. While the breaker is open primary is probed at most
// once per probe interval.
type Resilient struct {
	primary  Provider
	fallback Provider
	breaker  *circuit.Breaker
	probe    time.Duration
	logger   *slog.Logger
	now      func() time.Time

	lastProbe atomic.Int64
}

type ResilientOption func(*Resilient)

func WithProbeInterval(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		r.probe = d
	}
}

func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) {
		r.logger = logger
	}
}

func withClock(now func() time.Time) ResilientOption {
	return func(r *Resilient) {
		r.now = now
	}
}

func NewResilient(primary, fallback Provider, breaker *circuit.Breaker, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		probe:    10 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Lookup(ctx context.Context, set ValueSet, code string) (string, error) {
	if r.breaker.IsOpen() && !r.probeDue() {
		return r.fallback.Lookup(ctx, set, code)
	}

	mapped, err := r.primary.Lookup(ctx, set, code)
	if err == nil || errors.Is(err, ErrUnmapped) {
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "reference data primary recovered", "breaker", r.breaker.Name())
		}
		if err != nil && r.breaker.IsOpen() {
			return r.fallback.Lookup(ctx, set, code)
		}
		return mapped, err
	}

	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "reference data primary unavailable, using fallback",
			"breaker", r.breaker.Name(),
			"error", err,
		)
	}
	return r.fallback.Lookup(ctx, set, code)
}

// probeDue claims the probe slot if the interval has elapsed.
func (r *Resilient) probeDue() bool {
	now := r.now().UnixNano()
	last := r.lastProbe.Load()
	if now-last < r.probe.Nanoseconds() {
		return false
	}
	return r.lastProbe.CompareAndSwap(last, now)
}
