package refdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcert/pkg/platform/circuit"
)

type switchableProvider struct {
	countingProvider
	down bool
}

func (s *switchableProvider) Lookup(ctx context.Context, set ValueSet, code string) (string, error) {
	if s.down {
		s.calls.Add(1)
		return "", errors.New("redis: connection refused")
	}
	return s.countingProvider.Lookup(ctx, set, code)
}

func TestResilient(t *testing.T) {
	ctx := context.Background()
	fallback := NewStatic(Tables{TestType: {"a": "local-a"}})
	quiet := WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("primary healthy", func(t *testing.T) {
		primary := &switchableProvider{}
		r := NewResilient(primary, fallback, circuit.New("refdata"), quiet)

		got, err := r.Lookup(ctx, TestType, "a")
		require.NoError(t, err)
		assert.Equal(t, "mapped-a", got)
	})

	t.Run("primary failure falls back immediately", func(t *testing.T) {
		primary := &switchableProvider{down: true}
		r := NewResilient(primary, fallback, circuit.New("refdata"), quiet)

		got, err := r.Lookup(ctx, TestType, "a")
		require.NoError(t, err)
		assert.Equal(t, "local-a", got)
	})

	t.Run("open breaker skips primary until the probe is due", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 0)
		primary := &switchableProvider{down: true}
		breaker := circuit.New("refdata", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
		r := NewResilient(primary, fallback, breaker, quiet,
			WithProbeInterval(time.Minute),
			withClock(func() time.Time { return now }),
		)

		for range 2 {
			_, _ = r.Lookup(ctx, TestType, "a")
		}
		require.True(t, breaker.IsOpen())
		calls := primary.calls.Load()

		// First lookup while open claims the initial probe slot.
		_, _ = r.Lookup(ctx, TestType, "a")
		calls++
		for range 5 {
			got, err := r.Lookup(ctx, TestType, "a")
			require.NoError(t, err)
			assert.Equal(t, "local-a", got)
		}
		assert.Equal(t, calls, primary.calls.Load(), "primary not called between probes")

		primary.down = false
		now = now.Add(2 * time.Minute)
		got, err := r.Lookup(ctx, TestType, "a")
		require.NoError(t, err)
		assert.Equal(t, "mapped-a", got)
		assert.False(t, breaker.IsOpen())
	})

	t.Run("unmapped from primary is authoritative", func(t *testing.T) {
		primary := &countingProvider{err: ErrUnmapped}
		r := NewResilient(primary, fallback, circuit.New("refdata"), quiet)

		_, err := r.Lookup(ctx, TestType, "a")
		assert.ErrorIs(t, err, ErrUnmapped)
	})
}
