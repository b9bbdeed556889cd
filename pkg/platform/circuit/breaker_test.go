package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("refdata")
	assert.Equal(t, "refdata", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}

func TestBreakerOpening(t *testing.T) {
	b := New("refdata", WithFailureThreshold(3))

	for range 2 {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback)
		assert.False(t, change.Opened)
	}

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "stays on fallback while open")
	assert.False(t, change.Opened, "no second transition")
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := New("refdata", WithFailureThreshold(2))

	b.RecordFailure()
	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary)

	b.RecordFailure()
	assert.False(t, b.IsOpen(), "streak restarted after the success")
}

func TestBreakerClosing(t *testing.T) {
	b := New("refdata", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	b.RecordFailure()
	usePrimary, _ = b.RecordSuccess()
	assert.False(t, usePrimary, "failure while open restarts the success streak")

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreakerReset(t *testing.T) {
	b := New("refdata", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresInvalidThresholds(t *testing.T) {
	b := New("refdata", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "default threshold of five applies")
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}
