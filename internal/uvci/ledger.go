package uvci

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	dErrors "hcert/pkg/domain-errors"
	"hcert/pkg/platform/sentinel"
)

// Record is one append-only ledger row. UVCI is the unique key.
type Record struct {
	ID        uuid.UUID `json:"id"`
	UVCI      string    `json:"uvci"`
	Issuer    string    `json:"issuer"`
	Scenario  string    `json:"scenario"`
	UserHash  string    `json:"user_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists ledger rows. InsertIfAbsent must be atomic and return
// sentinel.ErrConflict (optionally wrapped) when the UVCI already exists.
type Store interface {
	InsertIfAbsent(ctx context.Context, record *Record) error
	FindByUVCI(ctx context.Context, value string) (*Record, error)
}

// CollisionRecorder observes identifier collisions.
type CollisionRecorder interface {
	IncrementUVCICollisions()
}

// Allocation describes the certificate the identifier is allocated for.
type Allocation struct {
	Issuer    string
	Scenario  string
	UserHash  string
	ExpiresAt time.Time
}

const (
	DefaultMaxAttempts     = 10
	defaultInitialInterval = 5 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

// Ledger allocates identifiers that are unique across every certificate
// kind by recording each one before use.
type Ledger struct {
	generator       *Generator
	store           Store
	logger          *slog.Logger
	collisions      CollisionRecorder
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithCollisionRecorder(r CollisionRecorder) LedgerOption {
	return func(l *Ledger) {
		l.collisions = r
	}
}

// WithMaxAttempts caps the number of insert attempts per allocation.
func WithMaxAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum wait between attempts.
func WithBackoff(initial, maxInterval time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.initialInterval = initial
		l.maxInterval = maxInterval
	}
}

// NewLedger constructs a Ledger.
func NewLedger(generator *Generator, store Store, opts ...LedgerOption) (*Ledger, error) {
	if generator == nil {
		return nil, errors.New("uvci generator is required")
	}
	if store == nil {
		return nil, errors.New("uvci store is required")
	}
	l := &Ledger{
		generator:       generator,
		store:           store,
		maxAttempts:     DefaultMaxAttempts,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allocate generates candidates until one is recorded, then returns it.
// Only a conflicting insert is retried; any other store error aborts.
func (l *Ledger) Allocate(ctx context.Context, a Allocation) (string, error) {
	var allocated string
	attempts := 0

	operation := func() error {
		attempts++
		candidate, err := l.generator.Generate(a.Issuer)
		if err != nil {
			return backoff.Permanent(dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate uvci"))
		}

		record := &Record{
			ID:        uuid.New(),
			UVCI:      candidate.Value,
			Issuer:    a.Issuer,
			Scenario:  a.Scenario,
			UserHash:  a.UserHash,
			CreatedAt: candidate.GeneratedAt,
			ExpiresAt: a.ExpiresAt,
		}
		err = l.store.InsertIfAbsent(ctx, record)
		switch {
		case err == nil:
			allocated = candidate.Value
			return nil
		case errors.Is(err, sentinel.ErrConflict):
			l.recordCollision(ctx, candidate.Value, attempts)
			return dErrors.Wrap(err, dErrors.CodeConflict, "uvci already allocated")
		default:
			return backoff.Permanent(dErrors.Wrap(err, dErrors.CodeInternal, "failed to record uvci"))
		}
	}

	if err := backoff.Retry(operation, l.policy(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", dErrors.Wrap(ctxErr, dErrors.CodeUnavailable, "uvci allocation cancelled")
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "uvci allocation exhausted retries")
		}
		return "", err
	}
	return allocated, nil
}

func (l *Ledger) policy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = l.initialInterval
	exp.MaxInterval = l.maxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(l.maxAttempts-1)), ctx)
}

func (l *Ledger) recordCollision(ctx context.Context, value string, attempt int) {
	if l.collisions != nil {
		l.collisions.IncrementUVCICollisions()
	}
	if l.logger != nil {
		l.logger.WarnContext(ctx, "uvci collision, regenerating",
			"uvci", value,
			"attempt", attempt,
		)
	}
}

// Lookup returns the ledger row for a previously allocated identifier.
func (l *Ledger) Lookup(ctx context.Context, value string) (*Record, error) {
	record, err := l.store.FindByUVCI(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "uvci not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load uvci")
	}
	return record, nil
}
