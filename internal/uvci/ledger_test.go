package uvci_test

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Store,CollisionRecorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hcert/internal/uvci"
	"hcert/internal/uvci/mocks"
	"hcert/internal/uvci/store"
	dErrors "hcert/pkg/domain-errors"
	"hcert/pkg/platform/sentinel"
	"hcert/pkg/testutil"
)

// =============================================================================
// Ledger Test Suite
// =============================================================================
// Justification for unit tests: collision retry, retry exhaustion and the
// non-retryable error path cannot be provoked deterministically against a
// real store.

type LedgerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *mocks.MockStore
	collisions *mocks.MockCollisionRecorder
	generator  *uvci.Generator
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.collisions = mocks.NewMockCollisionRecorder(s.ctrl)

	var err error
	s.generator, err = uvci.NewGenerator(uvci.DefaultPrefix, uvci.DefaultVersion)
	s.Require().NoError(err)
}

func (s *LedgerSuite) newLedger(opts ...uvci.LedgerOption) *uvci.Ledger {
	opts = append([]uvci.LedgerOption{
		uvci.WithBackoff(time.Microsecond, time.Millisecond),
		uvci.WithCollisionRecorder(s.collisions),
		uvci.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	ledger, err := uvci.NewLedger(s.generator, s.store, opts...)
	s.Require().NoError(err)
	return ledger
}

func (s *LedgerSuite) TestNewLedger() {
	s.Run("nil generator returns error", func() {
		_, err := uvci.NewLedger(nil, s.store)
		s.ErrorContains(err, "generator is required")
	})

	s.Run("nil store returns error", func() {
		_, err := uvci.NewLedger(s.generator, nil)
		s.ErrorContains(err, "store is required")
	})
}

func (s *LedgerSuite) TestAllocate() {
	ctx := context.Background()
	expires := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	alloc := uvci.Allocation{Issuer: "GB", Scenario: "vaccination", UserHash: "abc", ExpiresAt: expires}

	s.Run("first insert wins", func() {
		var inserted *uvci.Record
		s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *uvci.Record) error {
				inserted = r
				return nil
			})

		value, err := s.newLedger().Allocate(ctx, alloc)
		s.Require().NoError(err)
		s.True(uvci.ValidChecksum(value))
		s.Equal(value, inserted.UVCI)
		s.Equal("GB", inserted.Issuer)
		s.Equal("vaccination", inserted.Scenario)
		s.Equal("abc", inserted.UserHash)
		s.Equal(expires, inserted.ExpiresAt)
	})

	s.Run("collision once then success returns a fresh identifier", func() {
		var rejected string
		first := s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *uvci.Record) error {
				rejected = r.UVCI
				return fmt.Errorf("insert: %w", sentinel.ErrConflict)
			})
		s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).Return(nil).After(first)
		s.collisions.EXPECT().IncrementUVCICollisions().Times(1)

		value, err := s.newLedger().Allocate(ctx, alloc)
		s.Require().NoError(err)
		s.NotEqual(rejected, value)
	})

	s.Run("retries stop after max attempts", func() {
		s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(3)
		s.collisions.EXPECT().IncrementUVCICollisions().Times(3)

		_, err := s.newLedger(uvci.WithMaxAttempts(3)).Allocate(ctx, alloc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("store failure is not retried", func() {
		s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(1)

		_, err := s.newLedger().Allocate(ctx, alloc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorContains(err, "connection refused")
	})

	s.Run("cancelled context stops retrying", func() {
		cctx, cancel := context.WithCancel(ctx)
		s.store.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, *uvci.Record) error {
				cancel()
				return sentinel.ErrConflict
			}).MinTimes(1)
		s.collisions.EXPECT().IncrementUVCICollisions().MinTimes(1)

		_, err := s.newLedger().Allocate(cctx, alloc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorContains(err, "cancelled")
		s.NotContains(err.Error(), "exhausted")
		s.ErrorIs(err, context.Canceled)
	})
}

func (s *LedgerSuite) TestLookup() {
	ctx := context.Background()

	s.Run("missing identifier returns not found", func() {
		s.store.EXPECT().FindByUVCI(gomock.Any(), "URN:UVCI:01:GB:X#A").Return(nil, sentinel.ErrNotFound)

		_, err := s.newLedger().Lookup(ctx, "URN:UVCI:01:GB:X#A")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("existing identifier is returned", func() {
		s.store.EXPECT().FindByUVCI(gomock.Any(), "URN:UVCI:01:GB:X#A").Return(&uvci.Record{UVCI: "URN:UVCI:01:GB:X#A"}, nil)

		record, err := s.newLedger().Lookup(ctx, "URN:UVCI:01:GB:X#A")
		s.Require().NoError(err)
		s.Equal("URN:UVCI:01:GB:X#A", record.UVCI)
	})
}

// TestAllocateUniqueAgainstInMemoryStore allocates many identifiers against
// a real store and checks none repeat.
func TestAllocateUniqueAgainstInMemoryStore(t *testing.T) {
	testutil.Given(t, "a ledger backed by the in-memory store", func(t *testing.T) {
		generator, err := uvci.NewGenerator(uvci.DefaultPrefix, uvci.DefaultVersion)
		require.NoError(t, err)
		mem := store.NewInMemory()
		ledger, err := uvci.NewLedger(generator, mem)
		require.NoError(t, err)

		const n = 500
		seen := make(map[string]struct{}, n)

		testutil.When(t, "many identifiers are allocated in a row", func(t *testing.T) {
			for i := 0; i < n; i++ {
				value, err := ledger.Allocate(context.Background(), uvci.Allocation{Issuer: "GB", Scenario: "test"})
				require.NoError(t, err, "allocate %d", i)
				seen[value] = struct{}{}
			}
		})

		testutil.Then(t, "no identifier repeats", func(t *testing.T) {
			assert.Len(t, seen, n)
		})

		testutil.And(t, "every identifier has a ledger row", func(t *testing.T) {
			assert.Equal(t, n, mem.Count())
		})
	})
}
