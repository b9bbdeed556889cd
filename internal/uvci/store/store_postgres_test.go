package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcert/pkg/platform/sentinel"
)

func TestPostgresInsertIfAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgres(db)
	ctx := context.Background()
	record := newRecord("URN:UVCI:01:GB:1#A")
	record.ExpiresAt = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("inserted row", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO uvci_ledger")).
			WithArgs(record.UVCI, record.ID, record.Issuer, record.Scenario, record.UserHash, record.CreatedAt,
				sql.NullTime{Time: record.ExpiresAt, Valid: true}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.InsertIfAbsent(ctx, record))
	})

	t.Run("conflicting row", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (uvci) DO NOTHING")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.InsertIfAbsent(ctx, record)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("driver error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO uvci_ledger").
			WillReturnError(errors.New("connection reset"))

		err := s.InsertIfAbsent(ctx, record)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByUVCI(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgres(db)
	ctx := context.Background()
	record := newRecord("URN:UVCI:01:GB:2#B")

	t.Run("found without expiry", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"uvci", "id", "issuer", "scenario", "user_hash", "created_at", "expires_at"}).
			AddRow(record.UVCI, record.ID.String(), record.Issuer, record.Scenario, record.UserHash, record.CreatedAt, nil)
		mock.ExpectQuery("SELECT (.+) FROM uvci_ledger WHERE uvci = ").
			WithArgs(record.UVCI).
			WillReturnRows(rows)

		found, err := s.FindByUVCI(ctx, record.UVCI)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.Equal(t, record.Issuer, found.Issuer)
		assert.True(t, found.ExpiresAt.IsZero())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM uvci_ledger").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := s.FindByUVCI(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS uvci_ledger")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgres(db).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
