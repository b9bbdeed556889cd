package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hcert/internal/uvci"
	"hcert/pkg/platform/sentinel"
)

// Schema creates the ledger table. The primary key on uvci is what makes
// InsertIfAbsent atomic.
const Schema = `
CREATE TABLE IF NOT EXISTS uvci_ledger (
	uvci        TEXT PRIMARY KEY,
	id          UUID NOT NULL,
	issuer      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	user_hash   TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ
)`

const (
	insertLedgerRow = `INSERT INTO uvci_ledger (uvci, id, issuer, scenario, user_hash, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (uvci) DO NOTHING`

	selectLedgerRow = `SELECT uvci, id, issuer, scenario, user_hash, created_at, expires_at
FROM uvci_ledger WHERE uvci = $1`
)

// PostgresStore persists ledger rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate uvci ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, record *uvci.Record) error {
	if record == nil {
		return fmt.Errorf("ledger record is required")
	}
	res, err := s.db.ExecContext(ctx, insertLedgerRow,
		record.UVCI,
		record.ID,
		record.Issuer,
		record.Scenario,
		record.UserHash,
		record.CreatedAt,
		nullTime(record.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert uvci ledger row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert uvci ledger row: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insert uvci ledger row: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) FindByUVCI(ctx context.Context, value string) (*uvci.Record, error) {
	var (
		record    uvci.Record
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, selectLedgerRow, value).Scan(
		&record.UVCI,
		&record.ID,
		&record.Issuer,
		&record.Scenario,
		&record.UserHash,
		&record.CreatedAt,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find uvci ledger row: %w", err)
	}
	if expiresAt.Valid {
		record.ExpiresAt = expiresAt.Time
	}
	return &record, nil
}
