package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

// Store provides Postgres persistence for blacklist entries. Metrics and
// evidence are stored as JSONB so the document schema and the table stay
// in lockstep.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Get returns the entry for a wallet address, if present.
func (s *Store) Get(ctx context.Context, address string) (model.BlacklistEntry, bool, error) {
	canonical, err := normalize.Address(address)
	if err != nil {
		return model.BlacklistEntry{}, false, fmt.Errorf("blacklist get: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT wallet_address, display_name, reasons, metrics, evidence, added_timestamp, last_updated
		FROM blacklist_entries WHERE wallet_address = $1
	`, canonical)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BlacklistEntry{}, false, nil
		}
		return model.BlacklistEntry{}, false, err
	}
	return entry, true, nil
}

// Upsert inserts or fully replaces the entry for its wallet address.
func (s *Store) Upsert(ctx context.Context, entry model.BlacklistEntry) error {
	return s.UpsertBatch(ctx, []model.BlacklistEntry{entry})
}

// UpsertBatch inserts or replaces a batch of entries in one round trip.
func (s *Store) UpsertBatch(ctx context.Context, entries []model.BlacklistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, entry := range entries {
		canonical, err := normalize.Address(entry.WalletAddress)
		if err != nil {
			return fmt.Errorf("blacklist upsert: %w", err)
		}
		metrics, err := json.Marshal(entry.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		evidence, err := json.Marshal(entry.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		batch.Queue(`
			INSERT INTO blacklist_entries (
				wallet_address, display_name, reasons, metrics, evidence, added_timestamp, last_updated, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (wallet_address)
			DO UPDATE SET
				display_name = EXCLUDED.display_name,
				reasons = EXCLUDED.reasons,
				metrics = EXCLUDED.metrics,
				evidence = EXCLUDED.evidence,
				added_timestamp = EXCLUDED.added_timestamp,
				last_updated = EXCLUDED.last_updated,
				updated_at = now()
		`,
			canonical,
			entry.DisplayName,
			entry.Reasons,
			metrics,
			evidence,
			entry.AddedTimestamp,
			entry.LastUpdated,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// List returns every entry ordered by wallet address.
func (s *Store) List(ctx context.Context) ([]model.BlacklistEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, display_name, reasons, metrics, evidence, added_timestamp, last_updated
		FROM blacklist_entries ORDER BY wallet_address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.BlacklistEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (model.BlacklistEntry, error) {
	var entry model.BlacklistEntry
	var metrics, evidence []byte
	if err := row.Scan(
		&entry.WalletAddress,
		&entry.DisplayName,
		&entry.Reasons,
		&metrics,
		&evidence,
		&entry.AddedTimestamp,
		&entry.LastUpdated,
	); err != nil {
		return model.BlacklistEntry{}, err
	}
	if err := json.Unmarshal(metrics, &entry.Metrics); err != nil {
		return model.BlacklistEntry{}, fmt.Errorf("parse metrics: %w", err)
	}
	if err := json.Unmarshal(evidence, &entry.Evidence); err != nil {
		return model.BlacklistEntry{}, fmt.Errorf("parse evidence: %w", err)
	}
	return entry, nil
}
