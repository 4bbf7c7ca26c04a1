// Package sqlite persists trained model snapshots in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/techcompare/specmatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_snapshots (
	epoch_id   TEXT PRIMARY KEY,
	version    TEXT NOT NULL,
	best_model TEXT NOT NULL,
	trained_at TEXT NOT NULL,
	payload    BLOB NOT NULL,
	saved_at   TEXT NOT NULL
);
`

// defaultRetain is how many snapshots are kept after each save
const defaultRetain = 5

// ModelStore implements domain.ModelStore on SQLite
type ModelStore struct {
	db     *sql.DB
	retain int
	logger zerolog.Logger
}

// NewModelStore opens (creating if needed) the database at path
func NewModelStore(path string, retain int, logger zerolog.Logger) (*ModelStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	if retain <= 0 {
		retain = defaultRetain
	}
	return &ModelStore{
		db:     db,
		retain: retain,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Save stores a snapshot and prunes all but the newest retained ones
func (s *ModelStore) Save(ctx context.Context, snap *domain.ModelSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO model_snapshots (epoch_id, version, best_model, trained_at, payload, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.EpochID, snap.Version, snap.BestModel, snap.TrainedAt.UTC().Format(time.RFC3339Nano), snap.Payload, now,
	); err != nil {
		return fmt.Errorf("sqlite: save snapshot: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM model_snapshots WHERE epoch_id NOT IN (
			SELECT epoch_id FROM model_snapshots ORDER BY rowid DESC LIMIT ?
		)`, s.retain)
	if err != nil {
		return fmt.Errorf("sqlite: prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	pruned, _ := res.RowsAffected()
	s.logger.Info().
		Str("epoch", snap.EpochID).
		Int("bytes", len(snap.Payload)).
		Int64("pruned", pruned).
		Msg("model snapshot saved")
	return nil
}

// Load returns the most recently saved snapshot
func (s *ModelStore) Load(ctx context.Context) (*domain.ModelSnapshot, error) {
	var snap domain.ModelSnapshot
	var trainedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT epoch_id, version, best_model, trained_at, payload
		 FROM model_snapshots ORDER BY rowid DESC LIMIT 1`,
	).Scan(&snap.EpochID, &snap.Version, &snap.BestModel, &trainedAt, &snap.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load snapshot: %w", err)
	}

	snap.TrainedAt, err = time.Parse(time.RFC3339Nano, trainedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse trained_at: %w", err)
	}
	return &snap, nil
}

// Count returns the number of stored snapshots
func (s *ModelStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count snapshots: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *ModelStore) Close() error {
	return s.db.Close()
}
