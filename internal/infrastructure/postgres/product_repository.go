// Package postgres provides the PostgreSQL product repository and prediction sink.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/techcompare/specmatch/internal/domain"
)

// Config holds connection pool and circuit breaker settings
type Config struct {
	DSN            string
	MaxOpenConns   int
	MaxFailures    uint32        // consecutive failures that open the circuit
	BreakerTimeout time.Duration // how long the circuit stays open
}

// ProductRepository reads the catalog and stores predictions in PostgreSQL.
// Every call goes through a circuit breaker so an unreachable database fails fast.
type ProductRepository struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// Open connects to PostgreSQL, verifies the connection and applies the schema
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*ProductRepository, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	return NewProductRepository(db, cfg, logger), nil
}

// NewProductRepository wraps an open database handle
func NewProductRepository(db *sql.DB, cfg Config, logger zerolog.Logger) *ProductRepository {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := logger.With().Str("component", "postgres").Logger()

	settings := gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the database
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &ProductRepository{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

// ListProducts returns every product with its specs and features, newest first
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	out, err := r.execute("list products", func() (interface{}, error) {
		rows, err := r.db.QueryContext(ctx, listProductsQuery)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		products := make([]domain.ProductRecord, 0)
		for rows.Next() {
			var p domain.ProductRecord
			var features pq.StringArray
			if err := rows.Scan(
				&p.ID, &p.Name, &p.Brand,
				&p.DisplaySize, &p.RAM, &p.Storage, &p.Camera, &p.Battery, &p.Processor,
				&p.OperatingSystem, &p.ImageURL,
				&p.Price, &p.Rating, &p.Reviews, &p.Description,
				&features,
			); err != nil {
				return nil, err
			}
			p.Features = []string(features)
			products = append(products, p)
		}
		return products, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.ProductRecord), nil
}

// SavePrediction stores a prediction summary and returns its ID
func (r *ProductRepository) SavePrediction(ctx context.Context, userID string, s domain.PredictionSummary) (string, error) {
	id := uuid.NewString()
	_, err := r.execute("save prediction", func() (interface{}, error) {
		return r.db.ExecContext(ctx, savePredictionQuery,
			id, userID, s.Brand, s.DisplaySize, s.Processor, s.RAM, s.Storage, s.Camera, s.Battery,
			s.PredictedPrice, s.ConfidenceScore, s.ModelVersion,
		)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListUserPredictions returns a user's most recent predictions, newest first
func (r *ProductRepository) ListUserPredictions(ctx context.Context, userID string, limit int) ([]domain.StoredPrediction, error) {
	out, err := r.execute("list predictions", func() (interface{}, error) {
		rows, err := r.db.QueryContext(ctx, listUserPredictionsQuery, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		preds := make([]domain.StoredPrediction, 0)
		for rows.Next() {
			var p domain.StoredPrediction
			s := &p.Summary
			if err := rows.Scan(
				&p.ID, &p.UserID,
				&s.Brand, &s.DisplaySize, &s.Processor, &s.RAM, &s.Storage, &s.Camera, &s.Battery,
				&s.PredictedPrice, &s.ConfidenceScore, &s.ModelVersion, &p.CreatedAt,
			); err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return preds, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.StoredPrediction), nil
}

// Ping checks database connectivity
func (r *ProductRepository) Ping(ctx context.Context) error {
	_, err := r.execute("ping", func() (interface{}, error) {
		return nil, r.db.PingContext(ctx)
	})
	return err
}

// Close closes the database handle
func (r *ProductRepository) Close() error {
	return r.db.Close()
}

// execute runs fn through the circuit breaker. Every failure is reported as
// ErrRepositoryUnavailable so callers can tell it apart from bad requests.
func (r *ProductRepository) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	out, err := r.breaker.Execute(fn)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: postgres: %s: circuit open", domain.ErrRepositoryUnavailable, op)
	default:
		r.logger.Error().Err(err).Str("op", op).Msg("query failed")
		return nil, fmt.Errorf("%w: postgres: %s: %v", domain.ErrRepositoryUnavailable, op, err)
	}
}
