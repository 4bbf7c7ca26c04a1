package domain

import (
	"context"
	"time"
)

// ProductRepository defines read access to the product catalog
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]ProductRecord, error)
}

// PredictionSink persists prediction summaries for a user.
// Callers log failures; they never fail the prediction itself.
type PredictionSink interface {
	SavePrediction(ctx context.Context, userID string, summary PredictionSummary) (string, error)
	ListUserPredictions(ctx context.Context, userID string, limit int) ([]StoredPrediction, error)
}

// ModelStore persists and reloads trained model epochs.
// Load returns ErrSnapshotNotFound when nothing has been saved yet.
type ModelStore interface {
	Save(ctx context.Context, snapshot *ModelSnapshot) error
	Load(ctx context.Context) (*ModelSnapshot, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
