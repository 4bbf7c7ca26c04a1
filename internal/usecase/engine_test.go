package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcompare/specmatch/internal/domain"
)

// newTestEngine wires an engine over an in-memory catalog with a reduced roster
func newTestEngine(repo domain.ProductRepository, sink domain.PredictionSink, store domain.ModelStore) *Engine {
	selector := NewModelSelector(fastSelectorConfig(), testLogger()).
		WithRoster(DefaultRoster(5, 42)[:2])
	catalog := NewCatalogService(repo, NewMockCacheRepository(), CatalogServiceConfig{}, testLogger())
	return NewEngine(selector, catalog, sink, store, EngineConfig{DefaultTopK: 10, MaxTopK: 20}, testLogger())
}

func validRequest() *domain.PredictionRequest {
	return &domain.PredictionRequest{
		Brand:       " Samsung",
		DisplaySize: "6.2 inches",
		Processor:   "Snapdragon 8 Gen 3",
		RAM:         "8GB",
		Storage:     "256GB",
		Camera:      "50MP",
		Battery:     "4000mAh",
		Rating:      4.5,
		Reviews:     120,
	}
}

func TestConfidenceScore(t *testing.T) {
	testCases := []struct {
		price float64
		want  float64
	}{
		{800, 90},
		{1000, 86},
		{550, 85},
		{0, 74},
		{2000, 70},
		{100000, 70},
	}
	for _, tc := range testCases {
		if got := ConfidenceScore(tc.price); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ConfidenceScore(%v) = %v, want %v", tc.price, got, tc.want)
		}
	}
}

func TestEngineBeforeTraining(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), &MockPredictionSink{}, nil)

	t.Run("no epoch yet", func(t *testing.T) {
		assert.Nil(t, e.Current())
		_, err := e.Predict(domain.ProductFeatures{})
		assert.ErrorIs(t, err, domain.ErrNotReady)
	})

	t.Run("predict price is not ready", func(t *testing.T) {
		_, err := e.PredictPrice(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrNotReady)
	})

	t.Run("search is not ready", func(t *testing.T) {
		_, err := e.Search(ctx, &domain.SearchRequest{Specification: "8GB RAM"})
		assert.ErrorIs(t, err, domain.ErrNotReady)
	})

	t.Run("validation runs before readiness", func(t *testing.T) {
		req := validRequest()
		req.RAM = "  "
		_, err := e.PredictPrice(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)

		_, err = e.Search(ctx, &domain.SearchRequest{Specification: ""})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("rank needs no model", func(t *testing.T) {
		got := e.Rank("8GB RAM", sampleCatalog(10), 3)
		assert.Len(t, got, 3)
	})

	t.Run("status reports catalog size", func(t *testing.T) {
		status := e.Status(ctx)
		assert.False(t, status.ModelLoaded)
		assert.Nil(t, status.ModelInfo)
		assert.Equal(t, 40, status.DatabaseProducts)
		assert.Len(t, status.SupportedBrands, 15)
	})
}

func TestEngineTrainAndPredict(t *testing.T) {
	ctx := context.Background()
	sink := &MockPredictionSink{}
	store := &MockModelStore{}
	e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), sink, store)

	set, err := e.Train(ctx)
	require.NoError(t, err)

	t.Run("publishes and persists the epoch", func(t *testing.T) {
		assert.Same(t, set, e.Current())
		assert.Equal(t, 1, store.saves)
		require.NotNil(t, store.snap)
		assert.Equal(t, set.EpochID, store.snap.EpochID)
		assert.Equal(t, set.BestModel, store.snap.BestModel)
	})

	t.Run("predicted price is floored, rounded and scored", func(t *testing.T) {
		res, err := e.PredictPrice(ctx, validRequest())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.PredictedPrice, 100.0)
		assert.InDelta(t, math.Round(res.PredictedPrice*100)/100, res.PredictedPrice, 1e-9)
		assert.GreaterOrEqual(t, res.ConfidenceScore, 70.0)
		assert.LessOrEqual(t, res.ConfidenceScore, 95.0)
		assert.Equal(t, set.BestModel, res.Model)
		assert.Equal(t, set.EpochID, res.EpochID)
		assert.Empty(t, res.PredictionID)
		assert.Empty(t, sink.saved)
	})

	t.Run("a user prediction is recorded", func(t *testing.T) {
		req := validRequest()
		req.UserID = "u1"
		res, err := e.PredictPrice(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "pred-1", res.PredictionID)
		require.Len(t, sink.saved, 1)
		assert.Equal(t, "samsung", sink.saved[0].Summary.Brand)
		assert.Equal(t, res.PredictedPrice, sink.saved[0].Summary.PredictedPrice)
	})

	t.Run("sink failure does not fail the prediction", func(t *testing.T) {
		sink.saveErr = errors.New("connection refused")
		defer func() { sink.saveErr = nil }()

		req := validRequest()
		req.UserID = "u1"
		res, err := e.PredictPrice(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, res.PredictionID)
	})

	t.Run("same request predicts the same price", func(t *testing.T) {
		a, err := e.PredictPrice(ctx, validRequest())
		require.NoError(t, err)
		b, err := e.PredictPrice(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, a.PredictedPrice, b.PredictedPrice)
	})

	t.Run("search ranks the catalog", func(t *testing.T) {
		res, err := e.Search(ctx, &domain.SearchRequest{Specification: "  8GB RAM ", UserID: "u2"})
		require.NoError(t, err)
		assert.Equal(t, "8GB RAM", res.Query)
		assert.Len(t, res.Results, 10)
		assert.Equal(t, 10, res.TotalMatches)

		history, err := e.UserPredictions(ctx, "u2", 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, res.Results[0].Product.Price, history[0].Summary.PredictedPrice)
	})

	t.Run("search top k is clamped", func(t *testing.T) {
		res, err := e.Search(ctx, &domain.SearchRequest{Specification: "8GB RAM", TopK: 500})
		require.NoError(t, err)
		assert.Len(t, res.Results, 20)
	})

	t.Run("status reports the epoch", func(t *testing.T) {
		status := e.Status(ctx)
		assert.True(t, status.ModelLoaded)
		require.NotNil(t, status.ModelInfo)
		assert.Equal(t, set.BestModel, status.ModelInfo.BestModel)
		assert.False(t, status.Training)
	})

	t.Run("retraining keeps brand codes", func(t *testing.T) {
		next, err := e.TrainModels(ctx, sampleCatalog(40))
		require.NoError(t, err)
		assert.NotEqual(t, set.EpochID, next.EpochID)
		assert.Equal(t, set.Features.Encoder.Classes(), next.Features.Encoder.Classes())
		assert.Equal(t, 2, store.saves)
	})
}

func TestEngineTrainingInProgress(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), nil, nil)

	e.trainMu.Lock()
	_, err := e.TrainModels(ctx, sampleCatalog(40))
	assert.ErrorIs(t, err, domain.ErrTrainingInProgress)
	assert.True(t, e.Status(ctx).Training)
	e.trainMu.Unlock()

	_, err = e.TrainModels(ctx, sampleCatalog(40))
	assert.NoError(t, err)
}

func TestEngineTrainFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("repository error is wrapped", func(t *testing.T) {
		repo := NewMockProductRepository(nil)
		repo.err = errors.New("dial tcp: refused")
		_, err := newTestEngine(repo, nil, nil).Train(ctx)
		assert.ErrorIs(t, err, domain.ErrRepositoryUnavailable)
	})

	t.Run("failed training keeps the previous epoch", func(t *testing.T) {
		e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), nil, nil)
		set, err := e.Train(ctx)
		require.NoError(t, err)

		_, err = e.TrainModels(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
		assert.Same(t, set, e.Current())
	})
}

func TestEngineLoadOrTrain(t *testing.T) {
	ctx := context.Background()
	store := &MockModelStore{}
	trained := newTestEngine(NewMockProductRepository(sampleCatalog(40)), nil, store)
	set, err := trained.Train(ctx)
	require.NoError(t, err)

	t.Run("restores a saved epoch without touching the catalog", func(t *testing.T) {
		repo := NewMockProductRepository(sampleCatalog(40))
		e := newTestEngine(repo, nil, store)
		require.NoError(t, e.LoadOrTrain(ctx))
		require.NotNil(t, e.Current())
		assert.Equal(t, set.EpochID, e.Current().EpochID)
		assert.Equal(t, set.BestModel, e.Current().BestModel)
		assert.Equal(t, 0, repo.calls)

		want, err := trained.PredictPrice(ctx, validRequest())
		require.NoError(t, err)
		got, err := e.PredictPrice(ctx, validRequest())
		require.NoError(t, err)
		assert.InDelta(t, want.PredictedPrice, got.PredictedPrice, 0.01)
	})

	t.Run("trains when nothing is saved", func(t *testing.T) {
		repo := NewMockProductRepository(sampleCatalog(40))
		empty := &MockModelStore{}
		e := newTestEngine(repo, nil, empty)
		require.NoError(t, e.LoadOrTrain(ctx))
		assert.NotNil(t, e.Current())
		assert.Equal(t, 1, repo.calls)
		assert.Equal(t, 1, empty.saves)
	})

	t.Run("trains when the snapshot is unreadable", func(t *testing.T) {
		bad := &MockModelStore{snap: &domain.ModelSnapshot{Payload: []byte("{not json")}}
		e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), nil, bad)
		require.NoError(t, e.LoadOrTrain(ctx))
		assert.NotNil(t, e.Current())
	})

	t.Run("trains when the store fails", func(t *testing.T) {
		failing := &MockModelStore{loadErr: errors.New("disk I/O error")}
		e := newTestEngine(NewMockProductRepository(sampleCatalog(40)), nil, failing)
		require.NoError(t, e.LoadOrTrain(ctx))
		assert.NotNil(t, e.Current())
	})
}

func TestEngineUserPredictions(t *testing.T) {
	ctx := context.Background()

	t.Run("user id is required", func(t *testing.T) {
		e := newTestEngine(NewMockProductRepository(nil), &MockPredictionSink{}, nil)
		_, err := e.UserPredictions(ctx, " ", 5)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("no sink yields an empty history", func(t *testing.T) {
		e := newTestEngine(NewMockProductRepository(nil), nil, nil)
		got, err := e.UserPredictions(ctx, "u1", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("newest first and limited", func(t *testing.T) {
		sink := &MockPredictionSink{}
		for i := 0; i < 15; i++ {
			_, err := sink.SavePrediction(ctx, "u1", domain.PredictionSummary{PredictedPrice: float64(i)})
			require.NoError(t, err)
		}
		e := newTestEngine(NewMockProductRepository(nil), sink, nil)

		got, err := e.UserPredictions(ctx, "u1", 0)
		require.NoError(t, err)
		require.Len(t, got, 10)
		assert.Equal(t, 14.0, got[0].Summary.PredictedPrice)

		got, err = e.UserPredictions(ctx, "u1", 3)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}
