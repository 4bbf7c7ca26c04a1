package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/observability"
)

const (
	minPredictedPrice    = 100
	confidenceCeiling    = 95
	confidenceFloor      = 70
	confidenceBase       = 90
	confidenceAnchor     = 800
	confidenceFalloff    = 50
	defaultHistoryLimit  = 10
	defaultSearchResults = 10
)

// ConfidenceScore rates a predicted price: highest near $800, never outside [70, 95]
func ConfidenceScore(price float64) float64 {
	c := confidenceBase - math.Abs(price-confidenceAnchor)/confidenceFalloff
	return math.Min(confidenceCeiling, math.Max(confidenceFloor, c))
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	DefaultTopK int
	MaxTopK     int
}

// Engine owns the active model epoch and exposes parsing, training, prediction
// and matching to the service layer. Readers never block on training: a finished
// epoch is published with a single atomic store.
type Engine struct {
	parser   *SpecParser
	engineer *FeatureEngineer
	ranker   *SimilarityRanker
	selector *ModelSelector
	catalog  *CatalogService
	sink     domain.PredictionSink
	store    domain.ModelStore

	epoch   atomic.Pointer[TrainedModelSet]
	trainMu sync.Mutex

	defaultTopK int
	maxTopK     int
	logger      zerolog.Logger
}

// NewEngine creates an engine. sink and store may be nil.
func NewEngine(
	selector *ModelSelector,
	catalog *CatalogService,
	sink domain.PredictionSink,
	store domain.ModelStore,
	config EngineConfig,
	logger zerolog.Logger,
) *Engine {
	defaultTopK := config.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = defaultSearchResults
	}
	maxTopK := config.MaxTopK
	if maxTopK < defaultTopK {
		maxTopK = defaultTopK
	}

	return &Engine{
		parser:      NewSpecParser(),
		engineer:    NewFeatureEngineer(),
		ranker:      NewSimilarityRanker(),
		selector:    selector,
		catalog:     catalog,
		sink:        sink,
		store:       store,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger.With().Str("component", "engine").Logger(),
	}
}

// Current returns the active epoch, or nil before the first training completes
func (e *Engine) Current() *TrainedModelSet {
	return e.epoch.Load()
}

// ParseSpecification parses free text into a structured specification
func (e *Engine) ParseSpecification(text string) domain.ParsedSpecification {
	return e.parser.Parse(text)
}

// TrainModels trains a new epoch on products and publishes it. Only one training run
// may be in flight; a concurrent call fails with ErrTrainingInProgress.
func (e *Engine) TrainModels(ctx context.Context, products []domain.ProductRecord) (*TrainedModelSet, error) {
	if !e.trainMu.TryLock() {
		return nil, domain.ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	started := time.Now()
	var prev *CategoryEncoder
	if cur := e.epoch.Load(); cur != nil {
		prev = cur.Features.Encoder
	}

	set, err := e.selector.TrainAll(ctx, products, prev)
	if err != nil {
		observability.RecordTraining("failure", time.Since(started))
		e.logger.Error().Err(err).Int("products", len(products)).Msg("training failed")
		return nil, err
	}

	e.epoch.Store(set)
	observability.RecordTraining("success", time.Since(started))
	scores := make(map[string]float64, len(set.Metrics))
	for name, m := range set.Metrics {
		scores[name] = m.CompositeScore
	}
	observability.RecordCompositeScores(scores)

	if e.store != nil {
		if err := e.persist(ctx, set); err != nil {
			e.logger.Warn().Err(err).Str("epoch", set.EpochID).Msg("failed to save model snapshot")
		}
	}

	e.logger.Info().
		Str("epoch", set.EpochID).
		Str("best_model", set.BestModel).
		Dur("duration", time.Since(started)).
		Msg("model epoch published")
	return set, nil
}

// Train reads a fresh catalog from the repository and trains on it
func (e *Engine) Train(ctx context.Context) (*TrainedModelSet, error) {
	products, err := e.catalog.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return e.TrainModels(ctx, products)
}

// LoadOrTrain restores the latest saved epoch, training from scratch when none exists
// or it cannot be decoded
func (e *Engine) LoadOrTrain(ctx context.Context) error {
	if e.store != nil {
		snap, err := e.store.Load(ctx)
		switch {
		case err == nil:
			set, derr := DecodeSnapshot(snap)
			if derr == nil {
				e.epoch.Store(set)
				e.logger.Info().Str("epoch", set.EpochID).Str("best_model", set.BestModel).Msg("model snapshot loaded")
				return nil
			}
			e.logger.Warn().Err(derr).Msg("discarding unreadable model snapshot")
		case errors.Is(err, domain.ErrSnapshotNotFound):
			e.logger.Info().Msg("no model snapshot found, training new model")
		default:
			e.logger.Warn().Err(err).Msg("failed to load model snapshot")
		}
	}
	_, err := e.Train(ctx)
	return err
}

func (e *Engine) persist(ctx context.Context, set *TrainedModelSet) error {
	snap, err := EncodeSnapshot(set)
	if err != nil {
		return err
	}
	return e.store.Save(ctx, snap)
}

// Predict estimates the price of one product described by its numeric attributes
func (e *Engine) Predict(features domain.ProductFeatures) (float64, error) {
	set := e.epoch.Load()
	if set == nil {
		return 0, domain.ErrNotReady
	}
	return set.Predict(set.Features.Vector(features))
}

// PredictPrice validates a structured request, predicts its price and, when the request
// names a user, records the prediction through the sink
func (e *Engine) PredictPrice(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, error) {
	if req == nil || blank(req.Brand) || blank(req.DisplaySize) || blank(req.RAM) || blank(req.Storage) {
		observability.RecordPrediction("invalid")
		return nil, fmt.Errorf("%w: brand, display_size, ram and storage are required", domain.ErrInvalidRequest)
	}

	set := e.epoch.Load()
	if set == nil {
		observability.RecordPrediction("not_ready")
		return nil, domain.ErrNotReady
	}

	rec := domain.ProductRecord{
		Brand:       req.Brand,
		DisplaySize: req.DisplaySize,
		Processor:   req.Processor,
		RAM:         req.RAM,
		Storage:     req.Storage,
		Camera:      req.Camera,
		Battery:     req.Battery,
		Rating:      req.Rating,
		Reviews:     req.Reviews,
	}
	price, err := set.Predict(set.Features.Vector(e.engineer.Describe(rec)))
	if err != nil {
		observability.RecordPrediction("error")
		return nil, err
	}
	price = math.Max(minPredictedPrice, price)
	price = math.Round(price*100) / 100

	result := &domain.PredictionResult{
		PredictedPrice:  price,
		ConfidenceScore: math.Round(ConfidenceScore(price)*10) / 10,
		Model:           set.BestModel,
		ModelVersion:    domain.ModelVersion,
		EpochID:         set.EpochID,
	}
	observability.RecordPrediction("success")

	if req.UserID != "" {
		result.PredictionID = e.record(ctx, req.UserID, domain.PredictionSummary{
			Brand:           NormalizeBrand(req.Brand),
			DisplaySize:     req.DisplaySize,
			Processor:       req.Processor,
			RAM:             req.RAM,
			Storage:         req.Storage,
			Camera:          req.Camera,
			Battery:         req.Battery,
			PredictedPrice:  result.PredictedPrice,
			ConfidenceScore: result.ConfidenceScore,
			ModelVersion:    domain.ModelVersion,
		})
	}
	return result, nil
}

// Rank scores catalog against query; it needs no trained model
func (e *Engine) Rank(query string, catalog []domain.ProductRecord, topK int) []domain.MatchResult {
	return e.ranker.Rank(query, catalog, topK)
}

// Search parses a specification query and ranks the repository catalog against it
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	if req == nil || blank(req.Specification) {
		return nil, fmt.Errorf("%w: specification text is required", domain.ErrInvalidRequest)
	}
	if e.epoch.Load() == nil {
		return nil, domain.ErrNotReady
	}
	started := time.Now()
	defer func() { observability.RecordSearch(time.Since(started)) }()

	query := strings.TrimSpace(req.Specification)
	products, err := e.catalog.Products(ctx)
	if err != nil {
		return nil, err
	}

	spec := e.parser.Parse(query)
	matches := e.ranker.RankParsed(query, spec, products, e.clampTopK(req.TopK))

	if req.UserID != "" && len(matches) > 0 {
		e.record(ctx, req.UserID, domain.PredictionSummary{
			Brand:           spec.Brand,
			PredictedPrice:  matches[0].Product.Price,
			ConfidenceScore: matches[0].SimilarityScore,
			ModelVersion:    domain.ModelVersion,
		})
	}

	return &domain.SearchResult{
		Query:               query,
		ParsedSpecification: spec,
		TotalMatches:        len(matches),
		Results:             matches,
	}, nil
}

func (e *Engine) clampTopK(k int) int {
	if k <= 0 {
		return e.defaultTopK
	}
	if k > e.maxTopK {
		return e.maxTopK
	}
	return k
}

// record saves a summary through the sink; failures are logged and yield ""
func (e *Engine) record(ctx context.Context, userID string, summary domain.PredictionSummary) string {
	if e.sink == nil {
		return ""
	}
	id, err := e.sink.SavePrediction(ctx, userID, summary)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to save prediction")
		return ""
	}
	return id
}

// UserPredictions returns a user's most recent predictions, newest first
func (e *Engine) UserPredictions(ctx context.Context, userID string, limit int) ([]domain.StoredPrediction, error) {
	if blank(userID) {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if e.sink == nil {
		return []domain.StoredPrediction{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return e.sink.ListUserPredictions(ctx, userID, limit)
}

// Status reports the active epoch and catalog size
func (e *Engine) Status(ctx context.Context) *domain.ModelStatus {
	status := &domain.ModelStatus{SupportedBrands: SupportedBrands()}
	if set := e.epoch.Load(); set != nil {
		info := set.Info()
		status.ModelLoaded = true
		status.ModelInfo = &info
	}
	if e.trainMu.TryLock() {
		e.trainMu.Unlock()
	} else {
		status.Training = true
	}
	if products, err := e.catalog.Products(ctx); err == nil {
		status.DatabaseProducts = len(products)
	} else {
		e.logger.Warn().Err(err).Msg("failed to count catalog products")
	}
	return status
}

// Catalog exposes the catalog service backing the engine
func (e *Engine) Catalog() *CatalogService {
	return e.catalog
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
