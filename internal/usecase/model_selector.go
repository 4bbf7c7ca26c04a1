package usecase

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/ml"
)

// Composite score weights
const (
	compositeR2Weight   = 0.4
	compositeMAPEWeight = 0.3
	compositeCVWeight   = 0.3
)

// CompositeScore blends test R², inverted MAPE (percent) and mean cross-validated R²
func CompositeScore(r2, mape, cvMean float64) float64 {
	return compositeR2Weight*r2 + compositeMAPEWeight*(1-mape/100) + compositeCVWeight*cvMean
}

// Family is one candidate regression model together with its preprocessing
type Family struct {
	Name        string
	Scaler      ml.ScalerKind
	SelectKBest bool
	Fit         ml.Trainer
}

// ModelSelectorConfig holds configuration for model training and selection
type ModelSelectorConfig struct {
	MinTrainingSamples int     // augment the catalog up to this many rows
	MinValidSamples    int     // fail below this many priced rows
	TestSize           float64 // held-out fraction
	CVFolds            int
	SelectK            int
	Seed               uint64
	Estimators         int // trees per forest and stages per boosting model
	Parallelism        int // families fitted concurrently
}

// DefaultRoster returns the six model families in selection order.
// Ties on composite score go to the earlier family.
func DefaultRoster(estimators int, seed uint64) []Family {
	if estimators <= 0 {
		estimators = 100
	}
	return []Family{
		{
			Name:        "linear_regression",
			Scaler:      ml.StandardScaling,
			SelectKBest: true,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitOLS(X, y)
			},
		},
		{
			Name:        "ridge",
			Scaler:      ml.StandardScaling,
			SelectKBest: true,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitRidge(X, y, 1.0)
			},
		},
		{
			Name:        "lasso",
			Scaler:      ml.StandardScaling,
			SelectKBest: true,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitLasso(X, y, ml.LassoParams{Alpha: 1.0})
			},
		},
		{
			Name:   "random_forest",
			Scaler: ml.RobustScaling,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitRandomForest(X, y, ml.ForestParams{
					NumTrees: estimators,
					Tree:     ml.TreeParams{MaxDepth: 15, MinSamplesSplit: 5, MinSamplesLeaf: 2},
					Seed:     seed,
				})
			},
		},
		{
			Name:   "gradient_boosting",
			Scaler: ml.StandardScaling,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitGradientBoosting(X, y, ml.BoostingParams{
					NumStages:    estimators,
					LearningRate: 0.1,
					Tree:         ml.TreeParams{MaxDepth: 6},
				})
			},
		},
		{
			Name:   "decision_tree",
			Scaler: ml.MinMaxScaling,
			Fit: func(X [][]float64, y []float64) (ml.Regressor, error) {
				return ml.FitTree(X, y, ml.TreeParams{MaxDepth: 15, MinSamplesSplit: 10, MinSamplesLeaf: 5})
			},
		},
	}
}

// TrainedModelSet is one complete model epoch. It is never modified after TrainAll returns.
type TrainedModelSet struct {
	EpochID           string
	Version           string
	TrainedAt         time.Time
	BestModel         string
	Models            map[string]*ml.FittedModel
	Metrics           map[string]domain.ModelMetrics
	Failures          map[string]string
	FeatureImportance map[string]float64
	Features          FeatureState
	TrainingSamples   int
	OriginalSamples   int
	SyntheticSamples  int
}

// Predict runs the best model on one engineered feature row
func (s *TrainedModelSet) Predict(row []float64) (float64, error) {
	if s == nil {
		return 0, domain.ErrNotReady
	}
	model, ok := s.Models[s.BestModel]
	if !ok {
		return 0, domain.ErrNotReady
	}
	return model.Predict(row)
}

// Info summarizes the epoch for status reporting
func (s *TrainedModelSet) Info() domain.ModelInfo {
	perf := make(map[string]domain.ModelMetrics, len(s.Metrics))
	for name, m := range s.Metrics {
		perf[name] = m
	}
	return domain.ModelInfo{
		EpochID:           s.EpochID,
		Version:           s.Version,
		TrainedAt:         s.TrainedAt,
		BestModel:         s.BestModel,
		ModelsPerformance: perf,
		TrainingSamples:   s.TrainingSamples,
		OriginalSamples:   s.OriginalSamples,
		SyntheticSamples:  s.SyntheticSamples,
		FeatureImportance: s.FeatureImportance,
	}
}

// ModelSelector trains the model roster on a catalog and keeps the best performer
type ModelSelector struct {
	config    ModelSelectorConfig
	roster    []Family
	engineer  *FeatureEngineer
	augmenter *Augmenter
	logger    zerolog.Logger
}

// NewModelSelector creates a selector over the default roster
func NewModelSelector(config ModelSelectorConfig, logger zerolog.Logger) *ModelSelector {
	if config.MinTrainingSamples <= 0 {
		config.MinTrainingSamples = 25000
	}
	if config.MinValidSamples <= 0 {
		config.MinValidSamples = 1000
	}
	if config.TestSize <= 0 || config.TestSize >= 1 {
		config.TestSize = 0.2
	}
	if config.CVFolds < 2 {
		config.CVFolds = 5
	}
	if config.SelectK <= 0 {
		config.SelectK = 10
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.GOMAXPROCS(0)
	}

	return &ModelSelector{
		config:    config,
		roster:    DefaultRoster(config.Estimators, config.Seed),
		engineer:  NewFeatureEngineer(),
		augmenter: NewAugmenter(AugmenterConfig{Seed: config.Seed}),
		logger:    logger.With().Str("component", "selector").Logger(),
	}
}

// WithRoster replaces the candidate families; used to train a reduced roster
func (s *ModelSelector) WithRoster(roster []Family) *ModelSelector {
	next := *s
	next.roster = roster
	return &next
}

// familyResult is the outcome of fitting one family
type familyResult struct {
	model   *ml.FittedModel
	metrics domain.ModelMetrics
	err     error
}

// TrainAll engineers features for products, pads them with synthetic rows, fits every
// family and returns a new epoch whose best model has the highest composite score.
// prev seeds the brand encoder so existing codes survive retraining; it may be nil.
func (s *ModelSelector) TrainAll(ctx context.Context, products []domain.ProductRecord, prev *CategoryEncoder) (*TrainedModelSet, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrInsufficientData)
	}
	started := time.Now()

	base := s.engineer.DescribeAll(products)
	rows := s.augmenter.Augment(base, s.config.MinTrainingSamples)
	state := s.engineer.Fit(rows, prev)

	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	labels := make([]int, 0, len(rows))
	for _, r := range rows {
		if r.Price <= 0 {
			continue
		}
		X = append(X, state.Vector(r))
		y = append(y, r.Price)
		labels = append(labels, PriceRange(r.Price))
	}
	if len(X) < s.config.MinValidSamples {
		return nil, fmt.Errorf("%w: %d valid samples, need %d", domain.ErrInsufficientData, len(X), s.config.MinValidSamples)
	}

	s.logger.Info().
		Int("samples", len(X)).
		Int("original", len(base)).
		Int("synthetic", len(rows)-len(base)).
		Msg("training model roster")

	rng := rand.New(rand.NewPCG(s.config.Seed, s.config.Seed))
	trainIdx, testIdx := ml.StratifiedSplit(labels, s.config.TestSize, rng)
	trainX, trainY := pick(X, y, trainIdx)
	testX, testY := pick(X, y, testIdx)

	results := make([]familyResult, len(s.roster))
	var g errgroup.Group
	g.SetLimit(s.config.Parallelism)
	for i, fam := range s.roster {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i] = s.fitFamily(fam, trainX, trainY, testX, testY)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &TrainedModelSet{
		EpochID:          uuid.NewString(),
		Version:          domain.ModelVersion,
		TrainedAt:        time.Now().UTC(),
		Models:           make(map[string]*ml.FittedModel),
		Metrics:          make(map[string]domain.ModelMetrics),
		Failures:         make(map[string]string),
		Features:         state,
		TrainingSamples:  len(X),
		OriginalSamples:  len(base),
		SyntheticSamples: len(rows) - len(base),
	}
	order := make([]string, 0, len(s.roster))
	for i, fam := range s.roster {
		res := results[i]
		if res.err != nil {
			s.logger.Error().Err(res.err).Str("model", fam.Name).Msg("model family failed")
			set.Failures[fam.Name] = res.err.Error()
			continue
		}
		s.logger.Info().
			Str("model", fam.Name).
			Float64("test_r2", res.metrics.TestR2).
			Float64("test_mae", res.metrics.TestMAE).
			Float64("test_mape", res.metrics.TestMAPE).
			Float64("composite", res.metrics.CompositeScore).
			Msg("model family trained")
		set.Models[fam.Name] = res.model
		set.Metrics[fam.Name] = res.metrics
		order = append(order, fam.Name)
	}

	best, ok := BestByComposite(order, set.Metrics)
	if !ok {
		return nil, domain.ErrModelFitFailure
	}
	set.BestModel = best
	if imp := set.Models[best].FeatureImportances(); imp != nil {
		set.FeatureImportance = make(map[string]float64, len(imp))
		for j, v := range imp {
			set.FeatureImportance[domain.FeatureColumns[j]] = v
		}
	}

	s.logger.Info().
		Str("best_model", best).
		Float64("composite", set.Metrics[best].CompositeScore).
		Dur("duration", time.Since(started)).
		Msg("model selection complete")
	return set, nil
}

// BestByComposite returns the name with the highest composite score, preferring the
// earliest name in order on ties
func BestByComposite(order []string, metrics map[string]domain.ModelMetrics) (string, bool) {
	best, bestScore, found := "", math.Inf(-1), false
	for _, name := range order {
		m, ok := metrics[name]
		if !ok {
			continue
		}
		if !found || m.CompositeScore > bestScore {
			best, bestScore, found = name, m.CompositeScore, true
		}
	}
	return best, found
}

func (s *ModelSelector) fitFamily(fam Family, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) (res familyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = familyResult{err: fmt.Errorf("%w: %s panicked: %v", domain.ErrModelFitFailure, fam.Name, r)}
		}
	}()

	scaler, err := ml.FitScaler(fam.Scaler, trainX)
	if err != nil {
		return familyResult{err: err}
	}
	xTrain, xTest := scaler.Transform(trainX), scaler.Transform(testX)

	var selector *ml.KBestSelector
	if fam.SelectKBest {
		selector, err = ml.FitKBest(xTrain, trainY, min(s.config.SelectK, len(xTrain[0])))
		if err != nil {
			return familyResult{err: err}
		}
		xTrain, xTest = selector.Transform(xTrain), selector.Transform(xTest)
	}

	reg, err := fam.Fit(xTrain, trainY)
	if err != nil {
		return familyResult{err: fmt.Errorf("fit %s: %w", fam.Name, err)}
	}
	cv, err := ml.CrossValR2(fam.Fit, xTrain, trainY, s.config.CVFolds)
	if err != nil {
		return familyResult{err: fmt.Errorf("cross-validate %s: %w", fam.Name, err)}
	}

	predTrain, predTest := ml.PredictAll(reg, xTrain), ml.PredictAll(reg, xTest)
	cvMean, cvStd := stat.PopMeanStdDev(cv, nil)
	m := domain.ModelMetrics{
		TrainR2:         ml.R2(trainY, predTrain),
		TestR2:          ml.R2(testY, predTest),
		TrainMAE:        ml.MAE(trainY, predTrain),
		TestMAE:         ml.MAE(testY, predTest),
		TrainRMSE:       ml.RMSE(trainY, predTrain),
		TestRMSE:        ml.RMSE(testY, predTest),
		TestMAPE:        ml.MAPE(testY, predTest),
		CVScoreMean:     cvMean,
		CVScoreStd:      cvStd,
		FeatureSelected: fam.SelectKBest,
	}
	m.CompositeScore = CompositeScore(m.TestR2, m.TestMAPE, m.CVScoreMean)

	model, err := ml.NewFittedModel(fam.Name, scaler, selector, reg)
	if err != nil {
		return familyResult{err: err}
	}
	return familyResult{model: model, metrics: m}
}

func pick(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = X[j]
		py[i] = y[j]
	}
	return px, py
}
