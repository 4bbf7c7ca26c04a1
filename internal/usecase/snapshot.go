package usecase

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/ml"
)

// snapshotPayload is the persisted form of a TrainedModelSet
type snapshotPayload struct {
	EpochID           string                         `json:"epochId"`
	Version           string                         `json:"version"`
	TrainedAt         time.Time                      `json:"trainedAt"`
	BestModel         string                         `json:"bestModel"`
	Models            map[string]*ml.FittedModel     `json:"models"`
	Metrics           map[string]domain.ModelMetrics `json:"metrics"`
	Failures          map[string]string              `json:"failures,omitempty"`
	FeatureImportance map[string]float64             `json:"featureImportance,omitempty"`
	BrandClasses      []string                       `json:"brandClasses"`
	BrandPopularity   map[string]float64             `json:"brandPopularity"`
	TrainingSamples   int                            `json:"trainingSamples"`
	OriginalSamples   int                            `json:"originalSamples"`
	SyntheticSamples  int                            `json:"syntheticSamples"`
}

// EncodeSnapshot serializes an epoch for a ModelStore
func EncodeSnapshot(set *TrainedModelSet) (*domain.ModelSnapshot, error) {
	payload := snapshotPayload{
		EpochID:           set.EpochID,
		Version:           set.Version,
		TrainedAt:         set.TrainedAt,
		BestModel:         set.BestModel,
		Models:            set.Models,
		Metrics:           set.Metrics,
		Failures:          set.Failures,
		FeatureImportance: set.FeatureImportance,
		BrandClasses:      set.Features.Encoder.Classes(),
		BrandPopularity:   set.Features.Popularity,
		TrainingSamples:   set.TrainingSamples,
		OriginalSamples:   set.OriginalSamples,
		SyntheticSamples:  set.SyntheticSamples,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return &domain.ModelSnapshot{
		EpochID:   set.EpochID,
		Version:   set.Version,
		BestModel: set.BestModel,
		TrainedAt: set.TrainedAt,
		Payload:   raw,
	}, nil
}

// DecodeSnapshot restores an epoch saved by EncodeSnapshot
func DecodeSnapshot(snap *domain.ModelSnapshot) (*TrainedModelSet, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(snap.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if _, ok := payload.Models[payload.BestModel]; !ok {
		return nil, fmt.Errorf("decode snapshot: best model %q missing", payload.BestModel)
	}
	return &TrainedModelSet{
		EpochID:           payload.EpochID,
		Version:           payload.Version,
		TrainedAt:         payload.TrainedAt,
		BestModel:         payload.BestModel,
		Models:            payload.Models,
		Metrics:           payload.Metrics,
		Failures:          payload.Failures,
		FeatureImportance: payload.FeatureImportance,
		Features: FeatureState{
			Encoder:    NewCategoryEncoderFromClasses(payload.BrandClasses),
			Popularity: payload.BrandPopularity,
		},
		TrainingSamples:  payload.TrainingSamples,
		OriginalSamples:  payload.OriginalSamples,
		SyntheticSamples: payload.SyntheticSamples,
	}, nil
}
