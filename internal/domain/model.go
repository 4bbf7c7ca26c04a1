package domain

import "time"

// ModelVersion is the version stamped on trained models and saved predictions
const ModelVersion = "3.0.0"

// FeatureColumns is the fixed column order of the engineered feature vector.
// Training and inference must both use exactly this order.
var FeatureColumns = []string{
	"brand_encoded",
	"display_size_numeric",
	"ram_numeric",
	"storage_numeric",
	"camera_numeric",
	"battery_numeric",
	"price_range",
	"processor_score",
	"rating",
	"reviews_count_log",
	"brand_popularity",
}

// NumFeatures is the width of the engineered feature vector
var NumFeatures = len(FeatureColumns)

// ModelMetrics holds evaluation results for one trained model family
type ModelMetrics struct {
	TrainR2         float64 `json:"trainR2"`
	TestR2          float64 `json:"testR2"`
	TrainMAE        float64 `json:"trainMae"`
	TestMAE         float64 `json:"testMae"`
	TrainRMSE       float64 `json:"trainRmse"`
	TestRMSE        float64 `json:"testRmse"`
	TestMAPE        float64 `json:"testMape"` // percent
	CVScoreMean     float64 `json:"cvScoreMean"`
	CVScoreStd      float64 `json:"cvScoreStd"`
	CompositeScore  float64 `json:"compositeScore"`
	FeatureSelected bool    `json:"featureSelected"`
}

// ModelInfo describes the currently active model epoch
type ModelInfo struct {
	EpochID           string                  `json:"epochId"`
	Version           string                  `json:"version"`
	TrainedAt         time.Time               `json:"trainedAt"`
	BestModel         string                  `json:"bestModel"`
	ModelsPerformance map[string]ModelMetrics `json:"modelsPerformance"`
	TrainingSamples   int                     `json:"trainingSamples"`
	OriginalSamples   int                     `json:"originalSamples"`
	SyntheticSamples  int                     `json:"syntheticSamples"`
	FeatureImportance map[string]float64      `json:"featureImportance,omitempty"`
}

// PredictionRequest is a structured feature set submitted for price estimation.
// Spec fields are free text, the same shape the catalog stores.
type PredictionRequest struct {
	Brand       string  `json:"brand" binding:"required"`
	DisplaySize string  `json:"display_size" binding:"required"`
	Processor   string  `json:"processor"`
	RAM         string  `json:"ram" binding:"required"`
	Storage     string  `json:"storage" binding:"required"`
	Camera      string  `json:"camera"`
	Battery     string  `json:"battery"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	UserID      string  `json:"user_id"`
}

// PredictionResult is the outcome of a price estimation
type PredictionResult struct {
	PredictedPrice  float64 `json:"predictedPrice"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Model           string  `json:"model"`
	ModelVersion    string  `json:"modelVersion"`
	EpochID         string  `json:"epochId"`
	PredictionID    string  `json:"predictionId,omitempty"`
}

// PredictionSummary is what gets persisted for a user's prediction or search
type PredictionSummary struct {
	Brand           string  `json:"brand"`
	DisplaySize     string  `json:"displaySize,omitempty"`
	Processor       string  `json:"processor,omitempty"`
	RAM             string  `json:"ram,omitempty"`
	Storage         string  `json:"storage,omitempty"`
	Camera          string  `json:"camera,omitempty"`
	Battery         string  `json:"battery,omitempty"`
	PredictedPrice  float64 `json:"predictedPrice"`
	ConfidenceScore float64 `json:"confidenceScore"`
	ModelVersion    string  `json:"modelVersion"`
}

// StoredPrediction is a prediction row read back from the sink
type StoredPrediction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Summary   PredictionSummary `json:"summary"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ModelSnapshot is the serialized form of a trained model epoch handed to a ModelStore
type ModelSnapshot struct {
	EpochID   string
	Version   string
	BestModel string
	TrainedAt time.Time
	Payload   []byte
}
