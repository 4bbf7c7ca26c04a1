package domain

import "errors"

var (
	// ErrInsufficientData is returned when fewer valid training rows remain than required
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrModelFitFailure is returned when every candidate model family failed to train
	ErrModelFitFailure = errors.New("no model trained successfully")

	// ErrNotReady is returned when prediction or matching is requested before any training completed
	ErrNotReady = errors.New("model not ready")

	// ErrTrainingInProgress is returned when a training run is already in flight
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when a product cannot be found in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrSnapshotNotFound is returned by a model store that holds no snapshot yet
	ErrSnapshotNotFound = errors.New("model snapshot not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRepositoryUnavailable is returned when the product repository cannot be reached
	ErrRepositoryUnavailable = errors.New("product repository unavailable")
)
