// Package ml contains the regression algorithms, scalers, feature selection and
// evaluation helpers used to train price models.
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when fitting on zero rows
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrDimensionMismatch is returned when X and y disagree in length or rows differ in width
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularMatrix is returned when the normal equations cannot be solved
	ErrSingularMatrix = errors.New("singular matrix")
)

// Regressor predicts a continuous target from one feature row
type Regressor interface {
	Predict(x []float64) float64
}

// Trainer fits a fresh regressor on a design matrix
type Trainer func(X [][]float64, y []float64) (Regressor, error)

// FittedModel is a trained regressor together with the preprocessing fitted for it.
// Exactly one of the regressor fields is set; the struct serializes as-is.
type FittedModel struct {
	Family   string            `json:"family"`
	Scaler   *Scaler           `json:"scaler"`
	Selector *KBestSelector    `json:"selector,omitempty"`
	Linear   *LinearModel      `json:"linear,omitempty"`
	Tree     *Tree             `json:"tree,omitempty"`
	Forest   *RandomForest     `json:"forest,omitempty"`
	Boosting *GradientBoosting `json:"boosting,omitempty"`
}

// NewFittedModel bundles a regressor with its scaler and optional selector
func NewFittedModel(family string, scaler *Scaler, selector *KBestSelector, r Regressor) (*FittedModel, error) {
	m := &FittedModel{Family: family, Scaler: scaler, Selector: selector}
	switch v := r.(type) {
	case *LinearModel:
		m.Linear = v
	case *Tree:
		m.Tree = v
	case *RandomForest:
		m.Forest = v
	case *GradientBoosting:
		m.Boosting = v
	default:
		return nil, fmt.Errorf("unsupported regressor type %T", r)
	}
	return m, nil
}

// Regressor returns the wrapped regressor, or nil if none is set
func (m *FittedModel) Regressor() Regressor {
	switch {
	case m.Linear != nil:
		return m.Linear
	case m.Tree != nil:
		return m.Tree
	case m.Forest != nil:
		return m.Forest
	case m.Boosting != nil:
		return m.Boosting
	}
	return nil
}

// Predict scales the raw feature row, applies the selector if present and predicts
func (m *FittedModel) Predict(x []float64) (float64, error) {
	r := m.Regressor()
	if r == nil || m.Scaler == nil {
		return 0, fmt.Errorf("model %q is incomplete", m.Family)
	}
	if len(x) != len(m.Scaler.Center) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, len(x), len(m.Scaler.Center))
	}
	row := m.Scaler.TransformRow(x)
	if m.Selector != nil {
		row = m.Selector.TransformRow(row)
	}
	return r.Predict(row), nil
}

// FeatureImportances returns impurity-based importances for tree families, nil otherwise
func (m *FittedModel) FeatureImportances() []float64 {
	switch {
	case m.Tree != nil:
		return m.Tree.Importances
	case m.Forest != nil:
		return m.Forest.Importances
	case m.Boosting != nil:
		return m.Boosting.Importances
	}
	return nil
}

func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d targets", ErrDimensionMismatch, len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), p)
		}
	}
	return p, nil
}
