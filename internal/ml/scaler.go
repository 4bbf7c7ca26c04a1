package ml

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScalerKind selects the per-column normalization a model family uses
type ScalerKind string

const (
	StandardScaling ScalerKind = "standard" // (x - mean) / std
	MinMaxScaling   ScalerKind = "minmax"   // (x - min) / (max - min)
	RobustScaling   ScalerKind = "robust"   // (x - median) / IQR
)

// Scaler is a fitted column-wise affine transform: (x - Center) / Scale.
// Columns with zero spread get Scale 1.
type Scaler struct {
	Kind   ScalerKind `json:"kind"`
	Center []float64  `json:"center"`
	Scale  []float64  `json:"scale"`
}

// FitScaler fits a scaler of the given kind on the columns of X
func FitScaler(kind ScalerKind, X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, ErrEmptyDataset
	}
	p := len(X[0])
	s := &Scaler{
		Kind:   kind,
		Center: make([]float64, p),
		Scale:  make([]float64, p),
	}

	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}

		var center, scale float64
		switch kind {
		case StandardScaling:
			center = stat.Mean(col, nil)
			if n := float64(len(col)); n > 1 {
				// population standard deviation
				variance := stat.Variance(col, nil) * (n - 1) / n
				scale = sqrt(variance)
			}
		case MinMaxScaling:
			center = floats.Min(col)
			scale = floats.Max(col) - center
		case RobustScaling:
			sorted := append([]float64(nil), col...)
			sort.Float64s(sorted)
			center = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
			scale = stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		default:
			return nil, fmt.Errorf("unknown scaler kind %q", kind)
		}

		if scale == 0 || isBad(scale) {
			scale = 1
		}
		s.Center[j] = center
		s.Scale[j] = scale
	}
	return s, nil
}

// TransformRow scales a single feature row into a new slice
func (s *Scaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Center[j]) / s.Scale[j]
	}
	return out
}

// Transform scales every row of X into a new matrix
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}
