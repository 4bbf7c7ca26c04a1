package ml

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// KBestSelector keeps the K columns with the highest univariate F-statistic against the target
type KBestSelector struct {
	K       int       `json:"k"`
	Indices []int     `json:"indices"` // ascending column order
	Scores  []float64 `json:"scores"`
}

// FitKBest scores each column of X with the f-regression statistic and keeps the best k.
// Constant columns score lowest.
func FitKBest(X [][]float64, y []float64, k int) (*KBestSelector, error) {
	p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	if k > p {
		k = p
	}

	n := float64(len(X))
	scores := make([]float64, p)
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		r := stat.Correlation(col, y, nil)
		switch {
		case isBad(r):
			scores[j] = -1
		case r*r >= 1:
			scores[j] = 1e300
		default:
			scores[j] = r * r / (1 - r*r) * (n - 2)
		}
	}

	order := make([]int, p)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	indices := append([]int(nil), order[:k]...)
	sort.Ints(indices)

	return &KBestSelector{K: k, Indices: indices, Scores: scores}, nil
}

// TransformRow keeps the selected columns of x
func (s *KBestSelector) TransformRow(x []float64) []float64 {
	out := make([]float64, len(s.Indices))
	for i, j := range s.Indices {
		out[i] = x[j]
	}
	return out
}

// Transform keeps the selected columns of every row
func (s *KBestSelector) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}
