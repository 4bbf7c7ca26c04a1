package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

func sqrt(v float64) float64 { return math.Sqrt(v) }

func isBad(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// R2 returns the coefficient of determination of pred against truth.
// A constant truth vector scores 1 on a perfect fit and 0 otherwise.
func R2(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	mean := stat.Mean(truth, nil)
	var ssRes, ssTot float64
	for i, t := range truth {
		d := t - pred[i]
		ssRes += d * d
		m := t - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAE returns the mean absolute error
func MAE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	var sum float64
	for i, t := range truth {
		sum += math.Abs(t - pred[i])
	}
	return sum / float64(len(truth))
}

// RMSE returns the root mean squared error
func RMSE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	var sum float64
	for i, t := range truth {
		d := t - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}

// MAPE returns the mean absolute percentage error in percent.
// Rows with a zero truth value are skipped.
func MAPE(truth, pred []float64) float64 {
	var sum float64
	n := 0
	for i, t := range truth {
		if t == 0 {
			continue
		}
		sum += math.Abs((t - pred[i]) / t)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

// PredictAll runs r over every row of X
func PredictAll(r Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = r.Predict(row)
	}
	return out
}

// CrossValR2 fits train on k-1 folds and scores R² on the held-out fold, for each of k
// contiguous folds (no shuffling).
func CrossValR2(train Trainer, X [][]float64, y []float64, k int) ([]float64, error) {
	if k < 2 {
		return nil, fmt.Errorf("cross validation needs at least 2 folds, got %d", k)
	}
	if len(X) < k {
		return nil, fmt.Errorf("%w: %d rows for %d folds", ErrEmptyDataset, len(X), k)
	}

	scores := make([]float64, 0, k)
	for _, fold := range KFold(len(X), k) {
		trainX, trainY := subset(X, y, fold.Train)
		testX, testY := subset(X, y, fold.Test)

		model, err := train(trainX, trainY)
		if err != nil {
			return nil, fmt.Errorf("fold fit: %w", err)
		}
		scores = append(scores, R2(testY, PredictAll(model, testX)))
	}
	return scores, nil
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = X[j]
		sy[i] = y[j]
	}
	return sx, sy
}
