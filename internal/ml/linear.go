package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// olsJitter keeps the Gram matrix positive definite when a column is constant
const olsJitter = 1e-8

// LinearModel is y = Intercept + Coef·x
type LinearModel struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// Predict returns the linear prediction for x
func (m *LinearModel) Predict(x []float64) float64 {
	y := m.Intercept
	for j, c := range m.Coef {
		y += c * x[j]
	}
	return y
}

// FitOLS fits ordinary least squares with an intercept
func FitOLS(X [][]float64, y []float64) (*LinearModel, error) {
	return fitNormalEquations(X, y, 0)
}

// FitRidge fits L2-penalized least squares; the intercept is not penalized
func FitRidge(X [][]float64, y []float64, alpha float64) (*LinearModel, error) {
	if alpha < 0 {
		return nil, fmt.Errorf("ridge alpha must be non-negative, got %v", alpha)
	}
	return fitNormalEquations(X, y, alpha)
}

func fitNormalEquations(X [][]float64, y []float64, alpha float64) (*LinearModel, error) {
	p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}

	xMean, yMean := columnMeans(X), stat.Mean(y, nil)

	gram := mat.NewSymDense(p, nil)
	rhs := make([]float64, p)
	xc := make([]float64, p)
	for i, row := range X {
		for j := range row {
			xc[j] = row[j] - xMean[j]
		}
		yc := y[i] - yMean
		for a := 0; a < p; a++ {
			rhs[a] += xc[a] * yc
			for b := a; b < p; b++ {
				gram.SetSym(a, b, gram.At(a, b)+xc[a]*xc[b])
			}
		}
	}

	maxDiag := 1.0
	for d := 0; d < p; d++ {
		maxDiag = math.Max(maxDiag, gram.At(d, d))
	}
	for d := 0; d < p; d++ {
		gram.SetSym(d, d, gram.At(d, d)+alpha+olsJitter*maxDiag)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, ErrSingularMatrix
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, mat.NewVecDense(p, rhs)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}

	coef := make([]float64, p)
	intercept := yMean
	for j := 0; j < p; j++ {
		coef[j] = w.AtVec(j)
		intercept -= coef[j] * xMean[j]
	}
	return &LinearModel{Intercept: intercept, Coef: coef}, nil
}

// LassoParams configures coordinate descent for the lasso
type LassoParams struct {
	Alpha   float64
	MaxIter int
	Tol     float64
}

// FitLasso minimizes (1/2n)·||y - Xw - b||² + Alpha·||w||₁ by cyclic coordinate descent
func FitLasso(X [][]float64, y []float64, params LassoParams) (*LinearModel, error) {
	p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	if params.MaxIter <= 0 {
		params.MaxIter = 1000
	}
	if params.Tol <= 0 {
		params.Tol = 1e-4
	}

	n := len(X)
	xMean, yMean := columnMeans(X), stat.Mean(y, nil)

	// column-major centered copy for the inner loops
	cols := make([][]float64, p)
	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = make([]float64, n)
		for i, row := range X {
			v := row[j] - xMean[j]
			cols[j][i] = v
			colSq[j] += v * v
		}
	}
	residual := make([]float64, n)
	for i := range y {
		residual[i] = y[i] - yMean
	}

	w := make([]float64, p)
	penalty := float64(n) * params.Alpha
	for iter := 0; iter < params.MaxIter; iter++ {
		var maxDelta, maxW float64
		for j := 0; j < p; j++ {
			if colSq[j] == 0 {
				continue
			}
			old := w[j]
			rho := colSq[j] * old
			for i, v := range cols[j] {
				rho += v * residual[i]
			}
			next := softThreshold(rho, penalty) / colSq[j]
			if delta := next - old; delta != 0 {
				for i, v := range cols[j] {
					residual[i] -= v * delta
				}
				maxDelta = math.Max(maxDelta, math.Abs(delta))
			}
			w[j] = next
			maxW = math.Max(maxW, math.Abs(next))
		}
		if maxW == 0 || maxDelta/maxW < params.Tol {
			break
		}
	}

	intercept := yMean
	for j := 0; j < p; j++ {
		intercept -= w[j] * xMean[j]
	}
	return &LinearModel{Intercept: intercept, Coef: w}, nil
}

func softThreshold(v, lambda float64) float64 {
	switch {
	case v > lambda:
		return v - lambda
	case v < -lambda:
		return v + lambda
	}
	return 0
}

func columnMeans(X [][]float64) []float64 {
	p := len(X[0])
	means := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(X))
	}
	return means
}
