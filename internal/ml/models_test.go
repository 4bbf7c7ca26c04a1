package ml

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearModels(t *testing.T) {
	X, y := linearDataset(300, 0)

	t.Run("OLS recovers exact coefficients", func(t *testing.T) {
		m, err := FitOLS(X, y)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, m.Intercept, 1e-4)
		assert.InDeltaSlice(t, []float64{2, -1, 0.5}, m.Coef, 1e-4)
		assert.InDelta(t, 3+2*1-2+0.5*3, m.Predict([]float64{1, 2, 3}), 1e-4)
	})

	t.Run("OLS tolerates a constant column", func(t *testing.T) {
		withConst := make([][]float64, len(X))
		for i, row := range X {
			withConst[i] = append([]float64{0}, row...)
		}
		m, err := FitOLS(withConst, y)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, m.Coef[0], 1e-9)
		assert.InDelta(t, 1.0, R2(y, PredictAll(m, withConst)), 1e-6)
	})

	t.Run("ridge shrinks coefficients", func(t *testing.T) {
		ols, err := FitOLS(X, y)
		require.NoError(t, err)
		ridge, err := FitRidge(X, y, 5000)
		require.NoError(t, err)
		assert.Less(t, abs(ridge.Coef[0]), abs(ols.Coef[0]))

		_, err = FitRidge(X, y, -1)
		assert.Error(t, err)
	})

	t.Run("lasso zeroes weak features under a large penalty", func(t *testing.T) {
		m, err := FitLasso(X, y, LassoParams{Alpha: 1})
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.Coef[2], "0.5 weight on a 0-3 feature is below the penalty")
		assert.Greater(t, m.Coef[0], 1.0)

		small, err := FitLasso(X, y, LassoParams{Alpha: 1e-6})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{2, -1, 0.5}, small.Coef, 1e-3)
	})

	t.Run("rejects mismatched input", func(t *testing.T) {
		_, err := FitOLS(X, y[:10])
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		_, err = FitOLS(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestTreeModels(t *testing.T) {
	// step function on the first feature, noise on the second
	X := make([][]float64, 0, 400)
	y := make([]float64, 0, 400)
	for i := 0; i < 400; i++ {
		a := float64(i % 20)
		b := float64((i * 7) % 13)
		X = append(X, []float64{a, b})
		if a < 10 {
			y = append(y, 100)
		} else {
			y = append(y, 500)
		}
	}

	t.Run("decision tree splits on the informative feature", func(t *testing.T) {
		tree, err := FitTree(X, y, TreeParams{MaxDepth: 3})
		require.NoError(t, err)
		assert.Equal(t, 0, tree.Nodes[0].Feature)
		assert.Equal(t, 9.0, tree.Nodes[0].Threshold)
		assert.Equal(t, 100.0, tree.Predict([]float64{3, 0}))
		assert.Equal(t, 500.0, tree.Predict([]float64{15, 0}))
		assert.InDelta(t, 1.0, tree.Importances[0], 1e-9)
	})

	t.Run("depth limit yields a single leaf", func(t *testing.T) {
		tree, err := FitTree(X, y, TreeParams{MaxDepth: 0, MinSamplesSplit: 1000})
		require.NoError(t, err)
		require.Len(t, tree.Nodes, 1)
		assert.InDelta(t, 300.0, tree.Predict([]float64{0, 0}), 1e-9)
	})

	t.Run("random forest is deterministic for a seed", func(t *testing.T) {
		params := ForestParams{NumTrees: 10, Tree: TreeParams{MaxDepth: 4}, Seed: 42, Workers: 3}
		f1, err := FitRandomForest(X, y, params)
		require.NoError(t, err)
		params.Workers = 1
		f2, err := FitRandomForest(X, y, params)
		require.NoError(t, err)

		assert.Equal(t, f1.Predict([]float64{4, 2}), f2.Predict([]float64{4, 2}))
		assert.InDelta(t, 100.0, f1.Predict([]float64{4, 2}), 1e-9)
		assert.InDelta(t, 500.0, f1.Predict([]float64{18, 2}), 1e-9)
		assert.Greater(t, f1.Importances[0], f1.Importances[1])
	})

	t.Run("gradient boosting converges toward the targets", func(t *testing.T) {
		gb, err := FitGradientBoosting(X, y, BoostingParams{NumStages: 50, LearningRate: 0.1, Tree: TreeParams{MaxDepth: 2}})
		require.NoError(t, err)
		assert.InDelta(t, 300.0, gb.Init, 1e-9)
		assert.InDelta(t, 100.0, gb.Predict([]float64{2, 5}), 5)
		assert.InDelta(t, 500.0, gb.Predict([]float64{12, 5}), 5)
	})
}

func TestScalerAndSelector(t *testing.T) {
	X := [][]float64{
		{1, 10, 7},
		{2, 20, 7},
		{3, 30, 7},
		{4, 40, 7},
	}

	t.Run("standard scaler", func(t *testing.T) {
		s, err := FitScaler(StandardScaling, X)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, s.Center[0], 1e-12)
		assert.InDelta(t, 1.118034, s.Scale[0], 1e-6)
		assert.Equal(t, 1.0, s.Scale[2], "constant column keeps unit scale")
		assert.InDelta(t, 0.0, s.TransformRow([]float64{2.5, 25, 7})[0], 1e-12)
	})

	t.Run("min-max scaler", func(t *testing.T) {
		s, err := FitScaler(MinMaxScaling, X)
		require.NoError(t, err)
		row := s.TransformRow([]float64{4, 10, 7})
		assert.InDelta(t, 1.0, row[0], 1e-12)
		assert.InDelta(t, 0.0, row[1], 1e-12)
	})

	t.Run("robust scaler centers on the median", func(t *testing.T) {
		s, err := FitScaler(RobustScaling, X)
		require.NoError(t, err)
		assert.Greater(t, s.Center[1], 10.0)
		assert.Less(t, s.Center[1], 40.0)
		assert.Greater(t, s.Scale[1], 0.0)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := FitScaler("zscore", X)
		assert.Error(t, err)
	})

	t.Run("k-best keeps correlated columns in original order", func(t *testing.T) {
		data, y := linearDataset(200, 0)
		sel, err := FitKBest(data, y, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, sel.Indices)
		assert.Equal(t, []float64{1, 2}, sel.TransformRow([]float64{1, 2, 3}))

		all, err := FitKBest(data, y, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, all.K)
	})
}

func TestFittedModelRoundTrip(t *testing.T) {
	X, y := linearDataset(100, 0.1)
	scaler, err := FitScaler(StandardScaling, X)
	require.NoError(t, err)
	scaled := scaler.Transform(X)

	tree, err := FitTree(scaled, y, TreeParams{MaxDepth: 5})
	require.NoError(t, err)
	model, err := NewFittedModel("decision_tree", scaler, nil, tree)
	require.NoError(t, err)

	raw, err := json.Marshal(model)
	require.NoError(t, err)
	var decoded FittedModel
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, row := range X[:10] {
		want, err := model.Predict(row)
		require.NoError(t, err)
		got, err := decoded.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.NotNil(t, decoded.FeatureImportances())

	_, err = model.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewFittedModel("x", scaler, nil, nil)
	assert.Error(t, err)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
