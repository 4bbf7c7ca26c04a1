package ml

import (
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestParams configures a bagged forest of regression trees
type ForestParams struct {
	NumTrees int
	Tree     TreeParams
	Seed     uint64
	Workers  int // 0 uses GOMAXPROCS
}

// RandomForest averages bootstrap-trained regression trees
type RandomForest struct {
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"importances,omitempty"`
}

// Predict returns the mean prediction of all trees
func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// FitRandomForest grows NumTrees trees, each on a bootstrap sample drawn from its own
// seeded stream, so the result does not depend on scheduling.
func FitRandomForest(X [][]float64, y []float64, params ForestParams) (*RandomForest, error) {
	p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	if params.NumTrees <= 0 {
		params.NumTrees = 100
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	treeParams := params.Tree.withDefaults()
	data := binColumns(X, treeParams.MaxBins)

	trees := make([]*Tree, params.NumTrees)
	var g errgroup.Group
	g.SetLimit(workers)
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(params.Seed, uint64(t)+1))
			idx := make([]int, len(X))
			for i := range idx {
				idx[i] = rng.IntN(len(X))
			}
			trees[t] = growTree(data, y, idx, treeParams)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	importances := make([]float64, p)
	for _, t := range trees {
		for j, v := range t.Importances {
			importances[j] += v
		}
	}
	return &RandomForest{Trees: trees, Importances: normalize(importances)}, nil
}

// BoostingParams configures least-squares gradient boosting
type BoostingParams struct {
	NumStages    int
	LearningRate float64
	Tree         TreeParams
}

// GradientBoosting is an additive model of shrunken regression trees fitted to residuals
type GradientBoosting struct {
	Init         float64   `json:"init"`
	LearningRate float64   `json:"learningRate"`
	Trees        []*Tree   `json:"trees"`
	Importances  []float64 `json:"importances,omitempty"`
}

// Predict returns Init plus the shrunken sum of stage predictions
func (g *GradientBoosting) Predict(x []float64) float64 {
	y := g.Init
	for _, t := range g.Trees {
		y += g.LearningRate * t.Predict(x)
	}
	return y
}

// FitGradientBoosting fits NumStages trees, each to the residuals of the model so far
func FitGradientBoosting(X [][]float64, y []float64, params BoostingParams) (*GradientBoosting, error) {
	p, err := checkXY(X, y)
	if err != nil {
		return nil, err
	}
	if params.NumStages <= 0 {
		params.NumStages = 100
	}
	if params.LearningRate <= 0 {
		params.LearningRate = 0.1
	}
	treeParams := params.Tree.withDefaults()
	data := binColumns(X, treeParams.MaxBins)

	var init float64
	for _, v := range y {
		init += v
	}
	init /= float64(len(y))

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = init
	}
	residual := make([]float64, len(y))
	idx := make([]int, len(y))

	model := &GradientBoosting{Init: init, LearningRate: params.LearningRate}
	importances := make([]float64, p)
	for s := 0; s < params.NumStages; s++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
			idx[i] = i
		}
		tree := growTree(data, residual, idx, treeParams)
		for i, row := range X {
			pred[i] += params.LearningRate * tree.Predict(row)
		}
		for j, v := range tree.Importances {
			importances[j] += v
		}
		model.Trees = append(model.Trees, tree)
	}
	model.Importances = normalize(importances)
	return model, nil
}
