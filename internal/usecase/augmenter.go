package usecase

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/techcompare/specmatch/internal/domain"
)

// Candidate values a synthetic row may draw for each numeric spec field
var (
	ramCandidates       = []float64{3, 4, 6, 8, 12, 16, 24}
	storageCandidates   = []float64{32, 64, 128, 256, 512, 1024}
	displayCandidates   = []float64{4.0, 4.7, 5.0, 5.5, 6.0, 6.1, 6.4, 6.7, 6.8}
	cameraCandidates    = []float64{8, 12, 13, 16, 20, 24, 32, 48, 50, 64, 108}
	batteryCandidates   = []float64{2000, 2500, 3000, 3500, 4000, 4500, 5000, 6000}
	processorCandidates = processorScoreSteps()
)

func processorScoreSteps() []float64 {
	steps := make([]float64, 0, 15)
	for s := 30; s <= 100; s += 5 {
		steps = append(steps, float64(s))
	}
	return steps
}

// brandPremiums is the flat dollar premium a synthetic price carries per brand
var brandPremiums = map[string]float64{
	"apple":   200,
	"samsung": 100,
	"google":  50,
	"oneplus": 30,
	"sony":    80,
	"lg":      20,
}

const (
	syntheticBasePrice  = 200
	syntheticPriceNoise = 50
	syntheticMinPrice   = 100
	syntheticRatingMean = 4.0
	syntheticRatingStd  = 0.5
	syntheticReviewMean = 100
)

// SyntheticPrice is the deterministic part of a synthetic row's price
func SyntheticPrice(f domain.ProductFeatures) float64 {
	return syntheticBasePrice +
		f.RAM*10 +
		f.Storage*0.5 +
		f.Camera*5 +
		f.ProcessorScore*8 +
		f.Battery*0.05 +
		brandPremiums[f.Brand]
}

// AugmenterConfig configures synthetic row generation
type AugmenterConfig struct {
	ResampleProbability float64
	Seed                uint64
}

// Augmenter pads a small catalog with plausible synthetic rows
type Augmenter struct {
	resampleProbability float64
	seed                uint64
}

// NewAugmenter creates an augmenter. Every Augment call restarts from the same seed.
func NewAugmenter(config AugmenterConfig) *Augmenter {
	p := config.ResampleProbability
	if p <= 0 || p > 1 {
		p = 0.3
	}
	return &Augmenter{resampleProbability: p, seed: config.Seed}
}

// Augment returns base unchanged when it already holds target rows. Otherwise it returns
// a new slice of exactly target rows: base followed by synthetic copies of base rows taken
// in round-robin order, each with some spec fields resampled and a re-derived price,
// rating and review count. Base rows are never modified.
func (a *Augmenter) Augment(base []domain.ProductFeatures, target int) []domain.ProductFeatures {
	if len(base) >= target || len(base) == 0 {
		return base
	}

	rng := rand.New(rand.NewPCG(a.seed, a.seed^0x5eed))
	out := make([]domain.ProductFeatures, 0, target)
	out = append(out, base...)

	needed := target - len(base)
	for i := 0; i < needed; i++ {
		row := base[i%len(base)]
		row.ID = fmt.Sprintf("synthetic_%d", i)
		row.Synthetic = true

		row.RAM = a.maybeResample(rng, row.RAM, ramCandidates)
		row.Storage = a.maybeResample(rng, row.Storage, storageCandidates)
		row.DisplaySize = a.maybeResample(rng, row.DisplaySize, displayCandidates)
		row.Camera = a.maybeResample(rng, row.Camera, cameraCandidates)
		row.Battery = a.maybeResample(rng, row.Battery, batteryCandidates)
		row.ProcessorScore = a.maybeResample(rng, row.ProcessorScore, processorCandidates)

		price := SyntheticPrice(row) + rng.NormFloat64()*syntheticPriceNoise
		row.Price = math.Max(syntheticMinPrice, price)
		row.PriceRange = PriceRange(row.Price)

		rating := syntheticRatingMean + rng.NormFloat64()*syntheticRatingStd
		row.Rating = math.Min(5, math.Max(1, rating))
		row.Reviews = int(math.Round(math.Max(0, rng.ExpFloat64()*syntheticReviewMean)))
		row.ReviewsLog = math.Log1p(float64(row.Reviews))

		out = append(out, row)
	}
	return out
}

func (a *Augmenter) maybeResample(rng *rand.Rand, current float64, candidates []float64) float64 {
	if rng.Float64() < a.resampleProbability {
		return candidates[rng.IntN(len(candidates))]
	}
	return current
}

// SyntheticCount reports how many rows Augment would add to reach target
func SyntheticCount(baseLen, target int) int {
	if baseLen == 0 || baseLen >= target {
		return 0
	}
	return target - baseLen
}
