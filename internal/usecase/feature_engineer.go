package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/techcompare/specmatch/internal/domain"
)

// Per-field defaults used when a spec text carries no number
const (
	DefaultDisplaySize = 6.0
	DefaultRAM         = 4
	DefaultStorage     = 64
	DefaultCamera      = 12
	DefaultBattery     = 3000

	// defaultBrandPopularity is used for brands absent from the fitting catalog
	defaultBrandPopularity = 10
	defaultProcessorScore  = 50
)

var (
	numericTokenPattern = regexp.MustCompile(`\d+\.?\d*`)
	integerPattern      = regexp.MustCompile(`\d+`)
	appleChipPattern    = regexp.MustCompile(`a(\d+)`)
)

// ExtractNumeric returns the first integer or decimal token in text, or def when there is none
func ExtractNumeric(text string, def float64) float64 {
	tok := numericTokenPattern.FindString(text)
	if tok == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "."), 64)
	if err != nil {
		return def
	}
	return v
}

// scoreTier is one rung of a processor ladder: numbers >= min score score
type scoreTier struct {
	min   int
	score float64
}

var (
	snapdragonTiers = []scoreTier{{8000, 95}, {7000, 85}, {6000, 75}, {4000, 60}, {0, 40}}
	appleTiers      = []scoreTier{{17, 100}, {15, 95}, {13, 85}, {12, 75}, {0, 65}}
	mediatekTiers   = []scoreTier{{9000, 90}, {8000, 80}, {1000, 70}, {0, 50}}
	exynosTiers     = []scoreTier{{2200, 85}, {2100, 80}, {1000, 70}, {0, 55}}
)

func ladder(n int, tiers []scoreTier) float64 {
	for _, t := range tiers {
		if n >= t.min {
			return t.score
		}
	}
	return tiers[len(tiers)-1].score
}

// ProcessorScore rates a processor description on a 0-100 scale by vendor family.
// Unknown families, and known families without a model number, score 50.
func ProcessorScore(text string) float64 {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "snapdragon"):
		if n, ok := firstInt(integerPattern, t); ok {
			// "8 Gen 3" style names carry the series as a single digit
			if n < 10 {
				n *= 1000
			}
			return ladder(n, snapdragonTiers)
		}
	case strings.Contains(t, "a1") && strings.Contains(t, "bionic"):
		if n, ok := firstInt(appleChipPattern, t); ok {
			return ladder(n, appleTiers)
		}
	case strings.Contains(t, "mediatek") || strings.Contains(t, "dimensity"):
		if n, ok := firstInt(integerPattern, t); ok {
			return ladder(n, mediatekTiers)
		}
	case strings.Contains(t, "exynos"):
		if n, ok := firstInt(integerPattern, t); ok {
			return ladder(n, exynosTiers)
		}
	}
	return defaultProcessorScore
}

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	tok := m[len(m)-1]
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PriceRange buckets a price into 1 (budget) through 4 (flagship).
// A missing price falls in the mid-range bucket.
func PriceRange(price float64) int {
	switch {
	case price <= 0:
		return domain.PriceRangeMidRange
	case price < 300:
		return domain.PriceRangeBudget
	case price < 700:
		return domain.PriceRangeMidRange
	case price < 1000:
		return domain.PriceRangePremium
	default:
		return domain.PriceRangeFlagship
	}
}

// NormalizeBrand lowercases a brand and maps blanks to unknown
func NormalizeBrand(brand string) string {
	b := strings.ToLower(strings.TrimSpace(brand))
	if b == "" {
		return domain.UnknownBrand
	}
	return b
}

// FeatureEngineer derives numeric features from catalog records
type FeatureEngineer struct{}

// NewFeatureEngineer creates a new feature engineer
func NewFeatureEngineer() *FeatureEngineer {
	return &FeatureEngineer{}
}

// Describe extracts the numeric attributes of a single record
func (e *FeatureEngineer) Describe(rec domain.ProductRecord) domain.ProductFeatures {
	reviews := rec.Reviews
	if reviews < 0 {
		reviews = 0
	}
	return domain.ProductFeatures{
		ID:             rec.ID,
		Brand:          NormalizeBrand(rec.Brand),
		DisplaySize:    ExtractNumeric(rec.DisplaySize, DefaultDisplaySize),
		RAM:            ExtractNumeric(rec.RAM, DefaultRAM),
		Storage:        ExtractNumeric(rec.Storage, DefaultStorage),
		Camera:         ExtractNumeric(rec.Camera, DefaultCamera),
		Battery:        ExtractNumeric(rec.Battery, DefaultBattery),
		Price:          rec.Price,
		PriceRange:     PriceRange(rec.Price),
		ProcessorScore: ProcessorScore(rec.Processor),
		Rating:         rec.Rating,
		Reviews:        reviews,
		ReviewsLog:     math.Log1p(float64(reviews)),
	}
}

// DescribeAll extracts the numeric attributes of every record, preserving order
func (e *FeatureEngineer) DescribeAll(recs []domain.ProductRecord) []domain.ProductFeatures {
	out := make([]domain.ProductFeatures, len(recs))
	for i, r := range recs {
		out[i] = e.Describe(r)
	}
	return out
}

// Fit builds the encoding state for a feature table. prev, when non-nil, seeds the
// brand encoder so codes stay stable across epochs.
func (e *FeatureEngineer) Fit(rows []domain.ProductFeatures, prev *CategoryEncoder) FeatureState {
	brands := make([]string, len(rows))
	for i, r := range rows {
		brands[i] = r.Brand
	}
	return FeatureState{
		Encoder:    prev.Extend(brands),
		Popularity: BrandPopularity(brands),
	}
}

// BuildFeatures turns records into engineered feature vectors under a fitted state
func (e *FeatureEngineer) BuildFeatures(recs []domain.ProductRecord, state FeatureState) [][]float64 {
	return state.Matrix(e.DescribeAll(recs))
}

// BrandPopularity scores each brand by its share of rows, scaled so the most
// frequent brand scores 100
func BrandPopularity(brands []string) map[string]float64 {
	counts := make(map[string]int)
	top := 0
	for _, b := range brands {
		counts[b]++
		if counts[b] > top {
			top = counts[b]
		}
	}
	pop := make(map[string]float64, len(counts))
	for b, c := range counts {
		pop[b] = float64(c) / float64(top) * 100
	}
	return pop
}

// FeatureState is the encoder and popularity table fitted at training time.
// It is read-only once built.
type FeatureState struct {
	Encoder    *CategoryEncoder
	Popularity map[string]float64
}

// Vector lays out one feature row in domain.FeatureColumns order.
// Unseen brands encode as unknown; NaN and infinite values become 0.
func (s FeatureState) Vector(f domain.ProductFeatures) []float64 {
	brand := f.Brand
	if !s.Encoder.Known(brand) {
		brand = domain.UnknownBrand
	}
	popularity, ok := s.Popularity[f.Brand]
	if !ok {
		popularity = defaultBrandPopularity
	}

	row := []float64{
		float64(s.Encoder.Encode(brand)),
		f.DisplaySize,
		f.RAM,
		f.Storage,
		f.Camera,
		f.Battery,
		float64(f.PriceRange),
		f.ProcessorScore,
		f.Rating,
		f.ReviewsLog,
		popularity,
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
	return row
}

// Matrix lays out every row of a feature table
func (s FeatureState) Matrix(rows []domain.ProductFeatures) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.Vector(r)
	}
	return out
}
