package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/techcompare/specmatch/internal/domain"
)

// Similarity weights. The text weight is always added on top of whichever field
// weights apply, so the field weights alone need not sum to 1.
const (
	brandWeight = 0.25
	textWeight  = 0.10

	// MinSimilarity is the score a product must exceed to be returned
	MinSimilarity = 0.1

	// matchTolerance is the relative difference under which a field counts as matched
	matchTolerance = 0.2
)

// numericField binds a parsed attribute to the product value it is compared with
type numericField struct {
	attr   domain.Attribute
	weight float64
	value  func(domain.ProductFeatures) float64
}

var scoredFields = []numericField{
	{domain.AttrRAM, 0.20, func(f domain.ProductFeatures) float64 { return f.RAM }},
	{domain.AttrStorage, 0.15, func(f domain.ProductFeatures) float64 { return f.Storage }},
	{domain.AttrCamera, 0.15, func(f domain.ProductFeatures) float64 { return f.Camera }},
	{domain.AttrBattery, 0.10, func(f domain.ProductFeatures) float64 { return f.Battery }},
	{domain.AttrDisplaySize, 0.10, func(f domain.ProductFeatures) float64 { return f.DisplaySize }},
	{domain.AttrPrice, 0.05, func(f domain.ProductFeatures) float64 { return f.Price }},
}

// SimilarityRanker scores catalog products against a specification query
type SimilarityRanker struct {
	parser   *SpecParser
	engineer *FeatureEngineer
}

// NewSimilarityRanker creates a ranker with its own parser and feature engineer
func NewSimilarityRanker() *SimilarityRanker {
	return &SimilarityRanker{
		parser:   NewSpecParser(),
		engineer: NewFeatureEngineer(),
	}
}

// Rank parses query and returns the catalog products scoring above MinSimilarity,
// best first, at most topK of them (all when topK <= 0). Equal scores keep catalog order.
func (r *SimilarityRanker) Rank(query string, catalog []domain.ProductRecord, topK int) []domain.MatchResult {
	return r.RankParsed(query, r.parser.Parse(query), catalog, topK)
}

// RankParsed ranks against an already parsed query
func (r *SimilarityRanker) RankParsed(query string, spec domain.ParsedSpecification, catalog []domain.ProductRecord, topK int) []domain.MatchResult {
	matches := make([]domain.MatchResult, 0)
	for _, p := range catalog {
		f := r.engineer.Describe(p)
		score := Similarity(spec, query, p, f)
		if score <= MinSimilarity {
			continue
		}
		matches = append(matches, domain.MatchResult{
			Product:         p,
			SimilarityScore: score,
			MatchedFeatures: MatchedFeatures(spec, f),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Similarity is the weighted, normalized similarity of one product to a parsed query.
// Fields the query did not mention, or where either value is zero, are left out of
// the normalization. The result is in [0, 1].
func Similarity(spec domain.ParsedSpecification, query string, p domain.ProductRecord, f domain.ProductFeatures) float64 {
	var similarity, totalWeight float64

	if spec.HasBrand() {
		if strings.EqualFold(f.Brand, spec.Brand) {
			similarity += brandWeight
		}
		totalWeight += brandWeight
	}

	for _, field := range scoredFields {
		want, ok := spec.Get(field.attr)
		if !ok {
			continue
		}
		have := field.value(f)
		if have > 0 && want > 0 {
			similarity += field.weight * relativeSimilarity(have, want)
			totalWeight += field.weight
		}
	}

	similarity += textWeight * TextSimilarity(query, Description(p))
	totalWeight += textWeight

	if totalWeight <= 0 {
		return 0
	}
	return similarity / totalWeight
}

func relativeSimilarity(a, b float64) float64 {
	return math.Max(0, 1-math.Abs(a-b)/math.Max(a, b))
}

// MatchedFeatures lists the query attributes the product satisfies: brand on exact
// equality and numeric fields within 20%. Price is never listed.
func MatchedFeatures(spec domain.ParsedSpecification, f domain.ProductFeatures) []string {
	matched := make([]string, 0, 6)
	if spec.Brand != "" && strings.EqualFold(f.Brand, spec.Brand) {
		matched = append(matched, string(domain.AttrBrand))
	}
	for _, field := range scoredFields {
		if field.attr == domain.AttrPrice {
			continue
		}
		want, ok := spec.Get(field.attr)
		if !ok {
			continue
		}
		have := field.value(f)
		if have > 0 && math.Abs(have-want)/math.Max(have, want) <= matchTolerance {
			matched = append(matched, string(field.attr))
		}
	}
	return matched
}

// Description renders the text a product is compared against:
// "brand model with display ram storage camera battery"
func Description(p domain.ProductRecord) string {
	return fmt.Sprintf("%s %s with %s %s %s %s %s",
		p.Brand, p.Name, p.DisplaySize, p.RAM, p.Storage, p.Camera, p.Battery)
}

// TextSimilarity is the case-insensitive character-level matching ratio of a and b
func TextSimilarity(a, b string) float64 {
	sa, sb := chars(strings.ToLower(a)), chars(strings.ToLower(b))
	if len(sa)+len(sb) == 0 {
		return 1
	}
	return difflib.NewMatcher(sa, sb).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
