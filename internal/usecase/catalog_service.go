package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/observability"
)

const (
	catalogCacheKey        = "catalog:products"
	recommendationBand     = 0.2
	defaultRecommendations = 5
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL time.Duration
}

// CatalogService reads the product catalog through a cache and derives catalog views
type CatalogService struct {
	repo     domain.ProductRepository
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(
	repo domain.ProductRepository,
	cache domain.CacheRepository,
	config CatalogServiceConfig,
	logger zerolog.Logger,
) *CatalogService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &CatalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Products returns the full catalog.
// Flow: check cache -> list from repository -> cache -> return
func (s *CatalogService) Products(ctx context.Context) ([]domain.ProductRecord, error) {
	if cached, err := s.getFromCache(ctx); err == nil {
		observability.RecordCatalogCache(true)
		return cached, nil
	}
	observability.RecordCatalogCache(false)

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRepositoryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
	}

	if err := s.setInCache(ctx, products); err != nil {
		// caching is best effort
		s.logger.Warn().Err(err).Msg("failed to cache catalog")
	}
	return products, nil
}

// Refresh drops the cached catalog and reads it again from the repository
func (s *CatalogService) Refresh(ctx context.Context) ([]domain.ProductRecord, error) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
		}
	}
	return s.Products(ctx)
}

// Product returns one product by ID
func (s *CatalogService) Product(ctx context.Context, id string) (*domain.ProductRecord, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

// Brands returns the distinct brands of the catalog in sorted order
func (s *CatalogService) Brands(ctx context.Context) ([]string, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	brands := make([]string, 0)
	for _, p := range products {
		if !seen[p.Brand] {
			seen[p.Brand] = true
			brands = append(brands, p.Brand)
		}
	}
	sort.Strings(brands)
	return brands, nil
}

// ByPriceRange returns products priced within [lo, hi], cheapest first
func (s *CatalogService) ByPriceRange(ctx context.Context, lo, hi float64) ([]domain.ProductRecord, error) {
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("%w: price range %v-%v", domain.ErrInvalidRequest, lo, hi)
	}
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductRecord, 0)
	for _, p := range products {
		if p.Price >= lo && p.Price <= hi {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// Statistics summarizes the catalog: counts, average price and the price bucket
// and brand distributions. Unpriced products are left out of price figures.
func (s *CatalogService) Statistics(ctx context.Context) (*domain.CatalogStatistics, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return CatalogStats(products), nil
}

// CatalogStats computes catalog statistics over products
func CatalogStats(products []domain.ProductRecord) *domain.CatalogStatistics {
	stats := &domain.CatalogStatistics{
		TotalProducts:     len(products),
		PriceRanges:       make([]domain.CountByLabel, 0),
		BrandDistribution: make([]domain.CountByLabel, 0),
	}

	brandCounts := make(map[string]int)
	bucketCounts := make(map[int]int)
	var priceSum float64
	priced := 0
	for _, p := range products {
		brandCounts[p.Brand]++
		if p.Price > 0 {
			priceSum += p.Price
			priced++
			bucketCounts[PriceRange(p.Price)]++
		}
	}
	stats.TotalBrands = len(brandCounts)
	if priced > 0 {
		stats.AveragePrice = priceSum / float64(priced)
	}

	for bucket := domain.PriceRangeBudget; bucket <= domain.PriceRangeFlagship; bucket++ {
		if n := bucketCounts[bucket]; n > 0 {
			stats.PriceRanges = append(stats.PriceRanges, domain.CountByLabel{Label: domain.PriceRangeLabel(bucket), Count: n})
		}
	}
	for brand, n := range brandCounts {
		stats.BrandDistribution = append(stats.BrandDistribution, domain.CountByLabel{Label: brand, Count: n})
	}
	sort.Slice(stats.BrandDistribution, func(i, j int) bool {
		a, b := stats.BrandDistribution[i], stats.BrandDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	return stats
}

// Compare returns the requested products, most expensive first, with price and rating insights
func (s *CatalogService) Compare(ctx context.Context, ids []string) (*domain.Comparison, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: at least 2 product IDs are required", domain.ErrInvalidRequest)
	}
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	found := make([]domain.ProductRecord, 0, len(ids))
	for _, p := range products {
		if wanted[p.ID] {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return CompareProducts(found), nil
}

// CompareProducts orders products by price descending and picks the extremes.
// The first product wins ties.
func CompareProducts(products []domain.ProductRecord) *domain.Comparison {
	sorted := append([]domain.ProductRecord(nil), products...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })

	c := &domain.Comparison{
		Products:      sorted,
		Cheapest:      sorted[0],
		MostExpensive: sorted[0],
		HighestRated:  sorted[0],
		LowestRated:   sorted[0],
	}
	for _, p := range sorted[1:] {
		if p.Price < c.Cheapest.Price {
			c.Cheapest = p
		}
		if p.Price > c.MostExpensive.Price {
			c.MostExpensive = p
		}
		if p.Rating > c.HighestRated.Rating {
			c.HighestRated = p
		}
		if p.Rating < c.LowestRated.Rating {
			c.LowestRated = p
		}
	}
	return c
}

// Recommendations returns up to limit products priced within 20% of the base product,
// same brand first and then by closeness in price
func (s *CatalogService) Recommendations(ctx context.Context, id string, limit int) (*domain.Recommendations, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	var base *domain.ProductRecord
	for i := range products {
		if products[i].ID == id {
			base = &products[i]
			break
		}
	}
	if base == nil {
		return nil, domain.ErrProductNotFound
	}
	return &domain.Recommendations{
		BaseProduct:     *base,
		Recommendations: Recommend(*base, products, limit),
	}, nil
}

// Recommend ranks the candidates similar in price to base
func Recommend(base domain.ProductRecord, candidates []domain.ProductRecord, limit int) []domain.ProductRecord {
	if limit <= 0 {
		limit = defaultRecommendations
	}
	upperRef := base.Price
	if upperRef <= 0 {
		upperRef = 1000
	}
	lo, hi := base.Price*(1-recommendationBand), upperRef*(1+recommendationBand)

	out := make([]domain.ProductRecord, 0)
	for _, p := range candidates {
		if p.ID == base.ID || p.Price < lo || p.Price > hi {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Brand == base.Brand, out[j].Brand == base.Brand
		if si != sj {
			return si
		}
		return math.Abs(out[i].Price-base.Price) < math.Abs(out[j].Price-base.Price)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// getFromCache retrieves the catalog from cache
func (s *CatalogService) getFromCache(ctx context.Context) ([]domain.ProductRecord, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, catalogCacheKey)
	if err != nil {
		return nil, err
	}
	var products []domain.ProductRecord
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, errors.Join(domain.ErrCacheMiss, err)
	}
	return products, nil
}

// setInCache stores the catalog in cache
func (s *CatalogService) setInCache(ctx context.Context, products []domain.ProductRecord) error {
	if s.cache == nil {
		return nil
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, catalogCacheKey, raw, s.cacheTTL)
}
