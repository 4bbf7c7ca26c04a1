package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcompare/specmatch/internal/domain"
)

func smallCatalog() []domain.ProductRecord {
	return []domain.ProductRecord{
		{ID: "a", Brand: "apple", Name: "iPhone 15 Pro Max", Price: 1200, Rating: 4.8},
		{ID: "b", Brand: "samsung", Name: "Galaxy S24 Ultra", Price: 1000, Rating: 4.5},
		{ID: "c", Brand: "samsung", Name: "Galaxy S24+", Price: 950, Rating: 4.2},
		{ID: "d", Brand: "google", Name: "Pixel 8", Price: 650, Rating: 4.6},
		{ID: "e", Brand: "apple", Name: "iPhone 15 Pro", Price: 1100, Rating: 4.0},
		{ID: "f", Brand: "xiaomi", Name: "Redmi Note 13", Price: 250, Rating: 3.9},
		{ID: "g", Brand: "nokia", Name: "G42"},
	}
}

func newTestCatalogService(repo domain.ProductRepository, cache domain.CacheRepository) *CatalogService {
	return NewCatalogService(repo, cache, CatalogServiceConfig{}, testLogger())
}

func TestCatalogServiceProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("cache miss reads repository then caches", func(t *testing.T) {
		repo := NewMockProductRepository(smallCatalog())
		cache := NewMockCacheRepository()
		s := newTestCatalogService(repo, cache)

		got, err := s.Products(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 7)
		assert.Equal(t, 1, repo.calls)
		assert.True(t, cache.setCalled)

		got, err = s.Products(ctx)
		require.NoError(t, err)
		assert.Equal(t, smallCatalog(), got)
		assert.Equal(t, 1, repo.calls, "second read should come from cache")
	})

	t.Run("refresh bypasses the cache", func(t *testing.T) {
		repo := NewMockProductRepository(smallCatalog())
		s := newTestCatalogService(repo, NewMockCacheRepository())
		_, _ = s.Products(ctx)
		_, err := s.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, repo.calls)
	})

	t.Run("cache failures fall through to the repository", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = errors.New("redis down")
		cache.setError = errors.New("redis down")
		s := newTestCatalogService(NewMockProductRepository(smallCatalog()), cache)
		got, err := s.Products(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 7)
	})

	t.Run("corrupt cache entry is ignored", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.data[catalogCacheKey] = []byte("not json")
		repo := NewMockProductRepository(smallCatalog())
		got, err := newTestCatalogService(repo, cache).Products(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 7)
		assert.Equal(t, 1, repo.calls)
	})

	t.Run("works without a cache", func(t *testing.T) {
		got, err := newTestCatalogService(NewMockProductRepository(smallCatalog()), nil).Products(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 7)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := NewMockProductRepository(nil)
		repo.err = errors.New("timeout")
		_, err := newTestCatalogService(repo, nil).Products(ctx)
		assert.ErrorIs(t, err, domain.ErrRepositoryUnavailable)
	})
}

func TestCatalogServiceLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestCatalogService(NewMockProductRepository(smallCatalog()), NewMockCacheRepository())

	t.Run("product by id", func(t *testing.T) {
		p, err := s.Product(ctx, "d")
		require.NoError(t, err)
		assert.Equal(t, "Pixel 8", p.Name)

		_, err = s.Product(ctx, "zz")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("brands are distinct and sorted", func(t *testing.T) {
		brands, err := s.Brands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"apple", "google", "nokia", "samsung", "xiaomi"}, brands)
	})

	t.Run("price range is inclusive and cheapest first", func(t *testing.T) {
		got, err := s.ByPriceRange(ctx, 950, 1100)
		require.NoError(t, err)
		ids := make([]string, len(got))
		for i, p := range got {
			ids[i] = p.ID
		}
		assert.Equal(t, []string{"c", "b", "e"}, ids)

		_, err = s.ByPriceRange(ctx, 500, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestCatalogStats(t *testing.T) {
	stats := CatalogStats(smallCatalog())

	assert.Equal(t, 7, stats.TotalProducts)
	assert.Equal(t, 5, stats.TotalBrands)
	assert.InDelta(t, 5150.0/6, stats.AveragePrice, 1e-9)
	assert.Equal(t, []domain.CountByLabel{
		{Label: "Budget (<$300)", Count: 1},
		{Label: "Mid-range ($300-700)", Count: 1},
		{Label: "Premium ($700-1000)", Count: 1},
		{Label: "Flagship (>$1000)", Count: 3},
	}, stats.PriceRanges)
	assert.Equal(t, []domain.CountByLabel{
		{Label: "apple", Count: 2},
		{Label: "samsung", Count: 2},
		{Label: "google", Count: 1},
		{Label: "nokia", Count: 1},
		{Label: "xiaomi", Count: 1},
	}, stats.BrandDistribution)

	empty := CatalogStats(nil)
	assert.Equal(t, 0, empty.TotalProducts)
	assert.Equal(t, 0.0, empty.AveragePrice)
	assert.NotNil(t, empty.PriceRanges)
}

func TestCatalogServiceCompare(t *testing.T) {
	ctx := context.Background()
	s := newTestCatalogService(NewMockProductRepository(smallCatalog()), nil)

	t.Run("orders by price and picks extremes", func(t *testing.T) {
		c, err := s.Compare(ctx, []string{"f", "a", "d"})
		require.NoError(t, err)
		require.Len(t, c.Products, 3)
		assert.Equal(t, "a", c.Products[0].ID)
		assert.Equal(t, "f", c.Products[2].ID)
		assert.Equal(t, "f", c.Cheapest.ID)
		assert.Equal(t, "a", c.MostExpensive.ID)
		assert.Equal(t, "a", c.HighestRated.ID)
		assert.Equal(t, "f", c.LowestRated.ID)
	})

	t.Run("unknown ids are dropped", func(t *testing.T) {
		c, err := s.Compare(ctx, []string{"a", "zz"})
		require.NoError(t, err)
		assert.Len(t, c.Products, 1)
	})

	t.Run("needs two ids", func(t *testing.T) {
		_, err := s.Compare(ctx, []string{"a"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("none found", func(t *testing.T) {
		_, err := s.Compare(ctx, []string{"x", "y"})
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestCatalogServiceRecommendations(t *testing.T) {
	ctx := context.Background()
	s := newTestCatalogService(NewMockProductRepository(smallCatalog()), nil)
	ids := func(ps []domain.ProductRecord) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	t.Run("same brand first then closest price", func(t *testing.T) {
		r, err := s.Recommendations(ctx, "b", 0)
		require.NoError(t, err)
		assert.Equal(t, "b", r.BaseProduct.ID)
		assert.Equal(t, []string{"c", "e", "a"}, ids(r.Recommendations))
	})

	t.Run("limit applies", func(t *testing.T) {
		r, err := s.Recommendations(ctx, "b", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "e"}, ids(r.Recommendations))
	})

	t.Run("unpriced base uses a fixed upper reference", func(t *testing.T) {
		r, err := s.Recommendations(ctx, "g", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"f", "d", "c", "b", "e"}, ids(r.Recommendations))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := s.Recommendations(ctx, "zz", 5)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}
