package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/internal/domain"
)

// MockProductRepository is an in-memory domain.ProductRepository
type MockProductRepository struct {
	mu       sync.Mutex
	products []domain.ProductRecord
	err      error
	calls    int
}

func NewMockProductRepository(products []domain.ProductRecord) *MockProductRepository {
	return &MockProductRepository{products: products}
}

func (m *MockProductRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.ProductRecord(nil), m.products...), nil
}

// MockCacheRepository is a map-backed domain.CacheRepository
type MockCacheRepository struct {
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockPredictionSink records saved summaries in memory
type MockPredictionSink struct {
	mu      sync.Mutex
	saved   []domain.StoredPrediction
	saveErr error
}

func (m *MockPredictionSink) SavePrediction(ctx context.Context, userID string, summary domain.PredictionSummary) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	id := fmt.Sprintf("pred-%d", len(m.saved)+1)
	m.saved = append(m.saved, domain.StoredPrediction{ID: id, UserID: userID, Summary: summary, CreatedAt: time.Now()})
	return id, nil
}

func (m *MockPredictionSink) ListUserPredictions(ctx context.Context, userID string, limit int) ([]domain.StoredPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StoredPrediction, 0)
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].UserID == userID {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

// MockModelStore keeps the last saved snapshot
type MockModelStore struct {
	mu      sync.Mutex
	snap    *domain.ModelSnapshot
	saves   int
	loadErr error
}

func (m *MockModelStore) Save(ctx context.Context, snapshot *domain.ModelSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.snap = snapshot
	return nil
}

func (m *MockModelStore) Load(ctx context.Context) (*domain.ModelSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return m.snap, nil
}

var sampleBrands = []string{"apple", "samsung", "google", "oneplus", "xiaomi", "motorola"}

// sampleCatalog returns n deterministic phone records with prices that follow their specs
func sampleCatalog(n int) []domain.ProductRecord {
	rams := []int{4, 6, 8, 12, 16}
	storages := []int{64, 128, 256, 512}
	displays := []string{"6.1 inches", "6.4 inches", "6.7 inches"}
	cameras := []int{12, 48, 50, 108}
	batteries := []int{3000, 4000, 4500, 5000}
	processors := []string{"Snapdragon 8 Gen 3", "A17 Pro Bionic", "Dimensity 9200", "Exynos 2200", "Helio G99"}

	out := make([]domain.ProductRecord, n)
	for i := range out {
		brand := sampleBrands[i%len(sampleBrands)]
		ram := rams[i%len(rams)]
		storage := storages[(i/2)%len(storages)]
		camera := cameras[(i/3)%len(cameras)]
		battery := batteries[(i/5)%len(batteries)]
		price := 150 + float64(ram)*30 + float64(storage)*0.8 + float64(camera)*2
		if brand == "apple" {
			price += 250
		}
		out[i] = domain.ProductRecord{
			ID:          fmt.Sprintf("p%03d", i),
			Name:        fmt.Sprintf("Model %d", i),
			Brand:       brand,
			DisplaySize: displays[i%len(displays)],
			RAM:         fmt.Sprintf("%dGB", ram),
			Storage:     fmt.Sprintf("%dGB", storage),
			Camera:      fmt.Sprintf("%dMP", camera),
			Battery:     fmt.Sprintf("%dmAh", battery),
			Processor:   processors[i%len(processors)],
			Price:       price,
			Rating:      3.5 + float64(i%3)*0.5,
			Reviews:     10 * (i + 1),
		}
	}
	return out
}

// fastSelectorConfig trains the full roster on a small augmented set
func fastSelectorConfig() ModelSelectorConfig {
	return ModelSelectorConfig{
		MinTrainingSamples: 1200,
		MinValidSamples:    1000,
		TestSize:           0.2,
		CVFolds:            3,
		Seed:               42,
		Estimators:         5,
		Parallelism:        2,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
