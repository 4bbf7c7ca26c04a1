// Package catalog loads a product catalog from a YAML file for local runs and the CLI.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/techcompare/specmatch/internal/domain"
)

// document is the on-disk layout of a catalog file
type document struct {
	Products []domain.ProductRecord `yaml:"products"`
}

// FileRepository serves a catalog read from a YAML file.
// The file is re-read on every ListProducts call so edits are picked up by retraining.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a repository over path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// ListProducts reads and validates the catalog file
func (r *FileRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", r.path, err)
	}
	return Decode(raw)
}

// Decode parses catalog YAML. Brands are lowercased and records without an ID
// get a positional one.
func Decode(raw []byte) ([]domain.ProductRecord, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Products))
	for i := range doc.Products {
		p := &doc.Products[i]
		p.Brand = strings.ToLower(strings.TrimSpace(p.Brand))
		if p.ID == "" {
			p.ID = fmt.Sprintf("%d", i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("decode catalog: duplicate product id %q", p.ID)
		}
		seen[p.ID] = true
	}
	if doc.Products == nil {
		doc.Products = make([]domain.ProductRecord, 0)
	}
	return doc.Products, nil
}

// Encode renders products in the catalog file layout
func Encode(products []domain.ProductRecord) ([]byte, error) {
	return yaml.Marshal(document{Products: products})
}
