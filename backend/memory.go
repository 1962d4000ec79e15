package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pozitronik/viscrapper/internal/types"
)

// MemoryStore keeps records in memory. It backs the bundled API server
// and stands in for the real backend in tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.ProductVariant
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]types.ProductVariant),
	}
}

// FindBySKU returns the stored record for a SKU, or ErrRecordNotFound.
func (m *MemoryStore) FindBySKU(ctx context.Context, sku string) (*types.ProductVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	variant, ok := m.records[sku]
	if !ok {
		return nil, ErrRecordNotFound
	}

	return &variant, nil
}

// Submit stores a record keyed by SKU, replacing any previous version.
func (m *MemoryStore) Submit(ctx context.Context, variant types.ProductVariant) error {
	if strings.TrimSpace(variant.SKU) == "" {
		return fmt.Errorf("record has no sku")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[variant.SKU] = variant
	return nil
}

// All returns every stored record ordered by SKU.
func (m *MemoryStore) All() []types.ProductVariant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	variants := make([]types.ProductVariant, 0, len(m.records))
	for _, variant := range m.records {
		variants = append(variants, variant)
	}

	sort.Slice(variants, func(i, j int) bool {
		return variants[i].SKU < variants[j].SKU
	})

	return variants
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}
