package price

import (
	"context"
	"sync"

	"github.com/selivandex/market-reporter/pkg/models"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu     sync.Mutex
	rows   []models.PriceObservation
	nextID int64
}

// NewMemoryStore creates empty in-memory price store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, obs *models.PriceObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	obs.ID = m.nextID
	m.rows = append(m.rows, *obs)
	return nil
}

func (m *MemoryStore) LatestTwo(ctx context.Context) ([]models.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PriceObservation, 0, 2)
	for i := len(m.rows) - 1; i >= 0 && len(out) < 2; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

// Len returns number of stored observations
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
