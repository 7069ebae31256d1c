package weights

import (
	"context"
	"sync"

	"github.com/selivandex/market-reporter/pkg/models"
)

// MemoryRepository keeps snapshots in process memory
type MemoryRepository struct {
	mu   sync.Mutex
	sets []models.WeightSet
}

// NewMemoryRepository creates empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Latest(ctx context.Context) (*models.WeightSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sets) == 0 {
		return nil, nil
	}
	ws := clone(m.sets[len(m.sets)-1])
	return &ws, nil
}

func (m *MemoryRepository) Append(ctx context.Context, ws *models.WeightSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws.ID = int64(len(m.sets) + 1)
	m.sets = append(m.sets, clone(*ws))
	return nil
}

// Len returns number of stored snapshots
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}

func clone(ws models.WeightSet) models.WeightSet {
	w := make(models.Weights, len(ws.Weights))
	for k, v := range ws.Weights {
		w[k] = v
	}
	ws.Weights = w
	return ws
}
