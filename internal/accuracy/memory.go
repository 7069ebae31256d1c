package accuracy

import (
	"context"
	"fmt"
	"sync"

	"github.com/selivandex/market-reporter/pkg/models"
)

// MemoryRepository keeps records in process memory
type MemoryRepository struct {
	mu   sync.Mutex
	rows []models.AccuracyRecord
}

// NewMemoryRepository creates empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(ctx context.Context, rec *models.AccuracyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *rec)
	return nil
}

func (m *MemoryRepository) UpdateAverage(ctx context.Context, id int64, average float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > int64(len(m.rows)) {
		return fmt.Errorf("accuracy %d not found", id)
	}
	m.rows[id-1].AverageAccuracy = average
	return nil
}

func (m *MemoryRepository) MeanAccuracy(ctx context.Context) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return 0, 0, nil
	}
	var sum float64
	for _, r := range m.rows {
		sum += r.Accuracy
	}
	return sum / float64(len(m.rows)), len(m.rows), nil
}

func (m *MemoryRepository) Latest(ctx context.Context) (*models.AccuracyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	r := m.rows[len(m.rows)-1]
	return &r, nil
}

// All returns a copy of all records in insertion order
func (m *MemoryRepository) All() []models.AccuracyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AccuracyRecord(nil), m.rows...)
}
