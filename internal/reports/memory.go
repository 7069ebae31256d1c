package reports

import (
	"context"
	"sync"

	"github.com/selivandex/market-reporter/pkg/models"
)

// MemoryRepository keeps everything in process memory
type MemoryRepository struct {
	mu      sync.Mutex
	charts  []models.ChartAnalysis
	news    []models.NewsAnalysis
	reports []models.MainReport
}

// NewMemoryRepository creates empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) SaveChartAnalysis(ctx context.Context, a *models.ChartAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.charts) + 1)
	m.charts = append(m.charts, *a)
	return nil
}

func (m *MemoryRepository) SaveNewsAnalysis(ctx context.Context, a *models.NewsAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.news) + 1)
	m.news = append(m.news, *a)
	return nil
}

func (m *MemoryRepository) SaveMainReport(ctx context.Context, r *models.MainReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.reports) + 1)
	m.reports = append(m.reports, *r)
	return nil
}

func (m *MemoryRepository) LatestMainReport(ctx context.Context) (*models.MainReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return nil, nil
	}
	r := m.reports[len(m.reports)-1]
	return &r, nil
}

func (m *MemoryRepository) GetMainReport(ctx context.Context, id int64) (*models.MainReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > int64(len(m.reports)) {
		return nil, nil
	}
	r := m.reports[id-1]
	return &r, nil
}

// Counts returns the number of stored chart analyses, news analyses and reports
func (m *MemoryRepository) Counts() (charts, news, reports int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.charts), len(m.news), len(m.reports)
}
