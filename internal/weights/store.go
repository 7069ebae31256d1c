package weights

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

// Store applies adjustments on top of the latest snapshot
type Store struct {
	repo Repository
}

// NewStore creates weight store
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Latest returns the newest snapshot or nil when none exists
func (s *Store) Latest(ctx context.Context) (*models.WeightSet, error) {
	return s.repo.Latest(ctx)
}

// ApplyAdjustment appends previous + delta for all twelve weights.
// Missing previous values count as the default, missing deltas as zero.
// Values are neither clamped nor renormalised.
func (s *Store) ApplyAdjustment(ctx context.Context, deltas map[models.WeightName]float64, reasoning string) (*models.WeightSet, error) {
	prev, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}

	var base models.Weights
	if prev != nil {
		base = prev.Weights
	}

	next := make(models.Weights, len(models.WeightNames))
	for _, name := range models.WeightNames {
		next[name] = base.Get(name) + deltas[name]
	}

	ws := &models.WeightSet{
		Weights:   next,
		Reasoning: reasoning,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Append(ctx, ws); err != nil {
		return nil, err
	}

	logger.Info("weights adjusted",
		zap.Int64("weight_set_id", ws.ID),
		zap.Int("deltas", len(deltas)),
	)
	return ws, nil
}
