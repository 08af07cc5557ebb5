package storage

import (
	"context"
	"sync"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// MemoryResultStore in-memory хранилище итогов детекции
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]entity.PredictionSummary
}

// NewMemoryResultStore создаёт новое in-memory хранилище
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[string]entity.PredictionSummary),
	}
}

// Insert сохраняет копию итога под его prediction_id
func (r *MemoryResultStore) Insert(ctx context.Context, summary *entity.PredictionSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.results[summary.PredictionID] = cloneSummary(summary)
	r.mu.Unlock()

	return summary.PredictionID, nil
}

// FindByID возвращает копию итога по prediction_id
func (r *MemoryResultStore) FindByID(ctx context.Context, predictionID string) (*entity.PredictionSummary, error) {
	r.mu.RLock()
	summary, exists := r.results[predictionID]
	r.mu.RUnlock()

	if !exists {
		return nil, entity.ErrNotFound
	}

	copied := cloneSummary(&summary)
	return &copied, nil
}

// Len возвращает количество сохранённых итогов
func (r *MemoryResultStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.results)
}

func cloneSummary(s *entity.PredictionSummary) entity.PredictionSummary {
	copied := *s
	copied.Labels = append(make([]entity.Label, 0, len(s.Labels)), s.Labels...)
	return copied
}

var _ port.ResultStore = (*MemoryResultStore)(nil)
