package storage

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// CachedResultStore кэширует чтение итогов поверх другого хранилища.
// Итоги после сохранения не меняются, поэтому кэш не нужно инвалидировать.
type CachedResultStore struct {
	next  port.ResultStore
	cache *cache.Cache
}

// NewCachedResultStore оборачивает next кэшем с временем жизни ttl
func NewCachedResultStore(next port.ResultStore, ttl time.Duration) *CachedResultStore {
	return &CachedResultStore{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// Insert сохраняет итог и кладёт его в кэш
func (s *CachedResultStore) Insert(ctx context.Context, summary *entity.PredictionSummary) (string, error) {
	id, err := s.next.Insert(ctx, summary)
	if err != nil {
		return "", err
	}
	s.cache.Set(summary.PredictionID, cloneSummary(summary), cache.DefaultExpiration)
	return id, nil
}

// FindByID возвращает итог из кэша или из нижележащего хранилища
func (s *CachedResultStore) FindByID(ctx context.Context, predictionID string) (*entity.PredictionSummary, error) {
	if cached, found := s.cache.Get(predictionID); found {
		stored := cached.(entity.PredictionSummary)
		summary := cloneSummary(&stored)
		return &summary, nil
	}

	summary, err := s.next.FindByID(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(predictionID, cloneSummary(summary), cache.DefaultExpiration)
	return summary, nil
}

var _ port.ResultStore = (*CachedResultStore)(nil)
