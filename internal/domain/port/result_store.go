package port

import (
	"context"

	"polybot/internal/domain/entity"
)

// ResultStore интерфейс хранилища итогов детекции
type ResultStore interface {
	// Insert сохраняет итог и возвращает идентификатор записи
	Insert(ctx context.Context, summary *entity.PredictionSummary) (string, error)

	// FindByID возвращает итог по prediction_id или entity.ErrNotFound
	FindByID(ctx context.Context, predictionID string) (*entity.PredictionSummary, error)
}
