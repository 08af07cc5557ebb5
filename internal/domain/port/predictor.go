package port

import (
	"context"

	"polybot/internal/domain/entity"
)

// Predictor интерфейс сервиса распознавания, которым пользуется бот
type Predictor interface {
	// Predict запускает детекцию изображения, сохранённого под ключом imageKey
	Predict(ctx context.Context, imageKey string) (*entity.PredictionSummary, error)
}
