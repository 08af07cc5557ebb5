package port

import (
	"context"

	"polybot/internal/domain/entity"
)

// DetectionEngine интерфейс детектора объектов.
// Detect пишет в req.OutputDir размеченное изображение (с тем же именем файла)
// и файл меток labels/<имя без расширения>.txt.
type DetectionEngine interface {
	Detect(ctx context.Context, req entity.DetectionRequest) error
}
