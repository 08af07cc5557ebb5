package entity

import "time"

// Label описывает один обнаруженный объект. Координаты нормированы к размерам изображения.
type Label struct {
	Class   string  `json:"class"`
	CenterX float64 `json:"cx"`
	CenterY float64 `json:"cy"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// ImageRef ссылается на изображение: ключ в хранилище и локальный путь.
// Key пустой, если изображение не удалось сохранить в хранилище.
type ImageRef struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// PredictionSummary хранит итог одного запуска детекции.
type PredictionSummary struct {
	PredictionID   string    `json:"prediction_id"`
	OriginalImage  ImageRef  `json:"original_img"`
	PredictedImage ImageRef  `json:"predicted_img"`
	Labels         []Label   `json:"labels"`
	CreatedAt      time.Time `json:"time"`
}

// Archived сообщает, сохранено ли размеченное изображение в хранилище.
func (p *PredictionSummary) Archived() bool {
	return p.PredictedImage.Key != ""
}

// DetectionRequest описывает один вызов детектора.
type DetectionRequest struct {
	SourcePath string // локальный путь к исходному изображению
	OutputDir  string // каталог результатов, уникальный для prediction_id
}
