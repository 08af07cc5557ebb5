package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: общий признак «не найдено» для хранилищ и сервиса.
	ErrNotFound = errors.New("not found")

	// ErrImageNotFound: исходного изображения нет в хранилище.
	ErrImageNotFound = fmt.Errorf("image %w", ErrNotFound)

	// ErrNoDetectionOutput: детектор отработал, но не оставил файл с метками.
	ErrNoDetectionOutput = fmt.Errorf("prediction result %w", ErrNotFound)

	ErrInvalidImageKey = errors.New("invalid image key")
	ErrDetectionFailed = errors.New("detection failed")
	ErrMalformedLabels = errors.New("malformed label file")
)

// Этапы обработки запроса.
const (
	StageFetch   = "fetch"
	StageDetect  = "detect"
	StageArchive = "archive"
	StageLabels  = "labels"
	StagePersist = "persist"
)

// StageError описывает фатальную ошибку одного этапа конвейера.
type StageError struct {
	Stage        string
	PredictionID string
	Err          error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("prediction %s: %s: %v", e.PredictionID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
