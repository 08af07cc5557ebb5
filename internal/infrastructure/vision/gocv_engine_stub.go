//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"polybot/internal/domain/entity"
)

// ErrGoCVDisabled возвращается в сборке без тега gocv.
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// GoCVEngine без OpenCV: любой вызов возвращает ErrGoCVDisabled.
type GoCVEngine struct{}

// NewGoCVEngine возвращает ошибку, если сборка без тега gocv.
func NewGoCVEngine(weightsPath string, names entity.ClassNames) (*GoCVEngine, error) {
	_ = weightsPath
	_ = names
	return nil, ErrGoCVDisabled
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (e *GoCVEngine) Detect(ctx context.Context, req entity.DetectionRequest) error {
	_ = ctx
	_ = req
	return ErrGoCVDisabled
}

// Close ничего не делает.
func (e *GoCVEngine) Close() error {
	return nil
}
