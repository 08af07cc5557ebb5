//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// GoCVEngine выполняет YOLOv5 (ONNX) через OpenCV DNN внутри процесса.
type GoCVEngine struct {
	ConfThreshold float32
	IoUThreshold  float64
	InputSize     int

	names entity.ClassNames
	net   gocv.Net
	mu    sync.Mutex // gocv.Net не потокобезопасен
}

// NewGoCVEngine загружает ONNX-модель.
func NewGoCVEngine(weightsPath string, names entity.ClassNames) (*GoCVEngine, error) {
	if _, err := os.Stat(weightsPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(weightsPath)
	if net.Empty() {
		return nil, errors.New("failed to load network")
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &GoCVEngine{
		ConfThreshold: 0.25,
		IoUThreshold:  0.45,
		InputSize:     640,
		names:         names,
		net:           net,
	}, nil
}

// Detect распознаёт объекты, пишет размеченное изображение и файл меток.
func (e *GoCVEngine) Detect(ctx context.Context, req entity.DetectionRequest) error {
	mat := gocv.IMRead(req.SourcePath, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("failed to read image %s", req.SourcePath)
	}
	defer mat.Close()

	dets, err := e.infer(mat)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fileName := filepath.Base(req.SourcePath)
	if err := os.MkdirAll(filepath.Join(req.OutputDir, "labels"), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	e.annotate(&mat, dets)
	if ok := gocv.IMWrite(entity.PredictedImagePath(req.OutputDir, fileName), mat); !ok {
		return errors.New("failed to write predicted image")
	}

	labels := FormatLabelLines(dets, mat.Cols(), mat.Rows())
	if err := os.WriteFile(entity.LabelFilePath(req.OutputDir, fileName), []byte(labels), 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	return nil
}

func (e *GoCVEngine) infer(mat gocv.Mat) ([]Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(e.InputSize, e.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.mu.Lock()
	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	e.mu.Unlock()
	defer out.Close()

	sizes := out.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	dets, err := DecodeYOLOv5(data, sizes[2], e.InputSize, mat.Cols(), mat.Rows(), e.ConfThreshold)
	if err != nil {
		return nil, err
	}
	return NonMaxSuppression(dets, e.IoUThreshold), nil
}

// annotate рисует рамки и подписи классов.
func (e *GoCVEngine) annotate(mat *gocv.Mat, dets []Detection) {
	green := color.RGBA{G: 255, A: 255}
	for _, d := range dets {
		gocv.Rectangle(mat, d.Box, green, 2)

		name, ok := e.names.Name(d.ClassID)
		if !ok {
			name = fmt.Sprintf("class %d", d.ClassID)
		}
		label := fmt.Sprintf("%s %.2f", name, d.Confidence)
		gocv.PutText(mat, label, image.Pt(d.Box.Min.X, d.Box.Min.Y-5), gocv.FontHersheySimplex, 0.5, green, 1)
	}
}

// Close освобождает сеть.
func (e *GoCVEngine) Close() error {
	return e.net.Close()
}

var _ port.DetectionEngine = (*GoCVEngine)(nil)
