package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
	"polybot/internal/metrics"
)

// PredictionConfig задаёт каталоги и таймауты сервиса распознавания.
// Нулевой таймаут означает отсутствие ограничения.
type PredictionConfig struct {
	ScratchDir    string // локальные копии исходных изображений
	ProjectDir    string // результаты детектора
	StoreTimeout  time.Duration
	DetectTimeout time.Duration
	ResultTimeout time.Duration
}

// PredictionService проводит один запрос через хранилище, детектор и хранилище итогов.
type PredictionService struct {
	store   port.ObjectStore
	engine  port.DetectionEngine
	results port.ResultStore
	names   entity.ClassNames
	cfg     PredictionConfig

	fs      afero.Fs
	log     *slog.Logger
	metrics *metrics.PredictionMetrics
	newID   func() string
	now     func() time.Time
}

// PredictionOption настраивает PredictionService.
type PredictionOption func(*PredictionService)

// WithFs задаёт файловую систему для локальных копий и результатов детектора.
func WithFs(fs afero.Fs) PredictionOption {
	return func(s *PredictionService) { s.fs = fs }
}

// WithLogger задаёт логгер сервиса.
func WithLogger(log *slog.Logger) PredictionOption {
	return func(s *PredictionService) { s.log = log }
}

// WithMetrics задаёт метрики сервиса.
func WithMetrics(m *metrics.PredictionMetrics) PredictionOption {
	return func(s *PredictionService) { s.metrics = m }
}

// WithIDGenerator задаёт генератор prediction_id.
func WithIDGenerator(newID func() string) PredictionOption {
	return func(s *PredictionService) { s.newID = newID }
}

// WithClock задаёт источник времени для created_at.
func WithClock(now func() time.Time) PredictionOption {
	return func(s *PredictionService) { s.now = now }
}

// NewPredictionService создаёт сервис распознавания.
func NewPredictionService(
	store port.ObjectStore,
	engine port.DetectionEngine,
	results port.ResultStore,
	names entity.ClassNames,
	cfg PredictionConfig,
	opts ...PredictionOption,
) *PredictionService {
	s := &PredictionService{
		store:   store,
		engine:  engine,
		results: results,
		names:   names,
		cfg:     cfg,
		fs:      afero.NewOsFs(),
		log:     slog.Default(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict распознаёт объекты на изображении imageKey.
//
// Возвращает ошибку, для которой errors.Is(err, entity.ErrNotFound) истинно, если
// изображения нет в хранилище или детектор не оставил файл меток. Сбои архивирования
// размеченного изображения и сохранения итога не фатальны: они логируются,
// а итог всё равно возвращается.
func (s *PredictionService) Predict(ctx context.Context, imageKey string) (summary *entity.PredictionSummary, err error) {
	// prediction_id создаётся до любого обращения к внешним ресурсам.
	predictionID := s.newID()
	log := s.log.With("prediction_id", predictionID)
	started := time.Now()
	defer func() {
		s.metrics.ObservePrediction(outcomeOf(err), time.Since(started))
		if err != nil {
			log.Warn("prediction failed", "image_key", imageKey, "error", err)
		}
	}()

	log.Info("start processing", "image_key", imageKey)

	fileName := entity.ImageFileName(imageKey)
	if imageKey == "" || fileName == "." || fileName == ".." || fileName == "/" {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidImageKey, imageKey)
	}

	originalPath, err := s.stage(ctx, predictionID, imageKey, fileName)
	if err != nil {
		return nil, err
	}
	log.Info("download img completed", "path", originalPath)

	outputDir := entity.PredictionOutputDir(s.cfg.ProjectDir, predictionID)
	if err := s.detect(ctx, predictionID, entity.DetectionRequest{SourcePath: originalPath, OutputDir: outputDir}); err != nil {
		return nil, err
	}
	log.Info("detection done", "output_dir", outputDir)

	predicted := s.archive(ctx, log, predictionID, outputDir, fileName)

	labels, err := s.readLabels(predictionID, entity.LabelFilePath(outputDir, fileName))
	if err != nil {
		return nil, err
	}
	log.Info("prediction summary", "labels", len(labels))

	summary = &entity.PredictionSummary{
		PredictionID:   predictionID,
		OriginalImage:  entity.ImageRef{Key: imageKey, Path: originalPath},
		PredictedImage: predicted,
		Labels:         labels,
		CreatedAt:      s.now().UTC(),
	}

	s.persist(ctx, log, summary)
	return summary, nil
}

// stage копирует изображение из хранилища в локальный каталог запроса.
func (s *PredictionService) stage(ctx context.Context, predictionID, imageKey, fileName string) (string, error) {
	fetchCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	data, err := s.store.Get(fetchCtx, imageKey)
	if errors.Is(err, entity.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", entity.ErrImageNotFound, imageKey)
	}
	if err != nil {
		return "", &entity.StageError{Stage: entity.StageFetch, PredictionID: predictionID, Err: err}
	}

	localPath := entity.StagedImagePath(s.cfg.ScratchDir, predictionID, fileName)
	if err := s.fs.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", &entity.StageError{Stage: entity.StageFetch, PredictionID: predictionID, Err: err}
	}
	if err := afero.WriteFile(s.fs, localPath, data, 0o644); err != nil {
		return "", &entity.StageError{Stage: entity.StageFetch, PredictionID: predictionID, Err: err}
	}

	return localPath, nil
}

// detect вызывает детектор. Ошибка или паника детектора завершают только этот запрос.
func (s *PredictionService) detect(ctx context.Context, predictionID string, req entity.DetectionRequest) (err error) {
	detectCtx, cancel := withTimeout(ctx, s.cfg.DetectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &entity.StageError{
				Stage:        entity.StageDetect,
				PredictionID: predictionID,
				Err:          fmt.Errorf("%w: panic: %v", entity.ErrDetectionFailed, r),
			}
		}
	}()

	if err := s.engine.Detect(detectCtx, req); err != nil {
		return &entity.StageError{
			Stage:        entity.StageDetect,
			PredictionID: predictionID,
			Err:          fmt.Errorf("%w: %w", entity.ErrDetectionFailed, err),
		}
	}
	return nil
}

// archive загружает размеченное изображение в хранилище под predictions/<id>/<имя>.
// При сбое Key остаётся пустым.
func (s *PredictionService) archive(ctx context.Context, log *slog.Logger, predictionID, outputDir, fileName string) entity.ImageRef {
	ref := entity.ImageRef{Path: entity.PredictedImagePath(outputDir, fileName)}

	data, err := afero.ReadFile(s.fs, ref.Path)
	if err != nil {
		log.Error("failed to read predicted image", "path", ref.Path, "error", err)
		s.metrics.IncDegraded(entity.StageArchive)
		return ref
	}

	putCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	key := entity.PredictedImageKey(predictionID, fileName)
	if err := s.store.Put(putCtx, key, data); err != nil {
		log.Error("failed to upload predicted image", "key", key, "error", err)
		s.metrics.IncDegraded(entity.StageArchive)
		return ref
	}

	log.Info("uploaded predicted image", "key", key)
	ref.Key = key
	return ref
}

func (s *PredictionService) readLabels(predictionID, labelsPath string) ([]entity.Label, error) {
	f, err := s.fs.Open(labelsPath)
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", entity.ErrNoDetectionOutput, predictionID)
	}
	if err != nil {
		return nil, &entity.StageError{Stage: entity.StageLabels, PredictionID: predictionID, Err: err}
	}
	defer f.Close()

	labels, err := ParseLabels(f, s.names)
	if err != nil {
		return nil, &entity.StageError{Stage: entity.StageLabels, PredictionID: predictionID, Err: err}
	}
	return labels, nil
}

// persist сохраняет итог. Сбой не фатален.
func (s *PredictionService) persist(ctx context.Context, log *slog.Logger, summary *entity.PredictionSummary) {
	insertCtx, cancel := withTimeout(ctx, s.cfg.ResultTimeout)
	defer cancel()

	id, err := s.results.Insert(insertCtx, summary)
	if err != nil {
		log.Error("failed to store prediction summary", "error", err)
		s.metrics.IncDegraded(entity.StagePersist)
		return
	}
	log.Info("stored prediction summary", "record_id", id)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, entity.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailed
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
