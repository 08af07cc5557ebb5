package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"polybot/config"
	telegram "polybot/internal/api"
	app "polybot/internal/application"
	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
	"polybot/internal/infrastructure/inference"
	"polybot/internal/infrastructure/storage"
	"polybot/internal/infrastructure/vision"
	"polybot/internal/metrics"
)

// Inference собирает сервис распознавания и его HTTP-интерфейс
type Inference struct {
	PredictionService *app.PredictionService
	Results           port.ResultStore
	Server            *telegram.HTTPServer

	closers []func() error
}

// NewInference создаёт все зависимости сервиса распознавания из конфигурации
func NewInference(ctx context.Context, cfg *config.Config, log *slog.Logger, registry *prometheus.Registry) (*Inference, error) {
	m, err := metrics.NewPredictionMetrics(registry)
	if err != nil {
		return nil, err
	}

	// Таблица классов загружается один раз и дальше только читается.
	names, err := vision.LoadClassNames(cfg.ClassNamesPath)
	if err != nil {
		return nil, err
	}
	log.Info("class names loaded", "classes", names.Len())

	store, err := NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Inference{}

	results, closeResults, err := NewResultStore(cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeResults)
	c.Results = withCache(results, cfg.CacheTTL)

	engine, closeEngine, err := NewEngine(cfg, names)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeEngine)

	c.PredictionService = app.NewPredictionService(store, engine, c.Results, names,
		app.PredictionConfig{
			ScratchDir:    cfg.ScratchDir,
			ProjectDir:    cfg.ProjectDir,
			StoreTimeout:  cfg.StoreTimeout,
			DetectTimeout: cfg.DetectTimeout,
			ResultTimeout: cfg.ResultTimeout,
		},
		app.WithLogger(log.With("component", "predict")),
		app.WithMetrics(m),
	)
	c.Server = telegram.NewHTTPServer(c.PredictionService, c.Results, registry, log.With("component", "http"))

	return c, nil
}

// Close освобождает хранилище итогов и детектор
func (c *Inference) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// Bot собирает Telegram-бота и обработчик сообщений
type Bot struct {
	Bot         *telegram.Bot
	ChatService *app.ChatService
}

// NewBot создаёт бота, подключённого к хранилищу и сервису распознавания
func NewBot(ctx context.Context, cfg *config.Config, log *slog.Logger, registry *prometheus.Registry) (*Bot, error) {
	m, err := metrics.NewChatMetrics(registry)
	if err != nil {
		return nil, err
	}

	store, err := NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramTimeout, log.With("component", "telegram"))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	predictor := inference.NewClient(cfg.YoloURL, cfg.PredictTimeout)
	chat := app.NewChatService(bot, store, predictor,
		app.ChatConfig{
			PhotosDir:      cfg.PhotosDir,
			StoreName:      storeName(cfg),
			StoreTimeout:   cfg.StoreTimeout,
			PredictTimeout: cfg.PredictTimeout,
			SendTimeout:    cfg.TelegramTimeout,
		},
		app.WithChatLogger(log.With("component", "chat")),
		app.WithChatMetrics(m),
	)
	bot.SetHandler(chat, handlerTimeout(cfg))

	return &Bot{Bot: bot, ChatService: chat}, nil
}

// handlerTimeout ограничивает обработку одного сообщения суммой таймаутов всех этапов
func handlerTimeout(cfg *config.Config) time.Duration {
	// скачивание, два ответа и отправка картинки идут через Telegram
	return 4*cfg.TelegramTimeout + 2*cfg.StoreTimeout + cfg.PredictTimeout
}

// NewObjectStore выбирает хранилище объектов по OBJECT_STORE
func NewObjectStore(ctx context.Context, cfg *config.Config) (port.ObjectStore, error) {
	switch cfg.ObjectStore {
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return storage.NewS3ObjectStore(client, cfg.BucketName), nil
	case "local":
		return storage.NewFSObjectStore(afero.NewOsFs(), cfg.LocalStoreDir), nil
	default:
		return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}

// storeName возвращает имя хранилища для ответа пользователю
func storeName(cfg *config.Config) string {
	if cfg.ObjectStore == "s3" {
		return "S3"
	}
	return ""
}

// NewResultStore выбирает хранилище итогов по RESULT_STORE
func NewResultStore(cfg *config.Config) (port.ResultStore, func() error, error) {
	switch cfg.ResultStore {
	case "memory":
		return storage.NewMemoryResultStore(), func() error { return nil }, nil
	case "sqlite", "mysql":
		store, err := storage.OpenGormResultStore(cfg.ResultStore, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown result store %q", cfg.ResultStore)
	}
}

// withCache добавляет кэш чтения итогов. Нулевой CACHE_TTL отключает кэш:
// go-cache без срока хранения никогда не вытесняет записи.
func withCache(results port.ResultStore, ttl time.Duration) port.ResultStore {
	if ttl <= 0 {
		return results
	}
	return storage.NewCachedResultStore(results, ttl)
}

// NewEngine выбирает детектор по DETECT_ENGINE
func NewEngine(cfg *config.Config, names entity.ClassNames) (port.DetectionEngine, func() error, error) {
	switch cfg.DetectEngine {
	case "yolov5":
		engine := vision.NewExecEngine(cfg.YoloCommand, cfg.YoloWeights, cfg.ClassNamesPath, cfg.YoloDir, afero.NewOsFs())
		return engine, func() error { return nil }, nil
	case "gocv":
		engine, err := vision.NewGoCVEngine(cfg.YoloWeights, names)
		if err != nil {
			return nil, nil, fmt.Errorf("create gocv engine: %w", err)
		}
		return engine, engine.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown detection engine %q", cfg.DetectEngine)
	}
}
