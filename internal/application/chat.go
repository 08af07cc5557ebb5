package app

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
	"polybot/internal/metrics"
)

const (
	msgEchoPrefix     = "Your original message: "
	msgUploaded       = "Image successfully uploaded."
	msgUploadedTo     = "Image successfully uploaded to %s."
	msgDownloadFailed = "Sorry, I couldn't download your image. Please try again."
	msgUploadFailed   = "Sorry, I couldn't upload your image. Please try again."
	msgProcessFailed  = "Sorry, I couldn't process your image. Please try again."
)

// ChatConfig задаёт параметры обработки сообщений чата.
type ChatConfig struct {
	PhotosDir      string // локальный каталог для скачанных фото
	StoreName      string // имя хранилища в ответе пользователю, например S3
	StoreTimeout   time.Duration
	PredictTimeout time.Duration
	SendTimeout    time.Duration
}

// ChatService обрабатывает входящие сообщения чата.
// Каждое сообщение обрабатывается последовательно и без повторов: сбой любого этапа
// завершается сообщением пользователю.
type ChatService struct {
	messenger port.Messenger
	store     port.ObjectStore
	predictor port.Predictor
	cfg       ChatConfig

	fs      afero.Fs
	log     *slog.Logger
	metrics *metrics.ChatMetrics
}

// ChatOption настраивает ChatService.
type ChatOption func(*ChatService)

// WithChatFs задаёт файловую систему для скачанных фото.
func WithChatFs(fs afero.Fs) ChatOption {
	return func(s *ChatService) { s.fs = fs }
}

// WithChatLogger задаёт логгер.
func WithChatLogger(log *slog.Logger) ChatOption {
	return func(s *ChatService) { s.log = log }
}

// WithChatMetrics задаёт метрики.
func WithChatMetrics(m *metrics.ChatMetrics) ChatOption {
	return func(s *ChatService) { s.metrics = m }
}

// NewChatService создаёт обработчик сообщений чата.
func NewChatService(messenger port.Messenger, store port.ObjectStore, predictor port.Predictor, cfg ChatConfig, opts ...ChatOption) *ChatService {
	s := &ChatService{
		messenger: messenger,
		store:     store,
		predictor: predictor,
		cfg:       cfg,
		fs:        afero.NewOsFs(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage обрабатывает одно входящее сообщение.
func (s *ChatService) HandleMessage(ctx context.Context, msg entity.ChatMessage) {
	log := s.log.With("chat_id", msg.ChatID)
	log.Info("incoming message", "has_photo", msg.HasPhoto(), "photos", len(msg.Photos))

	photo, ok := msg.LargestPhoto()
	if !ok {
		s.sendText(ctx, log, msg.ChatID, msgEchoPrefix+msg.Text)
		s.metrics.IncChatMessage(metrics.ChatEcho)
		return
	}

	filePath, data, err := s.messenger.DownloadFile(ctx, photo.FileID)
	if err != nil {
		log.Error("failed to download photo", "file_id", photo.FileID, "error", err)
		s.fail(ctx, log, msg.ChatID, msgDownloadFailed, metrics.ChatDownloadFailed)
		return
	}

	// В хранилище уходит локальная копия, а не буфер из ответа мессенджера.
	localPath, staged, err := s.stagePhoto(filePath, data)
	if localPath != "" {
		defer func() {
			if err := s.fs.Remove(localPath); err != nil {
				log.Warn("failed to remove staged photo", "path", localPath, "error", err)
			}
		}()
	}
	if err != nil {
		log.Error("failed to stage photo", "path", filePath, "error", err)
		s.fail(ctx, log, msg.ChatID, msgDownloadFailed, metrics.ChatDownloadFailed)
		return
	}

	imageKey := path.Base(filepath.ToSlash(filePath))
	if err := s.upload(ctx, imageKey, staged); err != nil {
		log.Error("failed to upload photo", "key", imageKey, "error", err)
		s.fail(ctx, log, msg.ChatID, msgUploadFailed, metrics.ChatUploadFailed)
		return
	}
	log.Info("uploaded photo", "key", imageKey)
	s.sendText(ctx, log, msg.ChatID, s.uploadedMessage())

	summary, err := s.predict(ctx, imageKey)
	if err != nil || summary == nil {
		log.Error("prediction failed", "key", imageKey, "error", err)
		s.fail(ctx, log, msg.ChatID, msgProcessFailed, metrics.ChatPredictFailed)
		return
	}
	log.Info("prediction received", "prediction_id", summary.PredictionID, "labels", len(summary.Labels))

	s.sendText(ctx, log, msg.ChatID, FormatPredictionMessage(summary.Labels))
	s.metrics.IncChatMessage(metrics.ChatAnswered)

	if summary.Archived() {
		s.sendPredictedImage(ctx, log, msg.ChatID, summary)
	}
}

// stagePhoto сохраняет скачанное фото в локальный каталог и читает сохранённую копию.
// Непустой путь означает, что файл, возможно, создан и его нужно удалить.
func (s *ChatService) stagePhoto(filePath string, data []byte) (string, []byte, error) {
	localPath := filepath.Join(s.cfg.PhotosDir, filepath.FromSlash(filePath))
	if err := s.fs.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", nil, err
	}
	if err := afero.WriteFile(s.fs, localPath, data, 0o644); err != nil {
		return localPath, nil, err
	}
	staged, err := afero.ReadFile(s.fs, localPath)
	if err != nil {
		return localPath, nil, err
	}
	return localPath, staged, nil
}

func (s *ChatService) uploadedMessage() string {
	if s.cfg.StoreName == "" {
		return msgUploaded
	}
	return fmt.Sprintf(msgUploadedTo, s.cfg.StoreName)
}

func (s *ChatService) upload(ctx context.Context, key string, data []byte) error {
	putCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Put(putCtx, key, data)
}

func (s *ChatService) predict(ctx context.Context, key string) (*entity.PredictionSummary, error) {
	predictCtx, cancel := withTimeout(ctx, s.cfg.PredictTimeout)
	defer cancel()
	return s.predictor.Predict(predictCtx, key)
}

// sendPredictedImage отправляет размеченное изображение. Сбой только логируется.
func (s *ChatService) sendPredictedImage(ctx context.Context, log *slog.Logger, chatID int64, summary *entity.PredictionSummary) {
	getCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	data, err := s.store.Get(getCtx, summary.PredictedImage.Key)
	if err != nil {
		log.Warn("failed to fetch predicted image", "key", summary.PredictedImage.Key, "error", err)
		return
	}

	sendCtx, cancelSend := withTimeout(ctx, s.cfg.SendTimeout)
	defer cancelSend()
	if err := s.messenger.SendPhoto(sendCtx, chatID, path.Base(summary.PredictedImage.Key), data); err != nil {
		log.Warn("failed to send predicted image", "error", err)
	}
}

func (s *ChatService) fail(ctx context.Context, log *slog.Logger, chatID int64, text, outcome string) {
	s.sendText(ctx, log, chatID, text)
	s.metrics.IncChatMessage(outcome)
}

func (s *ChatService) sendText(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	sendCtx, cancel := withTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.messenger.SendText(sendCtx, chatID, text); err != nil {
		log.Error("failed to send message", "error", err)
	}
}
