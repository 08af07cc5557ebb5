package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"polybot/internal/domain/entity"
)

// MessageHandler обрабатывает одно сообщение чата
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg entity.ChatMessage)
}

// Bot представляет Telegram-бота
type Bot struct {
	api            *tgbotapi.BotAPI
	httpClient     *http.Client
	handler        MessageHandler
	log            *slog.Logger
	handlerTimeout time.Duration
	pollSeconds    int // секунды long polling, меньше таймаута HTTP-клиента
	wg             sync.WaitGroup
}

const (
	maxPollTimeout = 60 * time.Second
	pollMargin     = 5 * time.Second
)

// NewBot создаёт нового бота. timeout ограничивает каждый запрос к Telegram,
// включая long polling, поэтому окно опроса выбирается короче timeout.
func NewBot(token string, timeout time.Duration, log *slog.Logger) (*Bot, error) {
	return newBot(token, tgbotapi.APIEndpoint, timeout, log)
}

func newBot(token, endpoint string, timeout time.Duration, log *slog.Logger) (*Bot, error) {
	httpClient := &http.Client{Timeout: timeout}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on account", "username", api.Self.UserName)

	return &Bot{
		api:         api,
		httpClient:  httpClient,
		log:         log,
		pollSeconds: pollTimeout(timeout),
	}, nil
}

// pollTimeout возвращает окно long polling в секундах для клиента с таймаутом clientTimeout.
// Telegram держит пустой запрос открытым всё окно, и клиент не должен оборвать его раньше.
func pollTimeout(clientTimeout time.Duration) int {
	if clientTimeout <= 0 {
		return int(maxPollTimeout / time.Second)
	}
	poll := max(clientTimeout-pollMargin, clientTimeout/2)
	return int(min(poll, maxPollTimeout) / time.Second)
}

// SetHandler задаёт обработчик сообщений. handlerTimeout ограничивает обработку одного сообщения.
func (b *Bot) SetHandler(handler MessageHandler, handlerTimeout time.Duration) {
	b.handler = handler
	b.handlerTimeout = handlerTimeout
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
// Каждое сообщение обрабатывается в своей горутине; при остановке Run ждёт их завершения.
func (b *Bot) Run(ctx context.Context) error {
	if b.handler == nil {
		return fmt.Errorf("message handler is not configured")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollSeconds

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			msg := convertMessage(update.Message)
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, msg)
			}()
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg entity.ChatMessage) {
	// Отмена ctx не должна обрывать уже начатую обработку на полпути.
	handleCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if b.handlerTimeout > 0 {
		handleCtx, cancel = context.WithTimeout(handleCtx, b.handlerTimeout)
	} else {
		handleCtx, cancel = context.WithCancel(handleCtx)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("message handler panicked", "chat_id", msg.ChatID, "panic", r)
		}
	}()

	b.handler.HandleMessage(handleCtx, msg)
}

// convertMessage переводит сообщение Telegram в независимый от платформы вид
func convertMessage(m *tgbotapi.Message) entity.ChatMessage {
	msg := entity.ChatMessage{Text: m.Text}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	if m.Text == "" {
		msg.Text = m.Caption
	}

	for _, p := range m.Photo {
		msg.Photos = append(msg.Photos, entity.PhotoSize{
			FileID:   p.FileID,
			Width:    p.Width,
			Height:   p.Height,
			FileSize: p.FileSize,
		})
	}
	return msg
}

// SendText отправляет текстовое сообщение
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendPhoto отправляет изображение
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// DownloadFile скачивает файл из Telegram
func (b *Bot) DownloadFile(ctx context.Context, fileID string) (string, []byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), http.NoBody)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read file: %w", err)
	}

	return file.FilePath, data, nil
}
