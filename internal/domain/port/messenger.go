package port

import "context"

// Messenger интерфейс чат-платформы
type Messenger interface {
	// SendText отправляет текстовое сообщение в чат
	SendText(ctx context.Context, chatID int64, text string) error

	// SendPhoto отправляет изображение в чат
	SendPhoto(ctx context.Context, chatID int64, name string, data []byte) error

	// DownloadFile скачивает файл и возвращает его путь на платформе и содержимое
	DownloadFile(ctx context.Context, fileID string) (string, []byte, error)
}
