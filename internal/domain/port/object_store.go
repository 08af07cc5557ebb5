package port

import "context"

// ObjectStore интерфейс хранилища изображений (ключ → содержимое)
type ObjectStore interface {
	// Put сохраняет содержимое под ключом, перезаписывая существующее
	Put(ctx context.Context, key string, data []byte) error

	// Get возвращает содержимое по ключу или entity.ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
}
