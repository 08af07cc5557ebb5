package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// FSObjectStore хранит объекты файлами внутри root.
// Ключ с "/" превращается во вложенные каталоги.
type FSObjectStore struct {
	fs   afero.Fs
	root string
}

// NewFSObjectStore создаёт файловое хранилище объектов
func NewFSObjectStore(fs afero.Fs, root string) *FSObjectStore {
	return &FSObjectStore{fs: fs, root: root}
}

// Put записывает объект, перезаписывая существующий
func (s *FSObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	// Пишем во временный файл и переименовываем, чтобы читатель не увидел часть объекта.
	tmp, err := afero.TempFile(s.fs, filepath.Dir(p), "."+filepath.Base(p)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp object %s: %w", key, err)
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp.Name(), p); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("commit object %s: %w", key, err)
	}
	return nil
}

// Get читает объект или возвращает entity.ErrNotFound
func (s *FSObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil, fmt.Errorf("object %s: %w", key, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// pathFor не даёт ключу выйти за пределы root.
func (s *FSObjectStore) pathFor(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidImageKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

var _ port.ObjectStore = (*FSObjectStore)(nil)
