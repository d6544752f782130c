package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage persists uploaded receipt images and returns a URL the API can
// serve them from.
type Storage interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStorage implements Storage on the local filesystem. Stored files are
// served by the HTTP layer under /files/.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) Upload(_ context.Context, name string, data []byte) (string, error) {
	filename := fmt.Sprintf("receipt_%d_%s", time.Now().UnixMilli(), sanitize(filepath.Base(name)))
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return "/files/" + filename, nil
}

func (l *LocalStorage) BasePath() string {
	return l.basePath
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
