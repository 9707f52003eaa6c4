package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes documents below a directory on disk. It is the
// fallback when object storage is unavailable.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Save writes data to dir/folder/<unique name> and returns the absolute path.
func (l *LocalStore) Save(_ context.Context, folder, fileName string, data []byte) (string, error) {
	rel := filepath.FromSlash(ObjectKey(folder, fileName))
	full, err := filepath.Abs(filepath.Join(l.dir, rel))
	if err != nil {
		return "", fmt.Errorf("resolve local path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create local dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write local file: %w", err)
	}
	return full, nil
}
