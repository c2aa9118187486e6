package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileArchiver writes documents under a local directory.
type FileArchiver struct {
	dir string
}

// NewFileArchiver creates dir if needed.
func NewFileArchiver(dir string) (*FileArchiver, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchiver{dir: dir}, nil
}

// Archive writes doc atomically and returns its path.
func (a *FileArchiver) Archive(_ context.Context, doc Document) (string, error) {
	data, err := encode(doc)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(a.dir, filepath.FromSlash(ObjectKey(doc)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename archive: %w", err)
	}
	return dst, nil
}
