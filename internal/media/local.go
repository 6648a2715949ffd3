package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps files on disk under a root directory.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	const op = "media.NewLocal"
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Local{root: root}, nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	const op = "media.Local.Put"

	p, err := l.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(p)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	const op = "media.Local.Open"

	p, err := l.path(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	const op = "media.Local.Delete"

	p, err := l.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	const op = "media.Local.DeletePrefix"

	p, err := l.path(prefix)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
