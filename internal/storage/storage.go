package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var (
	ErrEmptyContent    = errors.New("refusing to store empty content")
	ErrInvalidFilename = errors.New("invalid file name")
)

// Store persists a result under dir/filename and returns where it ended up.
type Store interface {
	Save(ctx context.Context, dir, filename string, data []byte) (string, error)
}

// LocalStore writes to the local filesystem, creating directories as needed.
type LocalStore struct {
	perm os.FileMode
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore returns a store that writes files with 0644 permissions.
func NewLocalStore() *LocalStore {
	return &LocalStore{perm: 0o644}
}

func (s *LocalStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, s.perm); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

// Tee writes to a primary store and then mirrors to the others. Mirror
// failures are logged and never fail the save.
type Tee struct {
	primary Store
	mirrors []Store
	logger  *zap.Logger
}

var _ Store = (*Tee)(nil)

func NewTee(logger *zap.Logger, primary Store, mirrors ...Store) *Tee {
	return &Tee{primary: primary, mirrors: mirrors, logger: logger.Named("storage_tee")}
}

func (t *Tee) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	location, err := t.primary.Save(ctx, dir, filename, data)
	if err != nil {
		return "", err
	}
	for _, mirror := range t.mirrors {
		if mirrored, err := mirror.Save(ctx, dir, filename, data); err != nil {
			t.logger.Warn("mirror save failed", zap.String("file", filename), zap.Error(err))
		} else {
			t.logger.Debug("mirrored result", zap.String("location", mirrored))
		}
	}
	return location, nil
}

func validateFilename(filename string) error {
	if filename == "" || filename == "." || filename == ".." {
		return ErrInvalidFilename
	}
	if filepath.Base(filename) != filename {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidFilename, filename)
	}
	return nil
}
