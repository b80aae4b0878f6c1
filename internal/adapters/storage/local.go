package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/playnatela/volante-express/internal/domain"
)

// LocalEvidenceStore writes evidence photos under a root directory and
// serves them from publicBaseURL.
type LocalEvidenceStore struct {
	root          string
	publicBaseURL string
	maxBytes      int64
}

func NewLocalEvidenceStore(root, publicBaseURL string, maxBytes int64) (*LocalEvidenceStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("evidence root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &LocalEvidenceStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxBytes:      maxBytes,
	}, nil
}

func (s *LocalEvidenceStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	written, copyErr := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	closeErr := tmp.Close()
	if copyErr == nil && written > s.maxBytes {
		copyErr = fmt.Errorf("%w: evidence exceeds %d bytes", domain.ErrInvalidInput, s.maxBytes)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil {
		copyErr = os.Rename(tmp.Name(), path)
	}
	if copyErr != nil {
		_ = os.Remove(tmp.Name())
		if errors.Is(copyErr, domain.ErrInvalidInput) {
			return "", copyErr
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, copyErr)
	}
	return s.publicBaseURL + "/" + filepath.ToSlash(key), nil
}

func (s *LocalEvidenceStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *LocalEvidenceStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: invalid evidence key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.root, clean), nil
}
