package ports

import (
	"context"
	"io"
)

// EvidenceStore keeps completion photos.
type EvidenceStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
	Delete(ctx context.Context, key string) error
}
