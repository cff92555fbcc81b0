package policies

import (
	"context"
	"io"
)

// ObjectStorage keeps uploaded images (listing photos, business logos) and serves them by URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
}
