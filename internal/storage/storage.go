package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrNotConfigured is returned by callers that have no object storage wired in.
var ErrNotConfigured = errors.New("storage service not configured")

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket           string
	KeyPrefix        string
	ContentType      string
	ProgressCallback func(done, total int64)
}

// Service keeps release artifacts in remote object storage.
type Service interface {
	Upload(ctx context.Context, name string, body io.Reader, size int64, opts UploadOptions) (string, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// JoinKey joins key segments with "/" and drops empty ones.
func JoinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
