package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"release-tracker/internal/repository/sqlite"
	"release-tracker/internal/storage"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.NewUserRepository(db).Init(ctx))
	require.NoError(t, sqlite.NewReleaseRepository(db).Init(ctx))
	return sqlite.NewStore(db)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memoryStorage keeps uploaded objects in a map.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(_ context.Context, name string, body io.Reader, _ int64, opts storage.UploadOptions) (string, error) {
	if m.failPut {
		return "", fmt.Errorf("put failed")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	key := storage.JoinKey(opts.KeyPrefix, name)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return key, nil
}

func (m *memoryStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *memoryStorage) GetObjectURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s?ttl=%d", bucket, key, int(expires.Seconds())), nil
}

func (m *memoryStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
