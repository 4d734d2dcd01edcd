package storage

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore keeps weight blobs as files under a directory
// Samples live in memory for the session; the CSV dataset is their durable record
type FileStore struct {
	dir string
	mem *MemoryStore
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, mem: NewMemoryStore()}
}

func (s *FileStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	return s.mem.Init(ctx)
}

func (s *FileStore) SaveSample(ctx context.Context, sample Sample) error {
	return s.mem.SaveSample(ctx, sample)
}

func (s *FileStore) RecentSamples(ctx context.Context, limit int) ([]Sample, error) {
	return s.mem.RecentSamples(ctx, limit)
}

func (s *FileStore) SaveWeights(_ context.Context, name string, blob []float32) error {
	return WriteBlobFile(s.path(name), blob)
}

func (s *FileStore) LoadWeights(_ context.Context, name string) ([]float32, bool, error) {
	return ReadBlobFile(s.path(name), -1)
}

func (s *FileStore) Close() error {
	return s.mem.Close()
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
