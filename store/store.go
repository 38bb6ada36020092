// Package store persists report buckets. Three backends share one
// interface: local JSON files, Postgres, and S3-compatible object storage.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zombar/auditwatch/models"
)

// Bucket names a persisted report set.
type Bucket string

const (
	BucketNew      Bucket = "new_reports"
	BucketArchived Bucket = "archived_reports"
)

// Store loads and saves report buckets.
type Store interface {
	Load(ctx context.Context, bucket Bucket) (models.Buckets, error)
	Save(ctx context.Context, bucket Bucket, data models.Buckets) error
	Close() error
}

// FileConfig contains file store configuration
type FileConfig struct {
	DataDir string // Directory holding the bucket JSON files
}

// DefaultFileConfig returns default file store configuration
func DefaultFileConfig() FileConfig {
	return FileConfig{
		DataDir: "./data",
	}
}

// FileStore persists buckets as pretty-printed JSON files on disk.
type FileStore struct {
	config FileConfig
}

// NewFileStore creates a new FileStore instance
func NewFileStore(config FileConfig) (*FileStore, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{config: config}, nil
}

// Load reads a bucket file. A missing file yields empty buckets, not an
// error: first runs start from nothing.
func (s *FileStore) Load(_ context.Context, bucket Bucket) (models.Buckets, error) {
	path := s.path(bucket)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewBuckets(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data := models.NewBuckets()
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return data, nil
}

// Save writes a bucket file atomically via a temp file and rename.
func (s *FileStore) Save(_ context.Context, bucket Bucket, data models.Buckets) error {
	raw, err := EncodeBuckets(data)
	if err != nil {
		return err
	}

	path := s.path(bucket)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(bucket Bucket) string {
	return filepath.Join(s.config.DataDir, string(bucket)+".json")
}

// EncodeBuckets marshals buckets as indented JSON with HTML escaping off,
// so French and German titles stay readable in the files.
func EncodeBuckets(data models.Buckets) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode buckets: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBuckets is the inverse of EncodeBuckets.
func DecodeBuckets(raw []byte) (models.Buckets, error) {
	data := models.NewBuckets()
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode buckets: %w", err)
	}
	return data, nil
}
