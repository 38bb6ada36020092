package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/zombar/auditwatch/models"
)

// PostgresStore keeps each bucket as a single JSONB row keyed by bucket
// name. The document is small (a few hundred reports) so row-per-bucket
// beats row-per-report for this workload.
type PostgresStore struct {
	db *sql.DB
}

const createBucketsTable = `
CREATE TABLE IF NOT EXISTS report_buckets (
	bucket TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore connects to Postgres and ensures the buckets table
// exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createBucketsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Load reads a bucket row. A missing row yields empty buckets.
func (s *PostgresStore) Load(ctx context.Context, bucket Bucket) (models.Buckets, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM report_buckets WHERE bucket = $1`, string(bucket),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.NewBuckets(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bucket %s: %w", bucket, err)
	}
	return DecodeBuckets(raw)
}

// Save upserts a bucket row.
func (s *PostgresStore) Save(ctx context.Context, bucket Bucket, data models.Buckets) error {
	raw, err := EncodeBuckets(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO report_buckets (bucket, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		string(bucket), raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save bucket %s: %w", bucket, err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
