// Package database records upload audit rows in Postgres. The table is an
// operational index over the object store, never the source of truth.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Client wraps a sql.DB for the upload audit table.
type Client struct {
	db *sql.DB
}

// UploadRecord mirrors one stored object.
type UploadRecord struct {
	ID          string
	SizeBytes   int64
	ContentType string
	UploadedAt  time.Time
	ExpiresAt   time.Time
}

// NewClient opens and verifies a database connection.
func NewClient(databaseURL string) (*Client, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Client{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// RecordUpload inserts an audit row for a stored screenshot. Re-inserting the
// same id is a no-op since object keys are written exactly once.
func (c *Client) RecordUpload(ctx context.Context, rec UploadRecord) error {
	const query = `
		insert into uploads (id, size_bytes, content_type, uploaded_at, expires_at)
		values ($1, $2, $3, $4, $5)
		on conflict (id) do nothing`

	if _, err := c.db.ExecContext(ctx, query, rec.ID, rec.SizeBytes, rec.ContentType, rec.UploadedAt, rec.ExpiresAt); err != nil {
		return fmt.Errorf("insert upload %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteUpload removes the audit row for a deleted screenshot.
func (c *Client) DeleteUpload(ctx context.Context, id string) error {
	const query = `delete from uploads where id = $1`

	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete upload %s: %w", id, err)
	}
	return nil
}
