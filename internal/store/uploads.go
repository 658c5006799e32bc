package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inkpost/internal/models"
)

const uploadColumns = "id, category, filename, media_type, size_bytes, sha256, storage_backend, blob_key, url, created_at"

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// UploadStore is the metadata persistence surface for uploads.
type UploadStore interface {
	UploadExists(ctx context.Context, id string) (bool, error)
	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUpload(ctx context.Context, id string) (*models.Upload, error)
	GetUploadByKey(ctx context.Context, key string) (*models.Upload, error)
	ListUploads(ctx context.Context, filter UploadFilter) ([]models.Upload, error)
	DeleteUpload(ctx context.Context, id string) error
	CountUploadsByCategory(ctx context.Context) (map[string]int, error)
}

var _ UploadStore = (*Store)(nil)

// UploadFilter narrows ListUploads. A zero Limit means DefaultListLimit.
type UploadFilter struct {
	Category string
	Limit    int
}

func (s *Store) UploadExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM uploads WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateUpload inserts one upload row. CreatedAt defaults to now.
func (s *Store) CreateUpload(ctx context.Context, upload *models.Upload) error {
	if upload == nil {
		return fmt.Errorf("upload is required")
	}
	if strings.TrimSpace(upload.ID) == "" {
		return fmt.Errorf("upload id is required")
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO uploads (`+uploadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID,
		upload.Category,
		upload.Filename,
		nullString(upload.MediaType),
		upload.SizeBytes,
		upload.SHA256,
		upload.StorageBackend,
		upload.BlobKey,
		upload.URL,
		formatTime(upload.CreatedAt),
	)
	return err
}

// GetUpload returns nil when no upload has id.
func (s *Store) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	return scanUpload(row)
}

// GetUploadByKey returns nil when no upload is stored under key.
func (s *Store) GetUploadByKey(ctx context.Context, key string) (*models.Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE blob_key = ?`, key)
	return scanUpload(row)
}

// ListUploads lists uploads newest first.
func (s *Store) ListUploads(ctx context.Context, filter UploadFilter) ([]models.Upload, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	query := `SELECT ` + uploadColumns + ` FROM uploads`
	var args []any
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []models.Upload{}
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}
	return uploads, rows.Err()
}

func (s *Store) DeleteUpload(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM uploads WHERE id = ?", id)
	return err
}

// CountUploadsByCategory returns the number of uploads per category.
func (s *Store) CountUploadsByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM uploads GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func scanUpload(scanner interface {
	Scan(dest ...any) error
}) (*models.Upload, error) {
	upload := models.Upload{}
	var mediaType sql.NullString
	var createdAt string

	err := scanner.Scan(
		&upload.ID,
		&upload.Category,
		&upload.Filename,
		&mediaType,
		&upload.SizeBytes,
		&upload.SHA256,
		&upload.StorageBackend,
		&upload.BlobKey,
		&upload.URL,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	upload.MediaType = mediaType.String
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for upload %s: %w", upload.ID, err)
	}
	upload.CreatedAt = parsed
	return &upload, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
