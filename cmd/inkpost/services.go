package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"inkpost/internal/blobstore"
	"inkpost/internal/config"
	"inkpost/internal/models"
	"inkpost/internal/server"
	"inkpost/internal/store"
)

// openUploadService opens the metadata store and blob backend described by
// cfg. The returned close func releases the database.
func openUploadService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.UploadService, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, nil, fmt.Errorf("db path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	blobs, publicBaseURL, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	svc := server.NewUploadService(st, blobs, publicBaseURL, uploadPolicyFromConfig(cfg.Uploads))
	svc.SetLogger(logger)
	return svc, st.Close, nil
}

// openBlobStore returns the configured blob backend and the base URL its
// keys are served under.
func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", config.StorageBackendLocal:
		if cfg.UploadDir == "" {
			return nil, "", fmt.Errorf("upload dir is required")
		}
		local, err := blobstore.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return local, cfg.PublicSiteURL() + "/uploads", nil
	case config.StorageBackendS3:
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.Storage.BaseURL), "/")
		if baseURL == "" {
			return nil, "", fmt.Errorf("storage.base_url is required for the s3 backend")
		}
		prefix := strings.Trim(cfg.Storage.Path, "/")
		spool, err := spoolDir(cfg)
		if err != nil {
			return nil, "", err
		}
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Prefix:    prefix,
			SpoolDir:  spool,
		})
		if err != nil {
			return nil, "", err
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		if prefix != "" {
			baseURL += "/" + prefix
		}
		return s3Store, baseURL, nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// spoolDir keeps S3 staging files next to local uploads when an upload dir
// is configured.
func spoolDir(cfg *config.Config) (string, error) {
	if cfg.UploadDir == "" {
		return "", nil
	}
	dir := filepath.Join(cfg.UploadDir, ".spool")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func uploadPolicyFromConfig(uploads config.UploadsConfig) server.UploadPolicy {
	return server.UploadPolicy{
		MaxBytes: map[models.Category]int64{
			models.CategoryAvatar:   uploads.MaxAvatarBytes,
			models.CategoryPost:     uploads.MaxPostBytes,
			models.CategoryBranding: uploads.MaxBrandingBytes,
		},
		AllowedMediaTypes: uploads.AllowedMediaTypes,
		RejectMismatch:    uploads.RejectMediaTypeMismatch,
	}
}
