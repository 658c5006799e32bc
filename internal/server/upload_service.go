package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"inkpost/internal/api"
	"inkpost/internal/blobstore"
	"inkpost/internal/models"
	"inkpost/internal/store"
)

const (
	objectNameLength      = 12
	sniffLength           = 512
	fallbackContentType   = "application/octet-stream"
	defaultAvatarMaxBytes = 5 << 20
	defaultPostMaxBytes   = 512 << 20
	defaultBrandMaxBytes  = 10 << 20
)

var errFileTooLarge = errors.New("file exceeds category size limit")

// UploadPolicy holds the limits the upload service enforces.
type UploadPolicy struct {
	MaxBytes          map[models.Category]int64
	AllowedMediaTypes []string
	RejectMismatch    bool
}

// DefaultUploadPolicy returns the built-in per-category limits.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes: map[models.Category]int64{
			models.CategoryAvatar:   defaultAvatarMaxBytes,
			models.CategoryPost:     defaultPostMaxBytes,
			models.CategoryBranding: defaultBrandMaxBytes,
		},
		RejectMismatch: true,
	}
}

func (p UploadPolicy) maxBytes(category models.Category) int64 {
	if limit, ok := p.MaxBytes[category]; ok && limit > 0 {
		return limit
	}
	return DefaultUploadPolicy().MaxBytes[category]
}

// largest returns the biggest per-category ceiling.
func (p UploadPolicy) largest() int64 {
	var out int64
	for _, category := range models.Categories() {
		out = max(out, p.maxBytes(category))
	}
	return out
}

// UploadService stores uploaded files and their metadata.
type UploadService struct {
	store         store.UploadStore
	blobs         blobstore.Store
	publicBaseURL string
	metrics       *Metrics
	logger        *slog.Logger

	maxBytes          map[models.Category]int64
	allowedMediaTypes map[string]struct{}
	rejectMismatch    bool
	policy            UploadPolicy
}

// UploadContent is an open stream of stored bytes.
type UploadContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// NewUploadService constructs an UploadService. publicBaseURL is the URL
// prefix stored keys are appended to.
func NewUploadService(uploadStore store.UploadStore, blobs blobstore.Store, publicBaseURL string, policy UploadPolicy) *UploadService {
	svc := &UploadService{
		store:         uploadStore,
		blobs:         blobs,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
	svc.ConfigurePolicy(policy)
	return svc
}

// ConfigurePolicy replaces size and media policy.
func (s *UploadService) ConfigurePolicy(policy UploadPolicy) {
	if s == nil {
		return
	}
	s.policy = policy
	s.maxBytes = map[models.Category]int64{}
	for _, category := range models.Categories() {
		s.maxBytes[category] = policy.maxBytes(category)
	}
	normalized := map[string]struct{}{}
	for _, raw := range policy.AllowedMediaTypes {
		mediaType, err := normalizeMediaType(raw)
		if err != nil || mediaType == "" {
			continue
		}
		normalized[mediaType] = struct{}{}
	}
	if len(normalized) == 0 {
		s.allowedMediaTypes = nil
	} else {
		s.allowedMediaTypes = normalized
	}
	s.rejectMismatch = policy.RejectMismatch
}

// SetLogger sets the logger used for best-effort cleanup failures.
func (s *UploadService) SetLogger(logger *slog.Logger) {
	if s != nil {
		s.logger = logger
	}
}

func (s *UploadService) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Store validates and persists one file, returning its upload record.
func (s *UploadService) Store(ctx context.Context, rawCategory, filename, declaredMediaType string, content io.Reader) (upload models.Upload, err error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return upload, internalError(fmt.Errorf("upload service is not configured"))
	}
	var category models.Category
	defer func() {
		s.metrics.observeUpload(string(category), upload.SizeBytes, err)
	}()
	if content == nil {
		return upload, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}

	category, err = parseCategory(rawCategory)
	if err != nil {
		return upload, err
	}
	filename = sanitizeFilename(filename)
	if filename == "" {
		return upload, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingRequired)
	}
	ext, err := normalizeExtension(category, filename)
	if err != nil {
		return upload, err
	}

	limit := s.maxBytes[category]
	buffered := bufio.NewReaderSize(&limitedReader{r: content, remaining: limit}, sniffLength)
	peek, _ := buffered.Peek(sniffLength)
	mediaType, err := s.resolveMediaType(declaredMediaType, filename, http.DetectContentType(peek))
	if err != nil {
		return upload, err
	}

	name, err := store.RandomBase36(objectNameLength)
	if err != nil {
		return upload, internalError(err)
	}
	key := string(category) + "/" + name + ext

	put, err := s.blobs.Put(ctx, key, buffered, mediaType)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return upload, tooLarge(fmt.Errorf("%s uploads are limited to %s", category, humanize.IBytes(uint64(limit))))
		}
		return upload, blobFailure(fmt.Errorf("store %s: %w", key, err))
	}

	id, err := store.GenerateID(store.UploadIDPrefix, func(id string) (bool, error) {
		return s.store.UploadExists(ctx, id)
	})
	if err != nil {
		s.discardBlob(ctx, put.Key)
		return upload, storeFailure(err)
	}

	record := &models.Upload{
		ID:             id,
		Category:       string(category),
		Filename:       filename,
		MediaType:      mediaType,
		SizeBytes:      put.SizeBytes,
		SHA256:         put.SHA256,
		StorageBackend: string(s.blobs.Backend()),
		BlobKey:        put.Key,
		URL:            s.publicURL(put.Key),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateUpload(ctx, record); err != nil {
		s.discardBlob(ctx, put.Key)
		return upload, storeFailure(err)
	}
	return *record, nil
}

// Get returns one upload by id.
func (s *UploadService) Get(ctx context.Context, id string) (models.Upload, error) {
	var zero models.Upload
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("upload service is not configured"))
	}
	id = strings.TrimSpace(id)
	if !validateUploadID(id) {
		return zero, badRequestCode(fmt.Errorf("invalid upload id"), ErrCodeInvalidID)
	}
	upload, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return zero, storeFailure(err)
	}
	if upload == nil {
		return zero, notFoundCode(fmt.Errorf("upload not found"), ErrCodeUploadNotFound)
	}
	return *upload, nil
}

// List returns uploads newest first, optionally filtered by category.
func (s *UploadService) List(ctx context.Context, rawCategory string, limit int) ([]models.Upload, error) {
	if s == nil || s.store == nil {
		return nil, internalError(fmt.Errorf("upload service is not configured"))
	}
	filter := store.UploadFilter{Limit: limit}
	if strings.TrimSpace(rawCategory) != "" {
		category, err := parseCategory(rawCategory)
		if err != nil {
			return nil, err
		}
		filter.Category = string(category)
	}
	uploads, err := s.store.ListUploads(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return uploads, nil
}

// Delete removes the stored bytes, then the metadata row.
func (s *UploadService) Delete(ctx context.Context, id string) error {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, upload.BlobKey); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return blobFailure(err)
	}
	if err := s.store.DeleteUpload(ctx, upload.ID); err != nil {
		return storeFailure(err)
	}
	s.metrics.observeDelete()
	return nil
}

// Open returns the content stored under key.
func (s *UploadService) Open(ctx context.Context, key string) (*UploadContent, error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return nil, internalError(fmt.Errorf("upload service is not configured"))
	}
	if err := blobstore.ValidateKey(key); err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidKey)
	}
	key = blobstore.CleanKey(key)

	upload, err := s.store.GetUploadByKey(ctx, key)
	if err != nil {
		return nil, storeFailure(err)
	}
	if upload == nil {
		return nil, notFoundCode(fmt.Errorf("content not found"), ErrCodeContentNotFound)
	}
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, notFoundCode(fmt.Errorf("content not found"), ErrCodeContentNotFound)
		}
		return nil, blobFailure(err)
	}

	mediaType := upload.MediaType
	if mediaType == "" {
		mediaType = fallbackContentType
	}
	return &UploadContent{Reader: rc, SizeBytes: upload.SizeBytes, MediaType: mediaType, Filename: upload.Filename}, nil
}

// Info summarizes categories, limits and stored counts.
func (s *UploadService) Info(ctx context.Context) (api.InfoResponse, error) {
	var resp api.InfoResponse
	if s == nil || s.store == nil || s.blobs == nil {
		return resp, internalError(fmt.Errorf("upload service is not configured"))
	}
	counts, err := s.store.CountUploadsByCategory(ctx)
	if err != nil {
		return resp, storeFailure(err)
	}
	resp.UploadCounts = counts
	for _, count := range counts {
		resp.TotalUploads += count
	}
	if versioned, ok := s.store.(interface{ SchemaVersion() (int, error) }); ok {
		version, err := versioned.SchemaVersion()
		if err != nil {
			return resp, storeFailure(err)
		}
		resp.SchemaVersion = version
	}
	resp.StorageBackend = string(s.blobs.Backend())
	for _, category := range models.Categories() {
		resp.Categories = append(resp.Categories, api.CategoryInfo{
			Name:       string(category),
			MaxBytes:   s.maxBytes[category],
			Extensions: slices.Clone(categoryExtensions[category]),
		})
	}
	return resp, nil
}

// MaxRequestBytes bounds multipart request bodies.
func (s *UploadService) MaxRequestBytes() int64 {
	if s == nil {
		return DefaultUploadPolicy().largest()
	}
	return s.policy.largest()
}

func (s *UploadService) resolveMediaType(declared, filename, sniffed string) (string, error) {
	declaredNormalized, err := normalizeMediaType(declared)
	if err != nil {
		return "", err
	}
	if declaredNormalized == "" {
		declaredNormalized = models.MediaTypeFromName(filename)
	}
	sniffedNormalized, err := normalizeMediaType(sniffed)
	if err != nil {
		sniffedNormalized = ""
	}

	if declaredNormalized != "" && s.rejectMismatch && !sniffMatches(declaredNormalized, sniffedNormalized) {
		return "", badRequestCode(fmt.Errorf("declared media_type %s does not match content type %s", declaredNormalized, sniffedNormalized), ErrCodeMediaTypeMismatch)
	}

	final := firstNonEmpty(declaredNormalized, sniffedNormalized)
	if err := s.validateAllowedMediaType(final); err != nil {
		return "", err
	}
	return final, nil
}

func (s *UploadService) validateAllowedMediaType(mediaType string) error {
	if mediaType == "" || len(s.allowedMediaTypes) == 0 {
		return nil
	}
	if _, ok := s.allowedMediaTypes[mediaType]; ok {
		return nil
	}
	return badRequestCode(fmt.Errorf("media_type %s is not allowed", mediaType), ErrCodeUnsupportedType)
}

func (s *UploadService) publicURL(key string) string {
	if s.publicBaseURL == "" {
		return "/" + key
	}
	return s.publicBaseURL + "/" + key
}

func (s *UploadService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log().Warn("discard blob", "key", key, "error", err)
	}
}

// limitedReader fails with errFileTooLarge once more than remaining bytes
// have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}
