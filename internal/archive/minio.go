package archive

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

// Store keeps a copy of processed source documents.
type Store interface {
	Upload(ctx context.Context, filePath, contentHash string) (string, error)
}

// MinioStore archives source documents in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*MinioStore)(nil)

func NewMinioStore(cfg common.ArchiveConfig, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		return nil, common.NewAppError("CONFIG_ERROR", "archive endpoint is not configured", common.ErrInvalidInput)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
		now:    time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info("archive.bucket.created", "bucket", s.bucket)
	}
	return nil
}

// Upload stores the file under its content-addressed key and returns the key.
func (s *MinioStore) Upload(ctx context.Context, filePath, contentHash string) (string, error) {
	start := time.Now()
	f, err := os.Open(filePath)
	if err != nil {
		return "", common.NewAppError("READ_ERROR", "open source document", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", common.NewAppError("READ_ERROR", "stat source document", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(filePath))
	key := ObjectKey(s.now(), contentHash, ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType: contentType(ext),
		UserMetadata: map[string]string{
			"source-name": filepath.Base(filePath),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	s.logger.Info("archive.upload.ok",
		"bucket", s.bucket,
		"key", key,
		"bytes", st.Size(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return key, nil
}

// Delete removes an archived object.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ObjectKey builds "<yyyy>/<mm>/<hash>.<ext>" from the UTC time of archiving.
func ObjectKey(t time.Time, contentHash, ext string) string {
	t = t.UTC()
	name := strings.ToLower(contentHash)
	if ext = constants.NormalizeExt(ext); ext != "" {
		name += "." + ext
	}
	return path.Join(fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), name)
}

func contentType(ext string) string {
	switch ext {
	case "tif", "tiff":
		return "image/tiff"
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
