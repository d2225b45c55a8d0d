// Package storage stores user profile images in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/logger"
)

var Module = fx.Module("storage",
	fx.Provide(NewService),
)

// ErrDisabled is returned by every operation when no endpoint is configured.
var ErrDisabled = errors.New("storage service not enabled")

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores = regexp.MustCompile(`_{2,}`)
)

// Service provides S3-compatible storage operations
type Service struct {
	client *s3.Client
	cfg    config.StorageConfig
	log    *slog.Logger
}

// UploadResult contains information about an uploaded object
type UploadResult struct {
	Key         string
	Bucket      string
	ETag        string
	Size        int64
	ContentType string
	URL         string
}

// NewService creates the storage service. An unconfigured service is returned
// disabled rather than failing start-up.
func NewService(cfg *config.Config, log *slog.Logger) (*Service, error) {
	log = log.With(logger.Scope("storage"))
	sc := cfg.Storage

	if !sc.Enabled() {
		log.Warn("storage service disabled - no configuration provided")
		return &Service{cfg: sc, log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(sc.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for MinIO and other self-hosted endpoints.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(sc.Endpoint)
		o.UsePathStyle = true
	})

	log.Info("storage service initialized",
		slog.String("endpoint", sc.Endpoint),
		slog.String("bucket", sc.Bucket),
	)

	return &Service{client: client, cfg: sc, log: log}, nil
}

// Enabled returns true if the storage service is properly configured
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload writes data under key and returns the object's public URL.
func (s *Service) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		s.log.Error("failed to upload object", slog.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	etag := ""
	if result.ETag != nil {
		etag = strings.Trim(*result.ETag, "\"")
	}

	s.log.Debug("object uploaded", slog.String("key", key), slog.Int64("size", size))

	return &UploadResult{
		Key:         key,
		Bucket:      s.cfg.Bucket,
		ETag:        etag,
		Size:        size,
		ContentType: contentType,
		URL:         s.PublicURL(key),
	}, nil
}

// Delete removes an object from storage
func (s *Service) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrDisabled
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Error("failed to delete object", slog.String("key", key), logger.Error(err))
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// PublicURL builds the URL an object is served from. Without STORAGE_PUBLIC_URL
// it falls back to path-style endpoint/bucket/key.
func (s *Service) PublicURL(key string) string {
	base := s.cfg.PublicURL
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// KeyFromURL reverses PublicURL. ok is false for URLs outside the bucket.
func (s *Service) KeyFromURL(url string) (string, bool) {
	prefix := s.PublicURL("")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// ImageKey creates a storage key for a profile image
// Format: users/{userId}/{uuid}-{sanitized_filename}
func ImageKey(userID, filename string) string {
	return path.Join("users", userID, uuid.New().String()+"-"+SanitizeFilename(filename))
}

// SanitizeFilename cleans a filename for storage
func SanitizeFilename(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, "_")
	sanitized = underscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.ToLower(strings.Trim(sanitized, "_"))

	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}
