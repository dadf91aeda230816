// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage puts uploaded images into an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	appconfig "codeberg.org/collegeblog/backend/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured   = errors.New("file storage is not configured")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ObjectPutter is the part of the S3 client the service needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Upload describes a stored object.
type Upload struct {
	Key string `json:"filename"`
	URL string `json:"url"`
}

type Service struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	now       func() time.Time
}

// New builds an S3 client from cfg. A custom endpoint switches to path-style
// addressing, which MinIO and most S3-compatible stores expect.
func New(ctx context.Context, cfg *appconfig.StorageConfig) (*Service, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectPutter, cfg *appconfig.StorageConfig) *Service {
	return &Service{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		now:       time.Now,
	}
}

// Key returns the object key for a new upload of filename. Keys are grouped
// by upload date.
func (s *Service) Key(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return fmt.Sprintf("uploads/%s/%s%s", s.now().UTC().Format("2006/01/02"), uuid.NewString(), ext), nil
}

// Put stores body under a fresh key and returns where it can be fetched.
func (s *Service) Put(ctx context.Context, filename string, body io.Reader, size int64) (*Upload, error) {
	key, err := s.Key(filename)
	if err != nil {
		return nil, err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(allowedExtensions[strings.ToLower(path.Ext(key))]),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("storing %s: %w", key, err)
	}

	slog.Info("upload_stored", "key", key, "size", size)
	return &Upload{Key: key, URL: s.publicURL + "/" + key}, nil
}
