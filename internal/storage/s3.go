package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/coachlab/coach-api/internal/config"
	"github.com/google/uuid"
)

// PhotoStore keeps check-in progress photos.
type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// ExtensionFor returns the file extension of an accepted photo type.
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// PhotoKey builds a unique object key grouped by user and day.
func PhotoKey(userID uint, day time.Time, ext string) string {
	return path.Join("checkins", fmt.Sprint(userID), day.Format("2006-01-02"), uuid.NewString()+ext)
}

// S3Store works against AWS S3 and S3 compatible services such as R2 or
// MinIO.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3AccessKeySecret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.S3PublicBaseURL
	if publicBase == "" {
		endpoint := cfg.S3Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.S3Region)
		}
		publicBase = strings.TrimRight(endpoint, "/") + "/" + cfg.S3Bucket
	}

	return &S3Store{client: client, bucket: cfg.S3Bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	return s.publicBase + "/" + key
}
