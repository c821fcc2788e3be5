package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the connection settings of an S3-compatible bucket.
type S3Config struct {
	Endpoint       string `env:"ARCHIVE_S3_ENDPOINT"`
	Region         string `env:"ARCHIVE_S3_REGION" env-default:"us-east-1"`
	Bucket         string `env:"ARCHIVE_S3_BUCKET"`
	AccessKey      string `env:"ARCHIVE_S3_ACCESS_KEY"`
	SecretKey      string `env:"ARCHIVE_S3_SECRET_KEY"`
	ForcePathStyle bool   `env:"ARCHIVE_S3_FORCE_PATH_STYLE" env-default:"false"`
}

// Enabled reports whether a bucket is configured.
func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

// S3Writer uploads objects with PutObject.
type S3Writer struct {
	client *s3.Client
	bucket string
}

// NewS3Writer builds a writer against AWS S3 or a compatible endpoint.
func NewS3Writer(ctx context.Context, cfg *S3Config) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("blob: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Writer{client: s3.NewFromConfig(awsCfg, s3Opts...), bucket: cfg.Bucket}, nil
}

func (w *S3Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("blob: put object %s: %w", path, err)
	}
	return nil
}

func normaliseEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}
