package batch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client defines the S3 operations used by ObjectSource.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config contains configuration for reading ingest files from S3.
type S3Config struct {
	Bucket   string `env:"BATCH_S3_BUCKET"`
	Region   string `env:"BATCH_S3_REGION"`
	Endpoint string `env:"BATCH_S3_ENDPOINT"` // Optional: for S3-compatible services
}

// ErrInvalidS3Config is returned when bucket or region is missing
var ErrInvalidS3Config = errors.New("s3 bucket and region are required")

// ObjectSource fetches ingest files from an S3 bucket for the Tracker.
type ObjectSource struct {
	client S3Client
	bucket string
}

// S3Option defines a function that configures ObjectSource.
type S3Option func(*s3Options)

type s3Options struct {
	client S3Client
}

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// NewObjectSource creates an S3-backed file source.
func NewObjectSource(ctx context.Context, cfg S3Config, opts ...S3Option) (*ObjectSource, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidS3Config
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return &ObjectSource{client: client, bucket: cfg.Bucket}, nil
}

// Fetch downloads one object's full content. Ingest files are small enough
// (tens of thousands of CSV rows) that buffering in memory is fine.
func (s *ObjectSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
