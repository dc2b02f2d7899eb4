// Package storage reads evidence objects from S3-compatible object stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rentshield/rentshield/internal/config"
)

// ErrNotFound is returned when the bucket or key does not exist.
var ErrNotFound = errors.New("object not found")

// Object is an open evidence object. Size is -1 when the store did not
// report a length.
type Object struct {
	Body io.ReadCloser
	Size int64
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store opens objects from a single S3 endpoint.
type S3Store struct {
	client objectGetter
	logger *slog.Logger
}

// NewS3Store builds a client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies. A
// custom endpoint switches to path-style addressing for MinIO and similar.
func NewS3Store(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Store(s3.NewFromConfig(awsCfg, s3Opts...), logger), nil
}

func newS3Store(client objectGetter, logger *slog.Logger) *S3Store {
	return &S3Store{
		client: client,
		logger: logger.With("component", "s3-store"),
	}
}

// Open starts reading bucket/key. The caller closes the body.
func (s *S3Store) Open(ctx context.Context, bucket, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return Object{}, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrNotFound)
		}
		return Object{}, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	s.logger.Debug("opened evidence object", "bucket", bucket, "key", key, "size_bytes", size)
	return Object{Body: out.Body, Size: size}, nil
}
