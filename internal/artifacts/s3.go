package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/luxury-studio/internal/imageutil"
	"github.com/jonathan/luxury-studio/internal/types"
)

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes artifacts to an S3 bucket under a key prefix.
type S3Store struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewS3Store creates a store using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, prefix)
}

// NewS3StoreWithClient creates a store over an existing client.
func NewS3StoreWithClient(client ObjectAPI, bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("output bucket is required")
	}
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Store) key(base, suffix string) string {
	if s.prefix == "" {
		return base + suffix
	}
	return path.Join(s.prefix, base+suffix)
}

func (s *S3Store) ref(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// SaveCandidate implements Store.
func (s *S3Store) SaveCandidate(ctx context.Context, name string, image []byte) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	data, err := imageutil.EncodePNG(image)
	if err != nil {
		return "", fmt.Errorf("failed to convert composite for %s: %w", name, err)
	}
	key := s.key(base, CompositeSuffix)
	if err := s.put(ctx, key, data, "image/png"); err != nil {
		return "", err
	}
	return s.ref(key), nil
}

// SaveResult implements Store.
func (s *S3Store) SaveResult(ctx context.Context, name string, record *types.ResultRecord) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	data, err := MarshalRecord(record)
	if err != nil {
		return "", err
	}
	key := s.key(base, ResultSuffix)
	if err := s.put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	return s.ref(key), nil
}

// LoadResult implements Store.
func (s *S3Store) LoadResult(ctx context.Context, name string) (*types.ResultRecord, error) {
	base, err := BaseName(name)
	if err != nil {
		return nil, err
	}
	key := s.key(base, ResultSuffix)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, base)
		}
		return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return UnmarshalRecord(data)
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("S3 upload completed")
	return nil
}
