// Package s3 is the object-storage collaborator: durable writes keyed by
// storage path, public URL construction and compensating deletes, against
// any S3-compatible backend.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKeyID    string
	SecretKey      string
	UsePathStyle   bool
	PublicEndpoint string
}

// Store wraps an S3-compatible bucket.
type Store struct {
	bucket    string
	publicURL string
	client    *s3.Client
	log       zerolog.Logger
}

func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	public := strings.TrimSuffix(cfg.PublicEndpoint, "/")
	if public == "" {
		public = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &Store{
		bucket:    cfg.Bucket,
		publicURL: public,
		client:    client,
		log:       log.With().Str("component", "s3_store").Logger(),
	}, nil
}

// Put writes the object and returns only after the backend confirmed it.
func (s *Store) Put(ctx context.Context, storagePath string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(storagePath),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", storagePath, err)
	}
	return nil
}

// Remove deletes the given objects; used for compensating cleanup.
func (s *Store) Remove(ctx context.Context, storagePaths []string) error {
	if len(storagePaths) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, 0, len(storagePaths))
	for _, p := range storagePaths {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(p)})
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("remove %d objects: %w", len(storagePaths), err)
	}
	return nil
}

// PublicURL expands a storage path into the publicly fetchable address.
// Deterministic string construction, no network call.
func (s *Store) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, strings.TrimPrefix(storagePath, "/"))
}

// Health issues a HeadBucket request.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
