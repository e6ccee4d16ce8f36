package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pkordes/campusride/internal/domain"
)

// S3Config addresses a bucket on an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	// Region is sent with every request. Setting it skips the bucket
	// location lookup minio-go otherwise performs.
	Region string
	UseSSL bool
	// PublicURL is the base download URL. Empty means
	// <endpoint>/<bucket>, which suits a public-read bucket.
	PublicURL string
}

// S3Store uploads objects with minio-go.
type S3Store struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
}

// NewS3Store connects to the endpoint. It does not contact the server; call
// EnsureBucket at startup to verify the bucket.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3Store: %w", err)
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = joinURL(client.EndpointURL().String(), cfg.Bucket)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region, publicURL: publicURL}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage.S3Store.EnsureBucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("storage.S3Store.EnsureBucket: create %q: %w", s.bucket, err)
	}
	return nil
}

// Upload stores u under key and returns its download URL.
func (s *S3Store) Upload(ctx context.Context, key string, u domain.Upload) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("storage.S3Store.Upload: %w", err)
	}
	size := u.Size
	if size <= 0 {
		size = -1 // unknown; minio-go streams multipart
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, u.Body, size, minio.PutObjectOptions{
		ContentType: u.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage.S3Store.Upload: %w", err)
	}
	return joinURL(s.publicURL, key), nil
}
