package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the S3-compatible backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL is the externally reachable base for stored objects; when
	// empty the endpoint itself is used.
	PublicURL string
}

// S3Store uploads attachments to an S3-compatible object store (MinIO, S3).
type S3Store struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	cl, err := minio.New(strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	s := &S3Store{cfg: cfg, client: cl}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var _ Store = (*S3Store)(nil)

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	return nil
}

func (s *S3Store) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (Object, error) {
	key := uuid.NewString() + "-" + name
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, s.cfg.Endpoint)
	}

	return Object{
		URL:      fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), s.cfg.Bucket, key),
		Name:     name,
		Size:     size,
		MimeType: contentType,
	}, nil
}
