package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/config"
)

// MinIOStore implements Store on any S3-compatible service reachable
// through minio-go. Objects live under <bucket>/<namespace>/<xid>.jpg.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	namespace string
	publicURL string
	transform Transform
	timeout   time.Duration
}

var _ Store = (*MinIOStore)(nil)

// NewMinIOStore builds the client. It does not contact the server; call
// EnsureBucket for that.
func NewMinIOStore(cfg config.AssetConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("asset: minio endpoint is required")
	}
	if cfg.Bucket == "" || cfg.Namespace == "" {
		return nil, fmt.Errorf("asset: bucket and namespace are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("asset: creating minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		namespace: strings.Trim(cfg.Namespace, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		transform: Transform{
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
			MaxPixels: cfg.MaxPixels,
			Quality:   cfg.Quality,
		},
		timeout: cfg.Timeout,
	}, nil
}

// EnsureBucket creates the bucket if needed and makes the namespace
// publicly readable so references can be fetched without credentials.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("asset: checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("asset: creating bucket %s: %w", s.bucket, err)
		}
	}

	if err := s.client.SetBucketPolicy(ctx, s.bucket, s.readPolicy()); err != nil {
		return fmt.Errorf("asset: setting policy on bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload normalizes data and stores it as a new object.
func (s *MinIOStore) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperror.UploadFailed(errors.New("empty image"))
	}

	normalized, err := s.transform.Apply(data)
	if err != nil {
		if errors.Is(err, ErrImageTooLarge) {
			return "", apperror.ValidationFailed("image", err.Error())
		}
		return "", apperror.UploadFailed(err)
	}

	objectID := xid.New().String() + ".jpg"
	key := s.namespace + "/" + objectID

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(normalized), int64(len(normalized)),
		minio.PutObjectOptions{ContentType: "image/jpeg"},
	)
	if err != nil {
		return "", apperror.UploadFailed(fmt.Errorf("asset: putting %s: %w", key, err))
	}

	return s.reference(objectID), nil
}

// Delete removes the object a reference points at.
func (s *MinIOStore) Delete(ctx context.Context, reference string) error {
	key, err := s.objectKey(reference)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("asset: removing %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) reference(objectID string) string {
	return s.publicURL + "/" + s.bucket + "/" + s.namespace + "/" + objectID
}

// objectKey maps a reference back to its object key using only the
// trailing path segment, so references survive a change of public URL.
func (s *MinIOStore) objectKey(reference string) (string, error) {
	u, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("asset: parsing reference %q: %w", reference, err)
	}
	id := path.Base(u.Path)
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("asset: reference %q has no object id", reference)
	}
	return s.namespace + "/" + id, nil
}

func (s *MinIOStore) readPolicy() string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s/*"]}]}`,
		s.bucket, s.namespace)
}

func (s *MinIOStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
