// Package storage talks to the S3 compatible object store behind the hosted backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"beatmarket/internal/config"
	"beatmarket/internal/model"
	"beatmarket/pkg/log"
	"beatmarket/pkg/metrics"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectExists is returned by PutObject when overwrite is not allowed and the key is taken.
var ErrObjectExists = errors.New("object already exists")

// PutOptions tunes a single PutObject call.
type PutOptions struct {
	ContentType string
	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
	// OnBytes, when set, receives the number of bytes transferred since the previous call.
	OnBytes func(n int64)
}

// MinIOStore implements the storage collaborator on top of minio-go.
type MinIOStore struct {
	client        *minio.Client
	buckets       map[model.Bucket]string
	endpoint      string
	useSSL        bool
	publicBaseURL string
}

// NewMinIOStore creates the client and makes sure every configured bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}
	log.Info("MinIO client initialized")

	s := &MinIOStore{
		client: client,
		buckets: map[model.Bucket]string{
			model.BucketContent: cfg.Buckets.Content,
			model.BucketCovers:  cfg.Buckets.Covers,
			model.BucketAvatars: cfg.Buckets.Avatars,
		},
		endpoint:      cfg.Endpoint,
		useSSL:        cfg.UseSSL,
		publicBaseURL: cfg.PublicBaseURL,
	}

	for _, name := range s.buckets {
		exists, err := client.BucketExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket %s: %w", name, err)
		}
		if exists {
			continue
		}
		log.Infof("bucket '%s' does not exist, creating it", name)
		if err := client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}
	return s, nil
}

func (s *MinIOStore) bucketName(b model.Bucket) (string, error) {
	name, ok := s.buckets[b]
	if !ok || name == "" {
		return "", fmt.Errorf("unknown bucket %q", b)
	}
	return name, nil
}

// PutObject writes size bytes from r to key and returns the stored path.
func (s *MinIOStore) PutObject(ctx context.Context, bucket model.Bucket, key string, r io.Reader, size int64, opts PutOptions) (string, error) {
	name, err := s.bucketName(bucket)
	if err != nil {
		return "", err
	}
	start := time.Now()

	if !opts.Overwrite {
		_, statErr := s.client.StatObject(ctx, name, key, minio.StatObjectOptions{})
		if statErr == nil {
			return "", fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectExists)
		}
		if minio.ToErrorResponse(statErr).Code != "NoSuchKey" {
			return "", fmt.Errorf("failed to stat %s/%s: %w", bucket, key, statErr)
		}
	}

	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if opts.OnBytes != nil {
		putOpts.Progress = &progressReader{onBytes: opts.OnBytes}
	}
	_, err = s.client.PutObject(ctx, name, key, r, size, putOpts)
	metrics.RecordStorageOperation("put", metrics.Status(err), time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to put %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// PublicURL resolves the public URL of path. With a hosted backend base URL the
// storage gateway path layout is used, otherwise the raw endpoint.
func (s *MinIOStore) PublicURL(bucket model.Bucket, path string) string {
	name := s.buckets[bucket]
	escaped := (&url.URL{Path: path}).EscapedPath()
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.publicBaseURL, name, escaped)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, name, escaped)
}

// ComposeObject concatenates srcKeys, in the given order, into dstKey.
// Every source except the last must be at least 5MiB.
func (s *MinIOStore) ComposeObject(ctx context.Context, bucket model.Bucket, dstKey string, srcKeys []string, contentType string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}
	if len(srcKeys) == 0 {
		return fmt.Errorf("compose %s/%s: no sources", bucket, dstKey)
	}

	srcs := make([]minio.CopySrcOptions, 0, len(srcKeys))
	for _, k := range srcKeys {
		srcs = append(srcs, minio.CopySrcOptions{Bucket: name, Object: k})
	}
	dst := minio.CopyDestOptions{
		Bucket:          name,
		Object:          dstKey,
		ReplaceMetadata: true,
		UserMetadata:    map[string]string{"Content-Type": contentType},
	}

	start := time.Now()
	_, err = s.client.ComposeObject(ctx, dst, srcs...)
	metrics.RecordStorageOperation("compose", metrics.Status(err), time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to compose %s/%s from %d parts: %w", bucket, dstKey, len(srcKeys), err)
	}
	return nil
}

// DeleteObjects removes keys. Individual failures are collected into the returned error.
func (s *MinIOStore) DeleteObjects(ctx context.Context, bucket model.Bucket, keys []string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, k := range keys {
			objectsCh <- minio.ObjectInfo{Key: k}
		}
	}()

	var errs []error
	for rErr := range s.client.RemoveObjects(ctx, name, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rErr.ObjectName, rErr.Err))
	}
	metrics.RecordStorageOperation("delete", metrics.Status(errors.Join(errs...)), 0)
	return errors.Join(errs...)
}

// PresignedGetURL returns a time limited download URL for path.
func (s *MinIOStore) PresignedGetURL(ctx context.Context, bucket model.Bucket, path string, expiry time.Duration) (string, error) {
	name, err := s.bucketName(bucket)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, name, strings.TrimPrefix(path, "/"), expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, path, err)
	}
	return u.String(), nil
}

// progressReader adapts minio's Progress reader hook to a byte counter callback.
type progressReader struct {
	onBytes func(n int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.onBytes(int64(len(b)))
	return len(b), nil
}
