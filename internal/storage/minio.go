package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/assetvault/service/internal/apperr"
)

// MinioConfig describes how to reach an S3-compatible endpoint.
type MinioConfig struct {
	// Endpoint is either an absolute URL ("https://oss-cn-hangzhou.aliyuncs.com")
	// or a bare host[:port]. Only the URL form yields public URLs.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	// BucketLookup is "dns", "path" or "auto".
	BucketLookup string
	// UseSSL applies when Endpoint carries no scheme.
	UseSSL bool
}

// MinioStorage implements Storage on top of minio-go.
type MinioStorage struct {
	client   *minio.Client
	endpoint string
	log      *slog.Logger
}

// NewMinioStorage creates a client for cfg. It does not contact the
// endpoint; buckets are expected to exist unless EnsureBucket is called.
func NewMinioStorage(cfg MinioConfig, log *slog.Logger) (*MinioStorage, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: bucketLookup(cfg.BucketLookup),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{client: client, endpoint: cfg.Endpoint, log: log}, nil
}

// Put uploads the object. Failures are not retried; the S3 error code and
// message are carried verbatim in an *apperr.Upstream.
func (s *MinioStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return upstreamError(err)
	}
	return nil
}

// Delete removes the object at key from bucket.
func (s *MinioStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return upstreamError(err)
	}
	return nil
}

// PublicURL returns scheme://<bucket>.<host>/<key> for URL-style endpoints.
func (s *MinioStorage) PublicURL(bucket, key string) string {
	return PublicURL(s.endpoint, bucket, key)
}

// EnsureBucket creates bucket if missing and grants anonymous read, so the
// derived public URLs resolve. Intended for local MinIO setups.
func (s *MinioStorage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		s.log.Info("created bucket", "bucket", bucket)
	}

	if err := s.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

func upstreamError(err error) *apperr.Upstream {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "" {
		return &apperr.Upstream{Service: "storage", Message: err.Error(), Err: err}
	}
	return &apperr.Upstream{Service: "storage", Code: resp.Code, Message: resp.Message, Err: err}
}

// splitEndpoint turns the configured endpoint into the host[:port] minio-go
// wants and whether to use TLS.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("storage endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

func bucketLookup(mode string) minio.BucketLookupType {
	switch strings.ToLower(mode) {
	case "dns":
		return minio.BucketLookupDNS
	case "path":
		return minio.BucketLookupPath
	default:
		return minio.BucketLookupAuto
	}
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
