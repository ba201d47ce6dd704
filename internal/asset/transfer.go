package asset

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/httpclient"
	"github.com/assetvault/service/internal/media"
)

const (
	defaultTransferTimeout  = 30 * time.Second
	defaultTransferMaxBytes = 100 << 20
	defaultPDFFilename      = "document.pdf"
	pdfContentType          = "application/pdf"
)

var pdfMagic = []byte("%PDF-")

// TransferConfig bounds remote downloads.
type TransferConfig struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	// AllowedHosts restricts source URLs to these host names. Empty allows
	// any host.
	AllowedHosts []string
}

func (c TransferConfig) withDefaults() TransferConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultTransferTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultTransferMaxBytes
	}
	if c.Client == nil {
		c.Client = httpclient.New(c.Timeout)
	}
	return c
}

func (c TransferConfig) hostAllowed(host string) bool {
	if len(c.AllowedHosts) == 0 {
		return true
	}
	return slices.ContainsFunc(c.AllowedHosts, func(h string) bool {
		return strings.EqualFold(h, host)
	})
}

// TransferInput asks for a remote PDF to be copied into storage.
type TransferInput struct {
	URL    string `json:"url"`
	Bucket string `json:"bucket,omitempty"`
	// Uploader is the authenticated subject, set by the handler.
	Uploader string `json:"-"`
}

// TransferResult describes the stored copy.
type TransferResult struct {
	ID     int64   `json:"id"`
	Bucket string  `json:"bucket"`
	Key    string  `json:"key"`
	URL    *string `json:"url"`
}

// Transfer downloads a PDF from in.URL, stores it and records it. Upload
// failures surface as 500 on this path.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	ctx, span := s.tracer.Start(ctx, "asset.transfer", trace.WithAttributes(
		attribute.String("transfer.url", in.URL),
	))
	defer span.End()

	log := s.log.With("op", "transfer", "url", in.URL)
	if in.Uploader != "" {
		log = log.With("uploader", in.Uploader)
	}
	p := newRun(ctx, log, s.obs, s.tracer)

	var (
		source   *url.URL
		filename string
	)
	err := p.step(StageReceived, func(context.Context) error {
		u, err := url.Parse(strings.TrimSpace(in.URL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperr.Invalid("invalid URL format")
		}
		if !s.transfer.hostAllowed(u.Hostname()) {
			return apperr.Invalid("host not allowed: %s", u.Hostname())
		}
		source = u
		filename = filenameFromURL(u)
		return validateFilename(filename)
	})
	if err != nil {
		return nil, err
	}

	var bucket string
	err = p.step(StageBucketResolved, func(context.Context) error {
		var err error
		bucket, err = s.policy.Resolve(in.Bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	err = p.step(StageDownloaded, func(ctx context.Context) error {
		var err error
		data, err = s.download(ctx, source)
		return err
	})
	if err != nil {
		return nil, err
	}

	key := NewObjectKey(filename, "pdf")
	err = p.step(StageUploaded, func(ctx context.Context) error {
		if err := s.put(ctx, bucket, key, data, pdfContentTypeFor(filename), http.StatusInternalServerError); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publicURL := optionalString(s.storage.PublicURL(bucket, key))
	var created *Asset
	err = p.step(StagePersisted, func(ctx context.Context) error {
		var err error
		created, err = s.store.Create(ctx, NewAsset{
			OriginalFilename: filename,
			Bucket:           bucket,
			ObjectKey:        key,
			PublicURL:        publicURL,
			SizeBytes:        int64(len(data)),
			Format:           media.Binary,
			Tags:             []string{},
		})
		if err != nil {
			s.enqueueOrphan(ctx, bucket, key, err)
			return fmt.Errorf("persist transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.done("id", created.ID, "bucket", bucket, "key", key, "size", len(data))
	return &TransferResult{ID: created.ID, Bucket: bucket, Key: key, URL: publicURL}, nil
}

func (s *Service) download(ctx context.Context, source *url.URL) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transfer.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), nil)
	if err != nil {
		return nil, apperr.Invalid("invalid URL format")
	}
	resp, err := s.transfer.Client.Do(req)
	if err != nil {
		return nil, apperr.Invalid("download failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Invalid("unable to download file, HTTP status: %d", resp.StatusCode)
	}
	data, err := httpclient.ReadAllWithLimit(resp.Body, s.transfer.MaxBytes)
	if httpclient.IsResponseTooLarge(err) {
		return nil, apperr.Invalid("downloaded file exceeds limit of %d bytes", s.transfer.MaxBytes)
	}
	if err != nil {
		return nil, apperr.Invalid("download failed: %v", err)
	}
	if len(data) == 0 {
		return nil, apperr.Invalid("downloaded file is empty")
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, apperr.Invalid("file content is not a PDF")
	}
	return data, nil
}

// filenameFromURL returns the last path segment of u, or a generic PDF name
// when the path ends with a slash.
func filenameFromURL(u *url.URL) string {
	p := u.Path
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return defaultPDFFilename
	}
	return p
}

func pdfContentTypeFor(filename string) string {
	if ext := media.Extension(filename); ext != "" {
		if ct := mime.TypeByExtension("." + ext); ct != "" {
			return ct
		}
	}
	return pdfContentType
}
