package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/media"
	"github.com/assetvault/service/internal/metrics"
	"github.com/assetvault/service/internal/optimizer"
	"github.com/assetvault/service/internal/reconcile"
	"github.com/assetvault/service/internal/storage"
)

const (
	statsDays            = 30
	orphanEnqueueTimeout = 5 * time.Second
)

// Options wires a Service. Storage, Store and Optimizer are required.
type Options struct {
	Policy    BucketPolicy
	Optimizer optimizer.Optimizer
	Storage   storage.Storage
	Store     Store
	// Orphans receives objects whose record insert failed. May be nil.
	Orphans  reconcile.Queue
	Transfer TransferConfig
	Metrics  metrics.Observer
	Tracer   trace.Tracer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service runs the ingestion pipeline and serves stored records.
type Service struct {
	policy    BucketPolicy
	optimizer optimizer.Optimizer
	storage   storage.Storage
	store     Store
	orphans   reconcile.Queue
	transfer  TransferConfig
	obs       metrics.Observer
	tracer    trace.Tracer
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates a new asset Service.
func NewService(o Options) *Service {
	s := &Service{
		policy:    o.Policy,
		optimizer: o.Optimizer,
		storage:   o.Storage,
		store:     o.Store,
		orphans:   o.Orphans,
		transfer:  o.Transfer.withDefaults(),
		obs:       o.Metrics,
		tracer:    o.Tracer,
		log:       o.Logger,
		now:       o.Now,
	}
	if s.optimizer == nil {
		s.optimizer = optimizer.Passthrough{}
	}
	if s.obs == nil {
		s.obs = metrics.Nop()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("asset")
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// UploadInput is one upload request. Width, Height and TargetFormat are the
// raw form values; empty means not requested.
type UploadInput struct {
	Filename     string
	Data         []byte
	Bucket       string
	Tags         string
	Width        string
	Height       string
	TargetFormat string
	// Uploader is the authenticated subject, empty when auth is off.
	Uploader string
}

// Upload runs the image pipeline and returns the created record.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Asset, error) {
	ctx, span := s.tracer.Start(ctx, "asset.upload", trace.WithAttributes(
		attribute.String("asset.filename", in.Filename),
		attribute.Int("asset.size", len(in.Data)),
	))
	defer span.End()

	log := s.log.With("op", "upload", "filename", in.Filename)
	if in.Uploader != "" {
		log = log.With("uploader", in.Uploader)
	}
	p := newRun(ctx, log, s.obs, s.tracer)

	var (
		width, height *int
		tags          []string
	)
	err := p.step(StageReceived, func(context.Context) error {
		if len(in.Data) == 0 {
			return apperr.Invalid("uploaded file is empty")
		}
		if err := validateFilename(in.Filename); err != nil {
			return err
		}
		tags = ParseTags(in.Tags)
		if err := validateTags(tags); err != nil {
			return err
		}
		var err error
		if width, err = parseDimension("width", in.Width); err != nil {
			return err
		}
		height, err = parseDimension("height", in.Height)
		return err
	})
	if err != nil {
		return nil, err
	}

	var target media.Format
	_ = p.step(StageFormatResolved, func(context.Context) error {
		target, _ = media.Resolve(in.Filename, in.Data)
		if f, ok := media.Normalize(in.TargetFormat); ok {
			target = f
		}
		return nil
	})

	var bucket string
	err = p.step(StageBucketResolved, func(context.Context) error {
		var err error
		bucket, err = s.policy.Resolve(in.Bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	var out optimizer.Result
	err = p.step(StageTransformed, func(ctx context.Context) error {
		res, err := s.optimizer.Optimize(ctx, in.Data, optimizer.Options{Width: width, Height: height, Format: target})
		if err != nil {
			return upstreamError("optimizer", err, http.StatusBadRequest)
		}
		if res.Format == "" {
			res.Format = target
		}
		if res.Width == nil || res.Height == nil {
			if w, h, ok := media.Dimensions(res.Data); ok {
				res.Width, res.Height = &w, &h
			}
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	key := NewObjectKey(in.Filename, string(out.Format))
	err = p.step(StageUploaded, func(ctx context.Context) error {
		return s.put(ctx, bucket, key, out.Data, media.ContentType(out.Format, in.Filename), http.StatusBadRequest)
	})
	if err != nil {
		return nil, err
	}

	var created *Asset
	err = p.step(StagePersisted, func(ctx context.Context) error {
		var err error
		created, err = s.store.Create(ctx, NewAsset{
			OriginalFilename: in.Filename,
			Bucket:           bucket,
			ObjectKey:        key,
			PublicURL:        optionalString(s.storage.PublicURL(bucket, key)),
			SizeBytes:        int64(len(out.Data)),
			Width:            out.Width,
			Height:           out.Height,
			Format:           out.Format.OrBinary(),
			Tags:             tags,
		})
		if err != nil {
			s.enqueueOrphan(ctx, bucket, key, err)
			return fmt.Errorf("persist asset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.done("id", created.ID, "bucket", bucket, "key", key, "format", created.Format,
		"size", created.SizeBytes, "transformed", out.Transformed)
	return created, nil
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id int64) (*Asset, error) {
	return s.store.GetByID(ctx, id)
}

// List returns one page of records.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	res, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if res.Items == nil {
		res.Items = []Asset{}
	}
	return res, nil
}

// Stats returns aggregates with a zero-filled daily histogram covering the
// last 30 UTC days, today included.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(statsDays - 1))

	st, err := s.store.Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	st.UploadsByDay = fillDays(since, statsDays, st.UploadsByDay)
	return st, nil
}

func (s *Service) put(ctx context.Context, bucket, key string, data []byte, contentType string, status int) error {
	if err := s.storage.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return upstreamError("storage", err, status)
	}
	s.obs.ObserveUpload(int64(len(data)))
	return nil
}

// enqueueOrphan hands an uploaded object without a record to the
// reconciler. It must outlive a cancelled request. A duplicate key means an
// existing record owns the object, so it is never queued.
func (s *Service) enqueueOrphan(ctx context.Context, bucket, key string, cause error) {
	log := s.log.With("bucket", bucket, "key", key)
	if errors.Is(cause, ErrDuplicateKey) {
		log.Error("object key already recorded, object kept", "cause", cause)
		return
	}
	if s.orphans == nil {
		s.obs.ObserveOrphan("lost")
		log.Error("no orphan queue configured, object left in storage", "cause", cause)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanEnqueueTimeout)
	defer cancel()

	err := s.orphans.Enqueue(ctx, reconcile.Orphan{
		Bucket: bucket,
		Key:    key,
		Reason: cause.Error(),
		At:     s.now().UTC(),
	})
	if err != nil {
		s.obs.ObserveOrphan("lost")
		log.Error("enqueue orphan, object left in storage", "cause", cause, "error", err)
		return
	}
	s.obs.ObserveOrphan("queued")
	log.Warn("record insert failed, orphan queued for cleanup", "cause", cause)
}

// upstreamError attaches the call path's status to an external failure.
func upstreamError(service string, err error, status int) error {
	var up *apperr.Upstream
	if errors.As(err, &up) {
		return up.WithStatus(status)
	}
	return &apperr.Upstream{Service: service, Err: err, Status: status}
}

func parseDimension(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return nil, apperr.Invalid("%s must be a positive integer", name)
	}
	return &v, nil
}

func fillDays(since time.Time, days int, counts []DayCount) []DayCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	out := make([]DayCount, days)
	for i := range out {
		d := since.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = DayCount{Date: d, Count: byDate[d]}
	}
	return out
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
