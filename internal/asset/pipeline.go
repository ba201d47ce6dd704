package asset

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/metrics"
)

// Stage is a state of the ingestion pipeline. Runs only move forward; any
// stage may end in StageFailed instead.
type Stage string

const (
	StageReceived       Stage = "RECEIVED"
	StageFormatResolved Stage = "FORMAT_RESOLVED"
	StageBucketResolved Stage = "BUCKET_RESOLVED"
	StageTransformed    Stage = "TRANSFORMED_OR_PASSTHROUGH"
	// StageDownloaded replaces format resolution and optimization in the
	// URL transfer variant.
	StageDownloaded Stage = "DOWNLOADED"
	StageUploaded   Stage = "UPLOADED"
	StagePersisted  Stage = "PERSISTED"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// run tracks one pipeline instance.
type run struct {
	ctx    context.Context
	log    *slog.Logger
	obs    metrics.Observer
	tracer trace.Tracer
	stage  Stage
}

func newRun(ctx context.Context, log *slog.Logger, obs metrics.Observer, tracer trace.Tracer) *run {
	return &run{ctx: ctx, log: log, obs: obs, tracer: tracer}
}

// step performs the work that moves the run into next. A failing step
// leaves the run in StageFailed and returns the error unchanged.
func (r *run) step(next Stage, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(r.ctx, "asset."+strings.ToLower(string(next)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.obs.ObserveStage(string(next), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", apperr.Kind(err)))
		r.log.Warn("pipeline failed", "stage", next, "after", r.stage, "kind", apperr.Kind(err), "error", err)
		r.stage = StageFailed
		return err
	}

	r.log.Debug("pipeline advanced", "from", r.stage, "to", next)
	r.stage = next
	return nil
}

// done marks the run complete.
func (r *run) done(attrs ...any) {
	r.stage = StageDone
	r.log.Info("pipeline done", attrs...)
}
