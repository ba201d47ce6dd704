package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/assetvault/service/internal/metrics"
)

// Deleter removes objects from storage.
type Deleter interface {
	Delete(ctx context.Context, bucket, key string) error
}

// RecordChecker reports whether a metadata record references an object.
type RecordChecker interface {
	HasRecord(ctx context.Context, bucket, key string) (bool, error)
}

// Worker drains a Source and deletes every orphan it receives, retrying
// failed deletes with exponential backoff. Objects that a record still
// references are kept.
type Worker struct {
	deleter      Deleter
	records      RecordChecker
	log          *slog.Logger
	obs          metrics.Observer
	buildBackoff func() backoff.BackOff
}

// NewWorker creates a Worker. A nil records checker deletes every orphan
// unconditionally. A nil factory uses an exponential backoff capped at one
// minute per orphan.
func NewWorker(deleter Deleter, records RecordChecker, log *slog.Logger, obs metrics.Observer, factory func() backoff.BackOff) *Worker {
	if factory == nil {
		factory = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		}
	}
	if obs == nil {
		obs = metrics.Nop()
	}
	return &Worker{deleter: deleter, records: records, log: log, obs: obs, buildBackoff: factory}
}

// Run processes deliveries until ctx is done or the source is closed.
func (w *Worker) Run(ctx context.Context, src Source) error {
	for {
		d, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			w.log.Error("read orphan", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		w.Handle(ctx, d)
	}
}

// Handle deletes one orphan unless a record references it, then
// acknowledges it. The record check runs before every delete attempt so an
// insert that committed late still keeps its object. Orphans that still fail
// after the backoff budget are logged and acknowledged so the queue keeps
// moving.
func (w *Worker) Handle(ctx context.Context, d Delivery) {
	o := d.Orphan
	b := backoff.WithContext(w.buildBackoff(), ctx)
	referenced := false
	err := backoff.Retry(func() error {
		if w.records != nil {
			ok, err := w.records.HasRecord(ctx, o.Bucket, o.Key)
			if err != nil {
				return err
			}
			if ok {
				referenced = true
				return nil
			}
		}
		return w.deleter.Delete(ctx, o.Bucket, o.Key)
	}, b)

	switch {
	case err == nil && referenced:
		w.obs.ObserveOrphan("kept")
		w.log.Info("orphan has a record, object kept", "bucket", o.Bucket, "key", o.Key)
	case err != nil:
		w.obs.ObserveOrphan("failed")
		w.log.Error("orphan cleanup failed, object left in storage",
			"bucket", o.Bucket, "key", o.Key, "reason", o.Reason, "error", err)
	default:
		w.obs.ObserveOrphan("deleted")
		w.log.Info("orphan deleted", "bucket", o.Bucket, "key", o.Key)
	}

	if d.Ack != nil {
		if err := d.Ack(ctx); err != nil {
			w.log.Error("ack orphan", "bucket", o.Bucket, "key", o.Key, "error", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
