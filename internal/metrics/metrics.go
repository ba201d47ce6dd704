// Package metrics exports ingestion pipeline telemetry to Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/assetvault/service/internal/apperr"
)

const namespace = "assetvault"

// Observer captures pipeline telemetry.
type Observer interface {
	// ObserveStage records how long a pipeline stage took and whether it failed.
	ObserveStage(stage string, duration time.Duration, err error)
	// ObserveUpload records a payload stored in object storage.
	ObserveUpload(sizeBytes int64)
	// ObserveOrphan records the outcome of an orphaned-object cleanup.
	ObserveOrphan(result string)
}

// Prometheus is an Observer backed by Prometheus collectors.
type Prometheus struct {
	stageDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	orphans       *prometheus.CounterVec
}

// NewPrometheus registers the pipeline collectors on reg, reusing any that
// are already registered.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Latency of each ingestion pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Pipeline runs that ended in FAILED, by stage and error kind.",
		}, []string{"stage", "kind"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size successfully uploaded to object storage.",
		}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_total",
			Help:      "Objects left behind by failed persists, by cleanup result.",
		}, []string{"result"}),
	}

	if err := register(reg, &p.stageDuration); err != nil {
		return nil, err
	}
	if err := register(reg, &p.failures); err != nil {
		return nil, err
	}
	if err := register(reg, &p.uploadBytes); err != nil {
		return nil, err
	}
	if err := register(reg, &p.orphans); err != nil {
		return nil, err
	}
	return p, nil
}

// register adds *c to reg, swapping in the existing collector when an
// identical one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register pipeline metric: %w", err)
	}
	return nil
}

func (p *Prometheus) ObserveStage(stage string, duration time.Duration, err error) {
	p.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		p.failures.WithLabelValues(stage, apperr.Kind(err)).Inc()
	}
}

func (p *Prometheus) ObserveUpload(sizeBytes int64) {
	p.uploadBytes.Add(float64(sizeBytes))
}

func (p *Prometheus) ObserveOrphan(result string) {
	p.orphans.WithLabelValues(result).Inc()
}

type nop struct{}

// Nop returns an Observer that records nothing.
func Nop() Observer { return nop{} }

func (nop) ObserveStage(string, time.Duration, error) {}

func (nop) ObserveUpload(int64) {}

func (nop) ObserveOrphan(string) {}
