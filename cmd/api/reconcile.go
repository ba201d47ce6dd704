package main

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/assetvault/service/internal/asset"
	"github.com/assetvault/service/internal/db"
	"github.com/assetvault/service/internal/metrics"
	"github.com/assetvault/service/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run the orphan cleanup worker",
	Long: `Consumes the orphan topic and deletes objects whose metadata insert failed.
Objects that a record references are kept.

Requires KAFKA_BROKERS; the in-memory queue is only reachable from the
serve process.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var reconcileMetricsAddr string

func init() {
	reconcileCmd.Flags().StringVar(&reconcileMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required for a standalone reconciler")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, log)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	obs, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}
	if reconcileMetricsAddr != "" {
		srv := &http.Server{Addr: reconcileMetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
	}

	source := reconcile.NewKafkaSource(reconcile.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaOrphanTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer source.Close()

	log.Info("reconciler started", "topic", cfg.KafkaOrphanTopic, "group", cfg.KafkaGroupID)
	err = reconcile.NewWorker(store, asset.NewRepository(pool), log, obs, nil).Run(ctx, source)
	log.Info("reconciler stopped")
	return err
}
