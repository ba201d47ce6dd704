package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/assetvault/service/internal/asset"
	"github.com/assetvault/service/internal/db"
	"github.com/assetvault/service/internal/httpclient"
	"github.com/assetvault/service/internal/metrics"
	appMiddleware "github.com/assetvault/service/internal/middleware"
	"github.com/assetvault/service/internal/optimizer"
	"github.com/assetvault/service/internal/reconcile"
	"github.com/assetvault/service/internal/telemetry"

	_ "github.com/assetvault/service/docs/swagger"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var serveOpts struct {
	migrate    bool
	reconciler bool
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&serveOpts.migrate, "migrate", true, "apply pending database migrations before serving")
	cmd.Flags().BoolVar(&serveOpts.reconciler, "reconciler", true, "run the orphan cleanup worker in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		OTLPEndpoint:   cfg.OTLPEndpoint,
		ServiceVersion: version,
		Environment:    cfg.AppEnv,
	})
	if err != nil {
		return err
	}

	if serveOpts.migrate {
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}
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
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	var records asset.Store = asset.NewRepository(pool)
	if cfg.RecordCacheSize > 0 {
		if records, err = asset.NewCachedStore(records, cfg.RecordCacheSize); err != nil {
			return err
		}
	}

	orphans := newOrphanQueue(cfg, log)
	defer func() {
		if err := orphans.close(); err != nil {
			log.Error("close orphan queue", "error", err)
		}
	}()

	// Wire dependencies: repository → service → handler
	svc := asset.NewService(asset.Options{
		Policy: asset.BucketPolicy{Allowed: cfg.AllowedBuckets, Default: cfg.DefaultBucket},
		Optimizer: optimizer.New(optimizer.TinifyConfig{
			APIKey:   cfg.TinifyAPIKey,
			Endpoint: cfg.TinifyEndpoint,
			Timeout:  cfg.OptimizerTimeout,
			RPS:      cfg.OptimizerRPS,
		}, log),
		Storage: store,
		Store:   records,
		Orphans: orphans.queue,
		Transfer: asset.TransferConfig{
			Client:       httpclient.New(cfg.TransferTimeout),
			Timeout:      cfg.TransferTimeout,
			MaxBytes:     cfg.TransferMaxBytes,
			AllowedHosts: cfg.TransferAllowedHosts,
		},
		Metrics: obs,
		Tracer:  tp.Tracer(),
		Logger:  log,
	})
	assetHandler := asset.NewHandler(svc, log, cfg.MaxUploadBytes)

	workerDone := make(chan struct{})
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	if serveOpts.reconciler {
		worker := reconcile.NewWorker(store, records, log.With("component", "reconciler"), obs, nil)
		go func() {
			defer close(workerDone)
			_ = worker.Run(workerCtx, orphans.source)
		}()
	} else {
		close(workerDone)
	}

	writeGuards := []func(http.Handler) http.Handler{appMiddleware.Limit(cfg.MaxConcurrentUploads)}
	if cfg.JWTSecret != "" {
		writeGuards = append([]func(http.Handler) http.Handler{appMiddleware.RequireAuth(cfg.JWTSecret)}, writeGuards...)
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
		assetHandler.Register(r, writeGuards...)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "swagger", "/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stopWorker()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	stopWorker()
	<-workerDone
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("flush traces", "error", err)
	}

	log.Info("server stopped")
	return nil
}
