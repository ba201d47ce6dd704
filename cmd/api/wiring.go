package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/assetvault/service/internal/config"
	"github.com/assetvault/service/internal/reconcile"
	"github.com/assetvault/service/internal/storage"
)

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", "assetvault", "env", cfg.AppEnv)
	slog.SetDefault(log)
	return cfg, log, nil
}

// newStorage selects MinIO when credentials are configured and an
// in-memory store otherwise.
func newStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if !cfg.StorageConfigured() {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("STORAGE_ACCESS_KEY is required in production")
		}
		log.Warn("no storage credentials configured, objects are kept in memory")
		return storage.NewMemoryStorage(cfg.StorageEndpoint), nil
	}

	st, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:     cfg.StorageEndpoint,
		AccessKey:    cfg.StorageAccessKey,
		SecretKey:    cfg.StorageSecretKey,
		Region:       cfg.StorageRegion,
		BucketLookup: cfg.StorageBucketLookup,
		UseSSL:       cfg.StorageUseSSL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("object storage init failed: %w", err)
	}

	if cfg.StorageEnsureBuckets {
		for _, b := range knownBuckets(cfg) {
			if err := st.EnsureBucket(ctx, b); err != nil {
				return nil, fmt.Errorf("ensure bucket %q: %w", b, err)
			}
		}
	}
	log.Info("object storage ready", "endpoint", cfg.StorageEndpoint, "lookup", cfg.StorageBucketLookup)
	return st, nil
}

func knownBuckets(cfg *config.Config) []string {
	buckets := slices.Clone(cfg.AllowedBuckets)
	if cfg.DefaultBucket != "" && !slices.Contains(buckets, cfg.DefaultBucket) {
		buckets = append(buckets, cfg.DefaultBucket)
	}
	return buckets
}

// orphanQueue is the producer and consumer side of the orphan queue.
type orphanQueue struct {
	queue  reconcile.Queue
	source reconcile.Source
	close  func() error
}

// newOrphanQueue uses Kafka when brokers are configured. The in-memory
// queue only works when the worker runs in the same process.
func newOrphanQueue(cfg *config.Config, log *slog.Logger) orphanQueue {
	if len(cfg.KafkaBrokers) == 0 {
		q := reconcile.NewMemoryQueue(1024)
		return orphanQueue{queue: q, source: q, close: func() error { return nil }}
	}

	kcfg := reconcile.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaOrphanTopic, GroupID: cfg.KafkaGroupID}
	producer := reconcile.NewKafkaQueue(kcfg)
	consumer := reconcile.NewKafkaSource(kcfg)
	log.Info("orphan queue on kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaOrphanTopic)
	return orphanQueue{
		queue:  producer,
		source: consumer,
		close: func() error {
			perr := producer.Close()
			if cerr := consumer.Close(); cerr != nil {
				return cerr
			}
			return perr
		},
	}
}
