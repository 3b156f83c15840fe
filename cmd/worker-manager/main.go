// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketplace-workers/internal/api"
	awsclients "marketplace-workers/internal/common/aws"
	"marketplace-workers/internal/common/camunda"
	"marketplace-workers/internal/common/config"
	"marketplace-workers/internal/common/database"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/observability"
	"marketplace-workers/internal/common/validation"
	"marketplace-workers/internal/indexer"
	"marketplace-workers/internal/notifier"
	"marketplace-workers/internal/store"

	hirebid "marketplace-workers/internal/workers/bidding/hire-bid"
	listjobbids "marketplace-workers/internal/workers/bidding/list-job-bids"
	queryworkerbids "marketplace-workers/internal/workers/bidding/query-worker-bids"
	submitbid "marketplace-workers/internal/workers/bidding/submit-bid"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stderr")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.Observability, prometheus.DefaultRegisterer)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- PostgreSQL ---
	var db *sql.DB
	err = retryWithBackoff(func() error {
		var err error
		db, err = database.OpenPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer db.Close()
	zapLog.Info("PostgreSQL connected successfully")

	repo := store.New(db)
	if cfg.Database.Postgres.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("Schema migrated")
	}

	// --- Redis (notification de-dup only) ---
	var rdb *redis.Client
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.OpenRedis(ctx, cfg.Database.Redis)
		return err
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		rdb = nil
		zapLog.Warn("redis unavailable, notifications will not be de-duplicated", zap.Error(err))
	} else {
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch (bid activity index) ---
	var bidIndexer *indexer.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var es *elasticsearch.Client
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.OpenElasticsearch(ctx, cfg.Database.Elasticsearch)
			return err
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, bid events will not be indexed", zap.Error(err))
		} else {
			bidIndexer = indexer.New(es, cfg.Indexer.Index, log)
			zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Indexer.Index))
		}
	}

	// --- AWS push / email ---
	var snsSvc notifier.SNSService
	var sesSvc notifier.SESService
	if cfg.Notifications.Push.Enabled || cfg.Notifications.Email.Enabled {
		awsCfg, err := awsclients.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Notifications.Push.Enabled {
			snsSvc = awsclients.NewSNSClient(awsCfg)
		}
		if cfg.Notifications.Email.Enabled {
			sesSvc = awsclients.NewSESClient(awsCfg)
		}
	}

	notify := notifier.New(notifier.LoadConfig(cfg.Notifications), repo, rdb, snsSvc, sesSvc, log)

	validator, err := validation.NewDefaultValidator()
	if err != nil {
		zapLog.Fatal("failed to load activity schemas", zap.Error(err))
	}

	// A nil *Indexer must not reach the handlers as a non-nil interface.
	var submitIdx submitbid.EventIndexer
	var hireIdx hirebid.EventIndexer
	if bidIndexer != nil {
		submitIdx = bidIndexer
		hireIdx = bidIndexer
	}

	submitHandler := submitbid.NewHandler(submitbid.LoadConfig(cfg), repo, notify, submitIdx, validator, log)
	listHandler := listjobbids.NewHandler(listjobbids.LoadConfig(cfg), repo, validator, log)
	hireHandler := hirebid.NewHandler(hirebid.LoadConfig(cfg), repo, notify, hireIdx, validator, log)
	queryHandler := queryworkerbids.NewHandler(queryworkerbids.LoadConfig(cfg), repo, validator, log)

	// --- Zeebe job workers ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		handlers := map[string]camunda.JobHandler{
			submitbid.TaskType:       submitHandler,
			listjobbids.TaskType:     listHandler,
			hirebid.TaskType:         hireHandler,
			queryworkerbids.TaskType: queryHandler,
		}
		for taskType, h := range handlers {
			if !config.IsWorkerEnabled(cfg, taskType) {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				continue
			}
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), h, obs, zapLog))
		}
		zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	}

	// --- REST API ---
	apiServer := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: api.Server{
			Submit:         submitHandler,
			ListJobBids:    listHandler,
			Hire:           hireHandler,
			WorkerBids:     queryHandler,
			Logger:         log.WithFields(map[string]interface{}{"component": "api"}),
			RequestTimeout: config.GetDuration(cfg.HTTP.RequestTimeout),
		}.Router(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.HTTP.Address))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	checks := map[string]func(context.Context) error{"postgres": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return database.PingRedis(ctx, rdb) }
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}
	opsServer := &http.Server{
		Addr:    cfg.HTTP.OpsAddress,
		Handler: newOpsMux(checks),
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.HTTP.OpsAddress))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping API server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
