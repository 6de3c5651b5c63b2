package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/ai"
	"github.com/signalhq/signal-backend/internal/cache"
	"github.com/signalhq/signal-backend/internal/config"
	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/feedback"
	httpserver "github.com/signalhq/signal-backend/internal/http"
	"github.com/signalhq/signal-backend/internal/http/handlers"
	"github.com/signalhq/signal-backend/internal/logging"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/orchestrator"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/queue"
	"github.com/signalhq/signal-backend/internal/repository"
)

func main() {
	logger := logging.New("signal-api")
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.WithError(err).Warn("failed loading .env files")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	jobsRepo, recordsRepo, paramsRepo, repoCloser := setupRepositories(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	generator := ai.NewInstrumentedGenerator(ai.NewClient(ai.ClientConfig{
		APIKey:     cfg.AdapterAPIKey,
		BaseURL:    cfg.AdapterBaseURL,
		Model:      cfg.AdapterModel,
		Timeout:    time.Duration(cfg.AdapterTimeoutMS) * time.Millisecond,
		MaxRetries: cfg.AdapterMaxRetries,
	}), collector)
	genCache := cache.NewGenerationCache(cache.Config{
		TTL:        time.Duration(cfg.GenCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.GenCacheMaxEntries,
	})

	signalStage := pipeline.NewSignalStage(
		recordsRepo, paramsRepo,
		pipeline.NewSeedSignalSource(pipeline.DefaultSeedSignals()),
		logger,
	)
	campaignStage := pipeline.NewCampaignStage(recordsRepo, paramsRepo, generator, logger)
	strategyStage := pipeline.NewStrategyStage(recordsRepo, paramsRepo, generator, logger)
	pieceStage := pipeline.NewPieceStage(recordsRepo, generator, genCache, collector, logger)
	feedbackEngine := feedback.NewEngine(recordsRepo, paramsRepo, feedback.EngineConfig{
		Alpha:        cfg.FeedbackAlpha,
		MinCompanies: cfg.FeedbackMinCompanies,
	}, collector, logger)

	coordinator := pipeline.NewCoordinator(
		recordsRepo, signalStage, campaignStage, strategyStage, pieceStage,
		feedbackEngine, logger,
	)

	orchestratorService := orchestrator.NewService(jobsRepo, producer, collector, logger)
	intakeService := pipeline.NewIntakeService(recordsRepo, cfg.SafetyThresholdDefault, logger)

	if cfg.WorkerEnabled {
		worker := orchestrator.NewWorker(
			consumer, jobsRepo, coordinator,
			func(jobType domain.JobType) time.Duration { return cfg.JobTimeout(string(jobType)) },
			cfg.WorkerCount, collector, logger,
		)
		go worker.Start(ctx)
		logger.WithField("pool_size", cfg.WorkerCount).Info("worker pool started")
	} else {
		logger.Info("worker disabled by configuration")
	}

	if cfg.SchedulerEnabled {
		scheduler := feedback.NewScheduler(
			recordsRepo,
			func(ctx context.Context, companyID string) error {
				_, err := orchestratorService.Submit(ctx, domain.JobTypeFeedbackTrigger, companyID, nil)
				return err
			},
			feedback.SchedulerConfig{
				Spec:            cfg.SchedulerSpec,
				MinNewCampaigns: cfg.SchedulerMinNewCampaign,
			},
			logger,
		)
		if err := scheduler.Start(); err != nil {
			logger.WithError(err).Error("feedback scheduler failed to start")
		} else {
			defer scheduler.Stop()
		}
	}

	api := handlers.NewAPI(orchestratorService, intakeService, recordsRepo, paramsRepo, logger)
	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Collector:      collector,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("api listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func setupRepositories(
	ctx context.Context,
	cfg config.Config,
	logger *logrus.Entry,
) (repository.JobsRepository, repository.RecordsRepository, repository.ParamsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not configured, using in-memory repositories")
		return repository.NewMemoryJobsRepository(),
			repository.NewMemoryRecordsRepository(),
			repository.NewMemoryParamsRepository(),
			func() {}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(ctx)
	}
	if err != nil {
		logger.WithError(err).Warn("postgres unavailable, falling back to in-memory repositories")
		return repository.NewMemoryJobsRepository(),
			repository.NewMemoryRecordsRepository(),
			repository.NewMemoryParamsRepository(),
			func() {}
	}

	logger.Info("postgres repositories initialized")
	return repository.NewPostgresJobsRepositoryFromPool(pool),
		repository.NewPostgresRecordsRepository(pool),
		repository.NewPostgresParamsRepository(pool),
		func() { pool.Close() }
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *logrus.Entry,
) (queue.Producer, queue.Consumer, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(512, logger)
		return local, local, func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		Stream:    cfg.RedisStream,
		DLQStream: cfg.RedisDLQ,
		Group:     cfg.RedisGroup,
		Consumer:  cfg.RedisConsumer,
	})
	if err != nil {
		logger.WithError(err).Warn("redis streams unavailable, using local queue fallback")
		local := queue.NewLocalQueue(512, logger)
		return local, local, func() {}
	}

	logger.Info("redis streams queue initialized")
	return streams, streams, func() { _ = streams.Close() }
}
