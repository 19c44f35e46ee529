package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/gemini"
	"github.com/bhoomash/publicwayservice-sub000/internal/handler"
	"github.com/bhoomash/publicwayservice-sub000/internal/kafka"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/repository"
	"github.com/bhoomash/publicwayservice-sub000/internal/router"
	"github.com/bhoomash/publicwayservice-sub000/internal/service"
	"github.com/bhoomash/publicwayservice-sub000/pkg/cache"
	"github.com/bhoomash/publicwayservice-sub000/pkg/config"
	"github.com/bhoomash/publicwayservice-sub000/pkg/database"
	"github.com/bhoomash/publicwayservice-sub000/pkg/jobs"
	"github.com/bhoomash/publicwayservice-sub000/pkg/observability"
)

const queueDrainTimeout = 10 * time.Second

// App holds the wired components of the grievance service.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *sqlx.DB
	Redis       *redis.Client
	Metrics     *service.MetricsService
	Queue       *jobs.Queue
	Index       *service.SimilarityIndex
	Complaints  *service.ComplaintService
	Intake      *service.IntakeService
	Maintenance *service.MaintenanceService
	Auth        *service.AuthService
	Engine      *gin.Engine

	closers         []func() error
	shutdownTracing observability.Shutdown
}

// New connects to backing services and wires every component. Nothing runs
// until Start is called.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.shutdownTracing, err = observability.InitTracing(ctx, cfg.Telemetry, cfg.Env, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	a.DB, err = database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, a.DB.Close)
	if cfg.Database.MigrateOnBoot {
		if err := database.Migrate(a.DB, database.DirectionUp, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		client, redisErr := cache.NewRedis(ctx, cfg.Redis)
		if redisErr != nil {
			if strings.Contains(cfg.Notifications.Sink, config.SinkRedis) {
				return nil, redisErr
			}
			logger.Warn("redis unavailable; snapshot cache disabled", zap.Error(redisErr))
		} else {
			a.Redis = client
			a.closers = append(a.closers, client.Close)
		}
	}

	tax, err := config.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		return nil, err
	}
	taxonomy, err := service.NewTaxonomy(tax)
	if err != nil {
		return nil, err
	}

	a.Metrics = service.NewMetricsService()
	complaintRepo := repository.NewComplaintRepository(a.DB)
	vectorRepo := repository.NewVectorRepository(a.DB)

	var (
		embedder       service.Embedder = service.NewHashingEmbedder(cfg.Similarity.Dimensions)
		classifierOpts                  = []service.ClassifierOption{service.WithClassifierMetrics(a.Metrics)}
	)
	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		client, gerr := gemini.NewClient(ctx, gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			ModelName:      cfg.Gemini.Model,
			EmbeddingModel: cfg.Gemini.EmbeddingModel,
			MaxRetries:     cfg.Gemini.MaxRetries,
			CallTimeout:    cfg.Gemini.Timeout,
		}, logger)
		if gerr != nil {
			return nil, gerr
		}
		a.closers = append(a.closers, client.Close)
		embedder = service.NewGeminiEmbedder(client)
		classifierOpts = append(classifierOpts, service.WithPrimaryBackend(service.NewLLMBackend(client, taxonomy)))
	} else {
		logger.Info("no gemini key configured; using rule classifier and hashing embedder")
	}

	a.Index = service.NewSimilarityIndex(embedder, vectorRepo, complaintRepo, service.SimilarityConfig{
		Threshold: cfg.Similarity.Threshold,
		TopK:      cfg.Similarity.TopK,
	}, a.Metrics, logger)

	mux := jobs.NewMux()
	a.Queue = jobs.NewQueue("post-commit", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Workers.Concurrency,
		BufferSize: cfg.Workers.BufferSize,
		MaxRetries: cfg.Workers.MaxRetries,
		RetryDelay: cfg.Workers.RetryDelay,
		Logger:     logger,
		OnFailure: func(job jobs.Job, err error) {
			a.Metrics.ObserveJobFailure(job.Type)
			logger.Error("background job abandoned", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		},
	})

	sinks, err := a.buildSinks(cfg.Notifications)
	if err != nil {
		return nil, err
	}
	dispatcher := service.NewNotificationDispatcher(a.Queue, a.Metrics, logger, sinks...)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(a.Redis, logger), a.Metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled && a.Redis != nil)
	a.Complaints = service.NewComplaintService(complaintRepo, taxonomy, logger,
		service.WithComplaintCache(cacheSvc),
		service.WithNotifier(dispatcher),
		service.WithIndexRemover(a.Index),
		service.WithTransitionMetrics(a.Metrics),
	)

	normalizer := service.NewNormalizer(service.NormalizerConfig{
		MinBodyLength:     cfg.Triage.MinBodyLength,
		MinDocumentLength: cfg.Triage.MinDocumentLength,
		MaxTitleLength:    cfg.Triage.MaxTitleLength,
	})
	classifier := service.NewClassifier(taxonomy, service.ClassifierConfig{
		RejectionThreshold: cfg.Triage.RejectionThreshold,
		TieEpsilon:         cfg.Triage.TieEpsilon,
		Timeout:            cfg.Triage.ClassifyTimeout,
	}, logger, classifierOpts...)
	scorer := service.NewPriorityScorer(priorityPolicy(cfg.Priority), taxonomy)

	a.Intake = service.NewIntakeService(normalizer, classifier, a.Index, scorer, a.Complaints, a.Queue, a.Metrics, logger)
	mux.Handle(service.JobNotify, dispatcher.Handle)
	mux.Handle(service.JobIndex, a.Intake.HandleIndexJob)

	a.Maintenance = service.NewMaintenanceService(complaintRepo, a.Complaints, a.Index, scorer, service.MaintenanceConfig{
		Interval: cfg.Rescore.Interval,
		MinAge:   cfg.Rescore.MinAge,
	}, logger)

	a.Auth = service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
		Leeway:            cfg.JWT.Leeway,
	})

	a.Engine = router.New(router.Config{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
		Metrics:        a.Metrics,
		Auth:           a.Auth,
	}, router.Handlers{
		Complaints: handler.NewComplaintHandler(a.Intake, a.Complaints, service.NewExportService(a.Complaints, logger, nil, nil)),
		Admin:      handler.NewAdminHandler(a.Complaints),
		Health:     handler.NewMetricsHandler(a.Metrics, a.readinessChecks()),
	})

	return a, nil
}

// Start launches the worker pool, warms the similarity index and, when
// enabled, the periodic rescorer. A failed index load degrades duplicate
// detection instead of failing startup.
func (a *App) Start(ctx context.Context) {
	a.Queue.Start(ctx)
	if err := a.Index.Load(ctx); err != nil {
		a.Logger.Warn("similarity index load failed; duplicate detection degraded", zap.Error(err))
	}
	if a.Config.Rescore.Enabled {
		go a.Maintenance.Run(ctx)
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", a.Config.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close drains the queue and releases every connection. Safe to call on a partially built App.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop(queueDrainTimeout)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
}

func (a *App) buildSinks(cfg config.NotificationConfig) ([]service.NotificationSink, error) {
	var sinks []service.NotificationSink
	for _, name := range strings.Split(cfg.Sink, ",") {
		switch strings.TrimSpace(name) {
		case "", config.SinkLog:
			sinks = append(sinks, service.NewLogSink(a.Logger))
		case config.SinkRedis:
			if a.Redis == nil {
				return nil, fmt.Errorf("notification sink %q requires redis", name)
			}
			stream := repository.NewNotificationStreamRepository(a.Redis, cfg.StreamKey, cfg.StreamMaxLen, cfg.DedupeTTL)
			sinks = append(sinks, service.NewStreamSink(stream, a.Logger))
		case config.SinkKafka:
			producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
			if !producer.Enabled() {
				return nil, fmt.Errorf("notification sink %q requires KAFKA_BROKERS and KAFKA_TOPIC", name)
			}
			a.closers = append(a.closers, producer.Close)
			sinks = append(sinks, service.NewKafkaSink(producer))
		default:
			return nil, fmt.Errorf("unknown notification sink %q", name)
		}
	}
	return sinks, nil
}

func (a *App) readinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return a.DB.PingContext(ctx) },
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

func priorityPolicy(cfg config.PriorityConfig) service.PriorityPolicy {
	// Configured weights override the defaults one urgency at a time; zero is a valid weight.
	weights := service.DefaultPriorityPolicy().UrgencyWeights
	for raw, w := range cfg.UrgencyWeights {
		if u, err := models.ParseUrgency(raw); err == nil && w >= 0 {
			weights[u] = w
		}
	}
	return service.PriorityPolicy{
		UrgencyWeights: weights,
		DuplicateCap:   cfg.DuplicateCap,
		DuplicateDecay: cfg.DuplicateDecay,
		AgeStep:        cfg.AgeStep,
		AgeCap:         cfg.AgeCap,
		HighCutoff:     cfg.HighCutoff,
		MediumCutoff:   cfg.MediumCutoff,
	}
}
