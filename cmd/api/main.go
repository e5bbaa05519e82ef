package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"submission-portal-api/config"
	"submission-portal-api/controllers"
	"submission-portal-api/middleware"
	"submission-portal-api/routes"
	"submission-portal-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logger, flush := config.InitLogging(cfg.Log)
	err = run(cfg, logger)
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
	flush()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource opened after logging so its defers complete before
// main exits.
func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.GinMode == "release" || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, limiterName := submissionLimiter(ctx, cfg, logger)

	artifacts, err := artifactStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("prepare artifact store: %w", err)
	}

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	admission := services.NewAdmissionService(services.AdmissionDeps{
		Limiter:   limiter,
		Validator: services.NewSubmissionValidator(cfg.Storage.MaxUploadBytes),
		Repo:      repo,
		Policy:    services.ParseTeamNamePolicy(cfg.DuplicatePolicy),
		Artifacts: artifacts,
		Notifier:  notifier,
		Logger:    logger.Named("admission"),
	})
	defer admission.Wait()

	handlers := routes.Handlers{
		Submissions: controllers.NewSubmissionController(admission, cfg.Storage.MaxUploadBytes, logger),
		Listing:     controllers.NewListingController(services.NewListingService(repo), logger),
		Health: controllers.NewHealthController(repo, controllers.HealthInfo{
			Environment: cfg.Environment,
			Version:     cfg.AppVersion,
			RateLimiter: limiterName,
		}, logger),
	}
	if cfg.IsProduction() && cfg.RateLimit.MaxRequests > 0 {
		apiLimiter := services.NewMemoryRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window,
			services.WithSweepEvery(cfg.RateLimit.SweepEvery))
		apiLimiter.StartJanitor(ctx)
		handlers.APILimit = middleware.RateLimitMiddleware(apiLimiter, logger)
	}

	router, err := routes.NewRouter(routes.Options{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger.Named("http"),
	}, handlers)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreBackend),
			zap.String("rate_limiter", limiterName),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.SubmissionRepository, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory submission store; data is lost on restart")
		return services.NewMemorySubmissionStore(), func() {}, nil
	}

	db, err := config.InitDB(cfg.Database, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeDB := func() {
		if err := config.CloseDB(db); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}

	store := services.NewSubmissionStore(db, cfg.Database.QueryTimeout)
	if cfg.Database.AutoMigrate {
		if err := store.AutoMigrate(ctx); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	logger.Info("database connected", zap.String("driver", cfg.Database.Driver))

	return store, closeDB, nil
}

func submissionLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.RateLimiter, string) {
	rdb, err := config.InitRedis(cfg.RateLimit)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
	}
	if rdb != nil {
		return services.NewRedisRateLimiter(rdb, cfg.RateLimit.MaxSubmissions, cfg.RateLimit.Window,
			services.WithRedisPrefix(cfg.RateLimit.RedisPrefix+":submit"),
		), "redis"
	}

	limiter := services.NewMemoryRateLimiter(cfg.RateLimit.MaxSubmissions, cfg.RateLimit.Window,
		services.WithSweepEvery(cfg.RateLimit.SweepEvery))
	limiter.StartJanitor(ctx)
	return limiter, "memory"
}

func artifactStore(ctx context.Context, cfg *config.Config) (services.ArtifactStore, error) {
	if cfg.Storage.Backend == "s3" {
		client, err := services.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return services.NewS3ArtifactStore(client, cfg.Storage.S3Bucket), nil
	}

	if err := os.MkdirAll(cfg.Storage.UploadPath, os.ModePerm); err != nil {
		return nil, err
	}
	return services.NewDiskArtifactStore(cfg.Storage.UploadPath), nil
}

func buildNotifier(cfg *config.Config, logger *zap.Logger) (services.SubmissionNotifier, func()) {
	var (
		notifiers services.MultiNotifier
		closers   []func() error
	)

	if len(cfg.Kafka.Brokers) > 0 {
		kn := services.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		notifiers = append(notifiers, kn)
		closers = append(closers, kn.Close)
		logger.Info("kafka notifications enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	mailer := config.NewMailer(cfg.Mail)
	if mailer.Configured() && len(cfg.Mail.NotifyEmails) > 0 {
		notifiers = append(notifiers, services.NewMailNotifier(mailer, cfg.Mail.NotifyEmails))
		logger.Info("mail notifications enabled", zap.Int("recipients", len(cfg.Mail.NotifyEmails)))
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close notifier", zap.Error(err))
			}
		}
	}
	if len(notifiers) == 0 {
		return nil, closeAll
	}
	return notifiers, closeAll
}
