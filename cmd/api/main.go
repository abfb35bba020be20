package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/database"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/router"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	backend, err := learnapi.New(learnapi.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		CorrelationID: middleware.CorrelationIDFromContext,
		Observe:       observability.ObserveBackendCall,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create learning backend client: %v", err)
	}

	var (
		views       repository.ViewRepository
		storePinger handler.StorePinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		views = repository.NewRedisViewRepository(redisClient, cfg.ViewTTL)
		storePinger = pingRedis(redisClient)
	} else {
		logger.Warn().Msg("no redis url configured, views are kept in process memory")
		views = repository.NewMemoryViewRepository(cfg.ViewTTL)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	editorService := service.NewEditorService(backend, validate, logger)
	viewService := service.NewViewService(service.ViewDependencies{
		Views:       views,
		Loader:      service.NewTreeLoader(backend, cfg.LoaderMaxConcurrency, logger),
		Progress:    service.NewProgressTracker(backend, logger),
		Submissions: service.NewSubmissionService(backend, cfg.SubmissionMaxFileMB, logger),
		Quizzes:     service.NewQuizService(backend, cfg.QuizAdvanceDelay, logger),
		Editor:      editorService,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// multipart overhead on top of the largest accepted file
		BodyLimit: (cfg.SubmissionMaxFileMB + 1) << 20,
	})

	middleware.Register(app, middleware.Config{
		Logger:        &logger,
		AllowOrigins:  cfg.AllowOrigins,
		AccessLogging: !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		ViewHandler:       handler.NewViewHandler(viewService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(viewService, logger),
		QuizHandler:       handler.NewQuizHandler(viewService, validate, logger),
		EditorHandler:     handler.NewEditorHandler(viewService, editorService, validate, logger),
		SessionMiddleware: middleware.Session(),
		SubmitRateLimit:   middleware.RateLimit("submit", cfg.RateLimitMax, cfg.RateLimitWindow),
		AnswerRateLimit:   middleware.RateLimit("answer", cfg.RateLimitMax, cfg.RateLimitWindow),
		StorePinger:       storePinger,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("backend", cfg.BackendURL).Msg("classroom service started")
	waitForShutdown(app, logger)
}

func pingRedis(client *redis.Client) handler.StorePinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
