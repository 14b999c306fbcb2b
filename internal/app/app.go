package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ipasurvey/internal/cache"
	"ipasurvey/internal/config"
	"ipasurvey/internal/events"
	"ipasurvey/internal/repository"
	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest"
	"ipasurvey/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App owns the connections, repositories and services of one process
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Mongo *mongo.Client
	Redis *redis.Client
	Bus   *events.Bus
	Hub   *ws.Hub

	TemplateRepo repository.TemplateRepo
	TestRepo     repository.TestRepo
	ResponseRepo repository.ResponseRepo
	GroupRepo    repository.GroupRepo

	AuthService     *service.AuthService
	AnswerService   *service.AnswerService
	TemplateService *service.TemplateService
	TestService     *service.TestService
	GroupService    *service.GroupService
	ExportService   *service.ExportService
}

// New connects to MongoDB (and Redis when configured) and builds the services
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.Mongo = mongoClient

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", "database", cfg.MongoDB)

	db := mongoClient.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db, logger); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close(context.Background())
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		logger.Info("connected to Redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_URI not set, running without test cache and submission lock")
	}

	bus, err := events.NewBus(logger, cfg.KafkaBrokers)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Bus = bus
	a.Hub = ws.NewHub(logger)

	// Initialize repositories
	a.TemplateRepo = repository.NewTemplateRepo(db)
	a.TestRepo = repository.NewTestRepo(db)
	a.ResponseRepo = repository.NewResponseRepo(db)
	a.GroupRepo = repository.NewGroupRepo(db)

	// Initialize caches
	var testCache cache.TestCache
	var submissionLock cache.SubmissionLock
	if a.Redis != nil {
		testCache = cache.NewTestCache(a.Redis, 0)
		submissionLock = cache.NewSubmissionLock(a.Redis, 0)
	}

	// Initialize services
	validator := service.NewValidator()
	aggregator := service.NewAggregationService(a.ResponseRepo, a.TemplateRepo, logger)

	a.AuthService = service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	a.TemplateService = service.NewTemplateService(a.TemplateRepo, validator, logger)
	a.TestService = service.NewTestService(a.TestRepo, a.TemplateRepo, a.GroupRepo, testCache, validator, logger)
	a.GroupService = service.NewGroupService(a.GroupRepo, a.TestRepo, validator, logger)
	a.ExportService = service.NewExportService(a.TestRepo, a.TemplateRepo, a.ResponseRepo, aggregator, logger)
	a.AnswerService = service.NewAnswerService(a.ResponseRepo, a.TestRepo, aggregator, validator, logger)

	if testCache != nil {
		a.AnswerService.SetTestCache(testCache)
		a.AnswerService.SetSubmissionLock(submissionLock)
	}
	a.AnswerService.SetPublisher(a.Bus)

	return a, nil
}

// Router builds the HTTP handler for the API
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:     a.AuthService,
		AnswerService:   a.AnswerService,
		TemplateService: a.TemplateService,
		TestService:     a.TestService,
		GroupService:    a.GroupService,
		ExportService:   a.ExportService,
		WSHub:           a.Hub,
		Logger:          a.Logger,
		CORSOrigins:     a.Config.CORSOrigins,
	})
}

// RunRelay forwards submission events to live viewers until ctx is done
func (a *App) RunRelay(ctx context.Context) {
	relay := events.NewSubmissionRelay(a.Bus, a.Hub, a.Logger)
	if err := relay.Run(ctx); err != nil {
		a.Logger.Error("submission relay stopped", "error", err)
	}
}

// Close releases every connection that was opened
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Mongo != nil {
		errs = append(errs, a.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
