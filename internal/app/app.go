// Package app wires configuration, storage, providers and HTTP routing
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Maxborland/cutroom/internal/adapter/outbound/provider"
	redisadapter "github.com/Maxborland/cutroom/internal/adapter/outbound/redis"
	"github.com/Maxborland/cutroom/internal/adapter/outbound/s3"
	"github.com/Maxborland/cutroom/internal/module/catalog"
	"github.com/Maxborland/cutroom/internal/module/project"
	"github.com/Maxborland/cutroom/internal/module/render"
	"github.com/Maxborland/cutroom/internal/module/shot"
	"github.com/Maxborland/cutroom/internal/shared/config"
	"github.com/Maxborland/cutroom/internal/shared/database"
	"github.com/Maxborland/cutroom/internal/shared/logger"
	"github.com/Maxborland/cutroom/internal/utils/metrics"
	"github.com/Maxborland/cutroom/internal/utils/middleware"
)

// healthProviders are the providers surfaced on the health endpoint.
var healthProviders = []catalog.Provider{catalog.ProviderFal, catalog.ProviderReplicate}

// App represents the application.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	router  *gin.Engine
	logger  *logger.Logger
	metrics *metrics.Metrics

	registry    *catalog.Registry
	monitor     *provider.HealthMonitor
	healthCache *redisadapter.ProviderHealthCache
	tokens      *middleware.TokenManager

	shotService    *shot.Service
	projectService *project.Service
	renderWorker   *render.Worker

	stopHealthSync context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(""),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&project.Project{}, &shot.Shot{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.db = db

	// Redis is optional; without it provider health is process-local.
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis connection failed, continuing without it", logger.Err(err))
		} else {
			app.redis = client
			app.healthCache = redisadapter.NewProviderHealthCache(client)
		}
	}

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()
	app.startHealthSync()

	return app, nil
}

// initModules builds the domain services and their provider adapters.
func (a *App) initModules() error {
	cfg := a.config

	a.registry = catalog.NewRegistry()
	a.monitor = provider.NewHealthMonitor(&provider.HealthMonitorConfig{
		FailureThreshold: cfg.Providers.FailureThreshold,
		Timeout:          cfg.Providers.CircuitTimeout,
	})

	openaiClient := provider.NewOpenAIClient(&cfg.Providers, a.logger)
	falClient := provider.NewFalClient(&cfg.Providers, a.logger)
	replicateClient := provider.NewReplicateClient(&cfg.Providers, a.logger)

	a.shotService = shot.NewService(
		shot.NewRepository(a.db),
		a.registry,
		map[catalog.Provider]shot.GeneratorClient{
			catalog.ProviderFal:       falClient,
			catalog.ProviderReplicate: replicateClient,
		},
		openaiClient,
		openaiClient,
		a.monitor,
		&cfg.Pipeline,
		a.logger,
	)
	a.shotService.SetRecorder(a.metrics)

	if err := a.shotService.RecoverStaleShots(context.Background()); err != nil {
		return fmt.Errorf("recover stale shots: %w", err)
	}

	a.projectService = project.NewService(project.NewRepository(a.db), cfg.Render.ProjectRoot)

	backend := render.NewFFmpegBackend(cfg.Render.FFmpegPath, a.logger)
	var publisher render.Publisher
	if cfg.Render.PublishFinals {
		storage, err := s3.NewRenderStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("init render storage: %w", err)
		}
		publisher = storage
	}
	a.renderWorker = render.NewWorker(backend, publisher, cfg.Render.OutputDir, a.logger)
	a.renderWorker.SetRecorder(a.metrics)

	a.tokens = middleware.NewTokenManager(&cfg.Auth)
	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(a.config.Server.AllowOrigins))

	r.GET("/health", a.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(a.tokens))
	catalog.NewHandler(a.registry).RegisterRoutes(api)
	project.NewHandler(a.projectService).RegisterRoutes(api)
	shot.NewHandler(a.shotService).RegisterRoutes(api)
	render.NewHandler(a.renderWorker, a.projectService).RegisterRoutes(api)

	return r
}

// healthCheck reports service and provider health. The circuit breaker
// is authoritative for this process; the shared cache fills in what a
// fresh process has not yet observed.
func (a *App) healthCheck(c *gin.Context) {
	providers := make(map[string]bool, len(healthProviders))
	for _, p := range healthProviders {
		healthy := a.monitor.IsHealthy(p)
		if healthy && a.healthCache != nil {
			if cached, err := a.healthCache.GetHealth(c.Request.Context(), p); err == nil {
				healthy = cached
			}
		}
		providers[string(p)] = healthy
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": providers,
	})
}

// startHealthSync periodically publishes breaker state to the shared
// cache and the provider health gauge.
func (a *App) startHealthSync() {
	interval := a.config.Providers.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopHealthSync = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.syncProviderHealth(ctx)
			}
		}
	}()
}

func (a *App) syncProviderHealth(ctx context.Context) {
	for _, p := range healthProviders {
		healthy := a.monitor.IsHealthy(p)
		a.metrics.SetProviderHealth(string(p), healthy)
		if a.healthCache == nil {
			continue
		}
		if err := a.healthCache.SetHealth(ctx, p, healthy); err != nil {
			a.logger.Warn("sync provider health failed",
				logger.String("provider", string(p)), logger.Err(err))
		}
	}
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.stopHealthSync != nil {
		a.stopHealthSync()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", logger.Err(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", logger.Err(err))
		}
	}
}
