// @title           Design Lab Backend API
// @version         1.0.0
// @description     Backend API for the design lab: projects, immutable versions, editable layers and asynchronous AI image generation with product mockup compositing.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"design-lab-backend/docs"
	"design-lab-backend/internal/config"
	"design-lab-backend/internal/database"
	"design-lab-backend/internal/handlers"
	"design-lab-backend/internal/imagen"
	"design-lab-backend/internal/logger"
	"design-lab-backend/internal/middleware"
	"design-lab-backend/internal/services"
	"design-lab-backend/internal/store"
	"design-lab-backend/internal/supabase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	// Persistence: Postgres when DATABASE_URL is set, otherwise an in-memory store.
	var (
		gateway  store.Gateway
		variants store.VariantLookup
		health   handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			appLog.Fatal("failed to initialize database client", "error", err)
		}
		defer dbClient.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.NewMigrator(dbClient.DB(), appLog).Run(migrateCtx); err != nil {
			cancel()
			appLog.Fatal("migration failed", "error", err)
		}
		cancel()

		gateway = dbClient
		health = dbClient.DB()
	} else {
		appLog.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		mem := store.NewMemory()
		gateway = mem
		variants = mem
	}

	var host services.ImageHost
	if cfg.StorageEnabled() {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			appLog.Fatal("failed to initialize Supabase client", "error", err)
		}
		variants = supabase.NewVariantClient(supabaseClient)

		storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
		if err != nil {
			appLog.Fatal("failed to initialize storage client", "error", err)
		}
		host = storageClient
	} else {
		appLog.Warn("Supabase storage not configured, generated images stay embedded as data URLs")
	}

	imagenClient := imagen.NewClient(cfg.ImagenAPIBaseURL, cfg.ImagenAPIKey,
		imagen.WithModel(cfg.ImagenModel),
		imagen.WithImageSize(cfg.ImagenImageSize),
		imagen.WithTimeout(time.Duration(cfg.ImagenTimeoutSeconds)*time.Second),
	)

	// Generation tasks outlive the request that started them.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()
	scheduler := services.NewTaskScheduler(taskCtx, int64(cfg.GenerationMaxConcurrency), appLog)

	versionManager := services.NewVersionManager(gateway, appLog)
	orchestrator := services.NewOrchestrator(services.OrchestratorDeps{
		Store:      gateway,
		Versions:   versionManager,
		Provider:   imagenClient,
		Compositor: services.NewCompositor(host, cfg.CompositeDesignScale, appLog),
		Variants:   variants,
		Host:       host,
		Scheduler:  scheduler,
		Log:        appLog,
		Exclusive:  cfg.GenerationExclusive,
	})

	// Requests a previous process left unfinished would otherwise poll as processing forever.
	sweepCtx, cancelSweep := context.WithTimeout(context.Background(), time.Minute)
	staleAfter := time.Duration(cfg.GenerationStaleAfterSeconds) * time.Second
	if n, err := orchestrator.FailInterrupted(sweepCtx, staleAfter); err != nil {
		appLog.Error("failed to sweep interrupted generations", "error", err)
	} else if n > 0 {
		appLog.Warn("failed interrupted generation requests", "count", n)
	}
	cancelSweep()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(appLog))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.NewHealthHandler(health).Health)

	api := router.Group("/api/v1/design-lab")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.Routes{
		Projects:    handlers.NewProjectsHandler(versionManager),
		Versions:    handlers.NewVersionsHandler(versionManager),
		Layers:      handlers.NewLayersHandler(versionManager),
		Generations: handlers.NewGenerationsHandler(orchestrator, cfg.BaseURL),
	}.Register(api)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("server starting", "port", port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("failed to start server", "error", err)
		}
	}()

	stop, cancelSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()
	<-stop.Done()

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server shutdown failed", "error", err)
	}
	if err := scheduler.Wait(shutdownCtx); err != nil {
		appLog.Warn("generation tasks still running at shutdown", "error", err)
	}
}
