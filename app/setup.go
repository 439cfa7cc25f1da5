package app

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lmercier/bulletin-analyzer/api"
	"github.com/lmercier/bulletin-analyzer/config"
	"github.com/lmercier/bulletin-analyzer/database"
	"github.com/lmercier/bulletin-analyzer/router"
	"github.com/lmercier/bulletin-analyzer/services"
	"github.com/lmercier/bulletin-analyzer/services/cron"
	"github.com/lmercier/bulletin-analyzer/services/mistral"
	"github.com/lmercier/bulletin-analyzer/services/pipeline"
	"github.com/lmercier/bulletin-analyzer/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv)
	if err != nil {
		log.Println("Check whether Postgres is running")
		return err
	}

	if err := store.Init(); err != nil {
		log.Println("Failed to initialize database tables")
		return err
	}

	// Redis backs the result store
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Println("Check whether Redis is running")
		store.Close()
		return err
	}

	// Analysis stack: PDF text -> roster-guided parse -> Mistral completion
	mistralClient := mistral.NewClient(mistral.Config{
		APIKey: getEnv.MISTRAL_API_KEY,
		Model:  getEnv.MISTRAL_MODEL,
	})

	analysisService := services.NewAnalysisService(
		services.NewPDFExtractor(),
		mistralClient,
		store.GetDB(),
		getEnv.COMPLETION_SEPARATOR,
	)

	resultStore := services.NewRedisResultStore(redisCache)

	jobPipeline := pipeline.New(pipeline.Config{
		Workers:    getEnv.PIPELINE_WORKERS,
		QueueSize:  getEnv.PIPELINE_QUEUE_SIZE,
		JobTimeout: time.Duration(getEnv.JOB_TIMEOUT_MINUTES) * time.Minute,
	}, analysisService, resultStore)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.GetDB(), getEnv.ANALYSIS_RETENTION_DAYS)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			// Don't fail the app, just log the warning
			cronManager = nil
		}
	}

	// Defer closing the pipeline, cron jobs, cache and DB
	defer func() {
		jobPipeline.Close()
		if cronManager != nil {
			cronManager.Stop()
		}
		redisCache.Close()
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv.ALLOWED_ORIGINS,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Setup Routes
	router.SetupRoutes(app, router.Dependencies{
		Store:    store,
		Cache:    redisCache,
		Pipeline: jobPipeline,
		LLM:      mistralClient,
		Env:      getEnv,
	})

	// Get the PORT & Start the Server
	return server.Run()
}
