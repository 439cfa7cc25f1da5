package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lmercier/bulletin-analyzer/config"
	"github.com/lmercier/bulletin-analyzer/database"
	"github.com/lmercier/bulletin-analyzer/handlers"
	analysis_handlers "github.com/lmercier/bulletin-analyzer/handlers/analysis"
	auth_handlers "github.com/lmercier/bulletin-analyzer/handlers/auth"
	classgroup_handlers "github.com/lmercier/bulletin-analyzer/handlers/classgroup"
	"github.com/lmercier/bulletin-analyzer/services/pipeline"
	"github.com/lmercier/bulletin-analyzer/utils/auth"
	"github.com/lmercier/bulletin-analyzer/utils/cache"
	"github.com/lmercier/bulletin-analyzer/utils/middleware"
)

// Dependencies carries everything the routes need, wired by the app setup.
type Dependencies struct {
	Store    database.Storage
	Cache    *cache.RedisCache
	Pipeline *pipeline.Pipeline
	LLM      handlers.LLMHealthChecker
	Env      *config.EnviornmentVariable
}

// SetupRoutes registers all API routes on the Fiber app
func SetupRoutes(app *fiber.App, deps Dependencies) {
	jwtIssuer := deps.Env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "bulletin-analyzer-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: deps.Env.JWT_SECRET,
		Expiry: 12 * time.Hour,
		Issuer: jwtIssuer,
	})

	db := deps.Store.GetDB()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	authHandler := auth_handlers.NewAuthHandler(deps.Env.ADMIN_USERNAME, deps.Env.ADMIN_PASSWORD_HASH, jwtManager)
	classGroupHandler := classgroup_handlers.NewClassGroupHandler(db)
	analysisHandler := analysis_handlers.NewAnalysisHandler(db, deps.Pipeline)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Cache, deps.LLM)

	// Health check endpoint (public)
	app.Get("/ping", healthHandler.Check)

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)

	// Class group routes (protected)
	classGroups := api.Group("/class-groups", authMiddleware.Required())
	classGroups.Get("/", classGroupHandler.ListClassGroups)
	classGroups.Post("/", classGroupHandler.CreateClassGroup)
	classGroups.Get("/:id", classGroupHandler.GetClassGroup)
	classGroups.Put("/:id", classGroupHandler.UpdateClassGroup)
	classGroups.Delete("/:id", classGroupHandler.DeleteClassGroup)

	// Analysis routes (protected)
	analyses := api.Group("/analyses", authMiddleware.Required())
	analyses.Post("/", analysisHandler.SubmitBatch)
	analyses.Post("/status", analysisHandler.Status)
	analyses.Get("/", analysisHandler.History)
	analyses.Get("/:job_id", analysisHandler.GetAnalysis)
}
