package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/lmercier/bulletin-analyzer/database"
	"github.com/lmercier/bulletin-analyzer/utils/cache"
	"github.com/lmercier/bulletin-analyzer/utils/response"
)

// LLMHealthChecker verifies the completion backend is reachable.
type LLMHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler answers liveness checks with the state of the backing
// services.
type HealthHandler struct {
	store database.Storage
	cache *cache.RedisCache
	llm   LLMHealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage, c *cache.RedisCache, llm LLMHealthChecker) *HealthHandler {
	return &HealthHandler{
		store: store,
		cache: c,
		llm:   llm,
	}
}

// Check handles GET /ping
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}
	healthy := true

	if err := h.store.HealthCheck(); err != nil {
		status["database"] = "down"
		healthy = false
	} else {
		status["database"] = "up"
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Context()); err != nil {
			status["redis"] = "down"
			healthy = false
		} else {
			status["redis"] = "up"
		}
	}

	// The completion check spends a real API call, so it only runs when asked.
	if h.llm != nil && c.QueryBool("llm") {
		if err := h.llm.HealthCheck(c.Context()); err != nil {
			status["mistral"] = "down"
			healthy = false
		} else {
			status["mistral"] = "up"
		}
	}

	if !healthy {
		status["status"] = "degraded"
		return response.ServiceUnavailable(c, "One or more backing services are down")
	}

	return response.Success(c, status)
}
