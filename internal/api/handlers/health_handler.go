package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ragplus/backend/internal/cache/redis"
	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/internal/vector"
)

type HealthHandler struct {
	store *sqlite.Client
	cache *redis.Client
	index vector.Index
}

func NewHealthHandler(store *sqlite.Client, cache *redis.Client, index vector.Index) *HealthHandler {
	return &HealthHandler{store: store, cache: cache, index: index}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	components := fiber.Map{}
	healthy := true

	if _, err := h.store.CountPoints(); err != nil {
		components["sqlite"] = "unhealthy"
		healthy = false
	} else {
		components["sqlite"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Context()); err != nil {
			components["redis"] = "unhealthy"
		} else {
			components["redis"] = "healthy"
		}
	} else {
		components["redis"] = "disabled"
	}

	if h.index != nil {
		if _, err := h.index.Count(c.Context()); err != nil {
			components["vector_index"] = "unhealthy"
		} else {
			components["vector_index"] = "healthy"
		}
	}

	status := "healthy"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"components": components,
		"time":       time.Now().Unix(),
	})
}
