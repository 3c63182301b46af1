package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/engine"
	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/retrieval"
	"github.com/ragplus/backend/pkg/logger"
)

type QueryHandler struct {
	engine *engine.Engine
}

func NewQueryHandler(eng *engine.Engine) *QueryHandler {
	return &QueryHandler{engine: eng}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req models.QueryRequest

	if body, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
		if q, ok := body["query"].(string); ok {
			req.Query = q
		}
		if inc, ok := body["include_explainability"].(bool); ok {
			req.IncludeExplainability = inc
		}
	} else if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.engine.ProcessQuery(c.Context(), req)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Query is required",
			})
		}
		if errors.Is(err, retrieval.ErrAllSourcesFailed) {
			logger.Error("All retrieval sources failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "All retrieval sources are unavailable",
			})
		}
		logger.Error("Failed to process query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	return c.JSON(result)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	return c.JSON(fiber.Map{
		"history": history,
		"count":   len(history),
	})
}
