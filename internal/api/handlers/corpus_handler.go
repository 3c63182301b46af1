package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/internal/vector"
	"github.com/ragplus/backend/pkg/logger"
)

type CorpusHandler struct {
	store *sqlite.Client
	index vector.Index
}

func NewCorpusHandler(store *sqlite.Client, index vector.Index) *CorpusHandler {
	return &CorpusHandler{store: store, index: index}
}

func (h *CorpusHandler) GetStats(c *fiber.Ctx) error {
	points, err := h.store.CountPoints()
	if err != nil {
		logger.Error("Failed to count corpus points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load corpus stats",
		})
	}

	metricNames, err := h.store.Metrics()
	if err != nil {
		logger.Error("Failed to list metrics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load corpus stats",
		})
	}

	stats := fiber.Map{
		"metric_points": points,
		"metrics":       metricNames,
	}

	if latest, err := h.store.LatestDate(); err == nil && !latest.IsZero() {
		stats["latest_date"] = latest.Format("2006-01-02")
	}

	if h.index != nil {
		if facts, err := h.index.Count(c.Context()); err == nil {
			stats["knowledge_facts"] = facts
		}
	}

	return c.JSON(stats)
}
