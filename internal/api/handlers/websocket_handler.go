package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/engine"
	"github.com/ragplus/backend/internal/llm"
	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

const chatSystemPrompt = "You are an analytics assistant. Restate the analysis below " +
	"conversationally. Do not add numbers, claims, or speculation beyond what it contains. " +
	"If it declines to answer, decline the same way."

// WebSocketHandler streams chat answers over /chat. Every answer is first
// produced by the evidence pipeline; the LLM only rephrases it, so a
// streamed reply can never claim more than the evidence supports.
type WebSocketHandler struct {
	engine *engine.Engine
	llm    *llm.Client
}

func NewWebSocketHandler(eng *engine.Engine, llmClient *llm.Client) *WebSocketHandler {
	return &WebSocketHandler{engine: eng, llm: llmClient}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" && msg.Type != "query" {
			continue
		}

		if err := h.streamAnswer(c, msg.Content); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, queryText string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	started := time.Now()

	result, err := h.engine.ProcessQuery(ctx, models.QueryRequest{Query: queryText})
	if err != nil {
		return err
	}
	answer := result.Response.Answer

	streamed := false
	if h.llm != nil {
		messages := []llm.Message{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: "Question: " + queryText + "\n\nAnalysis:\n" + answer},
		}
		err := h.llm.ChatStream(ctx, messages, func(token string) error {
			return c.WriteJSON(map[string]interface{}{
				"type":    "token",
				"content": token,
			})
		})
		if err == nil {
			streamed = true
		} else {
			logger.Warn("LLM stream unavailable, falling back to direct answer", zap.Error(err))
		}
	}

	if !streamed {
		for _, chunk := range chunkWords(answer) {
			if err := c.WriteJSON(map[string]interface{}{
				"type":    "token",
				"content": chunk,
			}); err != nil {
				return err
			}
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":             "done",
		"confidence_level": result.Response.Confidence.ConfidenceLevel,
		"evidence_count":   result.Response.EvidenceCount,
		"latency_ms":       time.Since(started).Milliseconds(),
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func chunkWords(text string) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, word := range strings.Fields(line) {
			chunks = append(chunks, word+" ")
		}
		chunks = append(chunks, "\n")
	}
	if n := len(chunks); n > 0 && chunks[n-1] == "\n" {
		chunks = chunks[:n-1]
	}
	return chunks
}
