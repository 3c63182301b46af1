package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ragplus/backend/pkg/circuitbreaker"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
	"github.com/ragplus/backend/pkg/retry"
	"github.com/ragplus/backend/pkg/utils"
)

// EmbedCache stores embedding vectors keyed by text hash. Satisfied by the
// redis cache client.
type EmbedCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32) error
}

// Client talks to an OpenAI-compatible endpoint. In deployment this is a
// local Ollama server; nothing leaves the machine.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	timeout        time.Duration
	breaker        *circuitbreaker.Breaker
	retryPolicy    retry.Policy
	embedCache     EmbedCache
}

// SetEmbedCache enables embedding caching. Safe to skip; the client works
// without one.
func (c *Client) SetEmbedCache(cache EmbedCache) {
	c.embedCache = cache
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewClient(cfg *config.LLMConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	breaker := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		CoolDown:         30 * time.Second,
		HalfOpenLimit:    2,
		Logger:           logger.GetLogger(),
	})

	retryPolicy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Factor:      2.0,
		Jitter:      0.1,
		Logger:      logger.GetLogger(),
	}

	logger.Info("llm client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.String("embedding_model", cfg.EmbeddingModel))

	return &Client{
		api:            openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		timeout:        time.Duration(cfg.TimeoutSec) * time.Second,
		breaker:        breaker,
		retryPolicy:    retryPolicy,
	}
}

// Chat runs a conversation to completion and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryPolicy, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    toOpenAI(messages),
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("chat completion failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("chat completion returned no choices")
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// ChatStream streams the assistant reply token by token into emit. The
// stream is not retried; a broken stream surfaces to the caller.
func (c *Client) ChatStream(ctx context.Context, messages []Message, emit func(token string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.breaker.Execute(ctx, func() error {
		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    toOpenAI(messages),
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			Stream:      true,
		})
		if err != nil {
			return fmt.Errorf("chat stream failed: %w", err)
		}
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("chat stream receive failed: %w", err)
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if err := emit(chunk.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	})
}

// Embed returns the embedding vector for a single text, consulting the
// embedding cache when one is configured.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var key string
	if c.embedCache != nil {
		key = utils.ContentHash(text)
		if vec, ok, err := c.embedCache.GetEmbedding(ctx, key); err == nil && ok {
			return vec, nil
		}
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if c.embedCache != nil {
		if err := c.embedCache.SetEmbedding(ctx, key, vectors[0]); err != nil {
			logger.Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var vectors [][]float32
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryPolicy, func() error {
			resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: texts,
				Model: openai.EmbeddingModel(c.embeddingModel),
			})
			if err != nil {
				return fmt.Errorf("embedding request failed: %w", err)
			}
			if len(resp.Data) != len(texts) {
				return fmt.Errorf("embedding response has %d vectors, want %d", len(resp.Data), len(texts))
			}

			vectors = vectors[:0]
			for _, data := range resp.Data {
				vec := make([]float32, len(data.Embedding))
				copy(vec, data.Embedding)
				vectors = append(vectors, vec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
