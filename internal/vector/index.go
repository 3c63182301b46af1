package vector

import (
	"context"

	"github.com/ragplus/backend/internal/models"
)

// Embedder turns text into vectors. Satisfied by the llm client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one semantic search hit with its similarity score.
type Match struct {
	Fact  models.KnowledgeFact
	Score float64
}

// Index is the semantic fact store. Backed by milvus in deployment and by
// the in-process index when no vector database is configured.
type Index interface {
	Count(ctx context.Context) (int, error)
	InsertFacts(ctx context.Context, facts []models.KnowledgeFact) error
	Search(ctx context.Context, question string, topK int) ([]Match, error)
}
