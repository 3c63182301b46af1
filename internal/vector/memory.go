package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ragplus/backend/internal/models"
)

// MemoryIndex is an in-process cosine-similarity index over the knowledge
// facts. It keeps the whole system runnable without a vector database.
type MemoryIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	facts   []models.KnowledgeFact
	vectors [][]float32
}

func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.facts), nil
}

func (m *MemoryIndex) InsertFacts(ctx context.Context, facts []models.KnowledgeFact) error {
	if len(facts) == 0 {
		return nil
	}

	texts := make([]string, 0, len(facts))
	for _, f := range facts {
		texts = append(texts, f.Text)
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed facts: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, facts...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, question string, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.facts) == 0 {
		return nil, nil
	}

	query, err := m.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches := make([]Match, 0, len(m.facts))
	for i, vec := range m.vectors {
		matches = append(matches, Match{
			Fact:  m.facts[i],
			Score: cosine(query, vec),
		})
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
