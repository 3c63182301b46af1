package retrieval

import (
	"context"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/vector"
)

// SemanticSource searches the knowledge fact index for statements similar
// to the sub-question and keeps hits above the similarity floor.
type SemanticSource struct {
	index vector.Index
	topK  int
	floor float64
}

func NewSemanticSource(index vector.Index, topK int, floor float64) *SemanticSource {
	return &SemanticSource{index: index, topK: topK, floor: floor}
}

func (s *SemanticSource) Name() models.EvidenceSource {
	return models.SourceSemantic
}

func (s *SemanticSource) Retrieve(ctx context.Context, sq models.SubQuestion) ([]models.RawFinding, error) {
	matches, err := s.index.Search(ctx, sq.Question, s.topK)
	if err != nil {
		return nil, err
	}

	var findings []models.RawFinding
	for _, m := range matches {
		if m.Score < s.floor {
			continue
		}
		findings = append(findings, models.RawFinding{
			Source:     models.SourceSemantic,
			Metric:     m.Fact.Metric,
			Segment:    m.Fact.Segment,
			TimeWindow: m.Fact.TimeWindow,
			Value:      m.Fact.Value,
			Change:     m.Fact.Change,
			Support:    m.Fact.Text,
			Confidence: m.Score,
		})
	}
	return findings, nil
}
