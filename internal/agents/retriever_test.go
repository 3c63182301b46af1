package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
)

func TestRetrieverSortsByConfidence(t *testing.T) {
	r := NewRetrieverAgent()
	analysis := &Analysis{
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceSemantic, "revenue", "enterprise", 100, 0.7),
			validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
			validEvidence(models.SourceStatistical, "revenue", "enterprise", 100, 0.85),
		},
	}

	require.NoError(t, r.Run(context.Background(), analysis))

	assert.Equal(t, models.SourceStructured, analysis.Evidence[0].Source)
	assert.Equal(t, models.SourceStatistical, analysis.Evidence[1].Source)
	assert.Equal(t, models.SourceSemantic, analysis.Evidence[2].Source)
}

func TestSatisfies(t *testing.T) {
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
	}

	assert.True(t, Satisfies(models.SubQuestion{Metrics: []string{"revenue"}}, evidence))
	assert.True(t, Satisfies(models.SubQuestion{}, evidence))
	assert.True(t, Satisfies(models.SubQuestion{
		Metrics: []string{"revenue"}, Segments: []string{"enterprise", "consumer"},
	}, evidence))

	assert.False(t, Satisfies(models.SubQuestion{Metrics: []string{"users"}}, evidence))
	assert.False(t, Satisfies(models.SubQuestion{
		Metrics: []string{"revenue"}, Segments: []string{"free"},
	}, evidence))
	assert.False(t, Satisfies(models.SubQuestion{Metrics: []string{"revenue"}}, nil))
}
