package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/agents"
	"github.com/ragplus/backend/internal/models"
)

func TestBuildKeepsAnswerAboveThreshold(t *testing.T) {
	b := NewBuilder()
	confidence := models.ConfidenceAssessment{
		ConfidenceLevel:   models.ConfidencePartial,
		OverallConfidence: 0.6,
	}

	final := b.Build("query", "Based on the available data: revenue is up.", confidence, nil, 12.5)

	assert.Equal(t, "Based on the available data: revenue is up.", final.Answer)
	assert.Equal(t, 12.5, final.ProcessingTimeMS)
	assert.False(t, final.Timestamp.IsZero())
}

func TestBuildForcesRefusalOnInsufficientData(t *testing.T) {
	b := NewBuilder()
	confidence := models.ConfidenceAssessment{
		ConfidenceLevel:   models.ConfidenceInsufficient,
		OverallConfidence: 0.1,
	}

	// Whatever the narrator produced, insufficient_data always refuses.
	final := b.Build("query", "Revenue probably went up.", confidence, nil, 1.0)

	assert.Equal(t, agents.RefusalAnswer, final.Answer)
}

func TestBuildCountsEvidence(t *testing.T) {
	b := NewBuilder()
	evidence := []models.EvidenceObject{
		{Metric: "revenue", Segment: "enterprise"},
		{Metric: "revenue", Segment: "consumer"},
	}

	final := b.Build("query", "answer text", models.ConfidenceAssessment{
		ConfidenceLevel: models.ConfidenceHigh,
	}, evidence, 1.0)

	assert.Equal(t, 2, final.EvidenceCount)
}

func TestFormatWithConfidence(t *testing.T) {
	b := NewBuilder()

	out := b.FormatWithConfidence("the answer", models.ConfidenceAssessment{
		ConfidenceLevel:   models.ConfidenceHigh,
		Reasoning:         "strong coverage",
		CoverageScore:     1.0,
		CompletenessScore: 0.9,
	})

	assert.Contains(t, out, "the answer")
	assert.Contains(t, out, "**Confidence Level**: High Confidence")
	assert.Contains(t, out, "**Coverage Score**: 100%")
	assert.Contains(t, out, "**Completeness Score**: 90%")
}

func TestExplainerFormatText(t *testing.T) {
	e := NewExplainer()
	trace := e.BuildTrace(
		models.Decomposition{
			Intent: models.IntentTrend,
			SubQuestions: []models.SubQuestion{
				{Question: "What is the current value of revenue?"},
			},
		},
		[]models.EvidenceObject{
			{Source: models.SourceStructured, Metric: "revenue"},
			{Source: models.SourceStatistical, Metric: "revenue"},
		},
		[]models.AgentResponse{
			{AgentName: "retriever", ProcessingTimeMS: 0.4},
		},
		models.ValidationResult{IsValid: true},
		models.ConfidenceAssessment{
			ConfidenceLevel: models.ConfidenceHigh,
			CoverageScore:   1.0,
		},
		[]string{"Classified query as trend analysis"},
	)

	require.NotNil(t, trace)
	text := e.FormatText(trace)

	assert.Contains(t, text, "## Query Decomposition")
	assert.Contains(t, text, "Intent: trend")
	assert.Contains(t, text, "structured, statistical")
	assert.Contains(t, text, "- retriever: 0.40ms")
	assert.Contains(t, text, "## Reasoning Steps")
	assert.Contains(t, text, "1. Classified query as trend analysis")
}
