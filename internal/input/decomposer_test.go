package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/config"
)

func testRetrievalConfig() *config.RetrievalConfig {
	return &config.RetrievalConfig{
		KnownMetrics:      []string{"revenue", "users", "engagement", "retention", "conversion"},
		KnownSegments:     []string{"enterprise", "consumer", "premium", "free"},
		DefaultTimeWindow: "last_90_days",
	}
}

func TestDecomposeComparison(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("Compare revenue between enterprise and consumer", models.IntentComparison)

	require.Len(t, dec.SubQuestions, 2)
	assert.Equal(t, []string{"revenue"}, dec.SubQuestions[0].Metrics)
	assert.Equal(t, []string{"enterprise", "consumer"}, dec.SubQuestions[0].Segments)
	assert.Equal(t, "last_90_days", dec.SubQuestions[0].TimeWindow)
	assert.Contains(t, dec.SubQuestions[1].Question, "difference")
}

func TestDecomposeComparisonSingleSegment(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("How does enterprise revenue look?", models.IntentComparison)

	// One named segment cannot produce a difference sub-question.
	require.Len(t, dec.SubQuestions, 1)
}

func TestDecomposeTrend(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("How has revenue changed over the last 3 months?", models.IntentTrend)

	require.Len(t, dec.SubQuestions, 2)
	assert.Equal(t, "last_3_months", dec.SubQuestions[0].TimeWindow)
	assert.Equal(t, []string{"revenue"}, dec.SubQuestions[1].Metrics)
}

func TestDecomposeAnomaly(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("Why did conversion drop last week?", models.IntentAnomaly)

	require.Len(t, dec.SubQuestions, 2)
	assert.Contains(t, dec.SubQuestions[0].Question, "baseline")
	assert.Contains(t, dec.SubQuestions[1].Question, "deviate")
}

func TestDecomposeWithoutMetric(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("Give me a summary", models.IntentSummary)

	require.Len(t, dec.SubQuestions, 1)
	assert.Empty(t, dec.SubQuestions[0].Metrics)
	assert.Contains(t, dec.SubQuestions[0].Question, "the available metrics")
	assert.Equal(t, "last_90_days", dec.SubQuestions[0].TimeWindow)
}

func TestDecomposeQuarterWindow(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())

	dec := d.Decompose("What was revenue in Q1 2024?", models.IntentSummary)

	require.NotEmpty(t, dec.SubQuestions)
	assert.Equal(t, "Q1_2024", dec.SubQuestions[0].TimeWindow)
}

func TestMatchVocabularyPlurals(t *testing.T) {
	vocab := []string{"users", "segment"}

	assert.Equal(t, []string{"users"}, matchVocabulary([]string{"user"}, vocab))
	assert.Equal(t, []string{"users"}, matchVocabulary([]string{"users"}, vocab))
	assert.Equal(t, []string{"segment"}, matchVocabulary([]string{"segments"}, vocab))
	assert.Empty(t, matchVocabulary([]string{"sessions"}, vocab))
}

func TestMatchVocabularyKeepsFirstOccurrenceOrder(t *testing.T) {
	vocab := []string{"revenue", "users", "engagement"}
	tokens := []string{"engagement", "and", "revenue", "and", "engagement"}

	assert.Equal(t, []string{"engagement", "revenue"}, matchVocabulary(tokens, vocab))
}

func TestDecomposeIsDeterministic(t *testing.T) {
	d := NewDecomposer(testRetrievalConfig())
	query := "Compare revenue between enterprise and consumer over the last 30 days"

	first := d.Decompose(query, models.IntentComparison)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Decompose(query, models.IntentComparison))
	}
}
