package input

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragplus/backend/internal/models"
)

func TestClassifyIntent(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		query string
		want  models.AnalyticalIntent
	}{
		{
			name:  "trend via time window",
			query: "How has revenue trended over the last 3 months?",
			want:  models.IntentTrend,
		},
		{
			name:  "trend via keywords",
			query: "Show me the growth trajectory of user engagement",
			want:  models.IntentTrend,
		},
		{
			name:  "comparison via compare prefix",
			query: "Compare revenue between enterprise and consumer segments",
			want:  models.IntentComparison,
		},
		{
			name:  "comparison via vs",
			query: "enterprise vs consumer revenue",
			want:  models.IntentComparison,
		},
		{
			name:  "anomaly via why prefix",
			query: "Why did revenue spike last week?",
			want:  models.IntentAnomaly,
		},
		{
			name:  "anomaly via what caused",
			query: "What caused the sudden drop in conversion?",
			want:  models.IntentAnomaly,
		},
		{
			name:  "segmentation via by",
			query: "Show me revenue by segment",
			want:  models.IntentSegmentation,
		},
		{
			name:  "segmentation via across",
			query: "Distribution of engagement across cohorts",
			want:  models.IntentSegmentation,
		},
		{
			name:  "summary",
			query: "What is the current revenue status?",
			want:  models.IntentSummary,
		},
		{
			name:  "fallback to summary",
			query: "hello there",
			want:  models.IntentSummary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.query))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	query := "Why did revenue spike across segments last week versus the prior one?"

	first := c.Classify(query)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(query))
	}
}

func TestTokenizeOrder(t *testing.T) {
	tokens := tokenize("compare revenue between enterprise and consumer")
	assert.Equal(t, "compare", tokens[0])

	set := tokenSet(tokens)
	assert.True(t, set["revenue"])
	assert.True(t, set["enterprise"])
	assert.False(t, set["premium"])
}
