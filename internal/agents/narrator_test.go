package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
)

func TestNarratorRefusesWithoutEvidence(t *testing.T) {
	n := NewNarratorAgent(0.5)
	analysis := &Analysis{
		Validation: models.ValidationResult{IsValid: false},
	}

	require.NoError(t, n.Run(context.Background(), analysis))

	assert.Equal(t, RefusalAnswer, analysis.Answer)
}

func TestNarratorComposesSections(t *testing.T) {
	n := NewNarratorAgent(0.5)
	change := 3.2
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 10000, 0.9),
		validEvidence(models.SourceStatistical, "revenue", "enterprise", 9800, 0.85),
	}
	analysis := &Analysis{
		Validation: models.ValidationResult{IsValid: true, ValidatedEvidence: evidence},
		Findings: Findings{
			Insights: []MetricInsight{
				{Metric: "revenue", Mean: 9900, MeanChange: &change, Direction: "increasing"},
			},
			Patterns: []string{"Consistent upward movement across most observations"},
		},
	}

	require.NoError(t, n.Run(context.Background(), analysis))

	assert.Contains(t, analysis.Answer, "Based on the available data:")
	assert.Contains(t, analysis.Answer, "Key Findings:")
	assert.Contains(t, analysis.Answer, "Average revenue: 9900.00")
	assert.Contains(t, analysis.Answer, "steadily increasing")
	assert.Contains(t, analysis.Answer, "Observed Patterns:")
	assert.Contains(t, analysis.Answer, "This analysis is based on 2 evidence objects from 2 sources.")
}

func TestNarratorComparisonLine(t *testing.T) {
	n := NewNarratorAgent(0.5)
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 10000, 0.9),
	}
	analysis := &Analysis{
		Validation: models.ValidationResult{IsValid: true, ValidatedEvidence: evidence},
		Findings: Findings{
			Comparisons: []Comparison{{
				Metric: "revenue", SegmentA: "enterprise", SegmentB: "consumer",
				ValueA: 10000, ValueB: 6889, DifferencePct: 45.158,
			}},
		},
	}

	require.NoError(t, n.Run(context.Background(), analysis))

	assert.Contains(t, analysis.Answer, "Revenue: enterprise is 45.2% higher than consumer (10000.00 vs 6889.00)")
}

func TestNarratorAnomalyLine(t *testing.T) {
	n := NewNarratorAgent(0.5)
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStatistical, "revenue", "enterprise", 9500, 0.8),
	}
	analysis := &Analysis{
		Validation: models.ValidationResult{IsValid: true, ValidatedEvidence: evidence},
		Findings: Findings{
			Anomalies: []AnomalyFinding{{
				Metric: "revenue", Segment: "enterprise", Value: 9500, DeviationPct: 31.9,
			}},
		},
	}

	require.NoError(t, n.Run(context.Background(), analysis))

	assert.Contains(t, analysis.Answer, "Revenue in enterprise: value 9500.00 deviates +31.9% from its baseline")
}

func TestNarratorWeakSlopeOmitsSteadily(t *testing.T) {
	n := NewNarratorAgent(0.5)
	change := 0.2
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
	}
	analysis := &Analysis{
		Validation: models.ValidationResult{IsValid: true, ValidatedEvidence: evidence},
		Findings: Findings{
			Insights: []MetricInsight{
				{Metric: "revenue", Mean: 100, MeanChange: &change, Direction: "increasing"},
			},
		},
	}

	require.NoError(t, n.Run(context.Background(), analysis))

	assert.Contains(t, analysis.Answer, "revenue is increasing")
	assert.NotContains(t, analysis.Answer, "steadily")
}

func TestOrchestratorRunsStagesInOrder(t *testing.T) {
	o := NewOrchestrator(0.3, 0.25, 0.5, 0.5)
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 10000, 0.9),
		validEvidence(models.SourceStructured, "revenue", "consumer", 6889, 0.9),
	}
	subs := []models.SubQuestion{
		{Question: "What are the values of revenue for each segment?", Metrics: []string{"revenue"}},
	}

	analysis, err := o.Orchestrate(context.Background(),
		"Compare revenue between enterprise and consumer",
		models.IntentComparison, subs, evidence)
	require.NoError(t, err)

	require.Len(t, analysis.Responses, 4)
	assert.Equal(t, "retriever", analysis.Responses[0].AgentName)
	assert.Equal(t, "analyst", analysis.Responses[1].AgentName)
	assert.Equal(t, "validator", analysis.Responses[2].AgentName)
	assert.Equal(t, "narrator", analysis.Responses[3].AgentName)

	assert.True(t, analysis.Validation.IsValid)
	assert.NotEqual(t, RefusalAnswer, analysis.Answer)
	assert.Contains(t, analysis.Answer, "Comparisons:")
}

func TestOrchestratorAnswerCitesOnlyValidatedMetrics(t *testing.T) {
	o := NewOrchestrator(0.3, 0.25, 0.5, 0.5)
	evidence := []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 10000, 0.9),
		validEvidence(models.SourceStatistical, "churn", "enterprise", 42, 0.1),
	}
	subs := []models.SubQuestion{
		{Question: "What is the current value of revenue?", Metrics: []string{"revenue"}},
	}

	analysis, err := o.Orchestrate(context.Background(),
		"What is the current revenue?", models.IntentSummary, subs, evidence)
	require.NoError(t, err)

	require.Len(t, analysis.Validation.ValidatedEvidence, 1)
	assert.Contains(t, analysis.Answer, "revenue")
	assert.NotContains(t, analysis.Answer, "churn")
}

func TestOrchestratorRefusesOnEmptyEvidence(t *testing.T) {
	o := NewOrchestrator(0.3, 0.25, 0.5, 0.5)
	subs := []models.SubQuestion{
		{Question: "What is the current value of profit?", Metrics: []string{"profit"}},
	}

	analysis, err := o.Orchestrate(context.Background(),
		"What is the current profit?", models.IntentSummary, subs, nil)
	require.NoError(t, err)

	assert.False(t, analysis.Validation.IsValid)
	assert.Equal(t, RefusalAnswer, analysis.Answer)
}

func TestOrchestratorHonorsCancelledContext(t *testing.T) {
	o := NewOrchestrator(0.3, 0.25, 0.5, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Orchestrate(ctx, "anything", models.IntentSummary, nil, nil)
	assert.Error(t, err)
}
