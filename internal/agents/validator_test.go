package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
)

func validEvidence(source models.EvidenceSource, metric, segment string, value, confidence float64) models.EvidenceObject {
	change := 2.0
	return models.EvidenceObject{
		Source:     source,
		Metric:     metric,
		Segment:    segment,
		TimeWindow: "last_30_days",
		Value:      value,
		Change:     &change,
		Support:    "supporting observation text for " + metric,
		Confidence: confidence,
	}
}

func newTestValidator() *ValidatorAgent {
	return NewValidatorAgent(0.3, 0.25, 0.5)
}

func TestValidatorRejectsMalformed(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{Evidence: []models.EvidenceObject{
		{Source: models.SourceStructured, Metric: "revenue", Segment: "all",
			TimeWindow: "last_30_days", Value: 100, Support: "short", Confidence: 0.9},
	}}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Validation.RejectedEvidence, 1)
	assert.Equal(t, models.ReasonMalformed, analysis.Validation.RejectedEvidence[0].Reason)
	assert.False(t, analysis.Validation.IsValid)
}

func TestValidatorRejectsLowConfidence(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{Evidence: []models.EvidenceObject{
		validEvidence(models.SourceSemantic, "revenue", "enterprise", 100, 0.2),
		validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
	}}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Validation.ValidatedEvidence, 1)
	require.Len(t, analysis.Validation.RejectedEvidence, 1)
	assert.Equal(t, models.ReasonLowConfidence, analysis.Validation.RejectedEvidence[0].Reason)
	assert.True(t, analysis.Validation.IsValid)
}

func TestValidatorRejectsContradicted(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{Evidence: []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
		validEvidence(models.SourceSemantic, "revenue", "enterprise", 50, 0.7),
	}}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Validation.ValidatedEvidence, 1)
	assert.Equal(t, 100.0, analysis.Validation.ValidatedEvidence[0].Value)

	require.Len(t, analysis.Validation.RejectedEvidence, 1)
	assert.Equal(t, models.ReasonContradicted, analysis.Validation.RejectedEvidence[0].Reason)

	require.Len(t, analysis.Validation.Warnings, 1)
	assert.Contains(t, analysis.Validation.Warnings[0], "conflicting values for revenue")
}

func TestValidatorKeepsAgreeingSources(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{Evidence: []models.EvidenceObject{
		validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
		validEvidence(models.SourceStatistical, "revenue", "enterprise", 102, 0.85),
	}}

	require.NoError(t, v.Run(context.Background(), analysis))

	assert.Len(t, analysis.Validation.ValidatedEvidence, 2)
	assert.Empty(t, analysis.Validation.RejectedEvidence)
}

func TestValidatorDropsUnreproducibleComparison(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
			validEvidence(models.SourceStructured, "revenue", "consumer", 80, 0.9),
		},
		Findings: Findings{Comparisons: []Comparison{
			{Metric: "revenue", SegmentA: "enterprise", SegmentB: "consumer",
				ValueA: 100, ValueB: 80, DifferencePct: 25.0},
			{Metric: "revenue", SegmentA: "enterprise", SegmentB: "consumer",
				ValueA: 100, ValueB: 80, DifferencePct: 60.0},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Findings.Comparisons, 1)
	assert.InDelta(t, 25.0, analysis.Findings.Comparisons[0].DifferencePct, 1e-9)
	require.NotEmpty(t, analysis.Validation.Warnings)
	assert.Contains(t, analysis.Validation.Warnings[0], "does not reproduce")
}

func TestValidatorDropsComparisonWithoutEvidence(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
		},
		Findings: Findings{Comparisons: []Comparison{
			{Metric: "revenue", SegmentA: "enterprise", SegmentB: "consumer",
				ValueA: 100, ValueB: 80, DifferencePct: 25.0},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	assert.Empty(t, analysis.Findings.Comparisons)
	require.NotEmpty(t, analysis.Validation.Warnings)
	assert.Contains(t, analysis.Validation.Warnings[0], "no longer has supporting evidence")
}

func TestValidatorRederivesInsightsFromSurvivors(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStructured, "revenue", "enterprise", 1000, 0.9),
			validEvidence(models.SourceStatistical, "churn", "enterprise", 42, 0.1),
		},
		Findings: Findings{Insights: []MetricInsight{
			{Metric: "revenue", Mean: 1000},
			{Metric: "churn", Mean: 42},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Findings.Insights, 1)
	assert.Equal(t, "revenue", analysis.Findings.Insights[0].Metric)
}

func TestValidatorRecomputesMeansFromSurvivors(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStructured, "revenue", "enterprise", 1000, 0.9),
			validEvidence(models.SourceSemantic, "revenue", "enterprise", 9000, 0.1),
		},
		// The analyst saw both values; the rejected 9000 must not leak
		// into the narrated mean.
		Findings: Findings{Insights: []MetricInsight{
			{Metric: "revenue", Mean: 5000},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Findings.Insights, 1)
	assert.InDelta(t, 1000.0, analysis.Findings.Insights[0].Mean, 1e-9)
}

func TestValidatorDropsAnomaliesWithoutSurvivingEvidence(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Intent: models.IntentAnomaly,
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStatistical, "revenue", "enterprise", 9500, 0.1),
		},
		Findings: Findings{Anomalies: []AnomalyFinding{
			{Metric: "revenue", Segment: "enterprise", Value: 9500, DeviationPct: 31.9},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	assert.Empty(t, analysis.Findings.Anomalies)
	assert.False(t, analysis.Validation.IsValid)
}

func TestValidatorRecomputesSharesFromSurvivors(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{
		Intent: models.IntentSegmentation,
		Evidence: []models.EvidenceObject{
			validEvidence(models.SourceStructured, "revenue", "enterprise", 100, 0.9),
			validEvidence(models.SourceStructured, "revenue", "consumer", 50, 0.1),
		},
		Findings: Findings{Shares: []SegmentShare{
			{Metric: "revenue", Segment: "enterprise", Value: 100, SharePct: 66.7},
			{Metric: "revenue", Segment: "consumer", Value: 50, SharePct: 33.3},
		}},
	}

	require.NoError(t, v.Run(context.Background(), analysis))

	require.Len(t, analysis.Findings.Shares, 1)
	assert.Equal(t, "enterprise", analysis.Findings.Shares[0].Segment)
	assert.InDelta(t, 100.0, analysis.Findings.Shares[0].SharePct, 1e-9)
}

func TestValidatorEmptyEvidenceIsInvalid(t *testing.T) {
	v := newTestValidator()
	analysis := &Analysis{}

	require.NoError(t, v.Run(context.Background(), analysis))

	assert.False(t, analysis.Validation.IsValid)
	assert.Empty(t, analysis.Validation.ValidatedEvidence)
}
