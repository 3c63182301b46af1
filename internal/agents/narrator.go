package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ragplus/backend/internal/models"
)

// RefusalAnswer is returned whenever there is no validated evidence to
// cite. The narrator never fills the gap with speculation.
const RefusalAnswer = "Insufficient data available to answer this query. " +
	"Declining to speculate beyond the available evidence."

// NarratorAgent renders the validated findings as the final answer. It
// only restates numbers the analyst computed; no new figures appear here.
type NarratorAgent struct {
	slopeThreshold float64
}

func NewNarratorAgent(slopeThreshold float64) *NarratorAgent {
	return &NarratorAgent{slopeThreshold: slopeThreshold}
}

func (a *NarratorAgent) Name() string { return "narrator" }

func (a *NarratorAgent) Run(ctx context.Context, analysis *Analysis) error {
	started := time.Now()

	analysis.Answer = a.compose(analysis)

	record(analysis, a.Name(), map[string]any{
		"answer_length": len(analysis.Answer),
		"refused":       analysis.Answer == RefusalAnswer,
	}, started)

	return nil
}

func (a *NarratorAgent) compose(analysis *Analysis) string {
	evidence := analysis.Validation.ValidatedEvidence
	if len(evidence) == 0 {
		return RefusalAnswer
	}

	findings := analysis.Findings
	var sections []string

	sections = append(sections, "Based on the available data:")

	if len(findings.Insights) > 0 {
		sections = append(sections, "\nKey Findings:")
		for i, insight := range findings.Insights {
			if i >= 3 {
				break
			}
			sections = append(sections, a.insightLine(insight))
		}
	}

	if len(findings.Comparisons) > 0 {
		sections = append(sections, "\nComparisons:")
		for i, c := range findings.Comparisons {
			if i >= 2 {
				break
			}
			sections = append(sections, fmt.Sprintf(
				"• %s: %s is %.1f%% %s than %s (%.2f vs %.2f)",
				capitalize(c.Metric), c.SegmentA, abs(c.DifferencePct),
				higherOrLower(c.DifferencePct), c.SegmentB, c.ValueA, c.ValueB))
		}
	}

	if len(findings.Shares) > 0 {
		sections = append(sections, "\nSegment Breakdown:")
		for _, s := range findings.Shares {
			sections = append(sections, fmt.Sprintf(
				"• %s %s: %.2f (%.1f%% of total)",
				capitalize(s.Metric), s.Segment, s.Value, s.SharePct))
		}
	}

	if len(findings.Anomalies) > 0 {
		sections = append(sections, "\nAnomalies:")
		for _, an := range findings.Anomalies {
			sections = append(sections, fmt.Sprintf(
				"• %s in %s: value %.2f deviates %+.1f%% from its baseline",
				capitalize(an.Metric), an.Segment, an.Value, an.DeviationPct))
		}
	}

	if len(findings.Patterns) > 0 {
		sections = append(sections, "\nObserved Patterns:")
		for _, p := range findings.Patterns {
			sections = append(sections, "• "+p)
		}
	}

	sections = append(sections, fmt.Sprintf(
		"\nThis analysis is based on %d evidence objects from %d sources.",
		len(evidence), countSources(evidence)))

	return strings.Join(sections, "\n")
}

func (a *NarratorAgent) insightLine(insight MetricInsight) string {
	line := fmt.Sprintf("• Average %s: %.2f", insight.Metric, insight.Mean)
	if insight.MeanChange != nil {
		strength := ""
		if abs(*insight.MeanChange) >= a.slopeThreshold {
			strength = "steadily "
		}
		line += fmt.Sprintf("; %s is %s%s with average change of %+.1f%%",
			insight.Metric, strength, insight.Direction, *insight.MeanChange)
	}
	return line
}

func higherOrLower(diff float64) string {
	if diff >= 0 {
		return "higher"
	}
	return "lower"
}

func countSources(evidence []models.EvidenceObject) int {
	seen := make(map[models.EvidenceSource]bool)
	for _, e := range evidence {
		seen[e.Source] = true
	}
	return len(seen)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
