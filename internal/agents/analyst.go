package agents

import (
	"context"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ragplus/backend/internal/models"
)

// AnalystAgent turns evidence into structured findings. Every number it
// emits is computed from evidence values; it invents nothing.
type AnalystAgent struct{}

func NewAnalystAgent() *AnalystAgent {
	return &AnalystAgent{}
}

func (a *AnalystAgent) Name() string { return "analyst" }

func (a *AnalystAgent) Run(ctx context.Context, analysis *Analysis) error {
	started := time.Now()

	evidence := analysis.Evidence
	findings := Findings{
		Insights: metricInsights(evidence),
		Patterns: patterns(evidence),
	}

	switch analysis.Intent {
	case models.IntentComparison:
		findings.Comparisons = comparisons(evidence)
	case models.IntentSegmentation:
		findings.Shares = segmentShares(evidence)
	case models.IntentAnomaly:
		findings.Anomalies = anomalies(evidence)
	}

	analysis.Findings = findings

	record(analysis, a.Name(), map[string]any{
		"insights":    len(findings.Insights),
		"comparisons": len(findings.Comparisons),
		"shares":      len(findings.Shares),
		"anomalies":   len(findings.Anomalies),
		"patterns":    findings.Patterns,
	}, started)

	return nil
}

func metricInsights(evidence []models.EvidenceObject) []MetricInsight {
	byMetric := groupByMetric(evidence)

	var insights []MetricInsight
	for _, metric := range metricOrder(evidence) {
		group := byMetric[metric]

		values := make([]float64, 0, len(group))
		var changes []float64
		for _, e := range group {
			values = append(values, e.Value)
			if e.Change != nil {
				changes = append(changes, *e.Change)
			}
		}

		mean, _ := stats.Mean(values)
		insight := MetricInsight{Metric: metric, Mean: mean}

		if len(changes) > 0 {
			meanChange, _ := stats.Mean(changes)
			insight.MeanChange = &meanChange
			if meanChange > 0 {
				insight.Direction = "increasing"
			} else if meanChange < 0 {
				insight.Direction = "decreasing"
			} else {
				insight.Direction = "flat"
			}
		}

		insights = append(insights, insight)
	}
	return insights
}

// comparisons pairs segments within a metric. The earlier-appearing
// segment is the subject and the later one the baseline, so "compare
// enterprise and consumer" reports enterprise relative to consumer.
func comparisons(evidence []models.EvidenceObject) []Comparison {
	var out []Comparison
	for _, metric := range metricOrder(evidence) {
		segments, means := segmentMeans(evidence, metric)
		for i := 0; i < len(segments); i++ {
			for j := i + 1; j < len(segments); j++ {
				valA, valB := means[segments[i]], means[segments[j]]
				if valB == 0 {
					continue
				}
				out = append(out, Comparison{
					Metric:        metric,
					SegmentA:      segments[i],
					SegmentB:      segments[j],
					ValueA:        valA,
					ValueB:        valB,
					DifferencePct: (valA - valB) / abs(valB) * 100,
				})
			}
		}
	}
	return out
}

func segmentShares(evidence []models.EvidenceObject) []SegmentShare {
	var out []SegmentShare
	for _, metric := range metricOrder(evidence) {
		segments, means := segmentMeans(evidence, metric)

		var total float64
		for _, s := range segments {
			total += means[s]
		}
		if total == 0 {
			continue
		}

		for _, s := range segments {
			out = append(out, SegmentShare{
				Metric:   metric,
				Segment:  s,
				Value:    means[s],
				SharePct: means[s] / total * 100,
			})
		}
	}
	return out
}

// anomalies surfaces the deviations the statistical source flagged.
func anomalies(evidence []models.EvidenceObject) []AnomalyFinding {
	var out []AnomalyFinding
	for _, e := range evidence {
		if e.Source != models.SourceStatistical || e.Change == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Support), "anomaly") {
			continue
		}
		out = append(out, AnomalyFinding{
			Metric:       e.Metric,
			Segment:      e.Segment,
			Value:        e.Value,
			DeviationPct: *e.Change,
			Support:      e.Support,
		})
	}
	return out
}

func patterns(evidence []models.EvidenceObject) []string {
	var out []string

	var changes []float64
	for _, e := range evidence {
		if e.Change != nil {
			changes = append(changes, *e.Change)
		}
	}
	if len(changes) > 0 {
		positive, negative := 0, 0
		for _, c := range changes {
			if c > 0 {
				positive++
			} else if c < 0 {
				negative++
			}
		}
		switch {
		case float64(positive) > float64(len(changes))*0.7:
			out = append(out, "Consistent upward movement across most observations")
		case float64(negative) > float64(len(changes))*0.7:
			out = append(out, "Consistent downward movement across most observations")
		default:
			out = append(out, "Mixed movement across observations")
		}
	}

	highConf := 0
	for _, e := range evidence {
		if e.Confidence > 0.8 {
			highConf++
		}
	}
	if len(evidence) > 0 && float64(highConf) > float64(len(evidence))*0.7 {
		out = append(out, "High confidence in most evidence")
	}

	return out
}

func groupByMetric(evidence []models.EvidenceObject) map[string][]models.EvidenceObject {
	byMetric := make(map[string][]models.EvidenceObject)
	for _, e := range evidence {
		byMetric[e.Metric] = append(byMetric[e.Metric], e)
	}
	return byMetric
}

func metricOrder(evidence []models.EvidenceObject) []string {
	seen := make(map[string]bool)
	var order []string
	for _, e := range evidence {
		if !seen[e.Metric] {
			seen[e.Metric] = true
			order = append(order, e.Metric)
		}
	}
	return order
}

// segmentMeans returns the segments of a metric in first-appearance order
// with the mean evidence value per segment. The aggregate "all" segment is
// excluded; it would distort pairwise comparisons.
func segmentMeans(evidence []models.EvidenceObject, metric string) ([]string, map[string]float64) {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, e := range evidence {
		if e.Metric != metric || e.Segment == "all" {
			continue
		}
		if counts[e.Segment] == 0 {
			order = append(order, e.Segment)
		}
		sums[e.Segment] += e.Value
		counts[e.Segment]++
	}

	means := make(map[string]float64, len(order))
	for _, s := range order {
		means[s] = sums[s] / float64(counts[s])
	}
	return order, means
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
