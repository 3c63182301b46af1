package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/store/sqlite"
)

// StructuredSource aggregates the tabular corpus: per metric and segment it
// reports the window mean and the change between the first and second half
// of the window.
type StructuredSource struct {
	store *sqlite.Client
}

func NewStructuredSource(store *sqlite.Client) *StructuredSource {
	return &StructuredSource{store: store}
}

func (s *StructuredSource) Name() models.EvidenceSource {
	return models.SourceStructured
}

func (s *StructuredSource) Retrieve(ctx context.Context, sq models.SubQuestion) ([]models.RawFinding, error) {
	metrics, segmentsFor, err := resolveTargets(s.store, sq)
	if err != nil {
		return nil, err
	}

	latest, err := s.store.LatestDate()
	if err != nil {
		return nil, err
	}
	from, to := sqlite.WindowRange(sq.TimeWindow, latest)

	var findings []models.RawFinding
	for _, metric := range metrics {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, segment := range segmentsFor(metric) {
			points, err := s.store.Series(metric, segment, from, to)
			if err != nil {
				return nil, err
			}
			if len(points) == 0 {
				continue
			}
			findings = append(findings, s.aggregate(metric, segment, sq.TimeWindow, points))
		}
	}
	return findings, nil
}

func (s *StructuredSource) aggregate(metric, segment, window string, points []models.MetricPoint) models.RawFinding {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	mean, _ := stats.Mean(values)

	var change *float64
	if len(values) > 1 {
		mid := len(values) / 2
		prev, _ := stats.Mean(values[:mid])
		curr, _ := stats.Mean(values[mid:])
		change = percentChange(prev, curr)
	}

	support := fmt.Sprintf("%s for %s segment: current value %.2f",
		capitalize(metric), segment, mean)
	if change != nil {
		support += fmt.Sprintf(", %+.1f%% change from previous period", *change)
	}

	return models.RawFinding{
		Source:     models.SourceStructured,
		Metric:     metric,
		Segment:    segment,
		TimeWindow: window,
		Value:      mean,
		Change:     change,
		Support:    support,
		Confidence: 0.9,
	}
}

// resolveTargets expands a sub-question into the concrete metric and
// segment lists to query. An empty metric list means every metric in the
// corpus; an empty segment list means every segment of that metric, which
// gives intents like segmentation their per-segment breakdown.
func resolveTargets(store *sqlite.Client, sq models.SubQuestion) ([]string, func(string) []string, error) {
	metrics := sq.Metrics
	if len(metrics) == 0 {
		all, err := store.Metrics()
		if err != nil {
			return nil, nil, err
		}
		metrics = all
	}

	if len(sq.Segments) > 0 {
		fixed := sq.Segments
		return metrics, func(string) []string { return fixed }, nil
	}

	return metrics, func(metric string) []string {
		segments, err := store.Segments(metric)
		if err != nil {
			return nil
		}
		return segments
	}, nil
}

func percentChange(prev, curr float64) *float64 {
	if prev == 0 {
		return nil
	}
	pct := (curr - prev) / abs(prev) * 100
	return &pct
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
