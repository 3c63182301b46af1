package retrieval

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/store/sqlite"
)

// StatisticalSource derives trend and anomaly findings from the raw
// series: average step-to-step change per metric and segment, plus points
// whose rolling z-score crosses the threshold.
type StatisticalSource struct {
	store          *sqlite.Client
	zScoreLimit    float64
	baselineWindow int
}

func NewStatisticalSource(store *sqlite.Client, zScoreLimit float64, baselineWindow int) *StatisticalSource {
	if baselineWindow < 2 {
		baselineWindow = 7
	}
	return &StatisticalSource{
		store:          store,
		zScoreLimit:    zScoreLimit,
		baselineWindow: baselineWindow,
	}
}

func (s *StatisticalSource) Name() models.EvidenceSource {
	return models.SourceStatistical
}

func (s *StatisticalSource) Retrieve(ctx context.Context, sq models.SubQuestion) ([]models.RawFinding, error) {
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
			if len(points) < 2 {
				continue
			}

			if trend := s.trendFinding(metric, segment, sq.TimeWindow, points); trend != nil {
				findings = append(findings, *trend)
			}
			findings = append(findings, s.anomalyFindings(metric, segment, sq.TimeWindow, points)...)
		}
	}
	return findings, nil
}

func (s *StatisticalSource) trendFinding(metric, segment, window string, points []models.MetricPoint) *models.RawFinding {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	mean, _ := stats.Mean(values)
	stddev, _ := stats.StandardDeviation(values)

	var changes []float64
	for i := 1; i < len(values); i++ {
		if pct := percentChange(values[i-1], values[i]); pct != nil {
			changes = append(changes, *pct)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	meanChange, _ := stats.Mean(changes)
	direction := "decreasing"
	if meanChange > 0 {
		direction = "increasing"
	}

	support := fmt.Sprintf(
		"Trend analysis for %s in %s: average value %.2f (±%.2f), %s trend with average change of %+.1f%% per step",
		metric, segment, mean, stddev, direction, meanChange)

	return &models.RawFinding{
		Source:     models.SourceStatistical,
		Metric:     metric,
		Segment:    segment,
		TimeWindow: window,
		Value:      mean,
		Change:     &meanChange,
		Support:    support,
		Confidence: 0.85,
	}
}

// anomalyFindings flags points whose deviation from the rolling baseline
// exceeds the z-score threshold. The baseline is the mean of the preceding
// window, so early points without a full window are skipped.
func (s *StatisticalSource) anomalyFindings(metric, segment, window string, points []models.MetricPoint) []models.RawFinding {
	var findings []models.RawFinding

	for i := s.baselineWindow; i < len(points); i++ {
		baseline := make([]float64, s.baselineWindow)
		for j := 0; j < s.baselineWindow; j++ {
			baseline[j] = points[i-s.baselineWindow+j].Value
		}

		mean, _ := stats.Mean(baseline)
		stddev, _ := stats.StandardDeviation(baseline)
		if stddev == 0 {
			continue
		}

		value := points[i].Value
		z := (value - mean) / stddev
		if abs(z) < s.zScoreLimit {
			continue
		}

		deviation := percentChange(mean, value)
		support := fmt.Sprintf(
			"Anomaly detected in %s for %s: value %.2f on %s is %.1f standard deviations from rolling mean %.2f",
			metric, segment, value, points[i].Date, abs(z), mean)

		findings = append(findings, models.RawFinding{
			Source:     models.SourceStatistical,
			Metric:     metric,
			Segment:    segment,
			TimeWindow: window,
			Value:      value,
			Baseline:   &mean,
			Change:     deviation,
			Support:    support,
			Confidence: 0.8,
		})
	}
	return findings
}
