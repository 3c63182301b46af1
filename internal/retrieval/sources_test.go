package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/internal/vector"
)

func newTestStore(t *testing.T, points []models.MetricPoint) *sqlite.Client {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.InitSchema())
	require.NoError(t, store.InsertPoints(points))
	return store
}

func TestStructuredSourceAggregates(t *testing.T) {
	store := newTestStore(t, []models.MetricPoint{
		{Date: "2024-01-01", Metric: "revenue", Segment: "enterprise", Value: 100},
		{Date: "2024-01-02", Metric: "revenue", Segment: "enterprise", Value: 100},
		{Date: "2024-01-03", Metric: "revenue", Segment: "enterprise", Value: 200},
		{Date: "2024-01-04", Metric: "revenue", Segment: "enterprise", Value: 200},
	})

	src := NewStructuredSource(store)
	sq := models.SubQuestion{
		Question: "What is the current value of revenue?",
		Metrics:  []string{"revenue"},
		Segments: []string{"enterprise"},
	}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, models.SourceStructured, f.Source)
	assert.InDelta(t, 150, f.Value, 1e-9)
	require.NotNil(t, f.Change)
	assert.InDelta(t, 100, *f.Change, 1e-9)
	assert.Equal(t, 0.9, f.Confidence)
	assert.Contains(t, f.Support, "Revenue for enterprise segment")
}

func TestStructuredSourceExpandsSegments(t *testing.T) {
	store := newTestStore(t, []models.MetricPoint{
		{Date: "2024-01-01", Metric: "revenue", Segment: "enterprise", Value: 100},
		{Date: "2024-01-01", Metric: "revenue", Segment: "consumer", Value: 50},
	})

	src := NewStructuredSource(store)
	sq := models.SubQuestion{
		Question: "What is the distribution of revenue across segments?",
		Metrics:  []string{"revenue"},
	}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	segments := []string{findings[0].Segment, findings[1].Segment}
	assert.ElementsMatch(t, []string{"enterprise", "consumer"}, segments)
}

func TestStructuredSourceUnknownMetricYieldsNothing(t *testing.T) {
	store := newTestStore(t, []models.MetricPoint{
		{Date: "2024-01-01", Metric: "revenue", Segment: "enterprise", Value: 100},
	})

	src := NewStructuredSource(store)
	sq := models.SubQuestion{Question: "profit?", Metrics: []string{"profit"}}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func risingSeries(t *testing.T) *sqlite.Client {
	t.Helper()
	points := make([]models.MetricPoint, 0, 10)
	dates := []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10",
	}
	for i, d := range dates {
		points = append(points, models.MetricPoint{
			Date: d, Metric: "revenue", Segment: "enterprise", Value: 100 + float64(i)*10,
		})
	}
	return newTestStore(t, points)
}

func TestStatisticalSourceTrend(t *testing.T) {
	src := NewStatisticalSource(risingSeries(t), 2.0, 7)
	sq := models.SubQuestion{
		Question: "How has revenue changed?",
		Metrics:  []string{"revenue"},
		Segments: []string{"enterprise"},
	}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)
	require.NotEmpty(t, findings)

	trend := findings[0]
	require.NotNil(t, trend.Change)
	assert.Positive(t, *trend.Change)
	assert.Equal(t, 0.85, trend.Confidence)
	assert.Contains(t, trend.Support, "increasing trend")
}

func TestStatisticalSourceAnomaly(t *testing.T) {
	values := []float64{7190, 7210, 7190, 7210, 7190, 7210, 7200, 9500}
	dates := []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04",
		"2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08",
	}
	points := make([]models.MetricPoint, 0, len(values))
	for i, v := range values {
		points = append(points, models.MetricPoint{
			Date: dates[i], Metric: "revenue", Segment: "enterprise", Value: v,
		})
	}
	store := newTestStore(t, points)

	src := NewStatisticalSource(store, 2.0, 7)
	sq := models.SubQuestion{
		Question: "Which observations of revenue deviate from the baseline?",
		Metrics:  []string{"revenue"},
		Segments: []string{"enterprise"},
	}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)

	var anomaly *models.RawFinding
	for i := range findings {
		if strings.Contains(findings[i].Support, "Anomaly detected") {
			anomaly = &findings[i]
		}
	}
	require.NotNil(t, anomaly)

	assert.Equal(t, 9500.0, anomaly.Value)
	require.NotNil(t, anomaly.Baseline)
	assert.InDelta(t, 7200, *anomaly.Baseline, 1e-9)
	require.NotNil(t, anomaly.Change)
	assert.InDelta(t, 31.9, *anomaly.Change, 0.1)
	assert.Equal(t, 0.8, anomaly.Confidence)
}

func TestStatisticalSourceFlatSeriesNoAnomaly(t *testing.T) {
	points := make([]models.MetricPoint, 0, 10)
	dates := []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10",
	}
	for _, d := range dates {
		points = append(points, models.MetricPoint{
			Date: d, Metric: "revenue", Segment: "enterprise", Value: 100,
		})
	}
	store := newTestStore(t, points)

	src := NewStatisticalSource(store, 2.0, 7)
	sq := models.SubQuestion{
		Question: "Which observations deviate?",
		Metrics:  []string{"revenue"},
		Segments: []string{"enterprise"},
	}

	findings, err := src.Retrieve(context.Background(), sq)
	require.NoError(t, err)

	for _, f := range findings {
		assert.NotContains(t, f.Support, "Anomaly detected")
	}
}

type fakeIndex struct {
	matches []vector.Match
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) { return len(f.matches), nil }

func (f *fakeIndex) InsertFacts(ctx context.Context, facts []models.KnowledgeFact) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, question string, topK int) ([]vector.Match, error) {
	return f.matches, nil
}

func TestSemanticSourceFiltersBelowFloor(t *testing.T) {
	change := 15.5
	index := &fakeIndex{matches: []vector.Match{
		{Fact: models.KnowledgeFact{
			Metric: "revenue", Segment: "enterprise", TimeWindow: "Q1_2024",
			Value: 125000, Change: &change,
			Text: "Revenue increased by 15.5% in Q1 2024 for enterprise customers",
		}, Score: 0.92},
		{Fact: models.KnowledgeFact{
			Metric: "engagement", Segment: "mobile", TimeWindow: "last_7_days",
			Value: 0.72, Text: "User engagement dropped in the mobile app",
		}, Score: 0.41},
	}}

	src := NewSemanticSource(index, 5, 0.7)
	findings, err := src.Retrieve(context.Background(), models.SubQuestion{Question: "revenue?"})
	require.NoError(t, err)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, models.SourceSemantic, f.Source)
	assert.Equal(t, "revenue", f.Metric)
	assert.Equal(t, 0.92, f.Confidence)
	require.NotNil(t, f.Change)
}
