package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragplus/backend/internal/models"
)

func obj(source models.EvidenceSource, metric string, value, confidence float64) models.EvidenceObject {
	return models.EvidenceObject{
		Source:     source,
		Metric:     metric,
		Segment:    "enterprise",
		TimeWindow: "last_30_days",
		Value:      value,
		Support:    "supporting observation for " + metric,
		Confidence: confidence,
	}
}

func TestDeduplicateKeepsHighestConfidence(t *testing.T) {
	d := NewDeduplicator(0.25)

	in := []models.EvidenceObject{
		obj(models.SourceSemantic, "revenue", 100, 0.7),
		obj(models.SourceStructured, "revenue", 101, 0.9),
		obj(models.SourceStatistical, "revenue", 99, 0.8),
	}

	out := d.Deduplicate(in)

	require.Len(t, out, 1)
	assert.Equal(t, models.SourceStructured, out[0].Source)
}

func TestDeduplicateKeepsDivergentSources(t *testing.T) {
	d := NewDeduplicator(0.25)

	in := []models.EvidenceObject{
		obj(models.SourceStructured, "revenue", 100, 0.9),
		obj(models.SourceSemantic, "revenue", 50, 0.7),
	}

	out := d.Deduplicate(in)

	// The semantic value disagrees by 50%: that conflict is preserved for
	// the validator rather than silently collapsed.
	require.Len(t, out, 2)
}

func TestDeduplicateDistinctGroupsUntouched(t *testing.T) {
	d := NewDeduplicator(0.25)

	in := []models.EvidenceObject{
		obj(models.SourceStructured, "revenue", 100, 0.9),
		obj(models.SourceStructured, "users", 500, 0.9),
	}

	out := d.Deduplicate(in)
	assert.Equal(t, in, out)
}

func TestDeduplicateTieKeepsEarliest(t *testing.T) {
	d := NewDeduplicator(0.25)

	first := obj(models.SourceStructured, "revenue", 100, 0.9)
	second := obj(models.SourceStatistical, "revenue", 102, 0.9)

	out := d.Deduplicate([]models.EvidenceObject{first, second})

	require.Len(t, out, 1)
	assert.Equal(t, first, out[0])
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	d := NewDeduplicator(0.25)

	in := []models.EvidenceObject{
		obj(models.SourceStructured, "revenue", 100, 0.9),
		obj(models.SourceSemantic, "revenue", 50, 0.7),
		obj(models.SourceStatistical, "revenue", 99, 0.8),
		obj(models.SourceStructured, "users", 500, 0.9),
	}

	once := d.Deduplicate(in)
	twice := d.Deduplicate(once)

	assert.Equal(t, once, twice)
}

func TestDeduplicatePreservesInputOrder(t *testing.T) {
	d := NewDeduplicator(0.25)

	users := obj(models.SourceStructured, "users", 500, 0.6)
	revenue := obj(models.SourceStructured, "revenue", 100, 0.9)

	out := d.Deduplicate([]models.EvidenceObject{users, revenue})

	require.Len(t, out, 2)
	assert.Equal(t, "users", out[0].Metric)
	assert.Equal(t, "revenue", out[1].Metric)
}

func TestDivergence(t *testing.T) {
	assert.InDelta(t, 0.5, Divergence(100, 50), 1e-9)
	assert.InDelta(t, 0.5, Divergence(50, 100), 1e-9)
	assert.Equal(t, 0.0, Divergence(0, 0))
	assert.InDelta(t, 1.0, Divergence(0, 10), 1e-9)
}
