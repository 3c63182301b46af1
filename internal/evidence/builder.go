package evidence

import (
	"strings"

	"github.com/ragplus/backend/internal/models"
)

// Builder normalizes raw retrieval findings into evidence objects:
// identifiers are lowercased and trimmed, confidence is clamped to [0,1],
// and a missing change is derived from the baseline when one is present.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Build(findings []models.RawFinding) []models.EvidenceObject {
	out := make([]models.EvidenceObject, 0, len(findings))
	for _, f := range findings {
		out = append(out, b.buildOne(f))
	}
	return out
}

func (b *Builder) buildOne(f models.RawFinding) models.EvidenceObject {
	segment := normalize(f.Segment)
	if segment == "" {
		segment = "all"
	}

	change := f.Change
	if change == nil && f.Baseline != nil && *f.Baseline != 0 {
		pct := (f.Value - *f.Baseline) / abs(*f.Baseline) * 100
		change = &pct
	}

	return models.EvidenceObject{
		Source:     f.Source,
		Metric:     normalize(f.Metric),
		Segment:    segment,
		TimeWindow: strings.TrimSpace(f.TimeWindow),
		Value:      f.Value,
		Change:     change,
		Support:    strings.TrimSpace(f.Support),
		Confidence: clamp01(f.Confidence),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
