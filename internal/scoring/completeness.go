package scoring

import (
	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/config"
)

const sourceKinds = 3

// Completeness scores how well the evidence itself supports an answer.
// Each object contributes a quality score (has a change figure, its own
// confidence, meaningful support text) weighted by the reliability of its
// source, and the total is scaled by how many of the three source kinds
// actually contributed. Evidence from a single source can never score as
// complete as corroborated evidence.
func Completeness(evidence []models.EvidenceObject, cfg *config.ConfidenceConfig) float64 {
	if len(evidence) == 0 {
		return 0.0
	}

	var weighted, totalWeight float64
	seen := make(map[models.EvidenceSource]bool)

	for _, e := range evidence {
		seen[e.Source] = true

		quality := 0.0
		if e.Change != nil {
			quality += 0.3
		}
		quality += e.Confidence * 0.4
		if len(e.Support) > 20 {
			quality += 0.3
		}

		w := sourceWeight(e.Source, cfg)
		weighted += quality * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0.0
	}

	sourceFactor := float64(len(seen)) / sourceKinds
	return (weighted / totalWeight) * sourceFactor
}

func countSourceKinds(evidence []models.EvidenceObject) int {
	seen := make(map[models.EvidenceSource]bool)
	for _, e := range evidence {
		seen[e.Source] = true
	}
	return len(seen)
}

func sourceWeight(source models.EvidenceSource, cfg *config.ConfidenceConfig) float64 {
	switch source {
	case models.SourceStructured:
		return cfg.StructuredWeight
	case models.SourceStatistical:
		return cfg.StatisticalWeight
	case models.SourceSemantic:
		return cfg.SemanticWeight
	}
	return 0
}
