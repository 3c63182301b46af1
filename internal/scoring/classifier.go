package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
)

// Classifier combines coverage and completeness into the three-way
// confidence level that gates how the answer is presented.
type Classifier struct {
	cfg *config.ConfidenceConfig
}

func NewClassifier(cfg *config.ConfidenceConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Classify(
	evidence []models.EvidenceObject,
	subQuestions []models.SubQuestion,
) models.ConfidenceAssessment {
	coverage := Coverage(evidence, subQuestions)
	completeness := Completeness(evidence, c.cfg)

	weightSum := c.cfg.CoverageWeight + c.cfg.CompletenessWeight
	overall := (coverage*c.cfg.CoverageWeight + completeness*c.cfg.CompletenessWeight) / weightSum

	kinds := countSourceKinds(evidence)

	var level models.ConfidenceLevel
	var reasoning string
	switch {
	// High confidence additionally requires corroboration from all source
	// kinds; a missing source caps the level at partial no matter how the
	// remaining sources score.
	case overall >= c.cfg.HighThreshold && kinds < sourceKinds:
		level = models.ConfidencePartial
		reasoning = fmt.Sprintf(
			"Strong scores from only %d of %d source kinds; corroboration incomplete",
			kinds, sourceKinds)
	case overall >= c.cfg.HighThreshold:
		level = models.ConfidenceHigh
		reasoning = "Strong evidence coverage and high data completeness"
	case overall >= c.cfg.PartialThreshold:
		level = models.ConfidencePartial
		reasoning = "Partial evidence coverage or moderate data completeness"
	default:
		level = models.ConfidenceInsufficient
		reasoning = "Insufficient evidence coverage or low data completeness"
	}
	reasoning += fmt.Sprintf(" (coverage %.2f, completeness %.2f)", coverage, completeness)

	logger.Debug("confidence classified",
		zap.Float64("coverage", coverage),
		zap.Float64("completeness", completeness),
		zap.Float64("overall", overall),
		zap.String("level", string(level)))

	return models.ConfidenceAssessment{
		CoverageScore:     coverage,
		CompletenessScore: completeness,
		OverallConfidence: overall,
		ConfidenceLevel:   level,
		Reasoning:         reasoning,
	}
}
