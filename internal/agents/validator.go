package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/evidence"
	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// ValidatorAgent rejects evidence the narrator must not cite: malformed
// objects, evidence below the confidence floor, and the losing side of a
// cross-source contradiction. Every finding kind is then rebuilt from the
// surviving evidence, so nothing downstream can cite a rejected value.
// Comparisons additionally keep the analyst's stated numbers and are
// dropped when they cannot be reproduced from the survivors.
type ValidatorAgent struct {
	minConfidence    float64
	divergenceLimit  float64
	percentTolerance float64
}

func NewValidatorAgent(minConfidence, divergenceLimit, percentTolerance float64) *ValidatorAgent {
	return &ValidatorAgent{
		minConfidence:    minConfidence,
		divergenceLimit:  divergenceLimit,
		percentTolerance: percentTolerance,
	}
}

func (a *ValidatorAgent) Name() string { return "validator" }

func (a *ValidatorAgent) Run(ctx context.Context, analysis *Analysis) error {
	started := time.Now()

	var validated []models.EvidenceObject
	var rejected []models.RejectedEvidence
	var warnings []string

	for _, e := range analysis.Evidence {
		if reason := malformed(e); reason != "" {
			rejected = append(rejected, models.RejectedEvidence{
				Evidence: e, Reason: models.ReasonMalformed,
			})
			warnings = append(warnings, reason)
			continue
		}
		if e.Confidence < a.minConfidence {
			rejected = append(rejected, models.RejectedEvidence{
				Evidence: e, Reason: models.ReasonLowConfidence,
			})
			continue
		}
		validated = append(validated, e)
	}

	validated, contradicted, contradictionWarnings := a.resolveContradictions(validated)
	rejected = append(rejected, contradicted...)
	warnings = append(warnings, contradictionWarnings...)

	// Insights, shares, anomalies, and patterns are recomputed from the
	// survivors; means must not blend in rejected values.
	analysis.Findings.Insights = metricInsights(validated)
	analysis.Findings.Patterns = patterns(validated)
	if analysis.Intent == models.IntentSegmentation {
		analysis.Findings.Shares = segmentShares(validated)
	}
	if analysis.Intent == models.IntentAnomaly {
		analysis.Findings.Anomalies = anomalies(validated)
	}
	analysis.Findings.Comparisons, warnings = a.checkComparisons(
		analysis.Findings.Comparisons, validated, warnings)

	analysis.Validation = models.ValidationResult{
		IsValid:           len(validated) > 0,
		ValidatedEvidence: validated,
		RejectedEvidence:  rejected,
		Warnings:          warnings,
	}
	analysis.Evidence = validated

	logger.Debug("validator stage complete",
		zap.Int("validated", len(validated)),
		zap.Int("rejected", len(rejected)),
		zap.Int("warnings", len(warnings)))

	record(analysis, a.Name(), map[string]any{
		"validated_count": len(validated),
		"rejected_count":  len(rejected),
		"warnings":        warnings,
		"is_valid":        len(validated) > 0,
	}, started)

	return nil
}

func malformed(e models.EvidenceObject) string {
	switch {
	case e.Metric == "":
		return "evidence has empty metric"
	case e.Segment == "":
		return "evidence has empty segment"
	case e.TimeWindow == "":
		return fmt.Sprintf("evidence for %s has empty time window", e.Metric)
	case math.IsNaN(e.Value) || math.IsInf(e.Value, 0):
		return fmt.Sprintf("evidence for %s has non-finite value", e.Metric)
	case len(e.Support) < 10:
		return fmt.Sprintf("evidence for %s has insufficient support text", e.Metric)
	}
	return ""
}

// resolveContradictions keeps, per (metric, segment, time window) group,
// the highest-confidence member and rejects any other member whose value
// diverges from it beyond the limit.
func (a *ValidatorAgent) resolveContradictions(
	in []models.EvidenceObject,
) ([]models.EvidenceObject, []models.RejectedEvidence, []string) {

	groups := make(map[models.GroupKey][]int)
	var keyOrder []models.GroupKey
	for i, e := range in {
		key := e.Key()
		if _, ok := groups[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], i)
	}

	drop := make(map[int]bool)
	var rejected []models.RejectedEvidence
	var warnings []string

	for _, key := range keyOrder {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		best := members[0]
		for _, idx := range members[1:] {
			if in[idx].Confidence > in[best].Confidence {
				best = idx
			}
		}
		for _, idx := range members {
			if idx == best {
				continue
			}
			if evidence.Divergence(in[best].Value, in[idx].Value) > a.divergenceLimit {
				drop[idx] = true
				rejected = append(rejected, models.RejectedEvidence{
					Evidence: in[idx], Reason: models.ReasonContradicted,
				})
				warnings = append(warnings, fmt.Sprintf(
					"conflicting values for %s in %s: %.2f (%s) vs %.2f (%s)",
					in[idx].Metric, in[idx].Segment,
					in[best].Value, in[best].Source,
					in[idx].Value, in[idx].Source))
			}
		}
	}

	if len(drop) == 0 {
		return in, rejected, warnings
	}

	kept := make([]models.EvidenceObject, 0, len(in)-len(drop))
	for i, e := range in {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	return kept, rejected, warnings
}

// checkComparisons recomputes each comparison from the validated evidence
// and drops any whose stated difference cannot be reproduced within the
// tolerance, in percentage points.
func (a *ValidatorAgent) checkComparisons(
	comparisons []Comparison,
	validated []models.EvidenceObject,
	warnings []string,
) ([]Comparison, []string) {

	var kept []Comparison
	for _, c := range comparisons {
		segments, means := segmentMeans(validated, c.Metric)
		if !contains(segments, c.SegmentA) || !contains(segments, c.SegmentB) || means[c.SegmentB] == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"comparison of %s between %s and %s no longer has supporting evidence",
				c.Metric, c.SegmentA, c.SegmentB))
			continue
		}

		recomputed := (means[c.SegmentA] - means[c.SegmentB]) / abs(means[c.SegmentB]) * 100
		if abs(recomputed-c.DifferencePct) > a.percentTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"comparison of %s between %s and %s does not reproduce: stated %.1f%%, recomputed %.1f%%",
				c.Metric, c.SegmentA, c.SegmentB, c.DifferencePct, recomputed))
			continue
		}
		kept = append(kept, c)
	}
	return kept, warnings
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
