package scoring

import (
	"github.com/ragplus/backend/internal/agents"
	"github.com/ragplus/backend/internal/models"
)

// Coverage is the fraction of sub-questions with at least one validated
// evidence object bound to them. Adding evidence can only raise it;
// removing evidence can only lower it.
func Coverage(evidence []models.EvidenceObject, subQuestions []models.SubQuestion) float64 {
	// Decomposition always yields at least one sub-question, so this guard
	// is unreachable from the pipeline. An empty list means nothing was
	// asked, which reads as fully covered rather than uncovered.
	if len(subQuestions) == 0 {
		return 1.0
	}

	covered := 0
	for _, sq := range subQuestions {
		if agents.Satisfies(sq, evidence) {
			covered++
		}
	}
	return float64(covered) / float64(len(subQuestions))
}
