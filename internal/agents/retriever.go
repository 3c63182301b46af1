package agents

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// RetrieverAgent orders the evidence for the later stages and marks which
// sub-questions actually got evidence bound to them.
type RetrieverAgent struct{}

func NewRetrieverAgent() *RetrieverAgent {
	return &RetrieverAgent{}
}

func (a *RetrieverAgent) Name() string { return "retriever" }

func (a *RetrieverAgent) Run(ctx context.Context, analysis *Analysis) error {
	started := time.Now()

	// Stable sort: confidence descending, equal confidence keeps
	// retrieval order.
	sort.SliceStable(analysis.Evidence, func(i, j int) bool {
		return analysis.Evidence[i].Confidence > analysis.Evidence[j].Confidence
	})

	analysis.Satisfied = make([]bool, len(analysis.SubQuestions))
	for i, sq := range analysis.SubQuestions {
		analysis.Satisfied[i] = Satisfies(sq, analysis.Evidence)
	}

	satisfied := 0
	for _, ok := range analysis.Satisfied {
		if ok {
			satisfied++
		}
	}

	logger.Debug("retriever stage complete",
		zap.Int("evidence", len(analysis.Evidence)),
		zap.Int("satisfied", satisfied),
		zap.Int("sub_questions", len(analysis.SubQuestions)))

	record(analysis, a.Name(), map[string]any{
		"evidence_count":          len(analysis.Evidence),
		"satisfied_sub_questions": satisfied,
		"total_sub_questions":     len(analysis.SubQuestions),
	}, started)

	return nil
}

// Satisfies reports whether any evidence binds to the sub-question: the
// evidence must name one of its metrics, and one of its segments when the
// sub-question names segments at all.
func Satisfies(sq models.SubQuestion, evidence []models.EvidenceObject) bool {
	for _, e := range evidence {
		if !matchesMetric(sq, e) {
			continue
		}
		if len(sq.Segments) == 0 || matchesSegment(sq, e) {
			return true
		}
	}
	return false
}

func matchesMetric(sq models.SubQuestion, e models.EvidenceObject) bool {
	if len(sq.Metrics) == 0 {
		return true
	}
	for _, m := range sq.Metrics {
		if e.Metric == m {
			return true
		}
	}
	return false
}

func matchesSegment(sq models.SubQuestion, e models.EvidenceObject) bool {
	for _, s := range sq.Segments {
		if e.Segment == s {
			return true
		}
	}
	return false
}
