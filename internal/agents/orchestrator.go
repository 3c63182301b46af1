package agents

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// Orchestrator runs the four stages in their fixed order. The order never
// changes: the narrator must only ever see validated evidence, and the
// validator must see what the analyst claimed.
type Orchestrator struct {
	stages []Agent
}

func NewOrchestrator(minConfidence, divergenceLimit, percentTolerance, slopeThreshold float64) *Orchestrator {
	return &Orchestrator{
		stages: []Agent{
			NewRetrieverAgent(),
			NewAnalystAgent(),
			NewValidatorAgent(minConfidence, divergenceLimit, percentTolerance),
			NewNarratorAgent(slopeThreshold),
		},
	}
}

func (o *Orchestrator) Orchestrate(
	ctx context.Context,
	query string,
	intent models.AnalyticalIntent,
	subQuestions []models.SubQuestion,
	evidence []models.EvidenceObject,
) (*Analysis, error) {
	started := time.Now()

	analysis := &Analysis{
		Query:        query,
		Intent:       intent,
		SubQuestions: subQuestions,
		Evidence:     evidence,
	}

	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stage.Run(ctx, analysis); err != nil {
			return nil, fmt.Errorf("%s stage failed: %w", stage.Name(), err)
		}
	}

	logger.Info("agent orchestration complete",
		zap.Int("stages", len(o.stages)),
		zap.Int("validated_evidence", len(analysis.Validation.ValidatedEvidence)),
		zap.Duration("elapsed", time.Since(started)))

	return analysis, nil
}
