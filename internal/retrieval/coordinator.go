package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

var ErrAllSourcesFailed = errors.New("all retrieval sources failed")

// Coordinator fans each sub-question out to every source concurrently,
// bounded by a per-source timeout. A failing or slow source degrades the
// result instead of failing the query; only a total blackout is an error.
// Findings are merged in fixed (sub-question, source) order so the output
// is deterministic regardless of completion order.
type Coordinator struct {
	sources []Source
	timeout time.Duration
}

func NewCoordinator(sources []Source, timeout time.Duration) *Coordinator {
	return &Coordinator{sources: sources, timeout: timeout}
}

func (c *Coordinator) Retrieve(ctx context.Context, subQuestions []models.SubQuestion) ([]models.RawFinding, error) {
	var all []models.RawFinding
	failures := 0
	attempts := 0

	for sqIdx, sq := range subQuestions {
		results := make([][]models.RawFinding, len(c.sources))
		errs := make([]error, len(c.sources))

		g, groupCtx := errgroup.WithContext(ctx)
		for i, source := range c.sources {
			i, source := i, source
			g.Go(func() error {
				srcCtx, cancel := context.WithTimeout(groupCtx, c.timeout)
				defer cancel()

				findings, err := source.Retrieve(srcCtx, sq)
				if err != nil {
					// Degrade to an empty result; the failure shows up in
					// the confidence scores downstream.
					logger.Warn("retrieval source failed",
						zap.String("source", string(source.Name())),
						zap.Int("sub_question", sqIdx),
						zap.Error(err))
					errs[i] = err
					return nil
				}
				results[i] = findings
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("retrieval fan-out failed: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range c.sources {
			attempts++
			if errs[i] != nil {
				failures++
				continue
			}
			for j := range results[i] {
				results[i][j].SubQuestion = sqIdx
				all = append(all, results[i][j])
			}
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, ErrAllSourcesFailed
	}

	logger.Info("retrieval complete",
		zap.Int("sub_questions", len(subQuestions)),
		zap.Int("findings", len(all)))

	return all, nil
}
