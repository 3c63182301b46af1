package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/agents"
	"github.com/ragplus/backend/internal/cache/redis"
	"github.com/ragplus/backend/internal/evidence"
	"github.com/ragplus/backend/internal/input"
	"github.com/ragplus/backend/internal/metrics"
	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/response"
	"github.com/ragplus/backend/internal/retrieval"
	"github.com/ragplus/backend/internal/scoring"
	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
	"github.com/ragplus/backend/pkg/utils"
)

var ErrEmptyQuery = errors.New("query must not be empty")

// Engine runs a query through the full pipeline: classification,
// decomposition, retrieval, evidence construction, agent orchestration,
// confidence scoring, and response assembly. Every stage is deterministic
// for a fixed corpus, so identical queries produce identical answers.
type Engine struct {
	cfg          *config.Config
	classifier   *input.Classifier
	decomposer   *input.Decomposer
	coordinator  *retrieval.Coordinator
	builder      *evidence.Builder
	deduplicator *evidence.Deduplicator
	orchestrator *agents.Orchestrator
	scorer       *scoring.Classifier
	responses    *response.Builder
	explainer    *response.Explainer
	store        *sqlite.Client
	cache        *redis.Client
}

func New(
	cfg *config.Config,
	coordinator *retrieval.Coordinator,
	store *sqlite.Client,
	cache *redis.Client,
) *Engine {
	return &Engine{
		cfg:          cfg,
		classifier:   input.NewClassifier(),
		decomposer:   input.NewDecomposer(&cfg.Retrieval),
		coordinator:  coordinator,
		builder:      evidence.NewBuilder(),
		deduplicator: evidence.NewDeduplicator(cfg.Confidence.DivergenceLimit),
		orchestrator: agents.NewOrchestrator(
			cfg.Confidence.MinEvidenceConf,
			cfg.Confidence.DivergenceLimit,
			cfg.Confidence.PercentTolerance,
			cfg.Confidence.SlopeThreshold,
		),
		scorer:    scoring.NewClassifier(&cfg.Confidence),
		responses: response.NewBuilder(),
		explainer: response.NewExplainer(),
		store:     store,
		cache:     cache,
	}
}

func (e *Engine) ProcessQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	started := time.Now()

	cacheKey := utils.ContentHash(query, fmt.Sprintf("%t", req.IncludeExplainability))
	if e.cache != nil {
		cached, hit, err := e.cache.GetResult(ctx, cacheKey)
		if err != nil {
			logger.Warn("cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("query").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("query").Inc()
	}

	intent := e.classifier.Classify(query)
	decomposition := e.decomposer.Decompose(query, intent)

	// Sources that find nothing degrade into the refusal path downstream;
	// every source erroring is a query failure the caller must see.
	findings, err := e.coordinator.Retrieve(ctx, decomposition.SubQuestions)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	observeFindings(findings)

	built := e.builder.Build(findings)
	deduped := e.deduplicator.Deduplicate(built)
	capped := e.capEvidence(deduped)

	analysis, err := e.orchestrator.Orchestrate(ctx, query, intent, decomposition.SubQuestions, capped)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("orchestration failed: %w", err)
	}

	assessment := e.scorer.Classify(analysis.Validation.ValidatedEvidence, decomposition.SubQuestions)

	elapsed := float64(time.Since(started).Microseconds()) / 1000.0
	final := e.responses.Build(query, analysis.Answer, assessment, analysis.Validation.ValidatedEvidence, elapsed)

	result := &models.QueryResult{
		Success:  true,
		Response: &final,
	}

	if req.IncludeExplainability {
		steps := reasoningSteps(intent, decomposition, capped, analysis, assessment)
		result.Explainability = e.explainer.BuildTrace(
			decomposition,
			capped,
			analysis.Responses,
			analysis.Validation,
			assessment,
			steps,
		)
	}

	e.recordOutcome(query, intent, final, assessment, analysis, started)

	if e.cache != nil {
		if err := e.cache.SetResult(ctx, cacheKey, result); err != nil {
			logger.Warn("cache store failed", zap.Error(err))
		}
	}

	return result, nil
}

// capEvidence bounds the evidence set the agents see, keeping the
// highest-confidence objects. Sort is stable so equal-confidence objects
// retain their retrieval order.
func (e *Engine) capEvidence(evidence []models.EvidenceObject) []models.EvidenceObject {
	limit := e.cfg.Retrieval.MaxEvidence
	if limit <= 0 || len(evidence) <= limit {
		return evidence
	}
	sorted := make([]models.EvidenceObject, len(evidence))
	copy(sorted, evidence)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted[:limit]
}

func (e *Engine) recordOutcome(
	query string,
	intent models.AnalyticalIntent,
	final models.FinalResponse,
	assessment models.ConfidenceAssessment,
	analysis *agents.Analysis,
	started time.Time,
) {
	metrics.QueryDuration.WithLabelValues(string(intent)).Observe(time.Since(started).Seconds())
	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.ConfidenceLevelTotal.WithLabelValues(string(assessment.ConfidenceLevel)).Inc()
	metrics.ConfidenceScore.Observe(assessment.OverallConfidence)
	metrics.EvidenceCount.Observe(float64(len(analysis.Validation.ValidatedEvidence)))
	for _, rejected := range analysis.Validation.RejectedEvidence {
		metrics.EvidenceRejected.WithLabelValues(rejected.Reason).Inc()
	}

	record := &models.QueryRecord{
		ID:              uuid.New().String(),
		QueryText:       query,
		Intent:          string(intent),
		Answer:          final.Answer,
		ConfidenceLevel: assessment.ConfidenceLevel,
		Overall:         assessment.OverallConfidence,
		EvidenceCount:   final.EvidenceCount,
		LatencyMS:       int(time.Since(started).Milliseconds()),
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.store.InsertQueryRecord(record); err != nil {
		logger.Warn("failed to persist query record", zap.Error(err))
	}
}

func (e *Engine) History(limit int) ([]models.QueryRecord, error) {
	return e.store.GetQueryHistory(limit)
}

func observeFindings(findings []models.RawFinding) {
	counts := map[models.EvidenceSource]int{
		models.SourceSemantic:    0,
		models.SourceStructured:  0,
		models.SourceStatistical: 0,
	}
	for _, f := range findings {
		counts[f.Source]++
	}
	for source, n := range counts {
		metrics.RetrievalFindings.WithLabelValues(string(source)).Observe(float64(n))
	}
}

func reasoningSteps(
	intent models.AnalyticalIntent,
	decomposition models.Decomposition,
	evidence []models.EvidenceObject,
	analysis *agents.Analysis,
	assessment models.ConfidenceAssessment,
) []string {
	return []string{
		fmt.Sprintf("Classified query as %s analysis", intent),
		fmt.Sprintf("Decomposed into %d sub-questions", len(decomposition.SubQuestions)),
		fmt.Sprintf("Retrieved %d evidence objects from multiple sources", len(evidence)),
		fmt.Sprintf("Validated %d evidence objects", len(analysis.Validation.ValidatedEvidence)),
		fmt.Sprintf("Generated final answer with %s", assessment.ConfidenceLevel),
	}
}
