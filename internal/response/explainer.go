package response

import (
	"fmt"
	"strings"

	"github.com/ragplus/backend/internal/models"
)

// Explainer assembles the full pipeline trace for auditability.
type Explainer struct{}

func NewExplainer() *Explainer {
	return &Explainer{}
}

func (e *Explainer) BuildTrace(
	decomposition models.Decomposition,
	evidence []models.EvidenceObject,
	responses []models.AgentResponse,
	validation models.ValidationResult,
	confidence models.ConfidenceAssessment,
	reasoningSteps []string,
) *models.Trace {
	return &models.Trace{
		Decomposition:  decomposition,
		Evidence:       evidence,
		AgentResponses: responses,
		Validation:     validation,
		Confidence:     confidence,
		ReasoningSteps: reasoningSteps,
	}
}

// FormatText renders a trace as human-readable markdown.
func (e *Explainer) FormatText(trace *models.Trace) string {
	var sections []string

	sections = append(sections, "## Query Decomposition")
	sections = append(sections, fmt.Sprintf("Intent: %s", trace.Decomposition.Intent))
	sections = append(sections, fmt.Sprintf("Sub-questions: %d", len(trace.Decomposition.SubQuestions)))
	for i, sq := range trace.Decomposition.SubQuestions {
		sections = append(sections, fmt.Sprintf("%d. %s", i+1, sq.Question))
	}

	sections = append(sections, "\n## Evidence Collected")
	sections = append(sections, fmt.Sprintf("Total evidence objects: %d", len(trace.Evidence)))
	sections = append(sections, fmt.Sprintf("Sources: %s", strings.Join(sourceNames(trace.Evidence), ", ")))

	sections = append(sections, "\n## Agent Execution")
	for _, resp := range trace.AgentResponses {
		sections = append(sections, fmt.Sprintf("- %s: %.2fms", resp.AgentName, resp.ProcessingTimeMS))
	}

	sections = append(sections, "\n## Validation")
	sections = append(sections, fmt.Sprintf("Valid: %t", trace.Validation.IsValid))
	if n := len(trace.Validation.RejectedEvidence); n > 0 {
		sections = append(sections, fmt.Sprintf("Rejected: %d", n))
	}
	for _, w := range trace.Validation.Warnings {
		sections = append(sections, fmt.Sprintf("Warning: %s", w))
	}

	sections = append(sections, "\n## Confidence Assessment")
	sections = append(sections, fmt.Sprintf("Level: %s", trace.Confidence.ConfidenceLevel))
	sections = append(sections, fmt.Sprintf("Coverage: %.0f%%", trace.Confidence.CoverageScore*100))
	sections = append(sections, fmt.Sprintf("Completeness: %.0f%%", trace.Confidence.CompletenessScore*100))

	sections = append(sections, "\n## Reasoning Steps")
	for i, step := range trace.ReasoningSteps {
		sections = append(sections, fmt.Sprintf("%d. %s", i+1, step))
	}

	return strings.Join(sections, "\n")
}

func sourceNames(evidence []models.EvidenceObject) []string {
	seen := make(map[models.EvidenceSource]bool)
	var names []string
	for _, e := range evidence {
		if !seen[e.Source] {
			seen[e.Source] = true
			names = append(names, string(e.Source))
		}
	}
	return names
}
