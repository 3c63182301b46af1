package response

import (
	"fmt"
	"strings"
	"time"

	"github.com/ragplus/backend/internal/agents"
	"github.com/ragplus/backend/internal/models"
)

// Builder assembles the final response and enforces the refusal rule: an
// insufficient_data assessment always yields the refusal text, whatever
// the narrator produced.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Build(
	query string,
	answer string,
	confidence models.ConfidenceAssessment,
	evidence []models.EvidenceObject,
	processingTimeMS float64,
) models.FinalResponse {
	if confidence.ConfidenceLevel == models.ConfidenceInsufficient {
		answer = agents.RefusalAnswer
	}

	return models.FinalResponse{
		Query:            query,
		Answer:           answer,
		Confidence:       confidence,
		EvidenceCount:    len(evidence),
		ProcessingTimeMS: processingTimeMS,
		Timestamp:        time.Now().UTC(),
	}
}

// FormatWithConfidence appends the confidence block to an answer for
// plain-text consumers.
func (b *Builder) FormatWithConfidence(answer string, confidence models.ConfidenceAssessment) string {
	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Confidence Level**: %s\n", titleCase(string(confidence.ConfidenceLevel))))
	sb.WriteString(fmt.Sprintf("**Reasoning**: %s\n", confidence.Reasoning))
	sb.WriteString(fmt.Sprintf("**Coverage Score**: %.0f%%\n", confidence.CoverageScore*100))
	sb.WriteString(fmt.Sprintf("**Completeness Score**: %.0f%%", confidence.CompletenessScore*100))
	return sb.String()
}

func titleCase(level string) string {
	parts := strings.Split(level, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
