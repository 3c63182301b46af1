package input

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
)

// Decomposer turns a classified query into ordered sub-questions, each
// naming the metrics, segments, and time window it needs. Extraction is
// vocabulary driven and keeps first-occurrence order, so the same query
// always yields the same decomposition.
type Decomposer struct {
	metrics       []string
	segments      []string
	defaultWindow string
}

var (
	lastWindowRe = regexp.MustCompile(`last\s+(\d+)\s+(day|week|month|quarter|year)s?`)
	quarterYrRe  = regexp.MustCompile(`q([1-4])\s+(\d{4})`)
	bareYearRe   = regexp.MustCompile(`\b(20\d{2})\b`)
)

func NewDecomposer(cfg *config.RetrievalConfig) *Decomposer {
	return &Decomposer{
		metrics:       cfg.KnownMetrics,
		segments:      cfg.KnownSegments,
		defaultWindow: cfg.DefaultTimeWindow,
	}
}

func (d *Decomposer) Decompose(query string, intent models.AnalyticalIntent) models.Decomposition {
	lower := strings.ToLower(query)
	tokens := tokenize(lower)

	metrics := matchVocabulary(tokens, d.metrics)
	segments := matchVocabulary(tokens, d.segments)
	windows := d.extractTimeWindows(lower)

	subs := d.buildSubQuestions(intent, metrics, segments, windows)

	logger.Debug("query decomposed",
		zap.String("intent", string(intent)),
		zap.Int("sub_questions", len(subs)),
		zap.Strings("metrics", metrics),
		zap.Strings("segments", segments))

	return models.Decomposition{
		Query:        query,
		Intent:       intent,
		SubQuestions: subs,
	}
}

// matchVocabulary scans tokens in order and returns the vocabulary terms
// present, deduplicated, in the order they first appear. A trailing "s"
// on either side still matches, so "users" binds the term "users" and
// "segments" binds "segment".
func matchVocabulary(tokens []string, vocab []string) []string {
	seen := make(map[string]bool, len(vocab))
	var found []string

	for _, tok := range tokens {
		for _, term := range vocab {
			if tok != term && tok != term+"s" && tok+"s" != term {
				continue
			}
			if !seen[term] {
				seen[term] = true
				found = append(found, term)
			}
			break
		}
	}
	return found
}

func (d *Decomposer) extractTimeWindows(lower string) []string {
	var windows []string

	for _, m := range lastWindowRe.FindAllStringSubmatch(lower, -1) {
		windows = append(windows, fmt.Sprintf("last_%s_%ss", m[1], m[2]))
	}
	for _, m := range quarterYrRe.FindAllStringSubmatch(lower, -1) {
		windows = append(windows, fmt.Sprintf("Q%s_%s", m[1], m[2]))
	}
	for _, m := range bareYearRe.FindAllStringSubmatch(lower, -1) {
		windows = append(windows, m[1])
	}

	if len(windows) == 0 {
		windows = append(windows, d.defaultWindow)
	}
	return windows
}

func (d *Decomposer) buildSubQuestions(
	intent models.AnalyticalIntent,
	metrics, segments, windows []string,
) []models.SubQuestion {
	// A query naming no metric still gets one generic sub-question so the
	// pipeline retrieves something rather than erroring.
	targets := metrics
	if len(targets) == 0 {
		targets = []string{""}
	}
	window := windows[0]

	var subs []models.SubQuestion
	for _, metric := range targets {
		name := metric
		if name == "" {
			name = "the available metrics"
		}
		var bound []string
		if metric != "" {
			bound = []string{metric}
		}

		switch intent {
		case models.IntentTrend:
			subs = append(subs,
				models.SubQuestion{
					Question:   fmt.Sprintf("What is the current value of %s?", name),
					Metrics:    bound,
					Segments:   segments,
					TimeWindow: window,
				},
				models.SubQuestion{
					Question:   fmt.Sprintf("How has %s changed over %s?", name, window),
					Metrics:    bound,
					Segments:   segments,
					TimeWindow: window,
				})

		case models.IntentSegmentation:
			subs = append(subs, models.SubQuestion{
				Question:   fmt.Sprintf("What is the distribution of %s across segments?", name),
				Metrics:    bound,
				Segments:   segments,
				TimeWindow: window,
			})

		case models.IntentComparison:
			subs = append(subs, models.SubQuestion{
				Question:   fmt.Sprintf("What are the values of %s for each segment?", name),
				Metrics:    bound,
				Segments:   segments,
				TimeWindow: window,
			})
			if len(segments) >= 2 {
				subs = append(subs, models.SubQuestion{
					Question:   fmt.Sprintf("What is the difference in %s between %s?", name, strings.Join(segments, " and ")),
					Metrics:    bound,
					Segments:   segments,
					TimeWindow: window,
				})
			}

		case models.IntentAnomaly:
			subs = append(subs,
				models.SubQuestion{
					Question:   fmt.Sprintf("What is the baseline value of %s?", name),
					Metrics:    bound,
					Segments:   segments,
					TimeWindow: window,
				},
				models.SubQuestion{
					Question:   fmt.Sprintf("Which observations of %s deviate from the baseline?", name),
					Metrics:    bound,
					Segments:   segments,
					TimeWindow: window,
				})

		default:
			subs = append(subs, models.SubQuestion{
				Question:   fmt.Sprintf("What are the key statistics for %s?", name),
				Metrics:    bound,
				Segments:   segments,
				TimeWindow: window,
			})
		}
	}

	return subs
}
