package input

import (
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// Classifier assigns one of the five analytical intents to a query using
// keyword scoring plus a handful of pattern bonuses. Deterministic: equal
// scores break on a fixed intent priority.
type Classifier struct {
	keywords map[models.AnalyticalIntent][]string
	phrases  map[models.AnalyticalIntent][]string
}

// Ties resolve toward the more specific intent.
var intentPriority = []models.AnalyticalIntent{
	models.IntentAnomaly,
	models.IntentComparison,
	models.IntentSegmentation,
	models.IntentTrend,
	models.IntentSummary,
}

var (
	relativeWindowRe = regexp.MustCompile(`\blast\s+\d+\s+(day|week|month|quarter|year)`)
	quarterRe        = regexp.MustCompile(`\bq[1-4]\s+\d{4}`)
	yearRe           = regexp.MustCompile(`\b20\d{2}\b`)
	cadenceRe        = regexp.MustCompile(`\b(daily|weekly|monthly|quarterly)\b`)
)

func NewClassifier() *Classifier {
	return &Classifier{
		keywords: map[models.AnalyticalIntent][]string{
			models.IntentTrend: {
				"trend", "trends", "growth", "decline", "increase", "decrease",
				"change", "changed", "evolution", "trajectory", "pattern",
				"historical", "growing", "declining",
			},
			models.IntentSegmentation: {
				"segment", "segments", "group", "groups", "cohort", "breakdown",
				"split", "distribution", "demographics", "types",
			},
			models.IntentComparison: {
				"compare", "comparison", "versus", "vs", "difference", "between",
				"against", "better", "worse", "higher", "lower", "than", "contrast",
			},
			models.IntentAnomaly: {
				"why", "explain", "reason", "cause", "caused", "anomaly", "spike",
				"drop", "unusual", "unexpected", "outlier", "abnormal", "strange",
				"sudden",
			},
			models.IntentSummary: {
				"what", "summary", "overview", "describe", "show", "tell",
				"current", "status", "state", "snapshot", "report", "total",
				"average", "mean", "median",
			},
		},
		phrases: map[models.AnalyticalIntent][]string{
			models.IntentTrend:   {"over time", "time series", "last ", "past "},
			models.IntentAnomaly: {"what happened", "what caused"},
			models.IntentSummary: {"how much", "how many"},
		},
	}
}

// Classify scores each intent over the query's tokens and returns the
// highest-scoring one. A query matching nothing falls back to summary.
func (c *Classifier) Classify(query string) models.AnalyticalIntent {
	lower := strings.ToLower(query)
	tokens := tokenSet(tokenize(lower))

	scores := make(map[models.AnalyticalIntent]int, len(intentPriority))
	for _, intent := range intentPriority {
		for _, kw := range c.keywords[intent] {
			if tokens[kw] {
				scores[intent]++
			}
		}
		for _, phrase := range c.phrases[intent] {
			if strings.Contains(lower, phrase) {
				scores[intent]++
			}
		}
	}

	c.applyPatternBonuses(lower, scores)

	best := models.IntentSummary
	bestScore := 0
	for _, intent := range intentPriority {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}

	logger.Debug("query classified",
		zap.String("intent", string(best)),
		zap.Int("score", bestScore))

	return best
}

func (c *Classifier) applyPatternBonuses(lower string, scores map[models.AnalyticalIntent]int) {
	if relativeWindowRe.MatchString(lower) || quarterRe.MatchString(lower) ||
		yearRe.MatchString(lower) || cadenceRe.MatchString(lower) {
		scores[models.IntentTrend] += 2
	}

	if strings.HasPrefix(lower, "why") || strings.HasPrefix(lower, "what caused") {
		scores[models.IntentAnomaly] += 3
	}

	if strings.HasPrefix(lower, "compare") ||
		strings.Contains(lower, " vs ") || strings.Contains(lower, " versus ") {
		scores[models.IntentComparison] += 3
	}

	if strings.Contains(lower, " by ") || strings.Contains(lower, " across ") {
		scores[models.IntentSegmentation] += 2
	}
}

// tokenize returns the word tokens of the text in order. Tagging and
// entity extraction are disabled; only the tokenizer runs.
func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		fields := strings.Fields(text)
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			out = append(out, strings.Trim(f, ".,!?;:()\"'"))
		}
		return out
	}

	tokens := doc.Tokens()
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
	}
	return out
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
