package evidence

import (
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// Deduplicator collapses evidence that says the same thing about the same
// (metric, segment, time window) group. Within a group the highest-
// confidence member wins, earliest on ties. A member from a different
// source whose value diverges from the winner beyond the threshold is NOT
// collapsed: the disagreement is real information and the validator
// decides what to do with it. Output preserves input order and running
// the deduplicator on its own output changes nothing.
type Deduplicator struct {
	divergenceLimit float64
}

func NewDeduplicator(divergenceLimit float64) *Deduplicator {
	return &Deduplicator{divergenceLimit: divergenceLimit}
}

func (d *Deduplicator) Deduplicate(evidence []models.EvidenceObject) []models.EvidenceObject {
	if len(evidence) <= 1 {
		return evidence
	}

	groups := make(map[models.GroupKey][]int)
	var keyOrder []models.GroupKey
	for i, e := range evidence {
		key := e.Key()
		if _, ok := groups[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], i)
	}

	keep := make([]bool, len(evidence))
	for _, key := range keyOrder {
		members := groups[key]

		best := members[0]
		for _, idx := range members[1:] {
			if evidence[idx].Confidence > evidence[best].Confidence {
				best = idx
			}
		}
		keep[best] = true

		// One representative per disagreeing source survives alongside
		// the winner.
		represented := map[models.EvidenceSource]bool{evidence[best].Source: true}
		for _, idx := range members {
			e := evidence[idx]
			if represented[e.Source] {
				continue
			}
			if Divergence(evidence[best].Value, e.Value) > d.divergenceLimit {
				keep[idx] = true
				represented[e.Source] = true
			}
		}
	}

	out := make([]models.EvidenceObject, 0, len(evidence))
	for i, e := range evidence {
		if keep[i] {
			out = append(out, e)
		}
	}

	if len(out) < len(evidence) {
		logger.Debug("evidence deduplicated",
			zap.Int("before", len(evidence)),
			zap.Int("after", len(out)))
	}

	return out
}

// Divergence is the relative disagreement between two values: the absolute
// difference scaled by the larger magnitude. Two zeros do not diverge.
func Divergence(a, b float64) float64 {
	denom := abs(a)
	if abs(b) > denom {
		denom = abs(b)
	}
	if denom == 0 {
		return 0
	}
	return abs(a-b) / denom
}
