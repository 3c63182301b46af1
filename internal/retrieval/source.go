package retrieval

import (
	"context"

	"github.com/ragplus/backend/internal/models"
)

// Source is one retrieval path. Retrieve returns raw findings for a single
// sub-question; the evidence builder normalizes them afterwards.
type Source interface {
	Name() models.EvidenceSource
	Retrieve(ctx context.Context, sq models.SubQuestion) ([]models.RawFinding, error)
}
