package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/store/sqlite"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
)

// KnowledgeIndex is the part of the semantic index ingestion seeds.
type KnowledgeIndex interface {
	Count(ctx context.Context) (int, error)
	InsertFacts(ctx context.Context, facts []models.KnowledgeFact) error
}

// Ingestor fills the tabular store and the semantic index at startup.
type Ingestor struct {
	store *sqlite.Client
	cfg   *config.CorpusConfig
}

func NewIngestor(store *sqlite.Client, cfg *config.CorpusConfig) *Ingestor {
	return &Ingestor{store: store, cfg: cfg}
}

// EnsureCorpus loads the configured CSV into the store, falling back to a
// generated sample corpus when the file is absent. A non-empty store is
// left untouched.
func (i *Ingestor) EnsureCorpus() error {
	count, err := i.store.CountPoints()
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("corpus already loaded", zap.Int("points", count))
		return nil
	}

	points, err := LoadCSV(i.cfg.CSVPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load corpus: %w", err)
		}
		if !i.cfg.GenerateSample {
			return fmt.Errorf("corpus file %s not found and sample generation disabled", i.cfg.CSVPath)
		}
		logger.Warn("corpus file not found, generating sample data",
			zap.String("path", i.cfg.CSVPath))
		points = GenerateSample()
	}

	if err := i.store.InsertPoints(points); err != nil {
		return err
	}

	logger.Info("corpus loaded", zap.Int("points", len(points)))
	return nil
}

// EnsureKnowledge seeds the semantic index with the curated metric facts
// when it is empty.
func (i *Ingestor) EnsureKnowledge(ctx context.Context, index KnowledgeIndex) error {
	if !i.cfg.SeedKnowledge || index == nil {
		return nil
	}

	count, err := index.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	facts := SampleKnowledge()
	if err := index.InsertFacts(ctx, facts); err != nil {
		return fmt.Errorf("failed to seed knowledge: %w", err)
	}

	logger.Info("semantic knowledge seeded", zap.Int("facts", len(facts)))
	return nil
}

// LoadCSV reads a corpus file with header date,metric,segment,value.
func LoadCSV(path string) ([]models.MetricPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv %s has no data rows", path)
	}

	var points []models.MetricPoint
	for idx, rec := range records[1:] {
		if len(rec) < 4 {
			return nil, fmt.Errorf("csv row %d has %d columns, want 4", idx+2, len(rec))
		}
		value, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("csv row %d has invalid value %q: %w", idx+2, rec[3], err)
		}
		points = append(points, models.MetricPoint{
			Date:    rec[0],
			Metric:  rec[1],
			Segment: rec[2],
			Value:   value,
		})
	}
	return points, nil
}

// GenerateSample builds a deterministic 90-day corpus: five metrics across
// four segments, seeded noise around per-segment baselines.
func GenerateSample() []models.MetricPoint {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	metrics := []string{"revenue", "users", "engagement", "retention", "conversion"}
	segments := []string{"enterprise", "consumer", "premium", "free"}

	var points []models.MetricPoint
	for day := 0; day < 90; day++ {
		date := start.AddDate(0, 0, day).Format("2006-01-02")
		for _, metric := range metrics {
			for _, segment := range segments {
				var value float64
				premiumTier := segment == "enterprise" || segment == "premium"
				switch metric {
				case "revenue":
					base := 5000.0
					if premiumTier {
						base = 10000.0
					}
					value = base + rng.NormFloat64()*base*0.1
				case "users":
					base := 5000.0
					if premiumTier {
						base = 1000.0
					}
					value = base + rng.NormFloat64()*base*0.05
				default:
					base := 0.65
					if premiumTier {
						base = 0.75
					}
					value = clamp01(base + rng.NormFloat64()*0.05)
				}
				points = append(points, models.MetricPoint{
					Date:    date,
					Metric:  metric,
					Segment: segment,
					Value:   round2(value),
				})
			}
		}
	}
	return points
}

// SampleKnowledge returns the curated metric facts the semantic index is
// seeded with.
func SampleKnowledge() []models.KnowledgeFact {
	return []models.KnowledgeFact{
		{
			ID:         "fact-revenue-enterprise-q1",
			Text:       "Revenue increased by 15.5% in Q1 2024 compared to Q4 2023 for enterprise customers",
			Metric:     "revenue",
			Segment:    "enterprise",
			TimeWindow: "Q1_2024",
			Value:      125000.0,
			Change:     ptr(15.5),
		},
		{
			ID:         "fact-engagement-mobile-week",
			Text:       "User engagement dropped by 8% in the mobile app during last week",
			Metric:     "engagement",
			Segment:    "mobile",
			TimeWindow: "last_7_days",
			Value:      0.72,
			Change:     ptr(-8.0),
		},
		{
			ID:         "fact-retention-premium-month",
			Text:       "Customer retention rate for premium users is 92% over the last month",
			Metric:     "retention",
			Segment:    "premium",
			TimeWindow: "last_30_days",
			Value:      0.92,
			Change:     ptr(2.5),
		},
		{
			ID:         "fact-aov-returning-month",
			Text:       "Average order value increased from $45 to $52 for returning customers",
			Metric:     "orders",
			Segment:    "returning",
			TimeWindow: "last_30_days",
			Value:      52.0,
			Change:     ptr(15.6),
		},
		{
			ID:         "fact-conversion-trial-month",
			Text:       "Conversion rate for free trial users is 18% across all segments",
			Metric:     "conversion",
			Segment:    "trial",
			TimeWindow: "last_30_days",
			Value:      0.18,
		},
	}
}

func ptr(f float64) *float64 { return &f }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
