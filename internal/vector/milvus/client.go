package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/internal/vector"
	"github.com/ragplus/backend/pkg/config"
	"github.com/ragplus/backend/pkg/logger"
)

// Client implements vector.Index against a milvus collection of metric
// facts. Embeddings come from the configured embedder.
type Client struct {
	milvus         client.Client
	embedder       vector.Embedder
	collectionName string
	vectorDim      int
}

func NewClient(ctx context.Context, cfg *config.MilvusConfig, embedder vector.Embedder) (*Client, error) {
	c, err := client.NewGrpcClient(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("milvus client initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("collection", cfg.CollectionName))

	return &Client{
		milvus:         c,
		embedder:       embedder,
		collectionName: cfg.CollectionName,
		vectorDim:      cfg.VectorDim,
	}, nil
}

func (c *Client) Close() error {
	return c.milvus.Close()
}

func (c *Client) EnsureCollection(ctx context.Context) error {
	has, err := c.milvus.HasCollection(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return c.milvus.LoadCollection(ctx, c.collectionName, false)
	}

	schema := &entity.Schema{
		CollectionName: c.collectionName,
		Description:    "Curated metric fact embeddings",
		Fields: []*entity.Field{
			{
				Name:       "fact_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", c.vectorDim)},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
			{
				Name:       "metric",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:       "segment",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:       "time_window",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     "value",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "change",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "has_change",
				DataType: entity.FieldTypeBool,
			},
		},
	}

	if err := c.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := c.milvus.CreateIndex(ctx, c.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := c.milvus.LoadCollection(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("milvus collection created", zap.String("collection", c.collectionName))
	return nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	stats, err := c.milvus.GetCollectionStatistics(ctx, c.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	var count int
	fmt.Sscanf(stats["row_count"], "%d", &count)
	return count, nil
}

func (c *Client) InsertFacts(ctx context.Context, facts []models.KnowledgeFact) error {
	if len(facts) == 0 {
		return nil
	}

	texts := make([]string, len(facts))
	for i, f := range facts {
		texts[i] = f.Text
	}

	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed facts: %w", err)
	}

	ids := make([]string, len(facts))
	metrics := make([]string, len(facts))
	segments := make([]string, len(facts))
	windows := make([]string, len(facts))
	values := make([]float64, len(facts))
	changes := make([]float64, len(facts))
	hasChanges := make([]bool, len(facts))

	for i, f := range facts {
		ids[i] = f.ID
		metrics[i] = f.Metric
		segments[i] = f.Segment
		windows[i] = f.TimeWindow
		values[i] = f.Value
		if f.Change != nil {
			changes[i] = *f.Change
			hasChanges[i] = true
		}
	}

	_, err = c.milvus.Insert(
		ctx,
		c.collectionName,
		"",
		entity.NewColumnVarChar("fact_id", ids),
		entity.NewColumnFloatVector("embedding", c.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("metric", metrics),
		entity.NewColumnVarChar("segment", segments),
		entity.NewColumnVarChar("time_window", windows),
		entity.NewColumnDouble("value", values),
		entity.NewColumnDouble("change", changes),
		entity.NewColumnBool("has_change", hasChanges),
	)
	if err != nil {
		return fmt.Errorf("failed to insert facts: %w", err)
	}

	if err := c.milvus.Flush(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("facts inserted into milvus", zap.Int("count", len(facts)))
	return nil
}

func (c *Client) Search(ctx context.Context, question string, topK int) ([]vector.Match, error) {
	query, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := c.milvus.Search(
		ctx,
		c.collectionName,
		[]string{},
		"",
		[]string{"fact_id", "text", "metric", "segment", "time_window", "value", "change", "has_change"},
		[]entity.Vector{entity.FloatVector(query)},
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var matches []vector.Match
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			fact, err := factFromColumns(sr.Fields, i)
			if err != nil {
				return nil, err
			}
			matches = append(matches, vector.Match{
				Fact:  fact,
				Score: float64(sr.Scores[i]),
			})
		}
	}

	logger.Debug("milvus search completed",
		zap.Int("top_k", topK),
		zap.Int("results", len(matches)))

	return matches, nil
}

func factFromColumns(fields client.ResultSet, i int) (models.KnowledgeFact, error) {
	var fact models.KnowledgeFact

	get := func(name string) (any, error) {
		col := fields.GetColumn(name)
		if col == nil {
			return nil, fmt.Errorf("missing column %s in search result", name)
		}
		return col.Get(i)
	}

	id, err := get("fact_id")
	if err != nil {
		return fact, err
	}
	text, err := get("text")
	if err != nil {
		return fact, err
	}
	metric, err := get("metric")
	if err != nil {
		return fact, err
	}
	segment, err := get("segment")
	if err != nil {
		return fact, err
	}
	window, err := get("time_window")
	if err != nil {
		return fact, err
	}
	value, err := get("value")
	if err != nil {
		return fact, err
	}
	change, err := get("change")
	if err != nil {
		return fact, err
	}
	hasChange, err := get("has_change")
	if err != nil {
		return fact, err
	}

	fact.ID, _ = id.(string)
	fact.Text, _ = text.(string)
	fact.Metric, _ = metric.(string)
	fact.Segment, _ = segment.(string)
	fact.TimeWindow, _ = window.(string)
	fact.Value, _ = value.(float64)
	if ok, _ := hasChange.(bool); ok {
		c, _ := change.(float64)
		fact.Change = &c
	}
	return fact, nil
}
