package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			TopK:             5,
			SimilarityFloor:  0.7,
			SourceTimeoutSec: 5,
		},
		Confidence: ConfidenceConfig{
			HighThreshold:      0.8,
			PartialThreshold:   0.5,
			CoverageWeight:     0.5,
			CompletenessWeight: 0.5,
			StructuredWeight:   1.0,
			StatisticalWeight:  0.85,
			SemanticWeight:     0.7,
			DivergenceLimit:    0.25,
			MinEvidenceConf:    0.3,
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	c := validConfig()
	c.Confidence.HighThreshold = 1.2
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Confidence.PartialThreshold = 0.9
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadWeights(t *testing.T) {
	c := validConfig()
	c.Confidence.CoverageWeight = -0.1
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Confidence.CoverageWeight = 0
	c.Confidence.CompletenessWeight = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Confidence.SemanticWeight = -1
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadRetrieval(t *testing.T) {
	c := validConfig()
	c.Retrieval.SimilarityFloor = 1.5
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Retrieval.SourceTimeoutSec = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Retrieval.TopK = 0
	assert.Error(t, c.Validate())
}

func TestValidateRejectsZeroDivergenceLimit(t *testing.T) {
	c := validConfig()
	c.Confidence.DivergenceLimit = 0
	assert.Error(t, c.Validate())
}
