package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Milvus     MilvusConfig
	LLM        LLMConfig
	Retrieval  RetrievalConfig
	Confidence ConfidenceConfig
	Corpus     CorpusConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type MilvusConfig struct {
	Enabled        bool
	Endpoint       string
	CollectionName string
	VectorDim      int
}

type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type RetrievalConfig struct {
	TopK              int
	SimilarityFloor   float64
	SourceTimeoutSec  int
	MaxEvidence       int
	BaselineWindow    int
	AnomalyZScore     float64
	DefaultTimeWindow string
	KnownMetrics      []string
	KnownSegments     []string
}

type ConfidenceConfig struct {
	HighThreshold      float64
	PartialThreshold   float64
	CoverageWeight     float64
	CompletenessWeight float64
	StructuredWeight   float64
	StatisticalWeight  float64
	SemanticWeight     float64
	DivergenceLimit    float64
	MinEvidenceConf    float64
	PercentTolerance   float64
	SlopeThreshold     float64
}

type CorpusConfig struct {
	CSVPath        string
	GenerateSample bool
	SeedKnowledge  bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ragplus")

	viper.SetEnvPrefix("RAGPP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects threshold and weight combinations the pipeline cannot
// run with. Called once at startup; a failure here is fatal.
func (c *Config) Validate() error {
	cc := c.Confidence

	if cc.HighThreshold < 0 || cc.HighThreshold > 1 {
		return fmt.Errorf("invalid configuration: high threshold %.2f outside [0,1]", cc.HighThreshold)
	}
	if cc.PartialThreshold < 0 || cc.PartialThreshold > 1 {
		return fmt.Errorf("invalid configuration: partial threshold %.2f outside [0,1]", cc.PartialThreshold)
	}
	if cc.PartialThreshold >= cc.HighThreshold {
		return fmt.Errorf("invalid configuration: partial threshold %.2f must be below high threshold %.2f",
			cc.PartialThreshold, cc.HighThreshold)
	}
	if cc.CoverageWeight < 0 || cc.CompletenessWeight < 0 {
		return fmt.Errorf("invalid configuration: score weights must be non-negative")
	}
	if cc.CoverageWeight+cc.CompletenessWeight == 0 {
		return fmt.Errorf("invalid configuration: score weights sum to zero")
	}
	if cc.StructuredWeight < 0 || cc.StatisticalWeight < 0 || cc.SemanticWeight < 0 {
		return fmt.Errorf("invalid configuration: source reliability weights must be non-negative")
	}
	if cc.DivergenceLimit <= 0 {
		return fmt.Errorf("invalid configuration: divergence limit must be positive")
	}
	if cc.MinEvidenceConf < 0 || cc.MinEvidenceConf > 1 {
		return fmt.Errorf("invalid configuration: evidence confidence floor %.2f outside [0,1]", cc.MinEvidenceConf)
	}
	if c.Retrieval.SimilarityFloor < 0 || c.Retrieval.SimilarityFloor > 1 {
		return fmt.Errorf("invalid configuration: similarity floor %.2f outside [0,1]", c.Retrieval.SimilarityFloor)
	}
	if c.Retrieval.SourceTimeoutSec <= 0 {
		return fmt.Errorf("invalid configuration: source timeout must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid configuration: retrieval top-k must be positive")
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/ragplus.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("milvus.enabled", false)
	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "metric_facts")
	viper.SetDefault("milvus.vectorDim", 384)

	viper.SetDefault("llm.baseURL", "http://localhost:11434/v1")
	viper.SetDefault("llm.apiKey", "ollama")
	viper.SetDefault("llm.model", "llama2")
	viper.SetDefault("llm.embeddingModel", "all-minilm")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 120)

	viper.SetDefault("retrieval.topK", 5)
	viper.SetDefault("retrieval.similarityFloor", 0.7)
	viper.SetDefault("retrieval.sourceTimeoutSec", 5)
	viper.SetDefault("retrieval.maxEvidence", 50)
	viper.SetDefault("retrieval.baselineWindow", 7)
	viper.SetDefault("retrieval.anomalyZScore", 2.0)
	viper.SetDefault("retrieval.defaultTimeWindow", "last_90_days")
	viper.SetDefault("retrieval.knownMetrics", []string{
		"revenue", "sales", "profit", "users", "customers", "engagement",
		"retention", "churn", "conversion", "traffic", "sessions", "orders",
	})
	viper.SetDefault("retrieval.knownSegments", []string{
		"enterprise", "consumer", "premium", "free", "trial",
		"mobile", "desktop", "web", "new", "returning",
	})

	viper.SetDefault("confidence.highThreshold", 0.8)
	viper.SetDefault("confidence.partialThreshold", 0.5)
	viper.SetDefault("confidence.coverageWeight", 0.5)
	viper.SetDefault("confidence.completenessWeight", 0.5)
	viper.SetDefault("confidence.structuredWeight", 1.0)
	viper.SetDefault("confidence.statisticalWeight", 0.85)
	viper.SetDefault("confidence.semanticWeight", 0.7)
	viper.SetDefault("confidence.divergenceLimit", 0.25)
	viper.SetDefault("confidence.minEvidenceConf", 0.3)
	viper.SetDefault("confidence.percentTolerance", 0.5)
	viper.SetDefault("confidence.slopeThreshold", 0.5)

	viper.SetDefault("corpus.csvPath", "./data/sample_data.csv")
	viper.SetDefault("corpus.generateSample", true)
	viper.SetDefault("corpus.seedKnowledge", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
