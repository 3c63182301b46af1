package models

import "time"

// AnalyticalIntent is the closed set of query intents the classifier can emit.
type AnalyticalIntent string

const (
	IntentTrend        AnalyticalIntent = "trend"
	IntentComparison   AnalyticalIntent = "comparison"
	IntentSegmentation AnalyticalIntent = "segmentation"
	IntentAnomaly      AnalyticalIntent = "anomaly"
	IntentSummary      AnalyticalIntent = "summary"
)

// ConfidenceLevel is the three-way classification of an answer's reliability.
type ConfidenceLevel string

const (
	ConfidenceHigh         ConfidenceLevel = "high_confidence"
	ConfidencePartial      ConfidenceLevel = "partial_evidence"
	ConfidenceInsufficient ConfidenceLevel = "insufficient_data"
)

// EvidenceSource tags where a piece of evidence came from.
type EvidenceSource string

const (
	SourceSemantic    EvidenceSource = "semantic"
	SourceStructured  EvidenceSource = "structured"
	SourceStatistical EvidenceSource = "statistical"
)

// SubQuestion is one decomposed retrieval target. Metrics and segments keep
// the first-occurrence order of the tokens they were extracted from.
type SubQuestion struct {
	Question   string   `json:"question"`
	Metrics    []string `json:"required_metrics"`
	Segments   []string `json:"required_segments"`
	TimeWindow string   `json:"time_window,omitempty"`
}

// Decomposition is the structured breakdown of a user query.
type Decomposition struct {
	Query        string           `json:"original_query"`
	Intent       AnalyticalIntent `json:"intent"`
	SubQuestions []SubQuestion    `json:"sub_questions"`
}

// RawFinding is the unnormalized output of a single retrieval source before
// the evidence builder turns it into an EvidenceObject.
type RawFinding struct {
	Source      EvidenceSource
	SubQuestion int
	Metric      string
	Segment     string
	TimeWindow  string
	Value       float64
	Baseline    *float64
	Change      *float64
	Support     string
	Confidence  float64
}

// EvidenceObject is a single normalized, attributable analytical fact.
// Immutable after creation; the deduplicator removes but never mutates.
type EvidenceObject struct {
	Source     EvidenceSource `json:"source"`
	Metric     string         `json:"metric"`
	Segment    string         `json:"segment"`
	TimeWindow string         `json:"time_window"`
	Value      float64        `json:"value"`
	Change     *float64       `json:"change,omitempty"`
	Support    string         `json:"support"`
	Confidence float64        `json:"confidence"`
}

// GroupKey identifies the deduplication group an evidence object belongs to.
type GroupKey struct {
	Metric     string
	Segment    string
	TimeWindow string
}

func (e EvidenceObject) Key() GroupKey {
	return GroupKey{Metric: e.Metric, Segment: e.Segment, TimeWindow: e.TimeWindow}
}

// MetricPoint is one row of the tabular corpus.
type MetricPoint struct {
	Date    string  `json:"date"`
	Metric  string  `json:"metric"`
	Segment string  `json:"segment"`
	Value   float64 `json:"value"`
}

// KnowledgeFact is one curated statement in the semantic index.
type KnowledgeFact struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Metric     string   `json:"metric"`
	Segment    string   `json:"segment"`
	TimeWindow string   `json:"time_window"`
	Value      float64  `json:"value"`
	Change     *float64 `json:"change,omitempty"`
}

// RejectedEvidence pairs a rejected object with the validator's reason.
type RejectedEvidence struct {
	Evidence EvidenceObject `json:"evidence"`
	Reason   string         `json:"reason"`
}

// Validator rejection reasons.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonContradicted  = "contradicted"
	ReasonMalformed     = "malformed"
)

// ValidationResult is produced once per query by the validator stage.
// IsValid is false only when zero evidence survives.
type ValidationResult struct {
	IsValid           bool               `json:"is_valid"`
	ValidatedEvidence []EvidenceObject   `json:"validated_evidence"`
	RejectedEvidence  []RejectedEvidence `json:"rejected_evidence"`
	Warnings          []string           `json:"warnings,omitempty"`
}

// AgentResponse is the read-only record one pipeline stage appends.
type AgentResponse struct {
	AgentName        string         `json:"agent_name"`
	Output           map[string]any `json:"output"`
	ProcessingTimeMS float64        `json:"processing_time_ms"`
}

// ConfidenceAssessment combines coverage and completeness into a level.
type ConfidenceAssessment struct {
	CoverageScore     float64         `json:"coverage_score"`
	CompletenessScore float64         `json:"completeness_score"`
	OverallConfidence float64         `json:"overall_confidence"`
	ConfidenceLevel   ConfidenceLevel `json:"confidence_level"`
	Reasoning         string          `json:"reasoning"`
}

// FinalResponse is the assembled answer returned to the caller.
type FinalResponse struct {
	Query            string               `json:"query"`
	Answer           string               `json:"answer"`
	Confidence       ConfidenceAssessment `json:"confidence"`
	EvidenceCount    int                  `json:"evidence_count"`
	ProcessingTimeMS float64              `json:"processing_time_ms"`
	Timestamp        time.Time            `json:"timestamp"`
}

// Trace is the optional explainability payload: everything the pipeline did.
type Trace struct {
	Decomposition  Decomposition        `json:"query_decomposition"`
	Evidence       []EvidenceObject     `json:"evidence_objects"`
	AgentResponses []AgentResponse      `json:"agent_responses"`
	Validation     ValidationResult     `json:"validation_result"`
	Confidence     ConfidenceAssessment `json:"confidence_details"`
	ReasoningSteps []string             `json:"reasoning_steps"`
}

// QueryRequest is the transport-agnostic request shape the engine consumes.
type QueryRequest struct {
	Query                 string `json:"query"`
	IncludeExplainability bool   `json:"include_explainability"`
}

// QueryResult is the transport-agnostic result shape the engine returns.
type QueryResult struct {
	Success        bool           `json:"success"`
	Response       *FinalResponse `json:"response,omitempty"`
	Explainability *Trace         `json:"explainability,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// QueryRecord is one row of persisted query history.
type QueryRecord struct {
	ID              string          `json:"id"`
	QueryText       string          `json:"query"`
	Intent          string          `json:"intent"`
	Answer          string          `json:"answer"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Overall         float64         `json:"overall_confidence"`
	EvidenceCount   int             `json:"evidence_count"`
	LatencyMS       int             `json:"latency_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}
