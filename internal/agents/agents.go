package agents

import (
	"context"
	"time"

	"github.com/ragplus/backend/internal/models"
)

// Analysis is the shared state the agent stages read and extend. Each
// stage appends its AgentResponse; later stages never rewrite earlier
// output.
type Analysis struct {
	Query        string
	Intent       models.AnalyticalIntent
	SubQuestions []models.SubQuestion

	Evidence  []models.EvidenceObject
	Satisfied []bool

	Findings   Findings
	Validation models.ValidationResult
	Answer     string

	Responses []models.AgentResponse
}

// Findings is the analyst's structured output. All numbers in it are
// derived from evidence; the narrator only renders them.
type Findings struct {
	Insights    []MetricInsight
	Comparisons []Comparison
	Shares      []SegmentShare
	Anomalies   []AnomalyFinding
	Patterns    []string
}

type MetricInsight struct {
	Metric     string   `json:"metric"`
	Mean       float64  `json:"mean"`
	MeanChange *float64 `json:"mean_change,omitempty"`
	Direction  string   `json:"direction,omitempty"`
}

type Comparison struct {
	Metric        string  `json:"metric"`
	SegmentA      string  `json:"segment_a"`
	SegmentB      string  `json:"segment_b"`
	ValueA        float64 `json:"value_a"`
	ValueB        float64 `json:"value_b"`
	DifferencePct float64 `json:"difference_pct"`
}

type SegmentShare struct {
	Metric   string  `json:"metric"`
	Segment  string  `json:"segment"`
	Value    float64 `json:"value"`
	SharePct float64 `json:"share_pct"`
}

type AnomalyFinding struct {
	Metric       string  `json:"metric"`
	Segment      string  `json:"segment"`
	Value        float64 `json:"value"`
	DeviationPct float64 `json:"deviation_pct"`
	Support      string  `json:"support"`
}

// Agent is one pipeline stage.
type Agent interface {
	Name() string
	Run(ctx context.Context, analysis *Analysis) error
}

func record(analysis *Analysis, name string, output map[string]any, started time.Time) {
	analysis.Responses = append(analysis.Responses, models.AgentResponse{
		AgentName:        name,
		Output:           output,
		ProcessingTimeMS: float64(time.Since(started).Microseconds()) / 1000.0,
	})
}
