// Package improvement adjusts agent behavior from observed performance: a
// self-evaluator distills raw signals into metrics, a modifier nudges
// behavior parameters for each weak area, and a reflector judges whether past
// nudges actually helped.
package improvement

import (
	"github.com/deepagent/selfloop-go/pkg/feedback"
)

// Improvement area names produced by the self-evaluator and consumed by the
// behavior modifier.
const (
	AreaUserSatisfaction = "user_satisfaction"
	AreaTaskCompletion   = "task_completion"
	AreaResponseTime     = "response_time"
)

// Signals are the raw per-cycle inputs to self-evaluation.
type Signals struct {
	// UserRatings are explicit ratings normalized to [0, 1].
	UserRatings []float64 `json:"user_ratings,omitempty"`

	// TaskCompletions indicates, per task, whether the agent completed it.
	TaskCompletions []bool `json:"task_completions,omitempty"`

	// ResponseTimes are per-response latencies in seconds.
	ResponseTimes []float64 `json:"response_times,omitempty"`
}

// SignalsFromRecord extracts self-evaluation signals from an interaction
// record, so one record feeds both the feedback collectors and this layer.
func SignalsFromRecord(rec feedback.InteractionRecord) Signals {
	return Signals{
		UserRatings:     rec.ExplicitRatings,
		TaskCompletions: rec.TaskCompletions,
		ResponseTimes:   rec.ResponseTimes,
	}
}

// Metrics are the distilled outcome of one self-evaluation.
type Metrics struct {
	// SatisfactionScore is the mean user rating, 0 with no ratings.
	SatisfactionScore float64 `json:"satisfaction_score"`

	// CompletionRate is the fraction of completed tasks, 0 with no tasks.
	CompletionRate float64 `json:"completion_rate"`

	// AvgResponseTime is the mean latency in seconds, 0 with no samples.
	AvgResponseTime float64 `json:"avg_response_time"`

	// ImprovementAreas lists the areas whose metric crossed its threshold,
	// in the fixed order satisfaction, completion, response time.
	ImprovementAreas []string `json:"improvement_areas,omitempty"`
}

// SelfEvaluator distills signals into metrics and improvement areas.
type SelfEvaluator interface {
	Evaluate(signals Signals) Metrics
}

// EvaluatorThresholds set the metric levels at which each improvement area
// fires. The zero value selects the defaults.
type EvaluatorThresholds struct {
	// SatisfactionMin flags user_satisfaction below it. Defaults to 0.7.
	SatisfactionMin float64

	// CompletionMin flags task_completion below it. Defaults to 0.8.
	CompletionMin float64

	// ResponseTimeMax flags response_time above it, in seconds.
	// Defaults to 2.
	ResponseTimeMax float64
}

// SimpleSelfEvaluator flags improvement areas on fixed metric thresholds.
// It is stateless apart from its configuration and safe for concurrent use.
type SimpleSelfEvaluator struct {
	thresholds EvaluatorThresholds
}

// NewSimpleSelfEvaluator creates a self-evaluator. A nil thresholds value
// selects the defaults (satisfaction 0.7, completion 0.8, response time 2s).
func NewSimpleSelfEvaluator(thresholds *EvaluatorThresholds) *SimpleSelfEvaluator {
	e := &SimpleSelfEvaluator{thresholds: DefaultEvaluatorThresholds()}
	if thresholds != nil {
		e.thresholds = *thresholds
	}
	return e
}

// DefaultEvaluatorThresholds returns the standard self-evaluation thresholds.
func DefaultEvaluatorThresholds() EvaluatorThresholds {
	return EvaluatorThresholds{
		SatisfactionMin: 0.7,
		CompletionMin:   0.8,
		ResponseTimeMax: 2.0,
	}
}

// Evaluate computes metrics from signals and flags every area whose metric
// crosses its threshold. Missing signal slices yield zero metrics, which
// still count against the satisfaction and completion floors.
func (e *SimpleSelfEvaluator) Evaluate(signals Signals) Metrics {
	m := Metrics{
		SatisfactionScore: meanFloat(signals.UserRatings),
		CompletionRate:    completionRate(signals.TaskCompletions),
		AvgResponseTime:   meanFloat(signals.ResponseTimes),
	}
	if m.SatisfactionScore < e.thresholds.SatisfactionMin {
		m.ImprovementAreas = append(m.ImprovementAreas, AreaUserSatisfaction)
	}
	if m.CompletionRate < e.thresholds.CompletionMin {
		m.ImprovementAreas = append(m.ImprovementAreas, AreaTaskCompletion)
	}
	if m.AvgResponseTime > e.thresholds.ResponseTimeMax {
		m.ImprovementAreas = append(m.ImprovementAreas, AreaResponseTime)
	}
	return m
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func completionRate(completions []bool) float64 {
	if len(completions) == 0 {
		return 0
	}
	var done int
	for _, c := range completions {
		if c {
			done++
		}
	}
	return float64(done) / float64(len(completions))
}
