package feedback

import (
	"math"
	"sort"
)

// Performance dimension names. Dimension scores and weight maps are keyed by
// these constants.
const (
	DimensionUserSatisfaction  = "user_satisfaction"
	DimensionTaskCompletion    = "task_completion"
	DimensionSystemPerformance = "system_performance"
	DimensionReliability       = "reliability"
)

// Trend describes the direction of the overall score across cycles.
type Trend string

const (
	// TrendInitial is reported on the first evaluation, when there is no
	// previous score to compare against.
	TrendInitial Trend = "initial"

	// TrendImproving is reported when the overall score rose by more than
	// the stability band.
	TrendImproving Trend = "improving"

	// TrendDeclining is reported when the overall score fell by more than
	// the stability band.
	TrendDeclining Trend = "declining"

	// TrendStable is reported when the overall score moved within the band.
	TrendStable Trend = "stable"
)

// trendBand is the half-width of the stable region around the previous score.
const trendBand = 0.05

// Evaluation is the scored outcome of one feedback snapshot.
type Evaluation struct {
	// OverallScore is the weighted mean of the dimension scores, in [0, 1].
	OverallScore float64 `json:"overall_score"`

	// DimensionScores holds the per-dimension scores, each in [0, 1].
	DimensionScores map[string]float64 `json:"dimension_scores"`

	// Strengths lists dimensions scoring at or above 0.8, sorted by name.
	Strengths []string `json:"strengths,omitempty"`

	// ImprovementAreas lists dimensions scoring below 0.6, sorted by name.
	ImprovementAreas []string `json:"improvement_areas,omitempty"`

	// Trend compares OverallScore against the previous evaluation.
	Trend Trend `json:"trend"`
}

// Evaluator scores a feedback snapshot.
type Evaluator interface {
	Evaluate(snap Snapshot, previous *Evaluation) Evaluation
}

// EvaluatorConfig tunes the performance evaluator. The zero value selects
// defaults for every field.
type EvaluatorConfig struct {
	// Weights maps dimension names to their contribution to the overall
	// score. Dimensions absent from the map get weight 0.25. When nil, the
	// defaults are user_satisfaction 0.4, task_completion 0.3,
	// system_performance 0.2, reliability 0.1.
	Weights map[string]float64

	// MaxAcceptableResponseTime is the latency, in seconds, at which the
	// response-time component of system_performance bottoms out at 0.
	// Defaults to 5.
	MaxAcceptableResponseTime float64
}

// PerformanceEvaluator scores snapshots across four weighted dimensions:
// user satisfaction, task completion, system performance and reliability.
//
// Every dimension score is clamped to [0, 1], so the overall score is too.
// The evaluator is stateless apart from its configuration and is safe for
// concurrent use.
type PerformanceEvaluator struct {
	weights         map[string]float64
	maxResponseTime float64
}

// NewPerformanceEvaluator creates an evaluator from cfg. A nil cfg selects
// all defaults.
//
// Example:
//
//	evaluator := feedback.NewPerformanceEvaluator(nil)
//	eval := evaluator.Evaluate(snapshot, nil)
//	if eval.OverallScore < 0.6 {
//	    // schedule an improvement cycle
//	}
func NewPerformanceEvaluator(cfg *EvaluatorConfig) *PerformanceEvaluator {
	e := &PerformanceEvaluator{
		weights: map[string]float64{
			DimensionUserSatisfaction:  0.4,
			DimensionTaskCompletion:    0.3,
			DimensionSystemPerformance: 0.2,
			DimensionReliability:       0.1,
		},
		maxResponseTime: 5.0,
	}
	if cfg == nil {
		return e
	}
	if cfg.Weights != nil {
		e.weights = cfg.Weights
	}
	if cfg.MaxAcceptableResponseTime > 0 {
		e.maxResponseTime = cfg.MaxAcceptableResponseTime
	}
	return e
}

// Evaluate scores snap. previous is the last evaluation for the same agent
// and drives the trend; pass nil on the first cycle to get TrendInitial.
func (e *PerformanceEvaluator) Evaluate(snap Snapshot, previous *Evaluation) Evaluation {
	scores := map[string]float64{
		DimensionUserSatisfaction:  e.scoreUserSatisfaction(snap.UserFeedback),
		DimensionTaskCompletion:    e.scoreTaskCompletion(snap.UserFeedback),
		DimensionSystemPerformance: e.scoreSystemPerformance(snap.SystemMetrics),
		DimensionReliability:       e.scoreReliability(snap.SystemMetrics),
	}

	// Plain weighted sum: weights need not sum to 1, and the overall
	// score is not renormalized when they don't.
	var overall float64
	for dim, score := range scores {
		w, ok := e.weights[dim]
		if !ok {
			w = 0.25
		}
		overall += score * w
	}

	eval := Evaluation{
		OverallScore:    overall,
		DimensionScores: scores,
		Trend:           trendFrom(overall, previous),
	}
	for _, dim := range sortedKeys(scores) {
		switch {
		case scores[dim] >= 0.8:
			eval.Strengths = append(eval.Strengths, dim)
		case scores[dim] < 0.6:
			eval.ImprovementAreas = append(eval.ImprovementAreas, dim)
		}
	}
	return eval
}

// scoreUserSatisfaction blends the average explicit rating with the comment
// sentiment, 70/30.
func (e *PerformanceEvaluator) scoreUserSatisfaction(fb UserFeedback) float64 {
	return clamp01(0.7*fb.Satisfaction.Average + 0.3*sentimentScore(fb.Sentiment.Sentiment))
}

// scoreTaskCompletion blends the response acceptance rate with a correction
// penalty, 60/40. Ten or more corrections zero the penalty component.
func (e *PerformanceEvaluator) scoreTaskCompletion(fb UserFeedback) float64 {
	corrections := math.Min(float64(fb.Corrections.Count), 10)
	return clamp01(0.6*fb.Engagement.ResponseAcceptanceRate + 0.4*(1-corrections/10))
}

// scoreSystemPerformance blends response-time health with resource headroom,
// 70/30. Latency at or above the configured maximum scores 0 on the
// response-time component.
func (e *PerformanceEvaluator) scoreSystemPerformance(sm SystemMetrics) float64 {
	rtScore := 1 - math.Min(sm.Performance.AvgResponseTime/e.maxResponseTime, 1)
	resourceScore := 1 - (sm.Resources.AvgCPUUsage+sm.Resources.AvgMemoryUsage)/2
	return clamp01(0.7*rtScore + 0.3*resourceScore)
}

// scoreReliability blends the error rate with external dependency health,
// 60/40. An error rate of 10% or more zeroes the error component; with no
// dependency data the dependency component is 1.
func (e *PerformanceEvaluator) scoreReliability(sm SystemMetrics) float64 {
	errScore := 1 - math.Min(sm.Reliability.ErrorRate*10, 1)
	depScore := 1.0
	if len(sm.Dependencies) > 0 {
		var sum float64
		for _, dep := range sm.Dependencies {
			sum += dep.SuccessRate
		}
		depScore = sum / float64(len(sm.Dependencies))
	}
	return clamp01(0.6*errScore + 0.4*depScore)
}

func sentimentScore(sentiment string) float64 {
	switch sentiment {
	case "very_negative":
		return 0.0
	case "negative":
		return 0.25
	case "neutral":
		return 0.5
	case "positive":
		return 0.75
	case "very_positive":
		return 1.0
	default:
		return 0.5
	}
}

func trendFrom(overall float64, previous *Evaluation) Trend {
	if previous == nil {
		return TrendInitial
	}
	switch delta := overall - previous.OverallScore; {
	case delta > trendBand:
		return TrendImproving
	case delta < -trendBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
