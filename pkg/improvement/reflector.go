package improvement

import (
	"fmt"
	"strings"
)

// CycleResult is the before/after record of one improvement cycle.
type CycleResult struct {
	BeforeMetrics Metrics  `json:"before_metrics"`
	AfterMetrics  Metrics  `json:"after_metrics"`
	Modifications []string `json:"modifications,omitempty"`
}

// TrendSummary describes satisfaction movement across all reflected batches.
type TrendSummary struct {
	// AvgSatisfactionImprovement is the mean after-minus-before
	// satisfaction delta across every recorded cycle.
	AvgSatisfactionImprovement float64 `json:"avg_satisfaction_improvement"`

	// ConsistentImprovement is true when every recorded delta is strictly
	// positive.
	ConsistentImprovement bool `json:"consistent_improvement"`
}

// Insights is the output of one reflection pass.
type Insights struct {
	// EffectiveStrategies lists applied modifications whose target metric
	// moved in the right direction, one entry per cycle it helped in.
	EffectiveStrategies []string `json:"effective_strategies,omitempty"`

	// IneffectiveStrategies lists applied modifications that did not help.
	IneffectiveStrategies []string `json:"ineffective_strategies,omitempty"`

	// Trends is nil until at least two batches have been reflected on.
	Trends *TrendSummary `json:"improvement_trends,omitempty"`

	// Recommendations are human-readable follow-ups for the next cycles.
	Recommendations []string `json:"recommendations,omitempty"`
}

// Reflector analyzes improvement cycle outcomes.
type Reflector interface {
	Reflect(results []CycleResult) Insights
}

// SimpleReflector classifies each applied modification as effective or
// ineffective by whether its target metric improved, and tracks satisfaction
// trends across batches.
//
// The reflector keeps an append-only history of every batch it has seen, so
// one instance should serve one agent. It is not safe for concurrent use;
// the integration layer serializes calls.
type SimpleReflector struct {
	history [][]CycleResult
}

// NewSimpleReflector creates a reflector with empty history.
func NewSimpleReflector() *SimpleReflector {
	return &SimpleReflector{}
}

// HistorySize returns the number of batches reflected on so far.
func (r *SimpleReflector) HistorySize() int {
	return len(r.history)
}

// Reflect records results and derives insights from them and from earlier
// batches. Trend analysis needs at least two batches; before that
// Insights.Trends is nil.
func (r *SimpleReflector) Reflect(results []CycleResult) Insights {
	r.history = append(r.history, results)

	effective, ineffective := classifyStrategies(results)
	trends := r.satisfactionTrends()

	return Insights{
		EffectiveStrategies:   effective,
		IneffectiveStrategies: ineffective,
		Trends:                trends,
		Recommendations:       recommendations(effective, ineffective, trends),
	}
}

// classifyStrategies checks, per cycle and per applied modification, whether
// the metric the strategy targets moved in the right direction. Unknown
// modification names count as ineffective.
func classifyStrategies(results []CycleResult) (effective, ineffective []string) {
	for _, cycle := range results {
		before, after := cycle.BeforeMetrics, cycle.AfterMetrics
		for _, mod := range cycle.Modifications {
			helped := false
			switch mod {
			case AreaUserSatisfaction:
				helped = after.SatisfactionScore > before.SatisfactionScore
			case AreaTaskCompletion:
				helped = after.CompletionRate > before.CompletionRate
			case AreaResponseTime:
				helped = after.AvgResponseTime < before.AvgResponseTime
			}
			if helped {
				effective = append(effective, mod)
			} else {
				ineffective = append(ineffective, mod)
			}
		}
	}
	return effective, ineffective
}

func (r *SimpleReflector) satisfactionTrends() *TrendSummary {
	if len(r.history) < 2 {
		return nil
	}
	var deltas []float64
	for _, batch := range r.history {
		for _, cycle := range batch {
			deltas = append(deltas, cycle.AfterMetrics.SatisfactionScore-cycle.BeforeMetrics.SatisfactionScore)
		}
	}
	summary := &TrendSummary{}
	if len(deltas) == 0 {
		return summary
	}
	summary.ConsistentImprovement = true
	for _, d := range deltas {
		summary.AvgSatisfactionImprovement += d
		if d <= 0 {
			summary.ConsistentImprovement = false
		}
	}
	summary.AvgSatisfactionImprovement /= float64(len(deltas))
	return summary
}

func recommendations(effective, ineffective []string, trends *TrendSummary) []string {
	var recs []string
	if len(effective) > 0 {
		recs = append(recs, fmt.Sprintf("Continue applying these effective strategies: %s", strings.Join(effective, ", ")))
	}
	if len(ineffective) > 0 {
		recs = append(recs, fmt.Sprintf("Revise these less effective strategies: %s", strings.Join(ineffective, ", ")))
	}
	if trends == nil {
		return recs
	}
	if trends.ConsistentImprovement {
		recs = append(recs, "Current improvement trajectory is positive, maintain approach")
	} else if trends.AvgSatisfactionImprovement <= 0 {
		recs = append(recs, "Consider more significant behavior modifications to reverse negative trends")
	}
	return recs
}
