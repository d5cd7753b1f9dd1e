package improvement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
)

func TestEvaluateMetrics(t *testing.T) {
	evaluator := improvement.NewSimpleSelfEvaluator(nil)

	metrics := evaluator.Evaluate(improvement.Signals{
		UserRatings:     []float64{0.8, 0.9, 0.85},
		TaskCompletions: []bool{true, true, true, false},
		ResponseTimes:   []float64{1.0, 1.5},
	})

	assert.InDelta(t, 0.85, metrics.SatisfactionScore, 1e-9)
	assert.InDelta(t, 0.75, metrics.CompletionRate, 1e-9)
	assert.InDelta(t, 1.25, metrics.AvgResponseTime, 1e-9)
	// Completion 0.75 is under the 0.8 floor; the other two are fine.
	assert.Equal(t, []string{improvement.AreaTaskCompletion}, metrics.ImprovementAreas)
}

func TestEvaluateAllAreasFlagged(t *testing.T) {
	evaluator := improvement.NewSimpleSelfEvaluator(nil)

	metrics := evaluator.Evaluate(improvement.Signals{
		UserRatings:     []float64{0.4, 0.5},
		TaskCompletions: []bool{true, false},
		ResponseTimes:   []float64{3.0, 2.5},
	})

	assert.Equal(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaTaskCompletion,
		improvement.AreaResponseTime,
	}, metrics.ImprovementAreas)
}

func TestEvaluateEmptySignals(t *testing.T) {
	evaluator := improvement.NewSimpleSelfEvaluator(nil)

	metrics := evaluator.Evaluate(improvement.Signals{})

	assert.Zero(t, metrics.SatisfactionScore)
	assert.Zero(t, metrics.CompletionRate)
	assert.Zero(t, metrics.AvgResponseTime)
	// Zero satisfaction and completion still land under their floors;
	// zero response time does not exceed its ceiling.
	assert.Equal(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaTaskCompletion,
	}, metrics.ImprovementAreas)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	evaluator := improvement.NewSimpleSelfEvaluator(&improvement.EvaluatorThresholds{
		SatisfactionMin: 0.95,
		CompletionMin:   0.5,
		ResponseTimeMax: 0.5,
	})

	metrics := evaluator.Evaluate(improvement.Signals{
		UserRatings:     []float64{0.9},
		TaskCompletions: []bool{true},
		ResponseTimes:   []float64{1.0},
	})

	assert.Equal(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaResponseTime,
	}, metrics.ImprovementAreas)
}

func TestSignalsFromRecord(t *testing.T) {
	signals := improvement.SignalsFromRecord(feedback.InteractionRecord{
		ExplicitRatings: []float64{0.9},
		TaskCompletions: []bool{true, false},
		ResponseTimes:   []float64{0.5},
	})

	assert.Equal(t, []float64{0.9}, signals.UserRatings)
	assert.Equal(t, []bool{true, false}, signals.TaskCompletions)
	assert.Equal(t, []float64{0.5}, signals.ResponseTimes)
}
