package improvement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/improvement"
)

func improvedCycle() improvement.CycleResult {
	return improvement.CycleResult{
		BeforeMetrics: improvement.Metrics{SatisfactionScore: 0.6, CompletionRate: 0.7, AvgResponseTime: 2.5},
		AfterMetrics:  improvement.Metrics{SatisfactionScore: 0.8, CompletionRate: 0.9, AvgResponseTime: 1.5},
		Modifications: []string{
			improvement.AreaUserSatisfaction,
			improvement.AreaTaskCompletion,
			improvement.AreaResponseTime,
		},
	}
}

func regressedCycle() improvement.CycleResult {
	return improvement.CycleResult{
		BeforeMetrics: improvement.Metrics{SatisfactionScore: 0.8, AvgResponseTime: 1.0},
		AfterMetrics:  improvement.Metrics{SatisfactionScore: 0.7, AvgResponseTime: 1.8},
		Modifications: []string{
			improvement.AreaUserSatisfaction,
			improvement.AreaResponseTime,
		},
	}
}

func TestReflectClassifiesStrategies(t *testing.T) {
	reflector := improvement.NewSimpleReflector()

	insights := reflector.Reflect([]improvement.CycleResult{improvedCycle(), regressedCycle()})

	assert.ElementsMatch(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaTaskCompletion,
		improvement.AreaResponseTime,
	}, insights.EffectiveStrategies)
	assert.ElementsMatch(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaResponseTime,
	}, insights.IneffectiveStrategies)
}

func TestReflectUnknownModificationIsIneffective(t *testing.T) {
	reflector := improvement.NewSimpleReflector()

	insights := reflector.Reflect([]improvement.CycleResult{{
		Modifications: []string{"telepathy"},
	}})

	assert.Empty(t, insights.EffectiveStrategies)
	assert.Equal(t, []string{"telepathy"}, insights.IneffectiveStrategies)
}

func TestReflectTrendsNeedTwoBatches(t *testing.T) {
	reflector := improvement.NewSimpleReflector()

	first := reflector.Reflect([]improvement.CycleResult{improvedCycle()})
	assert.Nil(t, first.Trends)
	assert.Equal(t, 1, reflector.HistorySize())

	second := reflector.Reflect([]improvement.CycleResult{improvedCycle()})
	require.NotNil(t, second.Trends)
	assert.InDelta(t, 0.2, second.Trends.AvgSatisfactionImprovement, 1e-9)
	assert.True(t, second.Trends.ConsistentImprovement)
	assert.Contains(t, second.Recommendations,
		"Current improvement trajectory is positive, maintain approach")
}

func TestReflectNegativeTrendRecommendation(t *testing.T) {
	reflector := improvement.NewSimpleReflector()

	reflector.Reflect([]improvement.CycleResult{regressedCycle()})
	insights := reflector.Reflect([]improvement.CycleResult{regressedCycle()})

	require.NotNil(t, insights.Trends)
	assert.InDelta(t, -0.1, insights.Trends.AvgSatisfactionImprovement, 1e-9)
	assert.False(t, insights.Trends.ConsistentImprovement)
	assert.Contains(t, insights.Recommendations,
		"Consider more significant behavior modifications to reverse negative trends")
}

func TestReflectRecommendationsNameStrategies(t *testing.T) {
	reflector := improvement.NewSimpleReflector()

	insights := reflector.Reflect([]improvement.CycleResult{improvedCycle()})

	require.NotEmpty(t, insights.Recommendations)
	assert.Contains(t, insights.Recommendations[0], "Continue applying these effective strategies:")
	assert.Contains(t, insights.Recommendations[0], improvement.AreaUserSatisfaction)
}
