package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/agent"
	"github.com/deepagent/selfloop-go/pkg/core"
	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
)

// healthyRecord evaluates well above every default threshold.
func healthyRecord() feedback.InteractionRecord {
	return feedback.InteractionRecord{
		ExplicitRatings: []float64{0.9, 0.95, 0.85},
		InteractionPatterns: feedback.InteractionPatterns{
			ResponseAcceptanceRate: 0.95,
		},
		TaskCompletions:   []bool{true, true, true},
		ResponseTimes:     []float64{0.4, 0.5, 0.6},
		ResourceUsage:     feedback.ResourceUsage{AvgCPU: 0.2, AvgMemory: 0.3},
		TotalInteractions: 100,
	}
}

// strugglingRecord fails the overall-score, dimension-floor and
// improvement-area checks at once.
func strugglingRecord() feedback.InteractionRecord {
	return feedback.InteractionRecord{
		ExplicitRatings: []float64{0.2, 0.3, 0.25},
		Corrections: []feedback.Correction{
			{}, {}, {}, {}, {}, {},
		},
		InteractionPatterns: feedback.InteractionPatterns{
			ResponseAcceptanceRate: 0.3,
		},
		TaskCompletions: []bool{false, false, true},
		ResponseTimes:   []float64{3.5, 4.0},
		ResourceUsage:   feedback.ResourceUsage{AvgCPU: 0.9, AvgMemory: 0.8},
		ErrorLogs: []feedback.ErrorEntry{
			{Type: "timeout"}, {Type: "timeout"},
		},
		TotalInteractions: 10,
	}
}

func TestRunCompleteCycleSkipsBelowThreshold(t *testing.T) {
	integ := core.NewIntegration(nil)
	model := agent.New(agent.WithName("test-agent"))
	before := model.Behavior()

	result, err := integ.RunCompleteCycle(model, healthyRecord())
	require.NoError(t, err)

	assert.False(t, result.Updated)
	assert.Equal(t, core.ReasonThresholdNotReached, result.Reason)
	assert.Empty(t, result.Modifications)
	assert.Empty(t, result.Insights.Recommendations)
	assert.Equal(t, before, model.Behavior())
	assert.Greater(t, result.Evaluation.OverallScore, 0.6)
}

func TestRunCompleteCycleUpdatesAgent(t *testing.T) {
	integ := core.NewIntegration(nil)
	model := agent.New(agent.WithName("test-agent"))

	result, err := integ.RunCompleteCycle(model, strugglingRecord())
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Empty(t, result.Reason)
	assert.Equal(t, feedback.PriorityCritical, result.Priority)
	assert.Equal(t, []string{
		improvement.AreaUserSatisfaction,
		improvement.AreaTaskCompletion,
		improvement.AreaResponseTime,
	}, result.Modifications)

	// Every strategy raises its parameters from the 0.5 default.
	behavior := model.Behavior()
	assert.InDelta(t, 0.6, behavior["verbosity"], 1e-9)
	assert.InDelta(t, 0.7, behavior["empathy"], 1e-9)
	assert.InDelta(t, 0.65, behavior["thoroughness"], 1e-9)
	assert.InDelta(t, 0.6, behavior["precision"], 1e-9)
	assert.InDelta(t, 0.7, behavior["conciseness"], 1e-9)

	// Reflection ran on a single batch: no trends yet, and without
	// post-modification telemetry nothing classifies as effective.
	assert.Nil(t, result.Insights.Trends)
	assert.NotEmpty(t, result.Insights.IneffectiveStrategies)

	// Metalearning adapted the insights into the knowledge store.
	assert.Contains(t, model.KnowledgeStore(), metalearning.AdaptedKnowledgeKey)
}

func TestEvaluateFeedbackTracksTrendAcrossCalls(t *testing.T) {
	integ := core.NewIntegration(nil)

	snap, err := integ.CollectFeedback(strugglingRecord())
	require.NoError(t, err)
	first := integ.EvaluateFeedback(snap)
	assert.Equal(t, feedback.TrendInitial, first.Trend)

	snap, err = integ.CollectFeedback(healthyRecord())
	require.NoError(t, err)
	second := integ.EvaluateFeedback(snap)
	assert.Equal(t, feedback.TrendImproving, second.Trend)
}

func TestRunImprovementCycleLeavesInputBehavior(t *testing.T) {
	integ := core.NewIntegration(nil)
	behavior := agent.Behavior{"verbosity": 0.5}

	signals := improvement.SignalsFromRecord(strugglingRecord())
	modified, record := integ.RunImprovementCycle(behavior, signals)

	assert.InDelta(t, 0.5, behavior["verbosity"], 1e-9)
	assert.InDelta(t, 0.6, modified["verbosity"], 1e-9)
	assert.Equal(t, record.BeforeMetrics, record.AfterMetrics)
	assert.False(t, record.Timestamp.IsZero())
}

func TestRunReflectionAccumulatesBatches(t *testing.T) {
	integ := core.NewIntegration(nil)
	record := core.ImprovementRecord{
		BeforeMetrics: improvement.Metrics{SatisfactionScore: 0.5},
		AfterMetrics:  improvement.Metrics{SatisfactionScore: 0.7},
		Modifications: []string{improvement.AreaUserSatisfaction},
	}

	first := integ.RunReflection([]core.ImprovementRecord{record})
	assert.Nil(t, first.Trends)
	assert.Equal(t, []string{improvement.AreaUserSatisfaction}, first.EffectiveStrategies)

	second := integ.RunReflection([]core.ImprovementRecord{record})
	require.NotNil(t, second.Trends)
	assert.InDelta(t, 0.2, second.Trends.AvgSatisfactionImprovement, 1e-9)
	assert.True(t, second.Trends.ConsistentImprovement)
}

func TestPartialTriggerConfigKeepsDefaults(t *testing.T) {
	// Healthy telemetry with a 0.2% error rate: well under the default
	// 5% ceiling, but above a zeroed one.
	rec := healthyRecord()
	rec.ErrorLogs = []feedback.ErrorEntry{{Type: "timeout"}}
	rec.TotalInteractions = 500

	baseline, err := core.NewIntegration(nil).
		RunCompleteCycle(agent.New(agent.WithName("default-agent")), rec)
	require.NoError(t, err)
	require.False(t, baseline.Updated)

	// Restating only the default overall floor must not change the
	// decision: the thresholds the section leaves out keep their defaults.
	partial := core.NewIntegration(&core.Config{
		Trigger: &core.TriggerConfig{OverallScoreMin: 0.6},
	})
	result, err := partial.RunCompleteCycle(agent.New(agent.WithName("partial-agent")), rec)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, core.ReasonThresholdNotReached, result.Reason)
}

func TestPartialImprovementConfigKeepsDefaults(t *testing.T) {
	integ := core.NewIntegration(&core.Config{
		Improvement: &core.ImprovementConfig{SatisfactionMin: 0.5},
	})

	// Fast, accepted, well-rated signals cross no default threshold; a
	// zeroed ResponseTimeMax would flag every response time.
	signals := improvement.SignalsFromRecord(healthyRecord())
	_, record := integ.RunImprovementCycle(agent.Behavior{}, signals)
	assert.Empty(t, record.Modifications)
}

func TestIntegrationHonorsConfiguredThresholds(t *testing.T) {
	config := &core.Config{
		Trigger: &core.TriggerConfig{OverallScoreMin: 0.9},
	}
	integ := core.NewIntegration(config)
	model := agent.New(agent.WithName("strict-agent"))

	// Healthy telemetry scores ~0.87, below the raised floor.
	result, err := integ.RunCompleteCycle(model, healthyRecord())
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Empty(t, result.Modifications)
}
