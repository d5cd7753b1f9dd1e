package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/deepagent/selfloop-go/pkg/agent"
	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
)

// ReasonThresholdNotReached is the skip reason recorded when the trigger
// declines an update.
const ReasonThresholdNotReached = "Update threshold not reached"

// ImprovementRecord packages one improvement pass over an agent's behavior.
type ImprovementRecord struct {
	// BeforeMetrics is the self-evaluation of the window the pass ran on.
	BeforeMetrics improvement.Metrics `json:"before_metrics"`

	// AfterMetrics starts equal to BeforeMetrics; post-modification
	// telemetry is not available within a single window, so callers
	// holding the next window's metrics may fill it in before reflection.
	AfterMetrics improvement.Metrics `json:"after_metrics"`

	// Modifications lists the behavior strategies that were applied.
	Modifications []string `json:"modifications,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Integration orchestrates one full improvement cycle:
// collect → evaluate → trigger-check → improve → reflect → adapt.
//
// The reflector and the trend comparison against the previous evaluation are
// the only state it holds; everything else is a pure pass through the staged
// components. It is not safe for concurrent use; the Manager serializes
// calls.
type Integration struct {
	logger        *zap.Logger
	userCollector feedback.UserCollector
	sysCollector  feedback.MetricsCollector
	evaluator     feedback.Evaluator
	trigger       feedback.Trigger
	selfEvaluator improvement.SelfEvaluator
	modifier      improvement.Modifier
	reflector     improvement.Reflector
	pipeline      *metalearning.Pipeline

	previous *feedback.Evaluation
}

// NewIntegration builds an integration from the config's thresholds, with
// options overriding individual components.
//
// Example:
//
//	integ := core.NewIntegration(config,
//	    core.WithTrigger(customTrigger),
//	)
func NewIntegration(config *Config, opts ...Option) *Integration {
	if config == nil {
		config = &Config{}
	}
	options := applyOptions(opts)
	return newIntegration(config, options)
}

func newIntegration(config *Config, options *managerOptions) *Integration {
	i := &Integration{
		logger:        options.logger,
		userCollector: options.userCollector,
		sysCollector:  options.sysCollector,
		evaluator:     options.evaluator,
		trigger:       options.trigger,
		selfEvaluator: options.selfEvaluator,
		modifier:      options.modifier,
		reflector:     options.reflector,
		pipeline: metalearning.NewPipeline(
			options.metaAbstracter, options.metaTransferer, options.metaAdapter),
	}

	if i.userCollector == nil {
		i.userCollector = feedback.NewUserFeedbackCollector()
	}
	if i.sysCollector == nil {
		i.sysCollector = feedback.NewSystemMetricsCollector()
	}
	if i.evaluator == nil {
		i.evaluator = feedback.NewPerformanceEvaluator(evaluatorConfig(config))
	}
	if i.trigger == nil {
		i.trigger = feedback.NewThresholdTrigger(triggerThresholds(config))
	}
	if i.selfEvaluator == nil {
		i.selfEvaluator = improvement.NewSimpleSelfEvaluator(improvementThresholds(config))
	}
	if i.modifier == nil {
		i.modifier = improvement.NewSimpleBehaviorModifier()
	}
	if i.reflector == nil {
		i.reflector = improvement.NewSimpleReflector()
	}
	return i
}

// evaluatorConfig maps the config's evaluation section onto the evaluator's
// own config type; nil means all defaults.
func evaluatorConfig(config *Config) *feedback.EvaluatorConfig {
	ec := config.Evaluation
	if ec.Weights == nil && ec.MaxAcceptableResponseTime == 0 {
		return nil
	}
	return &feedback.EvaluatorConfig{
		Weights:                   ec.Weights,
		MaxAcceptableResponseTime: ec.MaxAcceptableResponseTime,
	}
}

// triggerThresholds merges the config's trigger section over the default
// thresholds. Zero fields keep their defaults, so a partial section never
// disables the checks it does not mention.
func triggerThresholds(config *Config) *feedback.Thresholds {
	if config.Trigger == nil {
		return nil
	}
	tc := config.Trigger
	t := feedback.DefaultThresholds()
	if tc.OverallScoreMin != 0 {
		t.OverallScoreMin = tc.OverallScoreMin
	}
	if tc.OverallScoreTarget != 0 {
		t.OverallScoreTarget = tc.OverallScoreTarget
	}
	if tc.UserSatisfactionMin != 0 {
		t.DimensionMin[feedback.DimensionUserSatisfaction] = tc.UserSatisfactionMin
	}
	if tc.ErrorRateMax != 0 {
		t.ErrorRateMax = tc.ErrorRateMax
	}
	if tc.ImprovementAreasMax != 0 {
		t.ImprovementAreasMax = tc.ImprovementAreasMax
	}
	return &t
}

// improvementThresholds merges the config's improvement section over the
// default self-evaluation thresholds; zero fields keep their defaults.
func improvementThresholds(config *Config) *improvement.EvaluatorThresholds {
	if config.Improvement == nil {
		return nil
	}
	ic := config.Improvement
	t := improvement.DefaultEvaluatorThresholds()
	if ic.SatisfactionMin != 0 {
		t.SatisfactionMin = ic.SatisfactionMin
	}
	if ic.CompletionMin != 0 {
		t.CompletionMin = ic.CompletionMin
	}
	if ic.ResponseTimeMax != 0 {
		t.ResponseTimeMax = ic.ResponseTimeMax
	}
	return &t
}

// CollectFeedback runs both collectors over the record and returns the
// combined snapshot.
func (i *Integration) CollectFeedback(rec feedback.InteractionRecord) (feedback.Snapshot, error) {
	snap, err := feedback.Collect(i.userCollector, i.sysCollector, rec)
	if err != nil {
		return feedback.Snapshot{}, NewLoopError("CollectFeedback", err)
	}
	return snap, nil
}

// EvaluateFeedback scores the snapshot. The trend in the returned evaluation
// compares against the previous evaluation this integration produced.
func (i *Integration) EvaluateFeedback(snap feedback.Snapshot) feedback.Evaluation {
	eval := i.evaluator.Evaluate(snap, i.previous)
	i.previous = &eval
	return eval
}

// CheckUpdateTrigger reports whether the evaluation warrants a behavior
// update.
func (i *Integration) CheckUpdateTrigger(eval feedback.Evaluation) bool {
	return i.trigger.ShouldUpdate(eval)
}

// RunImprovementCycle self-evaluates the signals, modifies the behavior
// accordingly, and packages the pass as an ImprovementRecord. The input
// behavior is not mutated.
func (i *Integration) RunImprovementCycle(behavior agent.Behavior, signals improvement.Signals) (agent.Behavior, ImprovementRecord) {
	metrics := i.selfEvaluator.Evaluate(signals)
	modified, applied := i.modifier.Modify(behavior, metrics)

	return modified, ImprovementRecord{
		BeforeMetrics: metrics,
		AfterMetrics:  metrics,
		Modifications: applied,
		Timestamp:     time.Now(),
	}
}

// RunReflection classifies the records' modifications as effective or
// ineffective and derives trend-based recommendations. Each call adds a
// batch to the reflector's history.
func (i *Integration) RunReflection(records []ImprovementRecord) improvement.Insights {
	results := make([]improvement.CycleResult, len(records))
	for n, rec := range records {
		results[n] = improvement.CycleResult{
			BeforeMetrics: rec.BeforeMetrics,
			AfterMetrics:  rec.AfterMetrics,
			Modifications: rec.Modifications,
		}
	}
	return i.reflector.Reflect(results)
}

// RunMetalearningCycle abstracts the insights, makes them transferable and
// adapts them into the model's knowledge store.
func (i *Integration) RunMetalearningCycle(model *agent.Model, insights improvement.Insights) metalearning.TransferableKnowledge {
	return i.pipeline.Apply(model, knowledgeFromInsights(insights))
}

// RunCompleteCycle runs one full pass over the record. When the trigger
// declines the update, the returned result carries Updated=false with the
// skip reason and only the snapshot and evaluation populated; reflection and
// metalearning are not invoked.
func (i *Integration) RunCompleteCycle(model *agent.Model, rec feedback.InteractionRecord) (UpdateResult, error) {
	snap, err := i.CollectFeedback(rec)
	if err != nil {
		return UpdateResult{}, err
	}
	eval := i.EvaluateFeedback(snap)

	result := UpdateResult{
		Snapshot:   snap,
		Evaluation: eval,
		Timestamp:  time.Now(),
	}

	if !i.CheckUpdateTrigger(eval) {
		result.Reason = ReasonThresholdNotReached
		i.logger.Debug("update skipped",
			zap.String("agent_id", model.ID()),
			zap.Float64("overall_score", eval.OverallScore))
		return result, nil
	}

	result.Updated = true
	result.Priority = i.trigger.UpdatePriority(eval)

	modified, impRecord := i.RunImprovementCycle(model.Behavior(), improvement.SignalsFromRecord(rec))
	model.SetBehavior(modified)
	result.BeforeMetrics = impRecord.BeforeMetrics
	result.AfterMetrics = impRecord.AfterMetrics
	result.Modifications = impRecord.Modifications

	result.Insights = i.RunReflection([]ImprovementRecord{impRecord})
	result.Knowledge = i.RunMetalearningCycle(model, result.Insights)

	i.logger.Info("agent updated",
		zap.String("agent_id", model.ID()),
		zap.Float64("overall_score", eval.OverallScore),
		zap.String("priority", string(result.Priority)),
		zap.Strings("modifications", result.Modifications))

	return result, nil
}

// knowledgeFromInsights flattens reflection insights into the key/value form
// the metalearning pipeline abstracts over.
func knowledgeFromInsights(in improvement.Insights) map[string]any {
	knowledge := map[string]any{
		"effective_strategies":   in.EffectiveStrategies,
		"ineffective_strategies": in.IneffectiveStrategies,
		"recommendations":        in.Recommendations,
	}
	if in.Trends != nil {
		knowledge["improvement_trends"] = *in.Trends
	}
	return knowledge
}
