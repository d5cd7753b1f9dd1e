package improvement

import (
	"math"

	"github.com/deepagent/selfloop-go/pkg/agent"
)

// defaultParam is the assumed value for a behavior parameter that has never
// been set.
const defaultParam = 0.5

// Modifier adjusts behavior parameters for the improvement areas in metrics.
type Modifier interface {
	// Modify returns an adjusted copy of behavior and the list of areas an
	// adjustment strategy was applied for. The input is never mutated.
	Modify(behavior agent.Behavior, metrics Metrics) (agent.Behavior, []string)
}

// SimpleBehaviorModifier maps each improvement area to a fixed parameter
// adjustment:
//
//	user_satisfaction: verbosity +0.1, empathy +0.2
//	task_completion:   thoroughness +0.15, precision +0.1
//	response_time:     conciseness +0.2
//
// Adjusted parameters are capped at 1.0; unknown areas are skipped. The
// modifier is stateless and safe for concurrent use.
type SimpleBehaviorModifier struct {
	strategies map[string]func(agent.Behavior)
}

// NewSimpleBehaviorModifier creates a behavior modifier with the standard
// strategy table.
func NewSimpleBehaviorModifier() *SimpleBehaviorModifier {
	return &SimpleBehaviorModifier{
		strategies: map[string]func(agent.Behavior){
			AreaUserSatisfaction: func(b agent.Behavior) {
				raise(b, "verbosity", 0.1)
				raise(b, "empathy", 0.2)
			},
			AreaTaskCompletion: func(b agent.Behavior) {
				raise(b, "thoroughness", 0.15)
				raise(b, "precision", 0.1)
			},
			AreaResponseTime: func(b agent.Behavior) {
				raise(b, "conciseness", 0.2)
			},
		},
	}
}

// Modify applies the strategy for each improvement area in metrics to a copy
// of behavior.
func (m *SimpleBehaviorModifier) Modify(behavior agent.Behavior, metrics Metrics) (agent.Behavior, []string) {
	modified := behavior.Clone()
	var applied []string
	for _, area := range metrics.ImprovementAreas {
		strategy, ok := m.strategies[area]
		if !ok {
			continue
		}
		strategy(modified)
		applied = append(applied, area)
	}
	return modified, applied
}

func raise(b agent.Behavior, param string, increment float64) {
	b[param] = math.Min(b.Get(param, defaultParam)+increment, 1.0)
}
