package feedback

// Priority classifies how urgently an update should run.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Trigger decides whether an evaluation warrants an agent update.
type Trigger interface {
	ShouldUpdate(eval Evaluation) bool
	UpdatePriority(eval Evaluation) Priority
}

// Thresholds configures a ThresholdTrigger. Use DefaultThresholds as a
// starting point and override individual fields.
type Thresholds struct {
	// OverallScoreMin fires an update when the overall score drops below it.
	OverallScoreMin float64

	// OverallScoreTarget fires an update when the trend is declining and
	// the overall score has slipped below it.
	OverallScoreTarget float64

	// DimensionMin maps dimension names to per-dimension floors; any
	// dimension below its floor fires an update.
	DimensionMin map[string]float64

	// ErrorRateMax fires an update when the error rate implied by the
	// reliability score exceeds it.
	ErrorRateMax float64

	// ImprovementAreasMax fires an update when more than this many
	// dimensions land in the improvement list.
	ImprovementAreasMax int
}

// DefaultThresholds returns the standard trigger configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OverallScoreMin:    0.6,
		OverallScoreTarget: 0.8,
		DimensionMin: map[string]float64{
			DimensionUserSatisfaction: 0.7,
		},
		ErrorRateMax:        0.05,
		ImprovementAreasMax: 2,
	}
}

// ThresholdTrigger fires updates on fixed score thresholds. It is stateless
// apart from its configuration and safe for concurrent use.
type ThresholdTrigger struct {
	thresholds Thresholds
}

// NewThresholdTrigger creates a trigger with the given thresholds. A nil
// value selects DefaultThresholds.
func NewThresholdTrigger(thresholds *Thresholds) *ThresholdTrigger {
	t := &ThresholdTrigger{thresholds: DefaultThresholds()}
	if thresholds != nil {
		t.thresholds = *thresholds
	}
	return t
}

// Thresholds returns the trigger's active configuration.
func (t *ThresholdTrigger) Thresholds() Thresholds {
	return t.thresholds
}

// ShouldUpdate reports whether eval crosses any configured threshold.
//
// The checks, in order: overall score below the minimum, any dimension below
// its floor, implied error rate above the maximum, improvement-area count
// above the maximum, and finally a declining trend while the overall score
// sits below the target.
func (t *ThresholdTrigger) ShouldUpdate(eval Evaluation) bool {
	if eval.OverallScore < t.thresholds.OverallScoreMin {
		return true
	}
	for dim, floor := range t.thresholds.DimensionMin {
		if score, ok := eval.DimensionScores[dim]; ok && score < floor {
			return true
		}
	}
	if impliedErrorRate(eval) > t.thresholds.ErrorRateMax {
		return true
	}
	if len(eval.ImprovementAreas) > t.thresholds.ImprovementAreasMax {
		return true
	}
	return eval.Trend == TrendDeclining && eval.OverallScore < t.thresholds.OverallScoreTarget
}

// UpdatePriority buckets eval by overall score: below 0.4 is critical, below
// 0.6 high, below 0.7 medium, otherwise low.
func (t *ThresholdTrigger) UpdatePriority(eval Evaluation) Priority {
	switch {
	case eval.OverallScore < 0.4:
		return PriorityCritical
	case eval.OverallScore < 0.6:
		return PriorityHigh
	case eval.OverallScore < 0.7:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// impliedErrorRate approximates the error rate as the reliability score's
// distance from perfect. A missing reliability dimension implies a rate of 0.
func impliedErrorRate(eval Evaluation) float64 {
	score, ok := eval.DimensionScores[DimensionReliability]
	if !ok {
		return 0
	}
	return 1 - score
}
