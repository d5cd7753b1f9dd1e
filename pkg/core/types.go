package core

import (
	"time"

	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
)

// UpdateResult is the outcome of one improvement cycle.
//
// When the trigger declines the update, Updated is false, Reason carries the
// skip explanation, and only Snapshot and Evaluation are populated.
type UpdateResult struct {
	// ID is the snowflake identifier stamped by the manager; zero when the
	// cycle ran outside a manager.
	ID int64 `json:"id,omitempty"`

	// Updated reports whether the agent was modified.
	Updated bool `json:"updated"`

	// Reason explains a skipped cycle, e.g. "Update threshold not reached".
	Reason string `json:"reason,omitempty"`

	// Priority is the trigger's urgency label for updated cycles.
	Priority feedback.Priority `json:"priority,omitempty"`

	// Snapshot is the collected feedback the cycle ran on.
	Snapshot feedback.Snapshot `json:"snapshot"`

	// Evaluation is the scored outcome of the snapshot.
	Evaluation feedback.Evaluation `json:"evaluation"`

	// BeforeMetrics and AfterMetrics are the self-evaluator's view of the
	// agent before and after modification; only set for updated cycles.
	BeforeMetrics improvement.Metrics `json:"before_metrics,omitempty"`
	AfterMetrics  improvement.Metrics `json:"after_metrics,omitempty"`

	// Modifications lists the behavior strategies applied.
	Modifications []string `json:"modifications,omitempty"`

	// Insights is the reflection outcome; only set for updated cycles.
	Insights improvement.Insights `json:"insights,omitempty"`

	// Knowledge is the transferable knowledge adapted into the agent;
	// only set for updated cycles.
	Knowledge metalearning.TransferableKnowledge `json:"knowledge,omitempty"`

	// Timestamp is when the cycle completed.
	Timestamp time.Time `json:"timestamp"`
}

// State describes the manager lifecycle.
type State string

const (
	// StateIdle means the manager has not been started, or has stopped.
	StateIdle State = "idle"

	// StateRunning means the manager accepts cycles and, with auto-update
	// enabled, its background loop is live.
	StateRunning State = "running"
)

// Status is the lifecycle portion of a metrics snapshot.
type Status struct {
	Running        bool          `json:"running"`
	AutoUpdate     bool          `json:"auto_update"`
	UpdateInterval time.Duration `json:"update_interval"`

	// LastUpdateTime is when the last cycle completed; nil before the
	// first cycle.
	LastUpdateTime *time.Time `json:"last_update_time,omitempty"`
}

// FeedbackEntry pairs a collected snapshot with the interaction record it
// was collected from, so later improvement passes can re-derive raw signals.
type FeedbackEntry struct {
	Record    feedback.InteractionRecord `json:"record"`
	Snapshot  feedback.Snapshot          `json:"snapshot"`
	Timestamp time.Time                  `json:"timestamp"`
}

// AdaptResult is the outcome of one reflection plus metalearning pass.
type AdaptResult struct {
	Insights  improvement.Insights               `json:"insights"`
	Knowledge metalearning.TransferableKnowledge `json:"knowledge"`
	Timestamp time.Time                          `json:"timestamp"`
}

// HistorySizes counts the entries retained in each in-memory history.
type HistorySizes struct {
	Feedback     int `json:"feedback"`
	Improvement  int `json:"improvement"`
	Metalearning int `json:"metalearning"`
	Cycle        int `json:"cycle"`
}

// Metrics is a point-in-time view of the manager's state and latest results.
type Metrics struct {
	Status       Status       `json:"status"`
	HistorySizes HistorySizes `json:"history_sizes"`

	// LatestFeedback, LatestImprovement, LatestAdapt and LatestCycle are
	// nil until the corresponding stage has produced output.
	LatestFeedback    *FeedbackEntry     `json:"latest_feedback,omitempty"`
	LatestImprovement *ImprovementRecord `json:"latest_improvement,omitempty"`
	LatestAdapt       *AdaptResult       `json:"latest_adapt,omitempty"`
	LatestCycle       *UpdateResult      `json:"latest_cycle,omitempty"`
}
