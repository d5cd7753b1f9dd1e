// Package feedback turns raw interaction telemetry into structured feedback
// summaries, scores them across weighted performance dimensions, and decides
// whether the outcome warrants an agent update.
package feedback

import "time"

// InteractionRecord is the raw telemetry for one evaluation window.
//
// It is produced by the caller once per cycle and is read-only to this
// package. Every field may be left at its zero value; collectors substitute
// defined defaults rather than failing on missing data.
type InteractionRecord struct {
	// ExplicitRatings are numeric ratings supplied by users.
	ExplicitRatings []float64 `json:"explicit_ratings,omitempty"`

	// Comments are free-text user comments.
	Comments []string `json:"comments,omitempty"`

	// Corrections are user corrections to agent responses.
	Corrections []Correction `json:"corrections,omitempty"`

	// InteractionPatterns captures implicit engagement signals.
	InteractionPatterns InteractionPatterns `json:"interaction_patterns"`

	// TaskCompletions indicates, per task, whether the agent completed it.
	TaskCompletions []bool `json:"task_completions,omitempty"`

	// ResponseTimes are per-response latencies in seconds.
	ResponseTimes []float64 `json:"response_times,omitempty"`

	// TimePeriod is the observation window in seconds, used for throughput.
	// Values <= 0 are treated as 1 to keep throughput defined.
	TimePeriod float64 `json:"time_period,omitempty"`

	// ResourceUsage holds host resource metrics for the window.
	ResourceUsage ResourceUsage `json:"resource_usage"`

	// ErrorLogs are errors the agent encountered during the window.
	ErrorLogs []ErrorEntry `json:"error_logs,omitempty"`

	// TotalInteractions is the number of interactions in the window,
	// used as the error-rate denominator. Values <= 0 are treated as 1.
	TotalInteractions int `json:"total_interactions,omitempty"`

	// APICalls are records of external service calls.
	APICalls []APICall `json:"api_calls,omitempty"`

	// Timestamp is when the window closed.
	Timestamp time.Time `json:"timestamp"`
}

// Correction is a single user correction to an agent response.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Category  string `json:"category,omitempty"`
}

// InteractionPatterns are implicit engagement signals for the window.
type InteractionPatterns struct {
	SessionDuration        float64 `json:"session_duration,omitempty"`
	ResponseAcceptanceRate float64 `json:"response_acceptance_rate,omitempty"`
	FollowUpQuestions      int     `json:"follow_up_questions,omitempty"`
}

// ResourceUsage holds host resource metrics for the window.
type ResourceUsage struct {
	AvgCPU    float64 `json:"avg_cpu,omitempty"`
	MaxMemory float64 `json:"max_memory,omitempty"`
	AvgMemory float64 `json:"avg_memory,omitempty"`
	DiskIO    float64 `json:"disk_io,omitempty"`
	NetworkIO float64 `json:"network_io,omitempty"`
}

// ErrorEntry is one logged error.
type ErrorEntry struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// APICall records one call to an external service.
type APICall struct {
	Service string  `json:"service"`
	Success bool    `json:"success"`
	Latency float64 `json:"latency,omitempty"`
}

// RatingSummary aggregates explicit user ratings.
type RatingSummary struct {
	// Average is the mean rating, 0.0 when no ratings were supplied.
	Average float64 `json:"average"`

	// Count is the number of ratings.
	Count int `json:"count"`

	// Distribution maps each rating value to its fraction of the total.
	// Fractions sum to 1; empty when no ratings were supplied.
	Distribution map[float64]float64 `json:"distribution,omitempty"`
}

// SentimentSummary summarizes user comments.
//
// Sentiment analysis is out of scope for this library: the label defaults to
// "neutral" and callers with an NLP stage may overwrite it before evaluation.
type SentimentSummary struct {
	Count     int    `json:"count"`
	Sentiment string `json:"sentiment"`
}

// CorrectionSummary aggregates user corrections by category.
type CorrectionSummary struct {
	Count      int            `json:"count"`
	Categories map[string]int `json:"categories,omitempty"`
}

// EngagementSummary carries implicit engagement metrics through to evaluation.
type EngagementSummary struct {
	SessionDuration        float64 `json:"session_duration"`
	ResponseAcceptanceRate float64 `json:"response_acceptance_rate"`
	FollowUpQuestions      int     `json:"follow_up_questions"`
}

// UserFeedback is the structured output of the user feedback collector.
type UserFeedback struct {
	Satisfaction RatingSummary     `json:"satisfaction_scores"`
	Sentiment    SentimentSummary  `json:"sentiment_analysis"`
	Corrections  CorrectionSummary `json:"correction_patterns"`
	Engagement   EngagementSummary `json:"engagement_metrics"`
}

// PerformanceSummary aggregates response-time and throughput metrics.
type PerformanceSummary struct {
	AvgResponseTime float64 `json:"avg_response_time"`
	MaxResponseTime float64 `json:"max_response_time"`
	MinResponseTime float64 `json:"min_response_time"`
	P95ResponseTime float64 `json:"p95_response_time"`
	Throughput      float64 `json:"throughput"`
}

// ResourceSummary aggregates resource utilization metrics.
type ResourceSummary struct {
	AvgCPUUsage    float64 `json:"avg_cpu_usage"`
	MaxMemoryUsage float64 `json:"max_memory_usage"`
	AvgMemoryUsage float64 `json:"avg_memory_usage"`
	DiskIO         float64 `json:"disk_io"`
	NetworkIO      float64 `json:"network_io"`
}

// ReliabilitySummary aggregates error counts and rates.
type ReliabilitySummary struct {
	ErrorCount      int            `json:"error_count"`
	ErrorRate       float64        `json:"error_rate"`
	ErrorCategories map[string]int `json:"error_categories,omitempty"`
}

// ServiceSummary aggregates calls to one external service.
type ServiceSummary struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatency   float64 `json:"avg_latency"`
}

// SystemMetrics is the structured output of the system metrics collector.
type SystemMetrics struct {
	Performance  PerformanceSummary        `json:"performance_metrics"`
	Resources    ResourceSummary           `json:"resource_metrics"`
	Reliability  ReliabilitySummary        `json:"reliability_metrics"`
	Dependencies map[string]ServiceSummary `json:"external_dependencies,omitempty"`
}

// Snapshot combines both collectors' output for one cycle.
//
// Snapshots are immutable once produced and are passed by value downstream.
type Snapshot struct {
	UserFeedback  UserFeedback  `json:"user_feedback"`
	SystemMetrics SystemMetrics `json:"system_metrics"`
	Timestamp     time.Time     `json:"timestamp"`
}
