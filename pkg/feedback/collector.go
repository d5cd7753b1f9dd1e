package feedback

import (
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// UserCollector aggregates user-facing signals from an interaction record.
type UserCollector interface {
	Collect(rec InteractionRecord) (UserFeedback, error)
}

// MetricsCollector aggregates system-facing signals from an interaction record.
type MetricsCollector interface {
	Collect(rec InteractionRecord) (SystemMetrics, error)
}

// UserFeedbackCollector summarizes explicit ratings, comments, corrections
// and engagement patterns. It is stateless and safe for concurrent use.
type UserFeedbackCollector struct{}

// NewUserFeedbackCollector creates a user feedback collector.
//
// Example:
//
//	collector := feedback.NewUserFeedbackCollector()
//	fb, err := collector.Collect(record)
func NewUserFeedbackCollector() *UserFeedbackCollector {
	return &UserFeedbackCollector{}
}

// Collect summarizes the user-facing signals in rec.
//
// Missing inputs yield zero-valued summaries rather than errors: an empty
// ratings slice produces Average 0 and an empty distribution.
func (c *UserFeedbackCollector) Collect(rec InteractionRecord) (UserFeedback, error) {
	return UserFeedback{
		Satisfaction: summarizeRatings(rec.ExplicitRatings),
		Sentiment: SentimentSummary{
			Count:     len(rec.Comments),
			Sentiment: "neutral",
		},
		Corrections: summarizeCorrections(rec.Corrections),
		Engagement: EngagementSummary{
			SessionDuration:        rec.InteractionPatterns.SessionDuration,
			ResponseAcceptanceRate: rec.InteractionPatterns.ResponseAcceptanceRate,
			FollowUpQuestions:      rec.InteractionPatterns.FollowUpQuestions,
		},
	}, nil
}

func summarizeRatings(ratings []float64) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	dist := make(map[float64]float64, len(ratings))
	for _, r := range ratings {
		dist[r]++
	}
	for k := range dist {
		dist[k] /= float64(len(ratings))
	}
	return RatingSummary{
		Average:      mean(ratings),
		Count:        len(ratings),
		Distribution: dist,
	}
}

func summarizeCorrections(corrections []Correction) CorrectionSummary {
	summary := CorrectionSummary{Count: len(corrections)}
	if len(corrections) == 0 {
		return summary
	}
	summary.Categories = make(map[string]int)
	for _, c := range corrections {
		category := c.Category
		if category == "" {
			category = "general"
		}
		summary.Categories[category]++
	}
	return summary
}

// SystemMetricsCollector summarizes latency, throughput, resource usage,
// reliability and external dependency health. It is stateless and safe for
// concurrent use.
type SystemMetricsCollector struct{}

// NewSystemMetricsCollector creates a system metrics collector.
func NewSystemMetricsCollector() *SystemMetricsCollector {
	return &SystemMetricsCollector{}
}

// Collect summarizes the system-facing signals in rec.
func (c *SystemMetricsCollector) Collect(rec InteractionRecord) (SystemMetrics, error) {
	return SystemMetrics{
		Performance:  summarizePerformance(rec.ResponseTimes, rec.TimePeriod),
		Resources:    summarizeResources(rec.ResourceUsage),
		Reliability:  summarizeReliability(rec.ErrorLogs, rec.TotalInteractions),
		Dependencies: summarizeDependencies(rec.APICalls),
	}, nil
}

func summarizePerformance(responseTimes []float64, period float64) PerformanceSummary {
	if len(responseTimes) == 0 {
		return PerformanceSummary{}
	}
	if period <= 0 {
		period = 1
	}
	min, max := minMax(responseTimes)
	return PerformanceSummary{
		AvgResponseTime: mean(responseTimes),
		MaxResponseTime: max,
		MinResponseTime: min,
		P95ResponseTime: percentile(responseTimes, 95),
		Throughput:      float64(len(responseTimes)) / period,
	}
}

func summarizeResources(usage ResourceUsage) ResourceSummary {
	return ResourceSummary{
		AvgCPUUsage:    usage.AvgCPU,
		MaxMemoryUsage: usage.MaxMemory,
		AvgMemoryUsage: usage.AvgMemory,
		DiskIO:         usage.DiskIO,
		NetworkIO:      usage.NetworkIO,
	}
}

func summarizeReliability(errorLogs []ErrorEntry, totalInteractions int) ReliabilitySummary {
	if totalInteractions <= 0 {
		totalInteractions = 1
	}
	summary := ReliabilitySummary{
		ErrorCount: len(errorLogs),
		ErrorRate:  float64(len(errorLogs)) / float64(totalInteractions),
	}
	if len(errorLogs) > 0 {
		summary.ErrorCategories = make(map[string]int)
		for _, e := range errorLogs {
			errType := e.Type
			if errType == "" {
				errType = "unknown"
			}
			summary.ErrorCategories[errType]++
		}
	}
	return summary
}

func summarizeDependencies(calls []APICall) map[string]ServiceSummary {
	if len(calls) == 0 {
		return nil
	}
	deps := make(map[string]ServiceSummary)
	latencies := make(map[string][]float64)
	for _, call := range calls {
		s := deps[call.Service]
		s.Count++
		if call.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		deps[call.Service] = s
		latencies[call.Service] = append(latencies[call.Service], call.Latency)
	}
	for service, s := range deps {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.Count)
		s.AvgLatency = mean(latencies[service])
		deps[service] = s
	}
	return deps
}

// Collect runs both collectors against rec and combines their output into a
// timestamped snapshot. The collectors run concurrently; custom collectors
// that hit external metric backends overlap their round trips.
func Collect(user UserCollector, metrics MetricsCollector, rec InteractionRecord) (Snapshot, error) {
	var (
		fb UserFeedback
		sm SystemMetrics
		g  errgroup.Group
	)
	g.Go(func() error {
		var err error
		fb, err = user.Collect(rec)
		return err
	})
	g.Go(func() error {
		var err error
		sm, err = metrics.Collect(rec)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Snapshot{UserFeedback: fb, SystemMetrics: sm, Timestamp: ts}, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// percentile computes the p-th percentile with linear interpolation between
// the two nearest ranks, matching numpy's default method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := float64(len(sorted)-1) * p / 100
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
