package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/deepagent/selfloop-go/pkg/core"
	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
	"github.com/deepagent/selfloop-go/pkg/storage"
)

// memStore is an in-memory CycleStore for tests.
type memStore struct {
	mu      sync.Mutex
	records []*storage.CycleRecord
	closed  bool
}

func (s *memStore) SaveCycle(_ context.Context, rec *storage.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) RecentCycles(_ context.Context, limit int) ([]*storage.CycleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.CycleRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memStore) CountCycles(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *memStore) PruneCycles(_ context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) <= keep {
		return 0, nil
	}
	deleted := int64(len(s.records) - keep)
	s.records = s.records[len(s.records)-keep:]
	return deleted, nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func newTestManager(t *testing.T, config *core.Config, opts ...core.Option) *core.Manager {
	t.Helper()
	if config == nil {
		config = &core.Config{AgentName: "test-agent"}
	}
	manager, err := core.NewManager(config, opts...)
	require.NoError(t, err)
	return manager
}

func TestManagerLifecycle(t *testing.T) {
	manager := newTestManager(t, nil)

	require.NoError(t, manager.Start())
	assert.ErrorIs(t, manager.Start(), core.ErrAlreadyRunning)

	metrics := manager.GetMetrics()
	assert.True(t, metrics.Status.Running)
	require.NotNil(t, metrics.Status.LastUpdateTime)

	require.NoError(t, manager.Stop())
	assert.ErrorIs(t, manager.Stop(), core.ErrNotRunning)
	assert.False(t, manager.GetMetrics().Status.Running)
}

func TestManagerRequiresRunning(t *testing.T) {
	manager := newTestManager(t, nil)
	ctx := context.Background()

	_, err := manager.Step(ctx, strugglingRecord())
	assert.ErrorIs(t, err, core.ErrNotRunning)

	_, err = manager.CollectFeedback(strugglingRecord())
	assert.ErrorIs(t, err, core.ErrNotRunning)

	_, err = manager.Improve(nil)
	assert.ErrorIs(t, err, core.ErrNotRunning)

	_, err = manager.Adapt()
	assert.ErrorIs(t, err, core.ErrNotRunning)
}

func TestManagerStepRecordsCycle(t *testing.T) {
	store := &memStore{}
	manager := newTestManager(t, nil, core.WithStore(store))
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	result, err := manager.Step(context.Background(), strugglingRecord())
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.NotZero(t, result.ID)

	metrics := manager.GetMetrics()
	assert.Equal(t, 1, metrics.HistorySizes.Cycle)
	require.NotNil(t, metrics.LatestCycle)
	assert.Equal(t, result.ID, metrics.LatestCycle.ID)

	// The cycle was persisted with the same identifier.
	require.Len(t, store.records, 1)
	assert.Equal(t, result.ID, store.records[0].ID)
	assert.Equal(t, manager.Model().ID(), store.records[0].AgentID)
}

func TestManagerStepSkipsHealthyTelemetry(t *testing.T) {
	manager := newTestManager(t, nil)
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	result, err := manager.Step(context.Background(), healthyRecord())
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, core.ReasonThresholdNotReached, result.Reason)
	assert.Equal(t, 1, manager.GetMetrics().HistorySizes.Cycle)
}

func TestManagerImproveFallsBackToLatestFeedback(t *testing.T) {
	manager := newTestManager(t, nil)
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	_, err := manager.Improve(nil)
	assert.ErrorIs(t, err, core.ErrNoFeedback)

	_, err = manager.CollectFeedback(strugglingRecord())
	require.NoError(t, err)

	record, err := manager.Improve(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Modifications)

	sizes := manager.GetMetrics().HistorySizes
	assert.Equal(t, 1, sizes.Feedback)
	assert.Equal(t, 1, sizes.Improvement)
}

func TestManagerAdaptNeedsImprovementHistory(t *testing.T) {
	manager := newTestManager(t, nil)
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	_, err := manager.Adapt()
	assert.ErrorIs(t, err, core.ErrNoImprovement)

	rec := strugglingRecord()
	_, err = manager.Improve(&rec)
	require.NoError(t, err)

	result, err := manager.Adapt()
	require.NoError(t, err)
	assert.NotEmpty(t, result.Insights.Recommendations)
	assert.Contains(t, manager.Model().KnowledgeStore(), metalearning.AdaptedKnowledgeKey)
	assert.Equal(t, 1, manager.GetMetrics().HistorySizes.Metalearning)
}

func TestManagerHistoryCap(t *testing.T) {
	manager := newTestManager(t, &core.Config{AgentName: "capped", HistoryLimit: 2})
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	for i := 0; i < 3; i++ {
		_, err := manager.CollectFeedback(healthyRecord())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, manager.GetMetrics().HistorySizes.Feedback)
}

func TestManagerResetHistory(t *testing.T) {
	manager := newTestManager(t, nil)
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()

	_, err := manager.Step(context.Background(), strugglingRecord())
	require.NoError(t, err)
	_, err = manager.CollectFeedback(strugglingRecord())
	require.NoError(t, err)

	manager.ResetHistory()

	sizes := manager.GetMetrics().HistorySizes
	assert.Zero(t, sizes.Feedback)
	assert.Zero(t, sizes.Improvement)
	assert.Zero(t, sizes.Metalearning)
	assert.Zero(t, sizes.Cycle)
}

func TestManagerAutoUpdate(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := core.RecordSourceFunc(func(context.Context) (feedback.InteractionRecord, error) {
		return strugglingRecord(), nil
	})
	config := &core.Config{
		AgentName:      "auto-agent",
		AutoUpdate:     true,
		UpdateInterval: 10 * time.Millisecond,
	}
	manager := newTestManager(t, config, core.WithRecordSource(source))

	require.NoError(t, manager.Start())
	assert.Eventually(t, func() bool {
		return manager.GetMetrics().HistorySizes.Cycle >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, manager.Stop())

	// No cycle may run after Stop returns.
	settled := manager.GetMetrics().HistorySizes.Cycle
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, manager.GetMetrics().HistorySizes.Cycle)
}

func TestNewManagerAutoUpdateRequiresSource(t *testing.T) {
	_, err := core.NewManager(&core.Config{AutoUpdate: true})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestManagerConfigureRequiresIdle(t *testing.T) {
	manager := newTestManager(t, nil)
	require.NoError(t, manager.Start())

	err := manager.Configure(&core.Config{AgentName: "reconfigured"})
	assert.ErrorIs(t, err, core.ErrAlreadyRunning)

	require.NoError(t, manager.Stop())
	require.NoError(t, manager.Configure(&core.Config{
		AgentName: "reconfigured",
		Trigger:   &core.TriggerConfig{OverallScoreMin: 0.9},
	}))

	// The raised floor now applies to healthy telemetry.
	require.NoError(t, manager.Start())
	defer func() { require.NoError(t, manager.Stop()) }()
	result, err := manager.Step(context.Background(), healthyRecord())
	require.NoError(t, err)
	assert.True(t, result.Updated)
}

func TestManagerCloseReleasesStore(t *testing.T) {
	store := &memStore{}
	manager := newTestManager(t, nil, core.WithStore(store))
	require.NoError(t, manager.Start())

	require.NoError(t, manager.Close())
	assert.True(t, store.closed)
	assert.False(t, manager.GetMetrics().Status.Running)
}
