package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deepagent/selfloop-go/pkg/agent"
	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
	"github.com/deepagent/selfloop-go/pkg/llm"
	"github.com/deepagent/selfloop-go/pkg/llm/ollama"
	"github.com/deepagent/selfloop-go/pkg/llm/openrouter"
	"github.com/deepagent/selfloop-go/pkg/storage"
	"github.com/deepagent/selfloop-go/pkg/storage/mysql"
	"github.com/deepagent/selfloop-go/pkg/storage/postgres"
	"github.com/deepagent/selfloop-go/pkg/storage/sqlite"
)

// Manager owns the self-improvement lifecycle for one agent.
//
// It runs cycles on demand through Step, Improve and Adapt, and — when
// auto-update is enabled — from a background loop that polls the configured
// RecordSource once per interval (or per cron schedule). A single mutex
// serializes the foreground calls against the background loop; all four
// history lists are capped by the configured history limit.
//
// Example:
//
//	manager, err := core.NewManager(config,
//	    core.WithLogger(logger),
//	    core.WithRecordSource(source),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	if err := manager.Start(); err != nil {
//	    log.Fatal(err)
//	}
type Manager struct {
	mu sync.Mutex

	config   *Config
	options  *managerOptions
	logger   *zap.Logger
	integ    *Integration
	model    *agent.Model
	store    storage.CycleStore
	source   RecordSource
	node     *snowflake.Node
	schedule cron.Schedule

	historyLimit int

	running        bool
	lastUpdateTime *time.Time
	stopCh         chan struct{}
	doneCh         chan struct{}

	feedbackHistory    []FeedbackEntry
	improvementHistory []ImprovementRecord
	adaptHistory       []AdaptResult
	cycleHistory       []UpdateResult
}

// NewManager creates a manager from the config, building any component not
// supplied through options: collectors, evaluator, trigger, self-evaluator,
// modifier, reflector, metalearning stages, the agent model (with its LLM
// provider, when configured) and the cycle store.
func NewManager(config *Config, opts ...Option) (*Manager, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts)
	if config.AutoUpdate && options.source == nil {
		return nil, NewLoopError("NewManager",
			fmt.Errorf("%w: auto-update enabled without a record source", ErrInvalidConfig))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewLoopError("NewManager", err)
	}

	model := options.model
	if model == nil {
		model, err = buildModel(config, options.logger)
		if err != nil {
			return nil, NewLoopError("NewManager", err)
		}
	}

	store := options.store
	if store == nil && config.Storage != nil {
		store, err = buildCycleStore(config.Storage)
		if err != nil {
			return nil, NewLoopError("NewManager", err)
		}
	}

	var schedule cron.Schedule
	if config.UpdateSchedule != "" {
		schedule, err = cron.ParseStandard(config.UpdateSchedule)
		if err != nil {
			return nil, NewLoopError("NewManager", err)
		}
	}

	return &Manager{
		config:       config,
		options:      options,
		logger:       options.logger,
		integ:        newIntegration(config, options),
		model:        model,
		store:        store,
		source:       options.source,
		node:         node,
		schedule:     schedule,
		historyLimit: config.historyLimit(),
	}, nil
}

// buildModel creates the managed agent from the config's identity, behavior
// and LLM sections.
func buildModel(config *Config, logger *zap.Logger) (*agent.Model, error) {
	name := config.AgentName
	if name == "" {
		name = "agent"
	}
	agentOpts := []agent.Option{agent.WithName(name)}
	if config.InitialBehavior != nil {
		agentOpts = append(agentOpts, agent.WithBehavior(agent.Behavior(config.InitialBehavior)))
	}
	if config.LLM != nil {
		invoker, err := buildLLMProvider(config.LLM, logger)
		if err != nil {
			return nil, err
		}
		agentOpts = append(agentOpts, agent.WithInvoker(invoker))
	}
	return agent.New(agentOpts...), nil
}

// buildLLMProvider creates the configured provider, chaining a fallback
// provider after it when one is named.
func buildLLMProvider(cfg *LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	primary, err := llmProviderFor(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" {
		return primary, nil
	}

	// The fallback runs with provider defaults; model names rarely carry
	// across backends.
	secondary, err := llmProviderFor(cfg.Fallback, &LLMConfig{})
	if err != nil {
		_ = primary.Close()
		return nil, err
	}
	return llm.NewChain([]llm.Provider{primary, secondary}, logger), nil
}

func llmProviderFor(name string, cfg *LLMConfig) (llm.Provider, error) {
	switch name {
	case "openrouter":
		return openrouter.NewClient(&openrouter.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollama.NewClient(&ollama.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, name)
	}
}

// buildCycleStore creates the configured storage backend.
func buildCycleStore(cfg *StorageConfig) (storage.CycleStore, error) {
	switch cfg.Provider {
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "./selfloop.db"
		}
		return sqlite.NewClient(&sqlite.Config{DBPath: path, Table: cfg.Table})
	case "postgres":
		return postgres.NewClient(&postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
	case "mysql":
		return mysql.NewClient(&mysql.Config{DSN: cfg.DSN, Table: cfg.Table})
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// Model returns the managed agent.
func (m *Manager) Model() *agent.Model {
	return m.model
}

// Store returns the cycle store, or nil when persistence is disabled.
func (m *Manager) Store() storage.CycleStore {
	return m.store
}

// Start transitions the manager to running and, when auto-update is
// enabled, spawns the background update loop. It fails with
// ErrAlreadyRunning if the manager is already started.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return NewLoopError("Start", ErrAlreadyRunning)
	}
	m.running = true
	now := time.Now()
	m.lastUpdateTime = &now

	if m.config.AutoUpdate {
		m.stopCh = make(chan struct{})
		m.doneCh = make(chan struct{})
		go m.loop(m.stopCh, m.doneCh)
	}

	m.logger.Info("manager started",
		zap.String("agent_id", m.model.ID()),
		zap.Bool("auto_update", m.config.AutoUpdate),
		zap.Duration("update_interval", m.config.updateInterval()))
	return nil
}

// Stop signals the background loop to exit, waits for it, and transitions
// the manager to idle. It fails with ErrNotRunning if the manager is idle,
// and guarantees that no cycle executes concurrently with a later Start.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return NewLoopError("Stop", ErrNotRunning)
	}
	m.running = false
	stop, done := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	// Release the mutex before joining: a mid-tick loop iteration may be
	// waiting on it inside Step.
	if stop != nil {
		close(stop)
		<-done
	}

	m.logger.Info("manager stopped", zap.String("agent_id", m.model.ID()))
	return nil
}

// Close stops the manager if it is running and releases the cycle store.
func (m *Manager) Close() error {
	if err := m.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Step runs one complete cycle over the record, stamps it with a snowflake
// identifier, appends it to the cycle history and persists it when a store
// is configured. It fails with ErrNotRunning if the manager is idle.
func (m *Manager) Step(ctx context.Context, rec feedback.InteractionRecord) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return UpdateResult{}, NewLoopError("Step", ErrNotRunning)
	}

	result, err := m.integ.RunCompleteCycle(m.model, rec)
	if err != nil {
		return UpdateResult{}, err
	}
	result.ID = m.node.Generate().Int64()

	now := result.Timestamp
	m.lastUpdateTime = &now
	m.cycleHistory = appendCapped(m.cycleHistory, result, m.historyLimit)
	m.persist(ctx, result)
	return result, nil
}

// CollectFeedback collects a snapshot from the record and appends it,
// together with the record, to the feedback history. It fails with
// ErrNotRunning if the manager is idle.
func (m *Manager) CollectFeedback(rec feedback.InteractionRecord) (feedback.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return feedback.Snapshot{}, NewLoopError("CollectFeedback", ErrNotRunning)
	}

	snap, err := m.integ.CollectFeedback(rec)
	if err != nil {
		return feedback.Snapshot{}, err
	}
	m.feedbackHistory = appendCapped(m.feedbackHistory, FeedbackEntry{
		Record:    rec,
		Snapshot:  snap,
		Timestamp: snap.Timestamp,
	}, m.historyLimit)
	return snap, nil
}

// Improve runs one improvement pass over the agent's behavior. When rec is
// nil it falls back to the most recently collected record, failing with
// ErrNoFeedback if none exists.
func (m *Manager) Improve(rec *feedback.InteractionRecord) (ImprovementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return ImprovementRecord{}, NewLoopError("Improve", ErrNotRunning)
	}

	var record feedback.InteractionRecord
	switch {
	case rec != nil:
		record = *rec
	case len(m.feedbackHistory) > 0:
		record = m.feedbackHistory[len(m.feedbackHistory)-1].Record
	default:
		return ImprovementRecord{}, NewLoopError("Improve", ErrNoFeedback)
	}

	modified, impRecord := m.integ.RunImprovementCycle(
		m.model.Behavior(), improvement.SignalsFromRecord(record))
	m.model.SetBehavior(modified)
	m.improvementHistory = appendCapped(m.improvementHistory, impRecord, m.historyLimit)

	m.logger.Debug("improvement pass",
		zap.String("agent_id", m.model.ID()),
		zap.Strings("modifications", impRecord.Modifications))
	return impRecord, nil
}

// Adapt reflects over improvement records and adapts the resulting insights
// into the agent's knowledge store. When no records are passed it reflects
// over the full improvement history, failing with ErrNoImprovement if that
// history is empty.
func (m *Manager) Adapt(records ...ImprovementRecord) (AdaptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return AdaptResult{}, NewLoopError("Adapt", ErrNotRunning)
	}

	batch := records
	if len(batch) == 0 {
		if len(m.improvementHistory) == 0 {
			return AdaptResult{}, NewLoopError("Adapt", ErrNoImprovement)
		}
		batch = m.improvementHistory
	}

	insights := m.integ.RunReflection(batch)
	knowledge := m.integ.RunMetalearningCycle(m.model, insights)

	result := AdaptResult{
		Insights:  insights,
		Knowledge: knowledge,
		Timestamp: time.Now(),
	}
	m.adaptHistory = appendCapped(m.adaptHistory, result, m.historyLimit)
	return result, nil
}

// GetMetrics returns a consistent point-in-time view of lifecycle status,
// history sizes and the latest result of each stage.
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := Metrics{
		Status: Status{
			Running:        m.running,
			AutoUpdate:     m.config.AutoUpdate,
			UpdateInterval: m.config.updateInterval(),
			LastUpdateTime: m.lastUpdateTime,
		},
		HistorySizes: HistorySizes{
			Feedback:     len(m.feedbackHistory),
			Improvement:  len(m.improvementHistory),
			Metalearning: len(m.adaptHistory),
			Cycle:        len(m.cycleHistory),
		},
	}

	if n := len(m.feedbackHistory); n > 0 {
		entry := m.feedbackHistory[n-1]
		metrics.LatestFeedback = &entry
	}
	if n := len(m.improvementHistory); n > 0 {
		entry := m.improvementHistory[n-1]
		metrics.LatestImprovement = &entry
	}
	if n := len(m.adaptHistory); n > 0 {
		entry := m.adaptHistory[n-1]
		metrics.LatestAdapt = &entry
	}
	if n := len(m.cycleHistory); n > 0 {
		entry := m.cycleHistory[n-1]
		metrics.LatestCycle = &entry
	}
	return metrics
}

// ResetHistory clears all four in-memory histories. Persisted cycles are
// not affected.
func (m *Manager) ResetHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.feedbackHistory = nil
	m.improvementHistory = nil
	m.adaptHistory = nil
	m.cycleHistory = nil
}

// Configure replaces the manager's configuration and rebuilds the staged
// components from it (keeping any components that were supplied through
// options). The reflector's history restarts. The manager must be idle.
func (m *Manager) Configure(config *Config) error {
	if config == nil {
		return NewLoopError("Configure", fmt.Errorf("%w: nil config", ErrInvalidConfig))
	}
	if err := config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return NewLoopError("Configure", ErrAlreadyRunning)
	}
	if config.AutoUpdate && m.source == nil {
		return NewLoopError("Configure",
			fmt.Errorf("%w: auto-update enabled without a record source", ErrInvalidConfig))
	}

	var schedule cron.Schedule
	if config.UpdateSchedule != "" {
		parsed, err := cron.ParseStandard(config.UpdateSchedule)
		if err != nil {
			return NewLoopError("Configure", err)
		}
		schedule = parsed
	}

	m.config = config
	m.schedule = schedule
	m.historyLimit = config.historyLimit()
	m.integ = newIntegration(config, m.options)
	return nil
}

// loop is the background update thread: it sleeps until the next tick, runs
// one automatic cycle, and exits when stopCh closes. The config is not
// mutated while a loop is live (Configure requires idle), so reading it
// here without the mutex is safe.
func (m *Manager) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(m.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			m.tick()
			timer.Reset(m.nextDelay())
		}
	}
}

// nextDelay returns the wait before the next automatic cycle: the cron
// schedule when one is configured, the fixed interval otherwise.
func (m *Manager) nextDelay() time.Duration {
	if m.schedule != nil {
		return time.Until(m.schedule.Next(time.Now()))
	}
	return m.config.updateInterval()
}

// tick runs one automatic cycle. Errors are logged and never stop the loop;
// a not-running error means Stop won the race and the loop is about to
// exit.
func (m *Manager) tick() {
	ctx := context.Background()

	rec, err := m.source.Next(ctx)
	if err != nil {
		m.logger.Warn("record source failed", zap.Error(err))
		return
	}
	if _, err := m.Step(ctx, rec); err != nil && !errors.Is(err, ErrNotRunning) {
		m.logger.Warn("automatic cycle failed", zap.Error(err))
	}
}

// persist writes the cycle to the configured store. Persistence failures
// are logged, never returned; the in-memory history already holds the
// result.
func (m *Manager) persist(ctx context.Context, result UpdateResult) {
	if m.store == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		m.logger.Warn("cycle payload marshal failed", zap.Error(err))
		return
	}
	rec := &storage.CycleRecord{
		ID:        result.ID,
		AgentID:   m.model.ID(),
		Updated:   result.Updated,
		Priority:  string(result.Priority),
		Reason:    result.Reason,
		Timestamp: result.Timestamp,
		Payload:   payload,
	}
	if err := m.store.SaveCycle(ctx, rec); err != nil {
		m.logger.Warn("cycle persist failed",
			zap.Error(err), zap.Int64("cycle_id", result.ID))
	}
}

// appendCapped appends an entry and drops the oldest entries beyond the
// limit. A limit of zero or less leaves the history unbounded.
func appendCapped[T any](history []T, entry T, limit int) []T {
	history = append(history, entry)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
