// Package agent holds the mutable state of a managed agent: its behavior
// parameters and its accumulated knowledge store.
package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/deepagent/selfloop-go/pkg/llm"
)

// Behavior is the set of tunable behavior parameters, each in [0, 1].
// Well-known keys include "verbosity", "empathy", "thoroughness",
// "precision" and "conciseness"; unknown keys pass through untouched.
type Behavior map[string]float64

// Clone returns an independent copy of b. A nil receiver yields an empty,
// non-nil Behavior so callers can write to the result.
func (b Behavior) Clone() Behavior {
	out := make(Behavior, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Get returns the value for param, or def when the parameter is unset.
func (b Behavior) Get(param string, def float64) float64 {
	if v, ok := b[param]; ok {
		return v
	}
	return def
}

// Model is one managed agent. Its behavior and knowledge store mutate across
// improvement cycles; all accessors are safe for concurrent use.
type Model struct {
	mu        sync.RWMutex
	id        string
	name      string
	behavior  Behavior
	knowledge map[string]any
	invoker   llm.Provider
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithName sets a human-readable agent name.
func WithName(name string) Option {
	return func(m *Model) { m.name = name }
}

// WithBehavior seeds the initial behavior parameters.
func WithBehavior(b Behavior) Option {
	return func(m *Model) { m.behavior = b.Clone() }
}

// WithInvoker attaches the LLM provider the agent responds with. The
// improvement loop never calls it; it travels with the model so application
// code can serve requests through the same handle it hands to the loop.
func WithInvoker(p llm.Provider) Option {
	return func(m *Model) { m.invoker = p }
}

// New creates a Model with a random ID and an empty knowledge store.
//
// Example:
//
//	model := agent.New(
//	    agent.WithName("support-bot"),
//	    agent.WithBehavior(agent.Behavior{"verbosity": 0.5}),
//	)
func New(opts ...Option) *Model {
	m := &Model{
		id:       uuid.NewString(),
		behavior: Behavior{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the agent's unique identifier.
func (m *Model) ID() string { return m.id }

// Name returns the agent's name, which may be empty.
func (m *Model) Name() string { return m.name }

// Invoker returns the attached LLM provider, or nil when none is set.
func (m *Model) Invoker() llm.Provider { return m.invoker }

// Behavior returns a copy of the current behavior parameters.
func (m *Model) Behavior() Behavior {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.behavior.Clone()
}

// SetBehavior replaces the behavior parameters with a copy of b.
func (m *Model) SetBehavior(b Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behavior = b.Clone()
}

// KnowledgeStore returns the agent's knowledge store, creating it on first
// use. The returned map is the live store, not a copy; callers that mutate it
// concurrently must serialize access themselves, which the improvement loop
// does by holding its own lock across each cycle.
func (m *Model) KnowledgeStore() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.knowledge == nil {
		m.knowledge = make(map[string]any)
	}
	return m.knowledge
}
