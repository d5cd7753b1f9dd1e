package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/deepagent/selfloop-go/pkg/agent"
	"github.com/deepagent/selfloop-go/pkg/feedback"
	"github.com/deepagent/selfloop-go/pkg/improvement"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
	"github.com/deepagent/selfloop-go/pkg/storage"
)

// RecordSource supplies the interaction records the background loop runs on.
type RecordSource interface {
	// Next returns the telemetry for the window since the previous call.
	Next(ctx context.Context) (feedback.InteractionRecord, error)
}

// RecordSourceFunc adapts a function to the RecordSource interface.
type RecordSourceFunc func(ctx context.Context) (feedback.InteractionRecord, error)

// Next calls f.
func (f RecordSourceFunc) Next(ctx context.Context) (feedback.InteractionRecord, error) {
	return f(ctx)
}

// Option configures a Manager at construction time.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type Option func(*managerOptions)

type managerOptions struct {
	logger         *zap.Logger
	model          *agent.Model
	store          storage.CycleStore
	source         RecordSource
	userCollector  feedback.UserCollector
	sysCollector   feedback.MetricsCollector
	evaluator      feedback.Evaluator
	trigger        feedback.Trigger
	selfEvaluator  improvement.SelfEvaluator
	modifier       improvement.Modifier
	reflector      improvement.Reflector
	metaAbstracter metalearning.Abstracter
	metaTransferer metalearning.Transferer
	metaAdapter    metalearning.Adapter
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
//
// Example:
//
//	manager, _ := core.NewManager(config, core.WithLogger(logger))
func WithLogger(logger *zap.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithModel sets the managed agent model. When omitted, the manager creates
// one from the config's agent name and initial behavior.
func WithModel(model *agent.Model) Option {
	return func(o *managerOptions) {
		o.model = model
	}
}

// WithStore sets a durable cycle store, overriding any store the config's
// Storage section would build. The manager takes ownership and closes it on
// Close.
func WithStore(store storage.CycleStore) Option {
	return func(o *managerOptions) {
		o.store = store
	}
}

// WithRecordSource sets the telemetry source for automatic cycles. Required
// when auto-update is enabled.
//
// Example:
//
//	manager, _ := core.NewManager(config,
//	    core.WithRecordSource(core.RecordSourceFunc(pollTelemetry)),
//	)
func WithRecordSource(source RecordSource) Option {
	return func(o *managerOptions) {
		o.source = source
	}
}

// WithUserCollector replaces the default user feedback collector.
func WithUserCollector(c feedback.UserCollector) Option {
	return func(o *managerOptions) {
		o.userCollector = c
	}
}

// WithMetricsCollector replaces the default system metrics collector.
func WithMetricsCollector(c feedback.MetricsCollector) Option {
	return func(o *managerOptions) {
		o.sysCollector = c
	}
}

// WithEvaluator replaces the default performance evaluator.
func WithEvaluator(e feedback.Evaluator) Option {
	return func(o *managerOptions) {
		o.evaluator = e
	}
}

// WithTrigger replaces the default threshold trigger.
func WithTrigger(t feedback.Trigger) Option {
	return func(o *managerOptions) {
		o.trigger = t
	}
}

// WithSelfEvaluator replaces the default self-evaluator.
func WithSelfEvaluator(e improvement.SelfEvaluator) Option {
	return func(o *managerOptions) {
		o.selfEvaluator = e
	}
}

// WithModifier replaces the default behavior modifier.
func WithModifier(m improvement.Modifier) Option {
	return func(o *managerOptions) {
		o.modifier = m
	}
}

// WithReflector replaces the default reflector.
func WithReflector(r improvement.Reflector) Option {
	return func(o *managerOptions) {
		o.reflector = r
	}
}

// WithMetalearning replaces the default metalearning stages; nil stages keep
// their defaults.
func WithMetalearning(a metalearning.Abstracter, t metalearning.Transferer, ad metalearning.Adapter) Option {
	return func(o *managerOptions) {
		o.metaAbstracter = a
		o.metaTransferer = t
		o.metaAdapter = ad
	}
}

func applyOptions(opts []Option) *managerOptions {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return options
}
