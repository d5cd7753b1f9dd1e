// Package metalearning packages improvement insights into transferable
// knowledge envelopes and folds them back into an agent's knowledge store.
//
// The pipeline has three stages: an Abstracter wraps raw knowledge with
// abstraction metadata, a Transferer rewraps it for cross-model transfer, and
// an Adapter merges the transferable content into a target model.
package metalearning

// Envelope metadata values stamped by the simple pipeline stages.
const (
	abstractionType = "simple"
	transferType    = "simple"
	envelopeVersion = "1.0"
)

// AbstractionMetadata describes how a piece of knowledge was abstracted.
type AbstractionMetadata struct {
	AbstractionType string `json:"abstraction_type"`
	Version         string `json:"version"`
}

// AbstractedKnowledge is raw knowledge wrapped with abstraction metadata.
type AbstractedKnowledge struct {
	Metadata AbstractionMetadata `json:"metadata"`
	Content  map[string]any      `json:"content"`
}

// TransferMetadata describes how abstracted knowledge was prepared for
// transfer, preserving the original abstraction metadata.
type TransferMetadata struct {
	TransferType        string              `json:"transfer_type"`
	Version             string              `json:"version"`
	OriginalAbstraction AbstractionMetadata `json:"original_abstraction"`
}

// TransferableKnowledge is knowledge ready for adaptation into a model.
type TransferableKnowledge struct {
	Metadata TransferMetadata `json:"metadata"`
	Content  map[string]any   `json:"transferable_content"`
}

// KnowledgeCarrier is any model that exposes a mutable knowledge store. The
// store must be created on first access so adaptation never needs a nil
// check.
type KnowledgeCarrier interface {
	KnowledgeStore() map[string]any
}

// Abstracter wraps raw knowledge into an abstracted representation.
type Abstracter interface {
	Abstract(knowledge map[string]any) AbstractedKnowledge
}

// Transferer rewraps abstracted knowledge for cross-model transfer.
type Transferer interface {
	Transfer(abstracted AbstractedKnowledge) TransferableKnowledge
}

// Adapter merges transferable knowledge into a target model.
type Adapter interface {
	Adapt(model KnowledgeCarrier, knowledge TransferableKnowledge)
}

// SimpleAbstracter wraps knowledge without transforming its content. All
// simple pipeline stages are stateless and safe for concurrent use.
type SimpleAbstracter struct{}

// NewSimpleAbstracter creates a pass-through abstracter.
func NewSimpleAbstracter() *SimpleAbstracter {
	return &SimpleAbstracter{}
}

// Abstract wraps knowledge with simple abstraction metadata. The content is
// carried by reference, not copied.
func (a *SimpleAbstracter) Abstract(knowledge map[string]any) AbstractedKnowledge {
	return AbstractedKnowledge{
		Metadata: AbstractionMetadata{
			AbstractionType: abstractionType,
			Version:         envelopeVersion,
		},
		Content: knowledge,
	}
}

// SimpleTransferer rewraps abstracted knowledge, preserving its abstraction
// metadata under the transfer metadata.
type SimpleTransferer struct{}

// NewSimpleTransferer creates a pass-through transferer.
func NewSimpleTransferer() *SimpleTransferer {
	return &SimpleTransferer{}
}

// Transfer rewraps abstracted for adaptation into an agent model.
func (t *SimpleTransferer) Transfer(abstracted AbstractedKnowledge) TransferableKnowledge {
	return TransferableKnowledge{
		Metadata: TransferMetadata{
			TransferType:        transferType,
			Version:             envelopeVersion,
			OriginalAbstraction: abstracted.Metadata,
		},
		Content: abstracted.Content,
	}
}

// AdaptedKnowledgeKey is the knowledge-store key the adapter writes under.
const AdaptedKnowledgeKey = "adapted_knowledge"

// SimpleAdapter stores transferable content in the model's knowledge store
// under AdaptedKnowledgeKey, replacing whatever the previous cycle put there.
type SimpleAdapter struct{}

// NewSimpleAdapter creates an adapter.
func NewSimpleAdapter() *SimpleAdapter {
	return &SimpleAdapter{}
}

// Adapt writes knowledge's content into model's knowledge store. Empty
// knowledge still stores an empty map, never nil.
func (a *SimpleAdapter) Adapt(model KnowledgeCarrier, knowledge TransferableKnowledge) {
	content := knowledge.Content
	if content == nil {
		content = map[string]any{}
	}
	model.KnowledgeStore()[AdaptedKnowledgeKey] = content
}

// Pipeline runs the three stages in order against one model.
type Pipeline struct {
	abstracter Abstracter
	transferer Transferer
	adapter    Adapter
}

// NewPipeline assembles a metalearning pipeline; nil stages default to the
// simple implementations.
func NewPipeline(abstracter Abstracter, transferer Transferer, adapter Adapter) *Pipeline {
	if abstracter == nil {
		abstracter = NewSimpleAbstracter()
	}
	if transferer == nil {
		transferer = NewSimpleTransferer()
	}
	if adapter == nil {
		adapter = NewSimpleAdapter()
	}
	return &Pipeline{abstracter: abstracter, transferer: transferer, adapter: adapter}
}

// Apply abstracts knowledge, prepares it for transfer, and adapts it into
// model. It returns the transferable form for callers that persist it.
func (p *Pipeline) Apply(model KnowledgeCarrier, knowledge map[string]any) TransferableKnowledge {
	transferable := p.transferer.Transfer(p.abstracter.Abstract(knowledge))
	p.adapter.Adapt(model, transferable)
	return transferable
}
