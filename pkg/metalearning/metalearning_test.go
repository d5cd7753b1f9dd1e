package metalearning_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/agent"
	"github.com/deepagent/selfloop-go/pkg/metalearning"
)

func TestAbstractWrapsContent(t *testing.T) {
	abstracter := metalearning.NewSimpleAbstracter()

	knowledge := map[string]any{"recommendations": []string{"be concise"}}
	abstracted := abstracter.Abstract(knowledge)

	assert.Equal(t, "simple", abstracted.Metadata.AbstractionType)
	assert.Equal(t, "1.0", abstracted.Metadata.Version)
	assert.Equal(t, knowledge, abstracted.Content)
}

func TestTransferPreservesAbstractionMetadata(t *testing.T) {
	abstracter := metalearning.NewSimpleAbstracter()
	transferer := metalearning.NewSimpleTransferer()

	abstracted := abstracter.Abstract(map[string]any{"k": "v"})
	transferable := transferer.Transfer(abstracted)

	assert.Equal(t, "simple", transferable.Metadata.TransferType)
	assert.Equal(t, abstracted.Metadata, transferable.Metadata.OriginalAbstraction)
	assert.Equal(t, abstracted.Content, transferable.Content)
}

func TestAdaptWritesKnowledgeStore(t *testing.T) {
	adapter := metalearning.NewSimpleAdapter()
	model := agent.New()

	adapter.Adapt(model, metalearning.TransferableKnowledge{
		Content: map[string]any{"insight": "users prefer brevity"},
	})

	stored, ok := model.KnowledgeStore()[metalearning.AdaptedKnowledgeKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "users prefer brevity", stored["insight"])
}

func TestAdaptEmptyContentStoresEmptyMap(t *testing.T) {
	adapter := metalearning.NewSimpleAdapter()
	model := agent.New()

	adapter.Adapt(model, metalearning.TransferableKnowledge{})

	stored, ok := model.KnowledgeStore()[metalearning.AdaptedKnowledgeKey].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, stored)
	assert.Empty(t, stored)
}

func TestAdaptReplacesPreviousCycle(t *testing.T) {
	adapter := metalearning.NewSimpleAdapter()
	model := agent.New()

	adapter.Adapt(model, metalearning.TransferableKnowledge{Content: map[string]any{"n": 1}})
	adapter.Adapt(model, metalearning.TransferableKnowledge{Content: map[string]any{"n": 2}})

	stored := model.KnowledgeStore()[metalearning.AdaptedKnowledgeKey].(map[string]any)
	assert.Equal(t, 2, stored["n"])
	assert.Len(t, model.KnowledgeStore(), 1)
}

func TestPipelineRoundTrip(t *testing.T) {
	pipeline := metalearning.NewPipeline(nil, nil, nil)
	model := agent.New()

	knowledge := map[string]any{"effective_strategies": []string{"response_time"}}
	transferable := pipeline.Apply(model, knowledge)

	// Content survives both envelope stages unchanged.
	assert.Equal(t, knowledge, transferable.Content)
	stored := model.KnowledgeStore()[metalearning.AdaptedKnowledgeKey].(map[string]any)
	assert.Equal(t, knowledge, stored)
}
