package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopExecute(ctx context.Context, in ExecutionInput, ec *ExecutionContext) (any, error) {
	return nil, nil
}

func TestRegistryLookup(t *testing.T) {
	registry, err := NewNodeRegistry(
		NodeDefinition{ID: "b_node", Name: "B", Kind: NodeKind_Action, Execute: noopExecute},
		NodeDefinition{ID: "a_node", Name: "A", Kind: NodeKind_Action, Execute: noopExecute},
	)
	require.NoError(t, err)

	definition, ok := registry.Get("a_node")
	assert.True(t, ok)
	assert.Equal(t, "A", definition.Name)

	_, ok = registry.Get("c_node")
	assert.False(t, ok)
}

func TestRegistryAllIsIDOrdered(t *testing.T) {
	registry, err := NewNodeRegistry(
		NodeDefinition{ID: "b_node", Execute: noopExecute},
		NodeDefinition{ID: "a_node", Execute: noopExecute},
	)
	require.NoError(t, err)

	definitions := registry.All()
	require.Len(t, definitions, 2)
	assert.Equal(t, "a_node", definitions[0].ID)
	assert.Equal(t, "b_node", definitions[1].ID)
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	_, err := NewNodeRegistry(
		NodeDefinition{ID: "a_node", Execute: noopExecute},
		NodeDefinition{ID: "a_node", Execute: noopExecute},
	)
	assert.ErrorContains(t, err, "duplicate node id a_node")
}

func TestRegistryRejectsMissingExecute(t *testing.T) {
	_, err := NewNodeRegistry(
		NodeDefinition{ID: "webhook_trigger", Kind: NodeKind_Trigger},
	)
	assert.ErrorContains(t, err, "no execute function")
}

func TestRegistryRejectsMissingID(t *testing.T) {
	_, err := NewNodeRegistry(
		NodeDefinition{Name: "Nameless", Execute: noopExecute},
	)
	assert.Error(t, err)
}

func TestBindConfig(t *testing.T) {
	type params struct {
		ChannelID string `json:"channel_id"`
		Limit     int    `json:"limit,omitempty"`
	}

	in := ExecutionInput{
		Config: NodeConfig{"channel_id": "C123", "limit": 50},
	}

	p := params{}
	require.NoError(t, in.BindConfig(&p))
	assert.Equal(t, "C123", p.ChannelID)
	assert.Equal(t, 50, p.Limit)
}

func TestBindConfigIgnoresUnknownKeys(t *testing.T) {
	type params struct {
		Text string `json:"text"`
	}

	in := ExecutionInput{
		Config: NodeConfig{"text": "hi", "color": "red"},
	}

	p := params{}
	require.NoError(t, in.BindConfig(&p))
	assert.Equal(t, "hi", p.Text)
}
