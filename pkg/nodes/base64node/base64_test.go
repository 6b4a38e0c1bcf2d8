package base64node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func nodeByID(t *testing.T, id string) domain.NodeDefinition {
	t.Helper()
	for _, node := range Nodes() {
		if node.ID == id {
			return node
		}
	}
	t.Fatalf("node %s not declared", id)
	return domain.NodeDefinition{}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encode := nodeByID(t, "base64_encode")
	decode := nodeByID(t, "base64_decode")

	out, err := encode.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"text": "nodeloom"},
	}, nil)
	require.NoError(t, err)

	encoded := out.(map[string]any)["encoded"].(string)
	assert.Equal(t, "bm9kZWxvb20=", encoded)

	back, err := decode.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"encoded": encoded},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "nodeloom", back.(map[string]any)["text"])
}

func TestURLSafeAlphabet(t *testing.T) {
	encode := nodeByID(t, "base64_encode")

	out, err := encode.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"text": "\xfb\xff\xbf", "url_safe": true},
	}, nil)
	require.NoError(t, err)

	encoded := out.(map[string]any)["encoded"].(string)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	decode := nodeByID(t, "base64_decode")

	_, err := decode.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"encoded": "not base64!!"},
	}, nil)
	assert.Error(t, err)
}
