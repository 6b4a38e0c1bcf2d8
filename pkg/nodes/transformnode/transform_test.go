package transformnode

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

func TestExtractPath(t *testing.T) {
	node := nodeByID(t, "transform_extract_path")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"user": map[string]any{"address": map[string]any{"city": "Lisbon"}}},
		Config: domain.NodeConfig{"path": "user.address.city"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, true, result["found"])
	assert.Equal(t, "Lisbon", result["value"])
}

func TestExtractPathMissing(t *testing.T) {
	node := nodeByID(t, "transform_extract_path")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"user": map[string]any{}},
		Config: domain.NodeConfig{"path": "user.address.city"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, false, result["found"])
	assert.Nil(t, result["value"])
}

func TestSetFieldDoesNotMutateInput(t *testing.T) {
	node := nodeByID(t, "transform_set_field")
	input := map[string]any{"name": "report"}

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   input,
		Config: domain.NodeConfig{"field": "status", "value": "done"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "done", result["status"])
	assert.NotContains(t, input, "status")
}

func TestPickFields(t *testing.T) {
	node := nodeByID(t, "transform_pick_fields")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"id": "1", "name": "n", "secret": "s"},
		Config: domain.NodeConfig{"fields": []any{"id", "name", "missing"}},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, map[string]any{"id": "1", "name": "n"}, result)
}

func TestSlugify(t *testing.T) {
	node := nodeByID(t, "transform_slugify")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"text": "Hello, Wörld & Friends!"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "hello-world-friends", result["slug"])
}

func TestXMLToJSON(t *testing.T) {
	node := nodeByID(t, "transform_xml_to_json")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"xml": "<order><id>42</id><status>paid</status></order>"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	order := result["order"].(map[string]any)
	assert.Equal(t, "42", order["id"])
	assert.Equal(t, "paid", order["status"])
}

func TestXMLToJSONInvalid(t *testing.T) {
	node := nodeByID(t, "transform_xml_to_json")

	_, err := node.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"xml": "<broken"},
	}, nil)
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	toYAML := nodeByID(t, "transform_json_to_yaml")
	toJSON := nodeByID(t, "transform_yaml_to_json")

	out, err := toYAML.Execute(context.Background(), domain.ExecutionInput{
		Data: map[string]any{"name": "pipeline", "steps": []any{"build", "test"}},
	}, nil)
	require.NoError(t, err)

	encoded := out.(map[string]any)["yaml"].(string)

	back, err := toJSON.Execute(context.Background(), domain.ExecutionInput{
		Config: domain.NodeConfig{"yaml": encoded},
	}, nil)
	require.NoError(t, err)

	data := back.(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "pipeline", data["name"])
}
