package validatenode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const userSchema = `{
	"type": "object",
	"required": ["email"],
	"properties": {
		"email": {"type": "string"},
		"age": {"type": "integer", "minimum": 0}
	}
}`

func runValidation(t *testing.T, data map[string]any) map[string]any {
	t.Helper()
	node := Nodes()[0]
	require.Equal(t, "validate_json_schema", node.ID)

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   data,
		Config: domain.NodeConfig{"schema": userSchema},
	}, nil)
	require.NoError(t, err)

	return out.(map[string]any)
}

func TestValidDocument(t *testing.T) {
	result := runValidation(t, map[string]any{"email": "a@b.c", "age": 30})

	assert.Equal(t, map[string]any{"valid": true}, result)
}

func TestInvalidDocumentIsResultNotError(t *testing.T) {
	result := runValidation(t, map[string]any{"age": -2})

	assert.Equal(t, false, result["valid"])
	assert.NotEmpty(t, result["errors"])
}

func TestBrokenSchemaFails(t *testing.T) {
	node := Nodes()[0]

	_, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"email": "a@b.c"},
		Config: domain.NodeConfig{"schema": `{"type": 12}`},
	}, nil)
	assert.Error(t, err)
}
