package conditionnode

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

func runFilter(t *testing.T, data map[string]any, config domain.NodeConfig) map[string]any {
	t.Helper()
	node := nodeByID(t, "condition_filter")
	out, err := node.Execute(context.Background(), domain.ExecutionInput{Data: data, Config: config}, nil)
	require.NoError(t, err)
	return out.(map[string]any)
}

func TestFilterEquals(t *testing.T) {
	result := runFilter(t,
		map[string]any{"status": "open"},
		domain.NodeConfig{"field": "status", "operator": "eq", "value": "open"})

	assert.Equal(t, true, result["matched"])
	assert.NotNil(t, result["data"])
}

func TestFilterNotMatchedDropsData(t *testing.T) {
	result := runFilter(t,
		map[string]any{"status": "closed"},
		domain.NodeConfig{"field": "status", "operator": "eq", "value": "open"})

	assert.Equal(t, false, result["matched"])
	assert.Nil(t, result["data"])
}

func TestFilterNumericComparison(t *testing.T) {
	result := runFilter(t,
		map[string]any{"order": map[string]any{"total": 149.9}},
		domain.NodeConfig{"field": "order.total", "operator": "gt", "value": "100"})

	assert.Equal(t, true, result["matched"])
}

func TestFilterNonNumericThresholdFails(t *testing.T) {
	node := nodeByID(t, "condition_filter")

	_, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"total": 5},
		Config: domain.NodeConfig{"field": "total", "operator": "gt", "value": "lots"},
	}, nil)
	assert.Error(t, err)
}

func TestFilterExists(t *testing.T) {
	result := runFilter(t,
		map[string]any{"user": map[string]any{"email": "a@b.c"}},
		domain.NodeConfig{"field": "user.email", "operator": "exists"})

	assert.Equal(t, true, result["matched"])
}

func TestFilterUnknownOperator(t *testing.T) {
	node := nodeByID(t, "condition_filter")

	_, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"a": 1},
		Config: domain.NodeConfig{"field": "a", "operator": "between"},
	}, nil)
	assert.Error(t, err)
}

func TestBranchRoutes(t *testing.T) {
	node := nodeByID(t, "condition_branch")

	out, err := node.Execute(context.Background(), domain.ExecutionInput{
		Data:   map[string]any{"plan": "free"},
		Config: domain.NodeConfig{"field": "plan", "operator": "neq", "value": "free"},
	}, nil)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "false", result["branch"])
	assert.Equal(t, map[string]any{"plan": "free"}, result["data"])
}
