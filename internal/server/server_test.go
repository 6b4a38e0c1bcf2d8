package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/internal/dispatch"
	"github.com/nodeloom/nodeloom/internal/httpx"
	"github.com/nodeloom/nodeloom/pkg/domain"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	registry, err := domain.NewNodeRegistry(domain.NodeDefinition{
		ID:       "echo",
		Name:     "Echo",
		Kind:     domain.NodeKind_Transform,
		Category: "test",
		Config: []domain.ConfigField{
			{Key: "message", Label: "Message", Type: domain.ConfigFieldType_String, Required: true},
		},
		Execute: func(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
			return map[string]any{"message": in.Config["message"]}, nil
		},
	})
	require.NoError(t, err)

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherDependencies{
		Registry:   registry,
		HTTPClient: httpx.NewClient(httpx.ClientDependencies{Logger: zerolog.Nop()}),
		Logger:     zerolog.Nop(),
	})

	controller := NewExecutionController(ExecutionControllerDependencies{
		Dispatcher: dispatcher,
		Registry:   registry,
	})

	return NewHTTPServer(HTTPServerDependencies{ExecutionController: controller})
}

func postExecution(t *testing.T, app *fiber.App, body any) *http.Response {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/executions", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "nodeloom", body["service"])
}

func TestStartExecution(t *testing.T) {
	app := newTestApp(t)

	resp := postExecution(t, app, map[string]any{
		"node_id": "echo",
		"user_id": "user-1",
		"config":  map[string]any{"message": "hi"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["execution_id"])

	output := body["output"].(map[string]any)
	assert.Equal(t, "hi", output["message"])
}

func TestStartExecutionNodeFailureIsStillOK(t *testing.T) {
	app := newTestApp(t)

	resp := postExecution(t, app, map[string]any{
		"node_id": "echo",
		"user_id": "user-1",
		"config":  map[string]any{},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])

	failure := body["failure"].(map[string]any)
	assert.Equal(t, "invalid_config", failure["kind"])
}

func TestStartExecutionUnknownNode(t *testing.T) {
	app := newTestApp(t)

	resp := postExecution(t, app, map[string]any{
		"node_id": "nope",
		"user_id": "user-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartExecutionMissingIdentifiers(t *testing.T) {
	app := newTestApp(t)

	resp := postExecution(t, app, map[string]any{"config": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListNodes(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/nodes", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])

	nodes := body["nodes"].([]any)
	first := nodes[0].(map[string]any)
	assert.Equal(t, "echo", first["id"])
	assert.NotContains(t, first, "Execute")
}
