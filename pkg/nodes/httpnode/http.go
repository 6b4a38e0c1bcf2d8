// Package httpnode declares the generic HTTP request node and the webhook
// trigger's entry point.
package httpnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "http_request",
			Name:     "HTTP Request",
			Kind:     domain.NodeKind_Action,
			Category: "http",
			Config: []domain.ConfigField{
				{Key: "method", Label: "Method", Type: domain.ConfigFieldType_Select, Default: "GET", Options: []domain.ConfigOption{
					{Label: "GET", Value: "GET"},
					{Label: "POST", Value: "POST"},
					{Label: "PUT", Value: "PUT"},
					{Label: "PATCH", Value: "PATCH"},
					{Label: "DELETE", Value: "DELETE"},
				}},
				{Key: "url", Label: "URL", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "headers", Label: "Headers", Type: domain.ConfigFieldType_Map},
				{Key: "body", Label: "Body", Type: domain.ConfigFieldType_Map},
			},
			Execute: request,
		},
		{
			ID:       "webhook_trigger",
			Name:     "Webhook",
			Kind:     domain.NodeKind_Trigger,
			Category: "webhook",
			Config: []domain.ConfigField{
				{Key: "path", Label: "Path", Type: domain.ConfigFieldType_String, Required: true, Help: "Path the webhook listens on, e.g. /hooks/orders"},
			},
			Outputs: []domain.IOSlot{{Name: "payload", Type: "object", Description: "The received request body"}},
			Execute: webhookPassthrough,
		},
	}
}

type requestParams struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    map[string]any    `json:"body,omitempty"`
}

func request(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := requestParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	switch strings.ToUpper(p.Method) {
	case "", "GET":
		return ec.HTTP.Get(ctx, p.URL, p.Headers)
	case "POST":
		return ec.HTTP.Post(ctx, p.URL, p.Body, p.Headers)
	case "PUT":
		return ec.HTTP.Put(ctx, p.URL, p.Body, p.Headers)
	case "PATCH":
		return ec.HTTP.Patch(ctx, p.URL, p.Body, p.Headers)
	case "DELETE":
		return ec.HTTP.Delete(ctx, p.URL, p.Headers)
	}

	return nil, fmt.Errorf("unsupported http method %q", p.Method)
}

// webhookPassthrough hands the received payload downstream unchanged. The
// HTTP surface delivers the request body as the node's input data.
func webhookPassthrough(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	return in.Data, nil
}
