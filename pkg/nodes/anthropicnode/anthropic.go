// Package anthropicnode declares the Anthropic messages node.
package anthropicnode

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "anthropic"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "anthropic_create_message",
			Name:     "Create Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "model", Label: "Model", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "prompt", Label: "Prompt", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "system_prompt", Label: "System Prompt", Type: domain.ConfigFieldType_Text},
				{Key: "max_tokens", Label: "Max Tokens", Type: domain.ConfigFieldType_Integer, Default: 1024},
				{Key: "temperature", Label: "Temperature", Type: domain.ConfigFieldType_Number},
			},
			Execute: createMessage,
		},
	}
}

type createMessageParams struct {
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

func createMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(option.WithAPIKey(credential.Token))

	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	messageParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: p.Prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	}
	if p.SystemPrompt != "" {
		messageParams.System = []anthropic.TextBlockParam{{Text: p.SystemPrompt}}
	}
	if p.Temperature > 0 {
		messageParams.Temperature = anthropic.Float(p.Temperature)
	}

	message, err := client.Messages.New(ctx, messageParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	content := ""
	if len(message.Content) > 0 {
		switch block := message.Content[0].AsAny().(type) {
		case anthropic.TextBlock:
			content = block.Text
		}
	}

	return map[string]any{
		"content":     content,
		"model":       string(message.Model),
		"stop_reason": string(message.StopReason),
		"usage": map[string]any{
			"input_tokens":  message.Usage.InputTokens,
			"output_tokens": message.Usage.OutputTokens,
		},
	}, nil
}
