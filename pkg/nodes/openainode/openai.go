// Package openainode declares the OpenAI nodes.
package openainode

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "openai"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "openai_chat_completion",
			Name:     "Chat Completion",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "model", Label: "Model", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "prompt", Label: "Prompt", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "system_prompt", Label: "System Prompt", Type: domain.ConfigFieldType_Text},
				{Key: "max_tokens", Label: "Max Tokens", Type: domain.ConfigFieldType_Integer},
				{Key: "temperature", Label: "Temperature", Type: domain.ConfigFieldType_Number},
			},
			Execute: chatCompletion,
		},
		{
			ID:       "openai_create_embedding",
			Name:     "Create Embedding",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "model", Label: "Model", Type: domain.ConfigFieldType_String, Default: "text-embedding-3-small"},
				{Key: "input", Label: "Input Text", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: createEmbedding,
		},
		{
			ID:       "openai_generate_image",
			Name:     "Generate Image",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "prompt", Label: "Prompt", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "model", Label: "Model", Type: domain.ConfigFieldType_String, Default: "dall-e-3"},
				{Key: "size", Label: "Size", Type: domain.ConfigFieldType_Select, Default: "1024x1024", Options: []domain.ConfigOption{
					{Label: "1024x1024", Value: "1024x1024"},
					{Label: "1792x1024", Value: "1792x1024"},
					{Label: "1024x1792", Value: "1024x1792"},
				}},
			},
			Execute: generateImage,
		},
	}
}

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*openai.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return openai.NewClient(credential.Token), nil
}

type chatCompletionParams struct {
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

func chatCompletion(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := chatCompletionParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessage{}
	if p.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.Prompt,
	})

	request := openai.ChatCompletionRequest{
		Model:    p.Model,
		Messages: messages,
	}
	if p.MaxTokens > 0 {
		request.MaxTokens = p.MaxTokens
	}
	if p.Temperature > 0 {
		request.Temperature = float32(p.Temperature)
	}

	response, err := client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	content := ""
	finishReason := ""
	if len(response.Choices) > 0 {
		content = response.Choices[0].Message.Content
		finishReason = string(response.Choices[0].FinishReason)
	}

	return map[string]any{
		"content":       content,
		"model":         response.Model,
		"finish_reason": finishReason,
		"usage": map[string]any{
			"prompt_tokens":     response.Usage.PromptTokens,
			"completion_tokens": response.Usage.CompletionTokens,
			"total_tokens":      response.Usage.TotalTokens,
		},
	}, nil
}

type createEmbeddingParams struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

func createEmbedding(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createEmbeddingParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Model == "" {
		p.Model = "text-embedding-3-small"
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.Model),
		Input: []string{p.Input},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(response.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return map[string]any{
		"embedding":  response.Data[0].Embedding,
		"dimensions": len(response.Data[0].Embedding),
		"model":      string(response.Model),
	}, nil
}

type generateImageParams struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Size   string `json:"size,omitempty"`
}

func generateImage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := generateImageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Model == "" {
		p.Model = "dall-e-3"
	}
	if p.Size == "" {
		p.Size = "1024x1024"
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := client.CreateImage(ctx, openai.ImageRequest{
		Prompt: p.Prompt,
		Model:  p.Model,
		Size:   p.Size,
		N:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	if len(response.Data) == 0 {
		return nil, fmt.Errorf("image response contained no data")
	}

	return map[string]any{
		"url":            response.Data[0].URL,
		"revised_prompt": response.Data[0].RevisedPrompt,
	}, nil
}
