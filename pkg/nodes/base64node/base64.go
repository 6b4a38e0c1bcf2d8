// Package base64node declares the base64 codec nodes.
package base64node

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const category = "base64"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "base64_encode",
			Name:     "Base64 Encode",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "text", Label: "Text", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "url_safe", Label: "URL Safe", Type: domain.ConfigFieldType_Boolean, Default: false},
			},
			Execute: encode,
		},
		{
			ID:       "base64_decode",
			Name:     "Base64 Decode",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "encoded", Label: "Encoded Text", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "url_safe", Label: "URL Safe", Type: domain.ConfigFieldType_Boolean, Default: false},
			},
			Execute: decode,
		},
	}
}

type encodeParams struct {
	Text    string `json:"text"`
	URLSafe bool   `json:"url_safe,omitempty"`
}

func encode(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := encodeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	encoding := base64.StdEncoding
	if p.URLSafe {
		encoding = base64.URLEncoding
	}

	return map[string]any{"encoded": encoding.EncodeToString([]byte(p.Text))}, nil
}

type decodeParams struct {
	Encoded string `json:"encoded"`
	URLSafe bool   `json:"url_safe,omitempty"`
}

func decode(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := decodeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	encoding := base64.StdEncoding
	if p.URLSafe {
		encoding = base64.URLEncoding
	}

	decoded, err := encoding.DecodeString(p.Encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 input: %w", err)
	}

	return map[string]any{"text": string(decoded)}, nil
}
