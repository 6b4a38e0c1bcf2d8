// Package validatenode declares the JSON Schema validation node.
package validatenode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "validate_json_schema",
			Name:     "Validate Against Schema",
			Kind:     domain.NodeKind_Transform,
			Category: "validate",
			Config: []domain.ConfigField{
				{Key: "schema", Label: "JSON Schema", Type: domain.ConfigFieldType_Code, Required: true},
			},
			Outputs: []domain.IOSlot{{Name: "result", Type: "object"}},
			Execute: validateSchema,
		},
	}
}

type validateParams struct {
	Schema string `json:"schema"`
}

func validateSchema(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := validateParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(p.Schema)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// Round-trip so typed input decodes to the generic shapes the validator
	// expects.
	encoded, err := json.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input data: %w", err)
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode input data: %w", err)
	}

	if err := schema.Validate(generic); err != nil {
		output := map[string]any{"valid": false}

		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			causes := []string{}
			for _, cause := range validationErr.Causes {
				causes = append(causes, cause.Error())
			}
			if len(causes) == 0 {
				causes = append(causes, validationErr.Error())
			}
			output["errors"] = causes
		} else {
			output["errors"] = []string{err.Error()}
		}

		return output, nil
	}

	return map[string]any{"valid": true}, nil
}
