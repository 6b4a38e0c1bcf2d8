// Package conditionnode declares the branching nodes.
package conditionnode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const category = "condition"

func Nodes() []domain.NodeDefinition {
	operatorOptions := []domain.ConfigOption{
		{Label: "Equals", Value: "eq"},
		{Label: "Not Equals", Value: "neq"},
		{Label: "Greater Than", Value: "gt"},
		{Label: "Less Than", Value: "lt"},
		{Label: "Contains", Value: "contains"},
		{Label: "Exists", Value: "exists"},
	}

	return []domain.NodeDefinition{
		{
			ID:       "condition_filter",
			Name:     "Filter",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "field", Label: "Field", Type: domain.ConfigFieldType_String, Required: true, Help: "Dot path into the input data"},
				{Key: "operator", Label: "Operator", Type: domain.ConfigFieldType_Select, Required: true, Options: operatorOptions},
				{Key: "value", Label: "Compare To", Type: domain.ConfigFieldType_String},
			},
			Outputs: []domain.IOSlot{{Name: "data", Type: "object", Description: "The input when it matches, null otherwise"}},
			Execute: filter,
		},
		{
			ID:       "condition_branch",
			Name:     "Branch",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "field", Label: "Field", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "operator", Label: "Operator", Type: domain.ConfigFieldType_Select, Required: true, Options: operatorOptions},
				{Key: "value", Label: "Compare To", Type: domain.ConfigFieldType_String},
			},
			Outputs: []domain.IOSlot{
				{Name: "true", Type: "object"},
				{Name: "false", Type: "object"},
			},
			Execute: branch,
		},
	}
}

type conditionParams struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

func evaluate(data any, p conditionParams) (bool, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to encode input data: %w", err)
	}

	field := gjson.GetBytes(encoded, p.Field)

	switch p.Operator {
	case "exists":
		return field.Exists(), nil
	case "eq":
		return field.String() == p.Value, nil
	case "neq":
		return field.String() != p.Value, nil
	case "contains":
		return strings.Contains(field.String(), p.Value), nil
	case "gt", "lt":
		threshold, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return false, fmt.Errorf("compare value %q is not numeric", p.Value)
		}
		if p.Operator == "gt" {
			return field.Float() > threshold, nil
		}
		return field.Float() < threshold, nil
	}

	return false, fmt.Errorf("unknown operator %q", p.Operator)
}

func filter(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := conditionParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	matched, err := evaluate(in.Data, p)
	if err != nil {
		return nil, err
	}

	if !matched {
		return map[string]any{"matched": false, "data": nil}, nil
	}

	return map[string]any{"matched": true, "data": in.Data}, nil
}

func branch(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := conditionParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	matched, err := evaluate(in.Data, p)
	if err != nil {
		return nil, err
	}

	branchName := "false"
	if matched {
		branchName = "true"
	}

	return map[string]any{"branch": branchName, "data": in.Data}, nil
}
