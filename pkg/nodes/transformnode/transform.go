// Package transformnode declares the data shaping nodes that run between
// provider calls.
package transformnode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clbanning/mxj/v2"
	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const category = "transform"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "transform_extract_path",
			Name:     "Extract Path",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "path", Label: "Path", Type: domain.ConfigFieldType_String, Required: true, Help: "Dot path into the input data, e.g. user.address.city"},
			},
			Execute: extractPath,
		},
		{
			ID:       "transform_set_field",
			Name:     "Set Field",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "field", Label: "Field", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "value", Label: "Value", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: setField,
		},
		{
			ID:       "transform_pick_fields",
			Name:     "Pick Fields",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "fields", Label: "Fields", Type: domain.ConfigFieldType_Array, Required: true},
			},
			Execute: pickFields,
		},
		{
			ID:       "transform_slugify",
			Name:     "Slugify",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "text", Label: "Text", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: slugify,
		},
		{
			ID:       "transform_xml_to_json",
			Name:     "XML to JSON",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "xml", Label: "XML", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: xmlToJSON,
		},
		{
			ID:       "transform_json_to_yaml",
			Name:     "JSON to YAML",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Execute:  jsonToYAML,
		},
		{
			ID:       "transform_yaml_to_json",
			Name:     "YAML to JSON",
			Kind:     domain.NodeKind_Transform,
			Category: category,
			Config: []domain.ConfigField{
				{Key: "yaml", Label: "YAML", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: yamlToJSON,
		},
	}
}

type extractPathParams struct {
	Path string `json:"path"`
}

func extractPath(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := extractPathParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input data: %w", err)
	}

	result := gjson.GetBytes(encoded, p.Path)

	return map[string]any{
		"path":  p.Path,
		"found": result.Exists(),
		"value": result.Value(),
	}, nil
}

// asObject round-trips the input into a generic map so transforms never
// mutate the caller's data.
func asObject(data any) (map[string]any, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input data: %w", err)
	}

	object := map[string]any{}
	if err := json.Unmarshal(encoded, &object); err != nil {
		return nil, fmt.Errorf("input data is not an object: %w", err)
	}

	return object, nil
}

type setFieldParams struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func setField(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := setFieldParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	object, err := asObject(in.Data)
	if err != nil {
		return nil, err
	}

	object[p.Field] = p.Value

	return object, nil
}

type pickFieldsParams struct {
	Fields []string `json:"fields"`
}

func pickFields(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := pickFieldsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	object, err := asObject(in.Data)
	if err != nil {
		return nil, err
	}

	picked := map[string]any{}
	for _, field := range p.Fields {
		if value, ok := object[field]; ok {
			picked[field] = value
		}
	}

	return picked, nil
}

type slugifyParams struct {
	Text string `json:"text"`
}

func slugify(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := slugifyParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	return map[string]any{
		"text": p.Text,
		"slug": slug.Make(p.Text),
	}, nil
}

type xmlToJSONParams struct {
	XML string `json:"xml"`
}

func xmlToJSON(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := xmlToJSONParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	parsed, err := mxj.NewMapXml([]byte(p.XML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	return map[string]any(parsed), nil
}

func jsonToYAML(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	encoded, err := yaml.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}

	return map[string]any{"yaml": string(encoded)}, nil
}

type yamlToJSONParams struct {
	YAML string `json:"yaml"`
}

func yamlToJSON(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := yamlToJSONParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	var decoded any
	if err := yaml.Unmarshal([]byte(p.YAML), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	return map[string]any{"data": decoded}, nil
}
