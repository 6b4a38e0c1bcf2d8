package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

type NodeKind string

const (
	NodeKind_Trigger   NodeKind = "trigger"
	NodeKind_Action    NodeKind = "action"
	NodeKind_Transform NodeKind = "transform"
)

type ConfigFieldType string

const (
	ConfigFieldType_String  ConfigFieldType = "string"
	ConfigFieldType_Text    ConfigFieldType = "text"
	ConfigFieldType_Integer ConfigFieldType = "integer"
	ConfigFieldType_Number  ConfigFieldType = "number"
	ConfigFieldType_Boolean ConfigFieldType = "boolean"
	ConfigFieldType_Select  ConfigFieldType = "select"
	ConfigFieldType_Map     ConfigFieldType = "map"
	ConfigFieldType_Array   ConfigFieldType = "array"
	ConfigFieldType_Code    ConfigFieldType = "code"
	ConfigFieldType_Secret  ConfigFieldType = "secret"
)

type ConfigOption struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ConfigField is one entry of a node's config schema. The workflow editor
// renders from these and the dispatcher validates against them; there is no
// second list to drift from.
type ConfigField struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Type     ConfigFieldType `json:"type"`
	Required bool            `json:"required"`
	Default  any             `json:"default,omitempty"`
	Options  []ConfigOption  `json:"options,omitempty"`
	Help     string          `json:"help,omitempty"`
}

// IOSlot documents one named input or output of a node. Output slots are UI
// hints, not enforced contracts; provider payloads are too variable to gate
// on.
type IOSlot struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type NodeConfig map[string]any

// ExecutionInput bundles the upstream item data and the node config for one
// invocation.
type ExecutionInput struct {
	Data   any
	Config NodeConfig
}

// BindConfig decodes the raw config map onto a params struct with json tags,
// the same way provider params are bound everywhere else in the catalogue.
func (in ExecutionInput) BindConfig(params any) error {
	raw, err := json.Marshal(in.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := json.Unmarshal(raw, params); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	return nil
}

type ExecuteFunc func(ctx context.Context, in ExecutionInput, ec *ExecutionContext) (any, error)

// NodeDefinition is one declared workflow step. Definitions are immutable
// and registered once at process start.
type NodeDefinition struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     NodeKind      `json:"kind"`
	Category string        `json:"category"`
	Inputs   []IOSlot      `json:"inputs,omitempty"`
	Outputs  []IOSlot      `json:"outputs,omitempty"`
	Config   []ConfigField `json:"config,omitempty"`

	Execute ExecuteFunc `json:"-"`
}
