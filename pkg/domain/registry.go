package domain

import (
	"fmt"
	"sort"
)

// NodeRegistry is the static catalogue of node definitions, built once at
// process start. No entry may be added or removed afterwards.
type NodeRegistry struct {
	byID  map[string]NodeDefinition
	order []string
}

func NewNodeRegistry(definitions ...NodeDefinition) (*NodeRegistry, error) {
	registry := &NodeRegistry{
		byID: make(map[string]NodeDefinition, len(definitions)),
	}

	for _, definition := range definitions {
		if definition.ID == "" {
			return nil, fmt.Errorf("node definition %q has no id", definition.Name)
		}
		if definition.Execute == nil {
			return nil, fmt.Errorf("node %s has no execute function", definition.ID)
		}
		if _, exists := registry.byID[definition.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %s", definition.ID)
		}

		registry.byID[definition.ID] = definition
		registry.order = append(registry.order, definition.ID)
	}

	sort.Strings(registry.order)

	return registry, nil
}

func (r *NodeRegistry) Get(nodeID string) (NodeDefinition, bool) {
	definition, ok := r.byID[nodeID]
	return definition, ok
}

// All returns every definition in stable id order, for the catalogue
// endpoint the editor consumes.
func (r *NodeRegistry) All() []NodeDefinition {
	definitions := make([]NodeDefinition, 0, len(r.order))
	for _, id := range r.order {
		definitions = append(definitions, r.byID[id])
	}

	return definitions
}

func (r *NodeRegistry) Len() int {
	return len(r.byID)
}
