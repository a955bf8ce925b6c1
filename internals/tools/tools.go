// Package tools is the static catalogue of operations the agent may invoke
// against CRM data. Every tool carries an effect class and a validated
// argument schema; mutating tools require human approval before execution.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/crm"
)

// ActionType is the static effect classification of a tool. Anything other
// than read_only requires approval.
type ActionType string

const (
	ActionReadOnly ActionType = "read_only"
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
	ActionSend     ActionType = "send"
	ActionBulk     ActionType = "bulk"
)

func (t ActionType) RequiresApproval() bool {
	return t != ActionReadOnly
}

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

type Tool interface {
	Name() string
	Description() string
	ActionType() ActionType
	// Parameters is the JSON schema presented to the model as the calling
	// contract for this tool.
	Parameters() map[string]any
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

// Definition is the catalogue entry exposed to the planner and to clients.
type Definition struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ActionType       ActionType     `json:"action_type"`
	RequiresApproval bool           `json:"requires_approval"`
	Parameters       map[string]any `json:"parameters"`
}

// Registry holds the immutable, ordered tool catalogue. Built once at
// startup; safe for concurrent use without locking.
type Registry struct {
	order []Tool
	index map[string]Tool
}

func NewRegistry(store *crm.Store) *Registry {
	r := &Registry{index: map[string]Tool{}}
	for _, tool := range []Tool{
		&listContactsTool{store: store},
		&searchContactsTool{store: store},
		&createContactTool{store: store},
		&updateContactTool{store: store},
		&deleteContactTool{store: store},
		&listCompaniesTool{store: store},
		&createCompanyTool{store: store},
		&updateCompanyTool{store: store},
		&listDealsTool{store: store},
		&createDealTool{store: store},
		&updateDealStageTool{store: store},
		&deleteDealTool{store: store},
		&listCrmTasksTool{store: store},
		&createCrmTaskTool{store: store},
		&completeCrmTaskTool{store: store},
		&listPipelinesTool{store: store},
	} {
		r.register(tool)
	}
	return r
}

func (r *Registry) register(tool Tool) {
	if _, exists := r.index[tool.Name()]; exists {
		panic("duplicate tool name: " + tool.Name())
	}
	r.order = append(r.order, tool)
	r.index[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

func (r *Registry) List() []Definition {
	definitions := make([]Definition, 0, len(r.order))
	for _, tool := range r.order {
		definitions = append(definitions, Definition{
			Name:             tool.Name(),
			Description:      tool.Description(),
			ActionType:       tool.ActionType(),
			RequiresApproval: tool.ActionType().RequiresApproval(),
			Parameters:       tool.Parameters(),
		})
	}
	return definitions
}

// Execute resolves the named tool, runs it and marshals the result. Schema
// violations and CRUD failures come back as errors for the caller to record
// on the action; they are never fatal to the task.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	result, err := tool.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return data, nil
}

// decodeArgs unmarshals raw arguments into the tool's typed args struct and
// validates it against the tool's zog schema.
func decodeArgs(input json.RawMessage, target any, schema *z.StructSchema) error {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, target); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, err.Error())
	}
	if issues := schema.Validate(target); len(issues) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, z.Issues.Flatten(issues))
	}
	return nil
}
