package tools

import (
	"context"
	"encoding/json"

	"github.com/mbarden/leadwire/internals/crm"
)

type listPipelinesTool struct {
	store *crm.Store
}

func (t *listPipelinesTool) Name() string { return "list_pipelines" }
func (t *listPipelinesTool) Description() string {
	return "List all pipelines with their ordered stages."
}
func (t *listPipelinesTool) ActionType() ActionType { return ActionReadOnly }

func (t *listPipelinesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *listPipelinesTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	return t.store.ListPipelines(ctx)
}
