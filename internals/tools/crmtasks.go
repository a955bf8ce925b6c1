package tools

import (
	"context"
	"encoding/json"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/crm"
)

type listCrmTasksTool struct {
	store *crm.Store
}

type listCrmTasksArgs struct {
	IncludeDone bool `json:"include_done" zog:"include_done"`
	Limit       int  `json:"limit" zog:"limit"`
}

var listCrmTasksSchema = z.Struct(z.Shape{
	"IncludeDone": z.Bool().Optional(),
	"Limit":       z.Int().Optional().GTE(1).LTE(200),
})

func (t *listCrmTasksTool) Name() string { return "list_crm_tasks" }
func (t *listCrmTasksTool) Description() string {
	return "List open CRM tasks. Set include_done to also return completed tasks."
}
func (t *listCrmTasksTool) ActionType() ActionType { return ActionReadOnly }

func (t *listCrmTasksTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"include_done": map[string]any{"type": "boolean"},
			"limit":        map[string]any{"type": "integer"},
		},
	}
}

func (t *listCrmTasksTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args listCrmTasksArgs
	if err := decodeArgs(input, &args, listCrmTasksSchema); err != nil {
		return nil, err
	}
	return t.store.ListTasks(ctx, args.IncludeDone, args.Limit)
}

type createCrmTaskTool struct {
	store *crm.Store
}

type createCrmTaskArgs struct {
	Title     string `json:"title" zog:"title"`
	DueAt     string `json:"due_at" zog:"due_at"`
	ContactID string `json:"contact_id" zog:"contact_id"`
}

var createCrmTaskSchema = z.Struct(z.Shape{
	"Title":     z.String().Required().Trim().Min(1),
	"DueAt":     z.String().Optional().Trim(),
	"ContactID": z.String().Optional().Trim(),
})

func (t *createCrmTaskTool) Name() string           { return "create_crm_task" }
func (t *createCrmTaskTool) Description() string    { return "Create a follow-up task." }
func (t *createCrmTaskTool) ActionType() ActionType { return ActionCreate }

func (t *createCrmTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":      map[string]any{"type": "string"},
			"due_at":     map[string]any{"type": "string", "description": "RFC3339 timestamp"},
			"contact_id": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

func (t *createCrmTaskTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args createCrmTaskArgs
	if err := decodeArgs(input, &args, createCrmTaskSchema); err != nil {
		return nil, err
	}
	return t.store.CreateTask(ctx, crm.CreateTaskParams{
		Title:     args.Title,
		DueAt:     args.DueAt,
		ContactID: args.ContactID,
	})
}

type completeCrmTaskTool struct {
	store *crm.Store
}

type completeCrmTaskArgs struct {
	ID string `json:"id" zog:"id"`
}

var completeCrmTaskSchema = z.Struct(z.Shape{
	"ID": z.String().Required().Trim().Min(1),
})

func (t *completeCrmTaskTool) Name() string           { return "complete_crm_task" }
func (t *completeCrmTaskTool) Description() string    { return "Mark a CRM task as done." }
func (t *completeCrmTaskTool) ActionType() ActionType { return ActionUpdate }

func (t *completeCrmTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *completeCrmTaskTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args completeCrmTaskArgs
	if err := decodeArgs(input, &args, completeCrmTaskSchema); err != nil {
		return nil, err
	}
	return t.store.CompleteTask(ctx, args.ID)
}
