package tools

import (
	"context"
	"encoding/json"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/crm"
)

type listDealsTool struct {
	store *crm.Store
}

type listDealsArgs struct {
	Stage string `json:"stage" zog:"stage"`
	Limit int    `json:"limit" zog:"limit"`
}

var listDealsSchema = z.Struct(z.Shape{
	"Stage": z.String().Optional().Trim(),
	"Limit": z.Int().Optional().GTE(1).LTE(200),
})

func (t *listDealsTool) Name() string           { return "list_deals" }
func (t *listDealsTool) Description() string    { return "List deals, optionally filtered by stage." }
func (t *listDealsTool) ActionType() ActionType { return ActionReadOnly }

func (t *listDealsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stage": map[string]any{"type": "string", "description": "Filter by pipeline stage"},
			"limit": map[string]any{"type": "integer"},
		},
	}
}

func (t *listDealsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args listDealsArgs
	if err := decodeArgs(input, &args, listDealsSchema); err != nil {
		return nil, err
	}
	return t.store.ListDeals(ctx, args.Stage, args.Limit)
}

type createDealTool struct {
	store *crm.Store
}

type createDealArgs struct {
	Title      string  `json:"title" zog:"title"`
	Amount     float64 `json:"amount" zog:"amount"`
	PipelineID string  `json:"pipeline_id" zog:"pipeline_id"`
	Stage      string  `json:"stage" zog:"stage"`
	ContactID  string  `json:"contact_id" zog:"contact_id"`
}

var createDealSchema = z.Struct(z.Shape{
	"Title":      z.String().Required().Trim().Min(1),
	"Amount":     z.Float64().Optional().GTE(0),
	"PipelineID": z.String().Optional().Trim(),
	"Stage":      z.String().Optional().Trim(),
	"ContactID":  z.String().Optional().Trim(),
})

func (t *createDealTool) Name() string { return "create_deal" }
func (t *createDealTool) Description() string {
	return "Create a new deal. Defaults to the first stage of the default pipeline."
}
func (t *createDealTool) ActionType() ActionType { return ActionCreate }

func (t *createDealTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"amount":      map[string]any{"type": "number"},
			"pipeline_id": map[string]any{"type": "string"},
			"stage":       map[string]any{"type": "string"},
			"contact_id":  map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

func (t *createDealTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args createDealArgs
	if err := decodeArgs(input, &args, createDealSchema); err != nil {
		return nil, err
	}
	return t.store.CreateDeal(ctx, crm.CreateDealParams{
		Title:      args.Title,
		Amount:     args.Amount,
		PipelineID: args.PipelineID,
		Stage:      args.Stage,
		ContactID:  args.ContactID,
	})
}

type updateDealStageTool struct {
	store *crm.Store
}

type updateDealStageArgs struct {
	ID    string `json:"id" zog:"id"`
	Stage string `json:"stage" zog:"stage"`
}

var updateDealStageSchema = z.Struct(z.Shape{
	"ID":    z.String().Required().Trim().Min(1),
	"Stage": z.String().Required().Trim().Min(1),
})

func (t *updateDealStageTool) Name() string { return "update_deal_stage" }
func (t *updateDealStageTool) Description() string {
	return "Move a deal to a different stage of its pipeline."
}
func (t *updateDealStageTool) ActionType() ActionType { return ActionUpdate }

func (t *updateDealStageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string"},
			"stage": map[string]any{"type": "string"},
		},
		"required": []string{"id", "stage"},
	}
}

func (t *updateDealStageTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args updateDealStageArgs
	if err := decodeArgs(input, &args, updateDealStageSchema); err != nil {
		return nil, err
	}
	return t.store.UpdateDealStage(ctx, args.ID, args.Stage)
}

type deleteDealTool struct {
	store *crm.Store
}

type deleteDealArgs struct {
	ID string `json:"id" zog:"id"`
}

var deleteDealSchema = z.Struct(z.Shape{
	"ID": z.String().Required().Trim().Min(1),
})

func (t *deleteDealTool) Name() string           { return "delete_deal" }
func (t *deleteDealTool) Description() string    { return "Permanently delete a deal." }
func (t *deleteDealTool) ActionType() ActionType { return ActionDelete }

func (t *deleteDealTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *deleteDealTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args deleteDealArgs
	if err := decodeArgs(input, &args, deleteDealSchema); err != nil {
		return nil, err
	}
	if err := t.store.DeleteDeal(ctx, args.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": args.ID}, nil
}
