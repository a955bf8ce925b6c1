package tools

import (
	"context"
	"encoding/json"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/crm"
)

type listCompaniesTool struct {
	store *crm.Store
}

type listCompaniesArgs struct {
	Limit int `json:"limit" zog:"limit"`
}

var listCompaniesSchema = z.Struct(z.Shape{
	"Limit": z.Int().Optional().GTE(1).LTE(200),
})

func (t *listCompaniesTool) Name() string           { return "list_companies" }
func (t *listCompaniesTool) Description() string    { return "List the most recently created companies." }
func (t *listCompaniesTool) ActionType() ActionType { return ActionReadOnly }

func (t *listCompaniesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer"},
		},
	}
}

func (t *listCompaniesTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args listCompaniesArgs
	if err := decodeArgs(input, &args, listCompaniesSchema); err != nil {
		return nil, err
	}
	return t.store.ListCompanies(ctx, args.Limit)
}

type createCompanyTool struct {
	store *crm.Store
}

type createCompanyArgs struct {
	Name     string `json:"name" zog:"name"`
	Domain   string `json:"domain" zog:"domain"`
	Industry string `json:"industry" zog:"industry"`
}

var createCompanySchema = z.Struct(z.Shape{
	"Name":     z.String().Required().Trim().Min(1),
	"Domain":   z.String().Optional().Trim(),
	"Industry": z.String().Optional().Trim(),
})

func (t *createCompanyTool) Name() string           { return "create_company" }
func (t *createCompanyTool) Description() string    { return "Create a new company." }
func (t *createCompanyTool) ActionType() ActionType { return ActionCreate }

func (t *createCompanyTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string"},
			"domain":   map[string]any{"type": "string"},
			"industry": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}
}

func (t *createCompanyTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args createCompanyArgs
	if err := decodeArgs(input, &args, createCompanySchema); err != nil {
		return nil, err
	}
	return t.store.CreateCompany(ctx, crm.CreateCompanyParams{
		Name:     args.Name,
		Domain:   args.Domain,
		Industry: args.Industry,
	})
}

type updateCompanyTool struct {
	store *crm.Store
}

type updateCompanyArgs struct {
	ID       string  `json:"id" zog:"id"`
	Name     *string `json:"name" zog:"name"`
	Domain   *string `json:"domain" zog:"domain"`
	Industry *string `json:"industry" zog:"industry"`
}

var updateCompanySchema = z.Struct(z.Shape{
	"ID":       z.String().Required().Trim().Min(1),
	"Name":     z.Ptr(z.String().Trim()),
	"Domain":   z.Ptr(z.String().Trim()),
	"Industry": z.Ptr(z.String().Trim()),
})

func (t *updateCompanyTool) Name() string { return "update_company" }
func (t *updateCompanyTool) Description() string {
	return "Update fields on an existing company. Only the provided fields change."
}
func (t *updateCompanyTool) ActionType() ActionType { return ActionUpdate }

func (t *updateCompanyTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "string"},
			"name":     map[string]any{"type": "string"},
			"domain":   map[string]any{"type": "string"},
			"industry": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *updateCompanyTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args updateCompanyArgs
	if err := decodeArgs(input, &args, updateCompanySchema); err != nil {
		return nil, err
	}
	return t.store.UpdateCompany(ctx, args.ID, crm.UpdateCompanyParams{
		Name:     args.Name,
		Domain:   args.Domain,
		Industry: args.Industry,
	})
}
