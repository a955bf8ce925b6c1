package tools

import (
	"context"
	"encoding/json"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/crm"
)

type listContactsTool struct {
	store *crm.Store
}

type listContactsArgs struct {
	Limit int `json:"limit" zog:"limit"`
}

var listContactsSchema = z.Struct(z.Shape{
	"Limit": z.Int().Optional().GTE(1).LTE(200),
})

func (t *listContactsTool) Name() string        { return "list_contacts" }
func (t *listContactsTool) Description() string { return "List the most recently created contacts." }
func (t *listContactsTool) ActionType() ActionType {
	return ActionReadOnly
}

func (t *listContactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max contacts to return (default 50)"},
		},
	}
}

func (t *listContactsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args listContactsArgs
	if err := decodeArgs(input, &args, listContactsSchema); err != nil {
		return nil, err
	}
	return t.store.ListContacts(ctx, args.Limit)
}

type searchContactsTool struct {
	store *crm.Store
}

type searchContactsArgs struct {
	Query string `json:"query" zog:"query"`
	Limit int    `json:"limit" zog:"limit"`
}

var searchContactsSchema = z.Struct(z.Shape{
	"Query": z.String().Required().Trim().Min(1),
	"Limit": z.Int().Optional().GTE(1).LTE(200),
})

func (t *searchContactsTool) Name() string { return "search_contacts" }
func (t *searchContactsTool) Description() string {
	return "Search contacts by name or email substring."
}
func (t *searchContactsTool) ActionType() ActionType { return ActionReadOnly }

func (t *searchContactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Substring matched against name and email"},
			"limit": map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	}
}

func (t *searchContactsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args searchContactsArgs
	if err := decodeArgs(input, &args, searchContactsSchema); err != nil {
		return nil, err
	}
	return t.store.SearchContacts(ctx, args.Query, args.Limit)
}

type createContactTool struct {
	store *crm.Store
}

type createContactArgs struct {
	FirstName string `json:"first_name" zog:"first_name"`
	LastName  string `json:"last_name" zog:"last_name"`
	Email     string `json:"email" zog:"email"`
	Phone     string `json:"phone" zog:"phone"`
	CompanyID string `json:"company_id" zog:"company_id"`
}

var createContactSchema = z.Struct(z.Shape{
	"FirstName": z.String().Required().Trim().Min(1),
	"LastName":  z.String().Optional().Trim(),
	"Email":     z.String().Required().Trim().Email(),
	"Phone":     z.String().Optional().Trim(),
	"CompanyID": z.String().Optional().Trim(),
})

func (t *createContactTool) Name() string           { return "create_contact" }
func (t *createContactTool) Description() string    { return "Create a new contact." }
func (t *createContactTool) ActionType() ActionType { return ActionCreate }

func (t *createContactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"first_name": map[string]any{"type": "string"},
			"last_name":  map[string]any{"type": "string"},
			"email":      map[string]any{"type": "string"},
			"phone":      map[string]any{"type": "string"},
			"company_id": map[string]any{"type": "string"},
		},
		"required": []string{"first_name", "email"},
	}
}

func (t *createContactTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args createContactArgs
	if err := decodeArgs(input, &args, createContactSchema); err != nil {
		return nil, err
	}
	return t.store.CreateContact(ctx, crm.CreateContactParams{
		FirstName: args.FirstName,
		LastName:  args.LastName,
		Email:     args.Email,
		Phone:     args.Phone,
		CompanyID: args.CompanyID,
	})
}

type updateContactTool struct {
	store *crm.Store
}

type updateContactArgs struct {
	ID        string  `json:"id" zog:"id"`
	FirstName *string `json:"first_name" zog:"first_name"`
	LastName  *string `json:"last_name" zog:"last_name"`
	Email     *string `json:"email" zog:"email"`
	Phone     *string `json:"phone" zog:"phone"`
	CompanyID *string `json:"company_id" zog:"company_id"`
}

var updateContactSchema = z.Struct(z.Shape{
	"ID":        z.String().Required().Trim().Min(1),
	"FirstName": z.Ptr(z.String().Trim()),
	"LastName":  z.Ptr(z.String().Trim()),
	"Email":     z.Ptr(z.String().Trim().Email()),
	"Phone":     z.Ptr(z.String().Trim()),
	"CompanyID": z.Ptr(z.String().Trim()),
})

func (t *updateContactTool) Name() string { return "update_contact" }
func (t *updateContactTool) Description() string {
	return "Update fields on an existing contact. Only the provided fields change."
}
func (t *updateContactTool) ActionType() ActionType { return ActionUpdate }

func (t *updateContactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":         map[string]any{"type": "string"},
			"first_name": map[string]any{"type": "string"},
			"last_name":  map[string]any{"type": "string"},
			"email":      map[string]any{"type": "string"},
			"phone":      map[string]any{"type": "string"},
			"company_id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *updateContactTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args updateContactArgs
	if err := decodeArgs(input, &args, updateContactSchema); err != nil {
		return nil, err
	}
	return t.store.UpdateContact(ctx, args.ID, crm.UpdateContactParams{
		FirstName: args.FirstName,
		LastName:  args.LastName,
		Email:     args.Email,
		Phone:     args.Phone,
		CompanyID: args.CompanyID,
	})
}

type deleteContactTool struct {
	store *crm.Store
}

type deleteContactArgs struct {
	ID string `json:"id" zog:"id"`
}

var deleteContactSchema = z.Struct(z.Shape{
	"ID": z.String().Required().Trim().Min(1),
})

func (t *deleteContactTool) Name() string           { return "delete_contact" }
func (t *deleteContactTool) Description() string    { return "Permanently delete a contact." }
func (t *deleteContactTool) ActionType() ActionType { return ActionDelete }

func (t *deleteContactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
}

func (t *deleteContactTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args deleteContactArgs
	if err := decodeArgs(input, &args, deleteContactSchema); err != nil {
		return nil, err
	}
	if err := t.store.DeleteContact(ctx, args.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": args.ID}, nil
}
