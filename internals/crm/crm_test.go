package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/mbarden/leadwire/internals/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.TempDB(t))
}

func TestContactLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	contact, err := store.CreateContact(ctx, CreateContactParams{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	got, err := store.GetContact(ctx, contact.ID)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("unexpected email %s", got.Email)
	}

	newPhone := "555-0100"
	updated, err := store.UpdateContact(ctx, contact.ID, UpdateContactParams{Phone: &newPhone})
	if err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if updated.Phone != "555-0100" {
		t.Fatalf("expected phone update, got %q", updated.Phone)
	}
	if updated.FirstName != "Ada" {
		t.Fatalf("partial update must keep untouched fields, got %q", updated.FirstName)
	}

	if err := store.DeleteContact(ctx, contact.ID); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	if _, err := store.GetContact(ctx, contact.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateContactValidation(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateContact(context.Background(), CreateContactParams{LastName: "Nameless"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateContactUnknownCompany(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateContact(context.Background(), CreateContactParams{FirstName: "Ada", Email: "ada@example.com", CompanyID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown company, got %v", err)
	}
}

func TestSearchContacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, params := range []CreateContactParams{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
		{FirstName: "Adam", LastName: "Smith", Email: "adam@example.com"},
	} {
		if _, err := store.CreateContact(ctx, params); err != nil {
			t.Fatalf("CreateContact: %v", err)
		}
	}

	found, err := store.SearchContacts(ctx, "ada", 10)
	if err != nil {
		t.Fatalf("SearchContacts: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected Ada and Adam, got %d results", len(found))
	}
}

func TestDefaultPipelineSeeded(t *testing.T) {
	store := newTestStore(t)
	pipelines, err := store.ListPipelines(context.Background())
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("expected 1 seeded pipeline, got %d", len(pipelines))
	}
	if pipelines[0].Name != "Sales" {
		t.Fatalf("unexpected pipeline %q", pipelines[0].Name)
	}
	if len(pipelines[0].Stages) != 5 || pipelines[0].Stages[0] != "lead" {
		t.Fatalf("unexpected stages %v", pipelines[0].Stages)
	}
}

func TestDealStageRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deal, err := store.CreateDeal(ctx, CreateDealParams{Title: "Enterprise plan", Amount: 5000})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if deal.Stage != "lead" {
		t.Fatalf("expected the first pipeline stage by default, got %q", deal.Stage)
	}

	if _, err := store.UpdateDealStage(ctx, deal.ID, "imaginary"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for an unknown stage, got %v", err)
	}

	moved, err := store.UpdateDealStage(ctx, deal.ID, "qualified")
	if err != nil {
		t.Fatalf("UpdateDealStage: %v", err)
	}
	if moved.Stage != "qualified" {
		t.Fatalf("expected qualified, got %q", moved.Stage)
	}

	if _, err := store.CreateDeal(ctx, CreateDealParams{Title: "Bad stage", Stage: "imaginary"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation creating with unknown stage, got %v", err)
	}
}

func TestListDealsByStage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateDeal(ctx, CreateDealParams{Title: "One", Stage: "lead"}); err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := store.CreateDeal(ctx, CreateDealParams{Title: "Two", Stage: "qualified"}); err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	qualified, err := store.ListDeals(ctx, "qualified", 10)
	if err != nil {
		t.Fatalf("ListDeals: %v", err)
	}
	if len(qualified) != 1 || qualified[0].Title != "Two" {
		t.Fatalf("expected only the qualified deal, got %+v", qualified)
	}
}

func TestTaskCompletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, CreateTaskParams{Title: "Follow up"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Done {
		t.Fatalf("new task must not be done")
	}

	completed, err := store.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !completed.Done {
		t.Fatalf("expected done after completion")
	}

	open, err := store.ListTasks(ctx, false, 10)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("completed tasks must drop out of the open list, got %d", len(open))
	}

	all, err := store.ListTasks(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the task in the full list, got %d", len(all))
	}

	if _, err := store.CompleteTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompanyLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	company, err := store.CreateCompany(ctx, CreateCompanyParams{Name: "Acme", Domain: "acme.test"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	industry := "manufacturing"
	updated, err := store.UpdateCompany(ctx, company.ID, UpdateCompanyParams{Industry: &industry})
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if updated.Industry != "manufacturing" || updated.Name != "Acme" {
		t.Fatalf("unexpected company %+v", updated)
	}

	companies, err := store.ListCompanies(ctx, 10)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(companies))
	}
}
