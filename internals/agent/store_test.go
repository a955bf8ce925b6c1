package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mbarden/leadwire/internals/testutil"
	"github.com/mbarden/leadwire/internals/tools"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.TempDB(t))
}

func TestTaskRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &Task{
		ID:        "task1",
		Prompt:    "do the thing",
		Status:    StatusPending,
		MaxSteps:  5,
		CreatedAt: nowString(),
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task.Status = StatusAwaitingApproval
	task.Pending = &PendingAction{ActionID: "a1", ToolName: "create_contact", ToolInput: json.RawMessage(`{"first_name":"Ada"}`)}
	task.CurrentStep = "awaiting approval for create_contact"
	if err := store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := store.GetTask(ctx, "task1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != StatusAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", got.Status)
	}
	if got.Pending == nil || got.Pending.ActionID != "a1" {
		t.Fatalf("expected pending action to round trip, got %+v", got.Pending)
	}
	if got.MaxSteps != 5 {
		t.Fatalf("expected max steps 5, got %d", got.MaxSteps)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetTask(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskRefusesTerminalRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &Task{ID: "task1", Prompt: "p", Status: StatusCancelled, MaxSteps: 5, CreatedAt: nowString()}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task.Status = StatusRunning
	err := store.UpdateTask(ctx, task)
	if !errors.Is(err, ErrInvalidTaskState) {
		t.Fatalf("expected ErrInvalidTaskState, got %v", err)
	}

	got, err := store.GetTask(ctx, "task1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("terminal row must not change, got %s", got.Status)
	}
}

func TestListTasksFilterAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, task := range []*Task{
		{ID: "t1", Prompt: "a", Status: StatusPending, MaxSteps: 5, CreatedAt: "2026-01-01T00:00:01Z"},
		{ID: "t2", Prompt: "b", Status: StatusCompleted, MaxSteps: 5, CreatedAt: "2026-01-01T00:00:02Z"},
		{ID: "t3", Prompt: "c", Status: StatusPending, MaxSteps: 5, CreatedAt: "2026-01-01T00:00:03Z"},
	} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask %s: %v", task.ID, err)
		}
	}

	pending, err := store.ListTasks(ctx, StatusPending, 0)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", len(pending))
	}
	if pending[0].ID != "t3" {
		t.Fatalf("expected newest first, got %s", pending[0].ID)
	}

	limited, err := store.ListTasks(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "t3" {
		t.Fatalf("expected only the newest task, got %+v", limited)
	}
}

func TestActionRoundTripAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &Task{ID: "task1", Prompt: "p", Status: StatusRunning, MaxSteps: 5, CreatedAt: nowString()}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	first := &Action{
		ID:         "a1",
		TaskID:     "task1",
		ActionType: tools.ActionReadOnly,
		ToolName:   "list_contacts",
		ToolInput:  json.RawMessage(`{}`),
		CreatedAt:  "2026-01-01T00:00:01Z",
	}
	second := &Action{
		ID:               "a2",
		TaskID:           "task1",
		ActionType:       tools.ActionCreate,
		ToolName:         "create_contact",
		ToolInput:        json.RawMessage(`{"first_name":"Ada"}`),
		RequiresApproval: true,
		CreatedAt:        "2026-01-01T00:00:02Z",
	}
	for _, action := range []*Action{first, second} {
		if err := store.CreateAction(ctx, action); err != nil {
			t.Fatalf("CreateAction %s: %v", action.ID, err)
		}
	}

	approved := true
	second.Approved = &approved
	second.ApprovedAt = nowString()
	second.Executed = true
	second.ToolOutput = json.RawMessage(`{"id":"c1"}`)
	if err := store.UpdateAction(ctx, second); err != nil {
		t.Fatalf("UpdateAction: %v", err)
	}

	actions, err := store.ListActions(ctx, "task1")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].ID != "a1" || actions[1].ID != "a2" {
		t.Fatalf("expected creation order, got %s then %s", actions[0].ID, actions[1].ID)
	}
	if actions[1].Approved == nil || !*actions[1].Approved {
		t.Fatalf("expected the approval to round trip")
	}
	if string(actions[1].ToolOutput) != `{"id":"c1"}` {
		t.Fatalf("unexpected output %s", actions[1].ToolOutput)
	}
}

func TestUpdateActionUnknownID(t *testing.T) {
	store := newTestStore(t)
	action := &Action{ID: "missing", TaskID: "t", ActionType: tools.ActionReadOnly, ToolName: "x", ToolInput: json.RawMessage(`{}`), CreatedAt: nowString()}
	if err := store.UpdateAction(context.Background(), action); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
