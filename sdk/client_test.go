package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbarden/leadwire/internals/schemas"
)

func TestClientVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("  test-version  "))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	version, err := client.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "test-version" {
		t.Fatalf("expected trimmed version, got %q", version)
	}
}

func TestClientTaskFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case http.MethodPost + " /agent/tasks":
			var request schemas.TaskCreateRequest
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Prompt == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(&schemas.TaskResponse{TaskID: "task1", Status: "pending", Prompt: request.Prompt})
		case http.MethodPost + " /agent/tasks/task1/run":
			_ = json.NewEncoder(w).Encode(&schemas.TaskResponse{TaskID: "task1", Status: "awaiting_approval"})
		case http.MethodPost + " /agent/tasks/task1/approve":
			var request schemas.ApproveActionRequest
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil || !request.Approved {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(&schemas.TaskResponse{TaskID: "task1", Status: "completed"})
		case http.MethodGet + " /agent/tasks/task1":
			_ = json.NewEncoder(w).Encode(&schemas.TaskResponse{TaskID: "task1", Status: "completed"})
		case http.MethodGet + " /agent/tasks/task1/actions":
			_ = json.NewEncoder(w).Encode(&schemas.ActionListResponse{Actions: []schemas.ActionResponse{{ActionID: "a1", TaskID: "task1", ToolName: "create_contact"}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	created, err := client.CreateTask(ctx, schemas.TaskCreateRequest{Prompt: "add Ada"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.TaskID != "task1" {
		t.Fatalf("unexpected task id %s", created.TaskID)
	}

	paused, err := client.RunTask(ctx, "task1")
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if paused.Status != "awaiting_approval" {
		t.Fatalf("expected awaiting_approval, got %s", paused.Status)
	}

	done, err := client.ApproveAction(ctx, "task1", schemas.ApproveActionRequest{Approved: true})
	if err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	if done.Status != "completed" {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	actions, err := client.ListActions(ctx, "task1")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(actions.Actions) != 1 || actions.Actions[0].ActionID != "a1" {
		t.Fatalf("unexpected actions %+v", actions.Actions)
	}
}

func TestClientListTasksQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(&schemas.TaskListResponse{Tasks: []schemas.TaskResponse{}})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.ListTasks(ctx, "pending", 5); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if gotQuery != "limit=5&status=pending" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestClientErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "failed", Code: "invalid_state", Message: "task is completed"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.RunTask(ctx, "task1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "invalid_state" || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
}

func TestIsRunningFalseWithoutServer(t *testing.T) {
	if IsRunning("http://127.0.0.1:1") {
		t.Fatalf("expected not running")
	}
}
