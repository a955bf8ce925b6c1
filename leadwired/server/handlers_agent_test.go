package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mbarden/leadwire/internals/agent"
	"github.com/mbarden/leadwire/internals/conf"
	"github.com/mbarden/leadwire/internals/crm"
	"github.com/mbarden/leadwire/internals/logbuf"
	"github.com/mbarden/leadwire/internals/schemas"
	"github.com/mbarden/leadwire/internals/testutil"
	"github.com/mbarden/leadwire/internals/tools"
	"github.com/mbarden/leadwire/leadwired/core"
)

type scriptedPlanner struct {
	mu      sync.Mutex
	results []*agent.PlanResult
}

func (p *scriptedPlanner) Plan(ctx context.Context, req agent.PlanRequest) (*agent.PlanResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil, errors.New("planner script exhausted")
	}
	next := p.results[0]
	p.results = p.results[1:]
	return next, nil
}

func newTestServer(t *testing.T, planner agent.Planner, agentCfg conf.AgentConfig) *Server {
	t.Helper()
	conn := testutil.TempDB(t)
	crmStore := crm.NewStore(conn)
	registry := tools.NewRegistry(crmStore)
	logger := testutil.DiscardLogger()
	engine := agent.NewEngine(agent.NewStore(conn), registry, planner, logger, agentCfg)

	return &Server{
		Base: &core.BaseServer{
			Config: &conf.Config{Version: "test-version", Agent: agentCfg},
			Logger: logger,
			DB:     conn,
			CRM:    crmStore,
			Tools:  registry,
			Agent:  engine,
		},
		Logbuf: logbuf.New(),
	}
}

func enabledConfig() conf.AgentConfig {
	return conf.AgentConfig{Enabled: true, RequireApproval: true, DefaultMaxSteps: 10}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader([]byte("{}"))
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeTask(t *testing.T, recorder *httptest.ResponseRecorder) schemas.TaskResponse {
	t.Helper()
	var task schemas.TaskResponse
	if err := json.NewDecoder(recorder.Body).Decode(&task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var payload ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload
}

func TestHandlerVersion(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	recorder := doJSON(t, server.Router(), http.MethodGet, "/version", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if strings.TrimSpace(recorder.Body.String()) != "test-version" {
		t.Fatalf("unexpected body %q", recorder.Body.String())
	}
}

func TestHandlerCreateTask(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	router := server.Router()

	recorder := doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":"list contacts"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	task := decodeTask(t, recorder)
	if task.TaskID == "" || task.Status != agent.StatusPending {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.MaxSteps != 10 {
		t.Fatalf("expected default max steps, got %d", task.MaxSteps)
	}
}

func TestHandlerCreateTaskRejectsBadInput(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	router := server.Router()

	recorder := doJSON(t, router, http.MethodPost, "/agent/tasks", `{not json`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if payload := decodeError(t, recorder); payload.Code != JsonResponseErrorCodeInvalidJson {
		t.Fatalf("expected invalid_json, got %s", payload.Code)
	}

	recorder = doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":""}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if payload := decodeError(t, recorder); payload.Code != JsonResponseErrorCodeValidationFailed {
		t.Fatalf("expected validation_failed, got %s", payload.Code)
	}
}

func TestHandlerGetTaskNotFound(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	recorder := doJSON(t, server.Router(), http.MethodGet, "/agent/tasks/missing", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if payload := decodeError(t, recorder); payload.Code != JsonResponseErrorCodeNotFound {
		t.Fatalf("expected not_found, got %s", payload.Code)
	}
}

func TestHandlerApprovalFlow(t *testing.T) {
	planner := &scriptedPlanner{results: []*agent.PlanResult{
		{Call: &agent.ToolCall{Name: "create_contact", Input: json.RawMessage(`{"first_name":"Ada","email":"ada@example.com"}`)}},
		{Answer: "created"},
	}}
	server := newTestServer(t, planner, enabledConfig())
	router := server.Router()

	created := decodeTask(t, doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":"add Ada"}`))

	recorder := doJSON(t, router, http.MethodPost, "/agent/tasks/"+created.TaskID+"/run", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("run: expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	paused := decodeTask(t, recorder)
	if paused.Status != agent.StatusAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", paused.Status)
	}
	if paused.PendingAction == nil || paused.PendingAction.ToolName != "create_contact" {
		t.Fatalf("expected pending create_contact, got %+v", paused.PendingAction)
	}

	recorder = doJSON(t, router, http.MethodPost, "/agent/tasks/"+created.TaskID+"/approve", `{"approved":true}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	done := decodeTask(t, recorder)
	if done.Status != agent.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	recorder = doJSON(t, router, http.MethodGet, "/agent/tasks/"+created.TaskID+"/actions", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("actions: expected 200, got %d", recorder.Code)
	}
	var actions schemas.ActionListResponse
	if err := json.NewDecoder(recorder.Body).Decode(&actions); err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if len(actions.Actions) != 1 || !actions.Actions[0].Executed {
		t.Fatalf("expected one executed action, got %+v", actions.Actions)
	}

	contacts, err := server.Base.CRM.ListContacts(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected the contact to exist")
	}
}

func TestHandlerApproveOnNonPausedTask(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	router := server.Router()

	created := decodeTask(t, doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":"p"}`))
	recorder := doJSON(t, router, http.MethodPost, "/agent/tasks/"+created.TaskID+"/approve", `{"approved":true}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	if payload := decodeError(t, recorder); payload.Code != JsonResponseErrorCodeInvalidState {
		t.Fatalf("expected invalid_state, got %s", payload.Code)
	}
}

func TestHandlerCancelIsTerminal(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	router := server.Router()

	created := decodeTask(t, doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":"p"}`))

	recorder := doJSON(t, router, http.MethodPost, "/agent/tasks/"+created.TaskID+"/cancel", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", recorder.Code)
	}
	if task := decodeTask(t, recorder); task.Status != agent.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", task.Status)
	}

	recorder = doJSON(t, router, http.MethodPost, "/agent/tasks/"+created.TaskID+"/cancel", "")
	if recorder.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", recorder.Code)
	}
}

func TestHandlerListTasks(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	router := server.Router()

	for _, prompt := range []string{"one", "two"} {
		doJSON(t, router, http.MethodPost, "/agent/tasks", `{"prompt":"`+prompt+`"}`)
	}

	recorder := doJSON(t, router, http.MethodGet, "/agent/tasks?status=pending", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var list schemas.TaskListResponse
	if err := json.NewDecoder(recorder.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list.Tasks))
	}

	recorder = doJSON(t, router, http.MethodGet, "/agent/tasks?limit=abc", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", recorder.Code)
	}
}

func TestHandlerListTools(t *testing.T) {
	server := newTestServer(t, &scriptedPlanner{}, enabledConfig())
	recorder := doJSON(t, server.Router(), http.MethodGet, "/agent/tools", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload toolListResponse
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Tools) != 16 {
		t.Fatalf("expected 16 tools, got %d", len(payload.Tools))
	}
}

func TestHandlerAgentDisabled(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	server := newTestServer(t, &scriptedPlanner{}, cfg)

	recorder := doJSON(t, server.Router(), http.MethodPost, "/agent/tasks", `{"prompt":"p"}`)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
	if payload := decodeError(t, recorder); payload.Code != JsonResponseErrorCodeAgentDisabled {
		t.Fatalf("expected agent_disabled, got %s", payload.Code)
	}
}
