package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	z "github.com/Oudwins/zog"
	"github.com/go-chi/chi/v5"

	"github.com/mbarden/leadwire/internals/agent"
	"github.com/mbarden/leadwire/internals/schemas"
)

func (s *Server) HandlerCreateTask(w http.ResponseWriter, r *http.Request) {
	var request schemas.TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInvalidJson, "Invalid JSON", nil), Render.Status(http.StatusBadRequest))
		return
	}

	if issues := schemas.TaskCreateSchema.Validate(&request); len(issues) > 0 {
		payload := JsonResponseError(JsonResponseErrorCodeValidationFailed, "Schema validation failed", z.Issues.Flatten(issues))
		RenderJSON(w, r, payload, Render.Status(http.StatusBadRequest))
		return
	}

	task, err := s.Base.Agent.CreateTask(r.Context(), request.Prompt, request.MaxSteps)
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	RenderJSON(w, r, schemas.TaskResponseFrom(task), Render.Status(http.StatusCreated))
}

func (s *Server) HandlerRunTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Base.Agent.RunTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	RenderJSON(w, r, schemas.TaskResponseFrom(task))
}

func (s *Server) HandlerApproveAction(w http.ResponseWriter, r *http.Request) {
	var request schemas.ApproveActionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInvalidJson, "Invalid JSON", nil), Render.Status(http.StatusBadRequest))
		return
	}

	if issues := schemas.ApproveActionSchema.Validate(&request); len(issues) > 0 {
		payload := JsonResponseError(JsonResponseErrorCodeValidationFailed, "Schema validation failed", z.Issues.Flatten(issues))
		RenderJSON(w, r, payload, Render.Status(http.StatusBadRequest))
		return
	}

	task, err := s.Base.Agent.ApproveAction(r.Context(), chi.URLParam(r, "id"), request.Approved, request.Reason)
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	RenderJSON(w, r, schemas.TaskResponseFrom(task))
}

func (s *Server) HandlerCancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Base.Agent.CancelTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	RenderJSON(w, r, schemas.TaskResponseFrom(task))
}

func (s *Server) HandlerGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Base.Agent.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	RenderJSON(w, r, schemas.TaskResponseFrom(task))
}

func (s *Server) HandlerListTasks(w http.ResponseWriter, r *http.Request) {
	status := agent.Status(r.URL.Query().Get("status"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "limit must be a non-negative integer", nil), Render.Status(http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	tasks, err := s.Base.Agent.ListTasks(r.Context(), status, limit)
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	response := schemas.TaskListResponse{Tasks: make([]schemas.TaskResponse, 0, len(tasks))}
	for i := range tasks {
		response.Tasks = append(response.Tasks, schemas.TaskResponseFrom(&tasks[i]))
	}
	RenderJSON(w, r, response)
}

func (s *Server) HandlerListActions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Base.Agent.GetTask(r.Context(), id); err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	actions, err := s.Base.Agent.ListActions(r.Context(), id)
	if err != nil {
		s.renderAgentError(w, r, err)
		return
	}
	response := schemas.ActionListResponse{Actions: make([]schemas.ActionResponse, 0, len(actions))}
	for i := range actions {
		response.Actions = append(response.Actions, schemas.ActionResponseFrom(&actions[i]))
	}
	RenderJSON(w, r, response)
}

func (s *Server) renderAgentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, err.Error(), nil), Render.Status(http.StatusNotFound))
	case errors.Is(err, agent.ErrInvalidTaskState):
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInvalidState, err.Error(), nil), Render.Status(http.StatusConflict))
	case errors.Is(err, agent.ErrInvalidMaxSteps):
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, err.Error(), nil), Render.Status(http.StatusBadRequest))
	case errors.Is(err, agent.ErrDisabled):
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeAgentDisabled, err.Error(), nil), Render.Status(http.StatusForbidden))
	default:
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, err.Error(), nil), Render.Status(http.StatusInternalServerError))
	}
}
