// Package schemas holds the wire types and zog request validators shared by
// the HTTP server and the sdk client.
package schemas

import (
	"encoding/json"

	z "github.com/Oudwins/zog"

	"github.com/mbarden/leadwire/internals/agent"
)

type TaskCreateRequest struct {
	Prompt   string `json:"prompt" zog:"prompt"`
	MaxSteps int    `json:"max_steps" zog:"max_steps"`
}

var TaskCreateSchema = z.Struct(z.Shape{
	"Prompt":   z.String().Required().Trim().Min(1),
	"MaxSteps": z.Int().Optional().GTE(0),
})

type ApproveActionRequest struct {
	Approved bool   `json:"approved" zog:"approved"`
	Reason   string `json:"reason" zog:"reason"`
}

var ApproveActionSchema = z.Struct(z.Shape{
	"Approved": z.Bool().Optional(),
	"Reason":   z.String().Optional().Trim(),
})

type PendingActionResponse struct {
	ActionID  string          `json:"action_id"`
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

type TaskResponse struct {
	TaskID         string                 `json:"task_id"`
	Prompt         string                 `json:"prompt"`
	Goal           string                 `json:"goal,omitempty"`
	Status         agent.Status           `json:"status"`
	StepsCompleted int                    `json:"steps_completed"`
	MaxSteps       int                    `json:"max_steps"`
	CurrentStep    string                 `json:"current_step,omitempty"`
	PendingAction  *PendingActionResponse `json:"pending_action,omitempty"`
	Result         string                 `json:"result,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      string                 `json:"created_at"`
	StartedAt      string                 `json:"started_at,omitempty"`
	CompletedAt    string                 `json:"completed_at,omitempty"`
}

func TaskResponseFrom(t *agent.Task) TaskResponse {
	resp := TaskResponse{
		TaskID:         t.ID,
		Prompt:         t.Prompt,
		Goal:           t.Goal,
		Status:         t.Status,
		StepsCompleted: t.StepsCompleted,
		MaxSteps:       t.MaxSteps,
		CurrentStep:    t.CurrentStep,
		Result:         t.Result,
		Error:          t.Error,
		CreatedAt:      t.CreatedAt,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
	}
	if t.Pending != nil {
		resp.PendingAction = &PendingActionResponse{
			ActionID:  t.Pending.ActionID,
			ToolName:  t.Pending.ToolName,
			ToolInput: t.Pending.ToolInput,
		}
	}
	return resp
}

type ActionResponse struct {
	ActionID         string          `json:"action_id"`
	TaskID           string          `json:"task_id"`
	ActionType       string          `json:"action_type"`
	ToolName         string          `json:"tool_name"`
	ToolInput        json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput       json.RawMessage `json:"tool_output,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	Approved         *bool           `json:"approved,omitempty"`
	AutoApproved     bool            `json:"auto_approved,omitempty"`
	ApprovedAt       string          `json:"approved_at,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	Executed         bool            `json:"executed"`
	ExecutionError   string          `json:"execution_error,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

func ActionResponseFrom(a *agent.Action) ActionResponse {
	return ActionResponse{
		ActionID:         a.ID,
		TaskID:           a.TaskID,
		ActionType:       string(a.ActionType),
		ToolName:         a.ToolName,
		ToolInput:        a.ToolInput,
		ToolOutput:       a.ToolOutput,
		RequiresApproval: a.RequiresApproval,
		Approved:         a.Approved,
		AutoApproved:     a.AutoApproved,
		ApprovedAt:       a.ApprovedAt,
		RejectionReason:  a.RejectionReason,
		Executed:         a.Executed,
		ExecutionError:   a.ExecutionError,
		CreatedAt:        a.CreatedAt,
	}
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

type ActionListResponse struct {
	Actions []ActionResponse `json:"actions"`
}
