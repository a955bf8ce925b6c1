// Package agent implements the AI task-execution engine: a task state
// machine that lets a model invoke CRM tools across multiple steps, pausing
// for human approval before any mutating tool call runs.
package agent

import (
	"encoding/json"

	"github.com/mbarden/leadwire/internals/tools"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed. Rejected is
// deliberately not terminal: the planner is told about the rejection and
// keeps going.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// PendingAction mirrors the one not-yet-executed action a paused task is
// waiting on, for quick access without reading the action history.
type PendingAction struct {
	ActionID  string          `json:"action_id"`
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

// Task is one user-initiated goal. Mutated exclusively by the engine and
// never deleted; timestamps are RFC3339Nano text.
type Task struct {
	ID             string
	Prompt         string
	Goal           string
	Status         Status
	StepsCompleted int
	MaxSteps       int
	CurrentStep    string
	Pending        *PendingAction
	Result         string
	Error          string
	CreatedAt      string
	StartedAt      string
	CompletedAt    string
}

// Action is one tool-invocation attempt, created the instant the planner
// proposes it so rejected and failed proposals stay on the audit trail.
// After creation only the approval decision and the execution outcome may
// be written.
type Action struct {
	ID               string
	TaskID           string
	ActionType       tools.ActionType
	ToolName         string
	ToolInput        json.RawMessage
	ToolOutput       json.RawMessage
	RequiresApproval bool
	Approved         *bool
	AutoApproved     bool
	ApprovedAt       string
	RejectionReason  string
	Executed         bool
	ExecutionError   string
	CreatedAt        string
}
