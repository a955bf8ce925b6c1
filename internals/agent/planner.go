package agent

import (
	"context"
	"encoding/json"

	"github.com/mbarden/leadwire/internals/tools"
)

// HistoryEntry is one prior tool-invocation attempt, shown to the planner
// so it can reason over earlier results, failures and rejections.
type HistoryEntry struct {
	ActionID        string
	ToolName        string
	ToolInput       json.RawMessage
	ToolOutput      json.RawMessage
	ExecutionError  string
	Rejected        bool
	RejectionReason string
}

type PlanRequest struct {
	Prompt         string
	Goal           string
	History        []HistoryEntry
	RemainingSteps int
	Tools          []tools.Definition
}

type ToolCall struct {
	Name  string
	Input json.RawMessage
}

// PlanResult is exactly one of a final answer or a single tool call, never
// both. Goal is an optional restatement derived on the first planning step.
type PlanResult struct {
	Answer string
	Call   *ToolCall
	Goal   string
}

// Planner is stateless between calls: everything it needs travels in the
// request, everything it decides comes back in the result.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResult, error)
}
