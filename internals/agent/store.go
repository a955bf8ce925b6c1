package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbarden/leadwire/internals/tools"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside a per-step transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists agent tasks and their append-only action history. The
// database is the single source of truth for task state; there is no
// in-memory cache.
type Store struct {
	db *sql.DB
	q  DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// WithTx returns a store running its queries inside tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: s.db, q: tx}
}

func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO agent_tasks (id, prompt, goal, status, steps_completed, max_steps, current_step, pending_action_json, result, error, created_at, started_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, task.ID, task.Prompt, nullIfEmpty(task.Goal), task.Status, task.StepsCompleted, task.MaxSteps,
		nullIfEmpty(task.CurrentStep), marshalPending(task.Pending), nullIfEmpty(task.Result), nullIfEmpty(task.Error),
		task.CreatedAt, nullIfEmpty(task.StartedAt), nullIfEmpty(task.CompletedAt))
	return err
}

// UpdateTask refuses to touch a row that already reached a terminal state,
// so a concurrent cancellation can never be overwritten by an in-flight
// loop. A refused update surfaces as ErrInvalidTaskState.
func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	result, err := s.q.ExecContext(ctx, `
UPDATE agent_tasks
SET goal = ?, status = ?, steps_completed = ?, current_step = ?, pending_action_json = ?, result = ?, error = ?, started_at = ?, completed_at = ?
WHERE id = ? AND status NOT IN ('completed', 'failed', 'cancelled')
`, nullIfEmpty(task.Goal), task.Status, task.StepsCompleted, nullIfEmpty(task.CurrentStep), marshalPending(task.Pending),
		nullIfEmpty(task.Result), nullIfEmpty(task.Error), nullIfEmpty(task.StartedAt), nullIfEmpty(task.CompletedAt), task.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: task %s can no longer be updated", ErrInvalidTaskState, task.ID)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.q.QueryRowContext(ctx, `
SELECT id, prompt, goal, status, steps_completed, max_steps, current_step, pending_action_json, result, error, created_at, started_at, completed_at
FROM agent_tasks WHERE id = ?
`, id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, status Status, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, prompt, goal, status, steps_completed, max_steps, current_step, pending_action_json, result, error, created_at, started_at, completed_at
FROM agent_tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func (s *Store) CreateAction(ctx context.Context, action *Action) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO agent_actions (id, task_id, action_type, tool_name, tool_input_json, tool_output_json, requires_approval, approved, auto_approved, approved_at, rejection_reason, executed, execution_error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, action.ID, action.TaskID, action.ActionType, action.ToolName, string(action.ToolInput), nullIfEmptyBytes(action.ToolOutput),
		action.RequiresApproval, nullableBool(action.Approved), action.AutoApproved, nullIfEmpty(action.ApprovedAt),
		nullIfEmpty(action.RejectionReason), action.Executed, nullIfEmpty(action.ExecutionError), action.CreatedAt)
	return err
}

// UpdateAction writes the two permitted mutations on an audit record: the
// approval decision and the execution outcome.
func (s *Store) UpdateAction(ctx context.Context, action *Action) error {
	result, err := s.q.ExecContext(ctx, `
UPDATE agent_actions
SET tool_output_json = ?, approved = ?, auto_approved = ?, approved_at = ?, rejection_reason = ?, executed = ?, execution_error = ?
WHERE id = ?
`, nullIfEmptyBytes(action.ToolOutput), nullableBool(action.Approved), action.AutoApproved, nullIfEmpty(action.ApprovedAt),
		nullIfEmpty(action.RejectionReason), action.Executed, nullIfEmpty(action.ExecutionError), action.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: action %s", ErrNotFound, action.ID)
	}
	return nil
}

func (s *Store) GetAction(ctx context.Context, id string) (*Action, error) {
	row := s.q.QueryRowContext(ctx, `
SELECT id, task_id, action_type, tool_name, tool_input_json, tool_output_json, requires_approval, approved, auto_approved, approved_at, rejection_reason, executed, execution_error, created_at
FROM agent_actions WHERE id = ?
`, id)
	return scanAction(row)
}

// ListActions returns the task's full action history in creation order: the
// audit trail.
func (s *Store) ListActions(ctx context.Context, taskID string) ([]Action, error) {
	rows, err := s.q.QueryContext(ctx, `
SELECT id, task_id, action_type, tool_name, tool_input_json, tool_output_json, requires_approval, approved, auto_approved, approved_at, rejection_reason, executed, execution_error, created_at
FROM agent_actions WHERE task_id = ? ORDER BY created_at, id
`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *action)
	}
	return actions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var goal, currentStep, pendingJSON, result, errMsg, startedAt, completedAt sql.NullString
	var status string
	if err := row.Scan(&task.ID, &task.Prompt, &goal, &status, &task.StepsCompleted, &task.MaxSteps,
		&currentStep, &pendingJSON, &result, &errMsg, &task.CreatedAt, &startedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	task.Status = Status(status)
	task.Goal = goal.String
	task.CurrentStep = currentStep.String
	task.Result = result.String
	task.Error = errMsg.String
	task.StartedAt = startedAt.String
	task.CompletedAt = completedAt.String
	if pendingJSON.Valid && pendingJSON.String != "" {
		var pending PendingAction
		if err := json.Unmarshal([]byte(pendingJSON.String), &pending); err != nil {
			return nil, fmt.Errorf("failed to decode pending action: %w", err)
		}
		task.Pending = &pending
	}
	return &task, nil
}

func scanAction(row rowScanner) (*Action, error) {
	var action Action
	var actionType, toolInput string
	var toolOutput, approvedAt, rejectionReason, executionError sql.NullString
	var approved sql.NullBool
	if err := row.Scan(&action.ID, &action.TaskID, &actionType, &action.ToolName, &toolInput, &toolOutput,
		&action.RequiresApproval, &approved, &action.AutoApproved, &approvedAt, &rejectionReason,
		&action.Executed, &executionError, &action.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: action", ErrNotFound)
		}
		return nil, err
	}
	action.ActionType = tools.ActionType(actionType)
	action.ToolInput = json.RawMessage(toolInput)
	if toolOutput.Valid {
		action.ToolOutput = json.RawMessage(toolOutput.String)
	}
	if approved.Valid {
		value := approved.Bool
		action.Approved = &value
	}
	action.ApprovedAt = approvedAt.String
	action.RejectionReason = rejectionReason.String
	action.ExecutionError = executionError.String
	return &action, nil
}

func marshalPending(pending *PendingAction) any {
	if pending == nil {
		return nil
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullIfEmptyBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	return *value
}
