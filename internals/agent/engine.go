package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbarden/leadwire/internals/conf"
	"github.com/mbarden/leadwire/internals/tools"
)

const budgetExhaustedMessage = "step budget exhausted"

// errHalted signals that the task reached a terminal state concurrently
// (cancellation) while a step was in flight. The step's outcome is still
// recorded on its action; the task row stays as it is.
var errHalted = errors.New("task halted concurrently")

// Engine owns the task lifecycle. Per task, operations are serialized by an
// in-process mutex; across processes the persisted status acts as the mutex
// (UpdateTask refuses to touch a terminal row). A step is only consumed
// when a tool call actually executes.
type Engine struct {
	store    *Store
	registry *tools.Registry
	planner  Planner
	logger   *slog.Logger
	cfg      conf.AgentConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store *Store, registry *tools.Registry, planner Planner, logger *slog.Logger, cfg conf.AgentConfig) *Engine {
	if cfg.DefaultMaxSteps <= 0 {
		cfg.DefaultMaxSteps = 10
	}
	return &Engine{
		store:    store,
		registry: registry,
		planner:  planner,
		logger:   logger,
		cfg:      cfg,
		locks:    map[string]*sync.Mutex{},
	}
}

func (e *Engine) lockTask(id string) func() {
	e.mu.Lock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// CreateTask constructs a pending task. No model call happens here.
func (e *Engine) CreateTask(ctx context.Context, prompt string, maxSteps int) (*Task, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidTaskState)
	}
	if maxSteps == 0 {
		maxSteps = e.cfg.DefaultMaxSteps
	}
	if maxSteps < 0 {
		return nil, ErrInvalidMaxSteps
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	task := &Task{
		ID:        id.String(),
		Prompt:    prompt,
		Status:    StatusPending,
		MaxSteps:  maxSteps,
		CreatedAt: nowString(),
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	e.logger.Info("agent task created", slog.String("task_id", task.ID), slog.Int("max_steps", maxSteps))
	return task, nil
}

// RunTask starts or resumes the planning loop. Running a task that is
// awaiting approval is a no-op: approval is the only operation that
// unblocks a paused task.
func (e *Engine) RunTask(ctx context.Context, id string) (*Task, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	unlock := e.lockTask(id)
	defer unlock()

	task, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == StatusAwaitingApproval {
		return task, nil
	}
	if task.Status.Terminal() {
		return nil, fmt.Errorf("%w: task is %s", ErrInvalidTaskState, task.Status)
	}
	if task.Status == StatusPending {
		task.StartedAt = nowString()
	}
	return e.runLoop(ctx, task)
}

// ApproveAction resolves a paused task. Approval executes the pending
// action and keeps the loop going; rejection records the decision, spends
// no step, and also keeps the loop going so the planner can adapt.
func (e *Engine) ApproveAction(ctx context.Context, id string, approved bool, rejectionReason string) (*Task, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	unlock := e.lockTask(id)
	defer unlock()

	task, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != StatusAwaitingApproval {
		return nil, fmt.Errorf("%w: task is %s, not awaiting approval", ErrInvalidTaskState, task.Status)
	}
	if task.Pending == nil {
		return nil, fmt.Errorf("task %s is awaiting approval but has no pending action", task.ID)
	}
	action, err := e.store.GetAction(ctx, task.Pending.ActionID)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With(slog.String("task_id", task.ID), slog.String("action_id", action.ID), slog.String("tool", action.ToolName))
	decidedAt := nowString()

	if !approved {
		value := false
		action.Approved = &value
		action.ApprovedAt = decidedAt
		action.RejectionReason = rejectionReason
		task.Status = StatusRejected
		task.Pending = nil
		task.CurrentStep = ""
		if err := e.commitStep(ctx, task, action); err != nil {
			if errors.Is(err, errHalted) {
				return e.store.GetTask(ctx, id)
			}
			return nil, err
		}
		logger.Info("action rejected", slog.String("reason", rejectionReason))
		return e.runLoop(ctx, task)
	}

	value := true
	action.Approved = &value
	action.ApprovedAt = decidedAt
	if !action.Executed {
		output, execErr := e.registry.Execute(ctx, action.ToolName, action.ToolInput)
		action.Executed = true
		if execErr != nil {
			action.ExecutionError = execErr.Error()
			logger.Warn("approved action failed", slog.String("error", execErr.Error()))
		} else {
			action.ToolOutput = output
		}
		task.StepsCompleted++
	}
	task.Status = StatusApproved
	task.Pending = nil
	task.CurrentStep = ""
	if err := e.commitStep(ctx, task, action); err != nil {
		if errors.Is(err, errHalted) {
			return e.store.GetTask(ctx, id)
		}
		return nil, err
	}
	logger.Info("action approved and executed", slog.Int("steps_completed", task.StepsCompleted))
	return e.runLoop(ctx, task)
}

// CancelTask flips any live task to cancelled. It deliberately skips the
// per-task lock so a long-running loop cannot delay it; the loop observes
// the persisted status on its next iteration. The pending action and the
// history stay untouched for audit.
func (e *Engine) CancelTask(ctx context.Context, id string) (*Task, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	task, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, fmt.Errorf("%w: task is already %s", ErrInvalidTaskState, task.Status)
	}
	task.Status = StatusCancelled
	task.CompletedAt = nowString()
	task.CurrentStep = ""
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	e.logger.Info("agent task cancelled", slog.String("task_id", task.ID))
	return task, nil
}

func (e *Engine) GetTask(ctx context.Context, id string) (*Task, error) {
	return e.store.GetTask(ctx, id)
}

func (e *Engine) ListTasks(ctx context.Context, status Status, limit int) ([]Task, error) {
	return e.store.ListTasks(ctx, status, limit)
}

// ListActions returns the task's audit trail in creation order.
func (e *Engine) ListActions(ctx context.Context, taskID string) ([]Action, error) {
	if _, err := e.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return e.store.ListActions(ctx, taskID)
}

func (e *Engine) ListTools() []tools.Definition {
	return e.registry.List()
}

// runLoop drives the task one step at a time until the planner answers, the
// budget runs out, the task pauses for approval, or it gets cancelled.
func (e *Engine) runLoop(ctx context.Context, task *Task) (*Task, error) {
	logger := e.logger.With(slog.String("task_id", task.ID))
	for {
		// Re-read so a cancellation recorded between steps is observed.
		fresh, err := e.store.GetTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.Terminal() {
			return fresh, nil
		}

		task.Status = StatusRunning
		task.CurrentStep = "planning next step"
		if err := e.store.UpdateTask(ctx, task); err != nil {
			if errors.Is(err, ErrInvalidTaskState) {
				return e.store.GetTask(ctx, task.ID)
			}
			return nil, err
		}

		history, err := e.planHistory(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		plan, err := e.planner.Plan(ctx, PlanRequest{
			Prompt:         task.Prompt,
			Goal:           task.Goal,
			History:        history,
			RemainingSteps: task.MaxSteps - task.StepsCompleted,
			Tools:          e.registry.List(),
		})
		if err != nil {
			logger.Error("planning failed", slog.String("error", err.Error()))
			return e.failTask(ctx, task, fmt.Sprintf("planning failed: %s", err))
		}
		if plan.Goal != "" && task.Goal == "" {
			task.Goal = plan.Goal
		}

		if plan.Call == nil {
			task.Status = StatusCompleted
			task.Result = plan.Answer
			task.CurrentStep = ""
			task.CompletedAt = nowString()
			if err := e.store.UpdateTask(ctx, task); err != nil {
				if errors.Is(err, ErrInvalidTaskState) {
					return e.store.GetTask(ctx, task.ID)
				}
				return nil, err
			}
			logger.Info("agent task completed", slog.Int("steps_completed", task.StepsCompleted))
			return task, nil
		}

		// A final answer is always accepted; another tool call needs budget.
		if task.StepsCompleted >= task.MaxSteps {
			logger.Warn("step budget exhausted", slog.Int("max_steps", task.MaxSteps))
			return e.failTask(ctx, task, budgetExhaustedMessage)
		}

		paused, err := e.step(ctx, task, plan.Call, logger)
		if err != nil {
			return nil, err
		}
		if paused {
			return e.store.GetTask(ctx, task.ID)
		}
	}
}

// step records the proposal, then either pauses for approval or executes
// immediately (read-only tools, or any tool when approvals are switched
// off). Execution failures land on the action, never on the task.
func (e *Engine) step(ctx context.Context, task *Task, call *ToolCall, logger *slog.Logger) (paused bool, err error) {
	actionID, err := uuid.NewV7()
	if err != nil {
		return false, err
	}
	input := call.Input
	if len(input) == 0 {
		input = []byte("{}")
	}

	actionType := tools.ActionReadOnly
	tool, lookupErr := e.registry.Get(call.Name)
	if lookupErr == nil {
		actionType = tool.ActionType()
	}
	action := &Action{
		ID:               actionID.String(),
		TaskID:           task.ID,
		ActionType:       actionType,
		ToolName:         call.Name,
		ToolInput:        input,
		RequiresApproval: actionType.RequiresApproval(),
		CreatedAt:        nowString(),
	}

	if action.RequiresApproval && e.cfg.RequireApproval {
		tx, err := e.store.Begin(ctx)
		if err != nil {
			return false, err
		}
		defer tx.Rollback()
		txStore := e.store.WithTx(tx)
		if err := txStore.CreateAction(ctx, action); err != nil {
			return false, err
		}
		task.Status = StatusAwaitingApproval
		task.Pending = &PendingAction{ActionID: action.ID, ToolName: action.ToolName, ToolInput: action.ToolInput}
		task.CurrentStep = "awaiting approval for " + action.ToolName
		if err := txStore.UpdateTask(ctx, task); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		logger.Info("task paused for approval", slog.String("tool", action.ToolName), slog.String("action_type", string(actionType)))
		return true, nil
	}

	// Record the proposal before executing so a crash mid-step leaves an
	// unexecuted action and an unchanged step counter.
	if err := e.store.CreateAction(ctx, action); err != nil {
		return false, err
	}

	if lookupErr != nil {
		action.ExecutionError = lookupErr.Error()
		logger.Warn("planner proposed unknown tool", slog.String("tool", call.Name))
	} else {
		if action.RequiresApproval {
			value := true
			action.Approved = &value
			action.AutoApproved = true
			action.ApprovedAt = nowString()
		}
		output, execErr := e.registry.Execute(ctx, call.Name, input)
		action.Executed = true
		if execErr != nil {
			action.ExecutionError = execErr.Error()
			logger.Warn("tool execution failed", slog.String("tool", call.Name), slog.String("error", execErr.Error()))
		} else {
			action.ToolOutput = output
		}
	}
	task.StepsCompleted++
	task.CurrentStep = "executed " + call.Name
	if err := e.commitStep(ctx, task, action); err != nil {
		if errors.Is(err, errHalted) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// commitStep writes the action outcome and the task mutation in one
// transaction so a step is either fully recorded or not at all. If the
// task was cancelled concurrently, the action outcome is still recorded
// (a step already dispatched completes normally) and errHalted is
// returned.
func (e *Engine) commitStep(ctx context.Context, task *Task, action *Action) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txStore := e.store.WithTx(tx)
	if err := txStore.UpdateAction(ctx, action); err != nil {
		return err
	}
	if err := txStore.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, ErrInvalidTaskState) {
			_ = tx.Rollback()
			if actionErr := e.store.UpdateAction(ctx, action); actionErr != nil {
				return actionErr
			}
			return errHalted
		}
		return err
	}
	return tx.Commit()
}

func (e *Engine) failTask(ctx context.Context, task *Task, message string) (*Task, error) {
	task.Status = StatusFailed
	task.Error = message
	task.CurrentStep = ""
	task.CompletedAt = nowString()
	if err := e.store.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, ErrInvalidTaskState) {
			return e.store.GetTask(ctx, task.ID)
		}
		return nil, err
	}
	return task, nil
}

// planHistory converts the audit trail into planner history. The entry the
// task is currently paused on never reaches here: the loop stops before
// planning while an undecided action exists.
func (e *Engine) planHistory(ctx context.Context, taskID string) ([]HistoryEntry, error) {
	actions, err := e.store.ListActions(ctx, taskID)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(actions))
	for _, action := range actions {
		entry := HistoryEntry{
			ActionID:       action.ID,
			ToolName:       action.ToolName,
			ToolInput:      action.ToolInput,
			ToolOutput:     action.ToolOutput,
			ExecutionError: action.ExecutionError,
		}
		if action.Approved != nil && !*action.Approved {
			entry.Rejected = true
			entry.RejectionReason = action.RejectionReason
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
