package agent

import "errors"

var (
	ErrNotFound         = errors.New("agent task not found")
	ErrInvalidTaskState = errors.New("invalid task state for this operation")
	ErrDisabled         = errors.New("agent subsystem is disabled")
	ErrInvalidMaxSteps  = errors.New("max steps must be positive")
)
