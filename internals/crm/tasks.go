package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type CreateTaskParams struct {
	Title     string
	DueAt     string
	ContactID string
}

func (s *Store) CreateTask(ctx context.Context, params CreateTaskParams) (*Task, error) {
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if params.ContactID != "" {
		if _, err := s.GetContact(ctx, params.ContactID); err != nil {
			return nil, err
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	ts := now()
	task := &Task{
		ID:        id.String(),
		Title:     params.Title,
		DueAt:     params.DueAt,
		ContactID: params.ContactID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO crm_tasks (id, title, due_at, done, contact_id, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?, ?)
`, task.ID, task.Title, nullIfEmpty(task.DueAt), nullIfEmpty(task.ContactID), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, includeDone bool, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, title, due_at, done, contact_id, created_at, updated_at
FROM crm_tasks`
	if !includeDone {
		query += ` WHERE done = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var task Task
		var dueAt, contactID sql.NullString
		if err := rows.Scan(&task.ID, &task.Title, &dueAt, &task.Done, &contactID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		task.DueAt = dueAt.String
		task.ContactID = contactID.String
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Store) CompleteTask(ctx context.Context, id string) (*Task, error) {
	result, err := s.db.ExecContext(ctx, `
UPDATE crm_tasks SET done = 1, updated_at = ? WHERE id = ?
`, now(), id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, title, due_at, done, contact_id, created_at, updated_at FROM crm_tasks WHERE id = ?
`, id)
	var task Task
	var dueAt, contactID sql.NullString
	if err := row.Scan(&task.ID, &task.Title, &dueAt, &task.Done, &contactID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		return nil, err
	}
	task.DueAt = dueAt.String
	task.ContactID = contactID.String
	return &task, nil
}
