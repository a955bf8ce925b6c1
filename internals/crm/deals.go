package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

type CreateDealParams struct {
	Title      string
	Amount     float64
	PipelineID string
	Stage      string
	ContactID  string
}

func (s *Store) CreateDeal(ctx context.Context, params CreateDealParams) (*Deal, error) {
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	pipeline, err := s.resolvePipeline(ctx, params.PipelineID)
	if err != nil {
		return nil, err
	}
	stage := params.Stage
	if stage == "" {
		stage = pipeline.Stages[0]
	} else if !slices.Contains(pipeline.Stages, stage) {
		return nil, fmt.Errorf("%w: stage %q is not part of pipeline %q", ErrValidation, stage, pipeline.Name)
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
	deal := &Deal{
		ID:         id.String(),
		Title:      params.Title,
		Amount:     params.Amount,
		Stage:      stage,
		PipelineID: pipeline.ID,
		ContactID:  params.ContactID,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO deals (id, title, amount, stage, pipeline_id, contact_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, deal.ID, deal.Title, deal.Amount, deal.Stage, deal.PipelineID, nullIfEmpty(deal.ContactID), deal.CreatedAt, deal.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *Store) GetDeal(ctx context.Context, id string) (*Deal, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, amount, stage, pipeline_id, contact_id, created_at, updated_at
FROM deals WHERE id = ?
`, id)
	var deal Deal
	var contactID sql.NullString
	if err := row.Scan(&deal.ID, &deal.Title, &deal.Amount, &deal.Stage, &deal.PipelineID, &contactID, &deal.CreatedAt, &deal.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: deal %s", ErrNotFound, id)
		}
		return nil, err
	}
	deal.ContactID = contactID.String
	return &deal, nil
}

func (s *Store) ListDeals(ctx context.Context, stage string, limit int) ([]Deal, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, title, amount, stage, pipeline_id, contact_id, created_at, updated_at
FROM deals`
	args := []any{}
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var deal Deal
		var contactID sql.NullString
		if err := rows.Scan(&deal.ID, &deal.Title, &deal.Amount, &deal.Stage, &deal.PipelineID, &contactID, &deal.CreatedAt, &deal.UpdatedAt); err != nil {
			return nil, err
		}
		deal.ContactID = contactID.String
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

func (s *Store) UpdateDealStage(ctx context.Context, id string, stage string) (*Deal, error) {
	deal, err := s.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.resolvePipeline(ctx, deal.PipelineID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(pipeline.Stages, stage) {
		return nil, fmt.Errorf("%w: stage %q is not part of pipeline %q", ErrValidation, stage, pipeline.Name)
	}
	deal.Stage = stage
	deal.UpdatedAt = now()
	_, err = s.db.ExecContext(ctx, `
UPDATE deals SET stage = ?, updated_at = ? WHERE id = ?
`, deal.Stage, deal.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *Store) DeleteDeal(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: deal %s", ErrNotFound, id)
	}
	return nil
}

// resolvePipeline falls back to the default pipeline when no id is given.
func (s *Store) resolvePipeline(ctx context.Context, id string) (*Pipeline, error) {
	if id == "" {
		pipelines, err := s.ListPipelines(ctx)
		if err != nil {
			return nil, err
		}
		if len(pipelines) == 0 {
			return nil, fmt.Errorf("%w: no pipelines configured", ErrNotFound)
		}
		return &pipelines[0], nil
	}
	return s.GetPipeline(ctx, id)
}
