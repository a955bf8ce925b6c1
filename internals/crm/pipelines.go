package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) GetPipeline(ctx context.Context, id string) (*Pipeline, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM pipelines WHERE id = ?`, id)
	var pipeline Pipeline
	if err := row.Scan(&pipeline.ID, &pipeline.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: pipeline %s", ErrNotFound, id)
		}
		return nil, err
	}
	stages, err := s.pipelineStages(ctx, pipeline.ID)
	if err != nil {
		return nil, err
	}
	pipeline.Stages = stages
	return &pipeline, nil
}

func (s *Store) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM pipelines ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pipelines []Pipeline
	for rows.Next() {
		var pipeline Pipeline
		if err := rows.Scan(&pipeline.ID, &pipeline.Name); err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pipeline)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pipelines {
		stages, err := s.pipelineStages(ctx, pipelines[i].ID)
		if err != nil {
			return nil, err
		}
		pipelines[i].Stages = stages
	}
	return pipelines, nil
}

func (s *Store) pipelineStages(ctx context.Context, pipelineID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name FROM pipeline_stages WHERE pipeline_id = ? ORDER BY position
`, pipelineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		stages = append(stages, name)
	}
	return stages, rows.Err()
}
