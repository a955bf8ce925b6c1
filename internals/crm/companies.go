package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type CreateCompanyParams struct {
	Name     string
	Domain   string
	Industry string
}

func (s *Store) CreateCompany(ctx context.Context, params CreateCompanyParams) (*Company, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	ts := now()
	company := &Company{
		ID:        id.String(),
		Name:      params.Name,
		Domain:    params.Domain,
		Industry:  params.Industry,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO companies (id, name, domain, industry, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, company.ID, company.Name, nullIfEmpty(company.Domain), nullIfEmpty(company.Industry), company.CreatedAt, company.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*Company, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, domain, industry, created_at, updated_at FROM companies WHERE id = ?
`, id)
	var company Company
	var domain, industry sql.NullString
	if err := row.Scan(&company.ID, &company.Name, &domain, &industry, &company.CreatedAt, &company.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", ErrNotFound, id)
		}
		return nil, err
	}
	company.Domain = domain.String
	company.Industry = industry.String
	return &company, nil
}

func (s *Store) ListCompanies(ctx context.Context, limit int) ([]Company, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, domain, industry, created_at, updated_at
FROM companies ORDER BY created_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var company Company
		var domain, industry sql.NullString
		if err := rows.Scan(&company.ID, &company.Name, &domain, &industry, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, err
		}
		company.Domain = domain.String
		company.Industry = industry.String
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

type UpdateCompanyParams struct {
	Name     *string
	Domain   *string
	Industry *string
}

func (s *Store) UpdateCompany(ctx context.Context, id string, params UpdateCompanyParams) (*Company, error) {
	company, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		company.Name = *params.Name
	}
	if params.Domain != nil {
		company.Domain = *params.Domain
	}
	if params.Industry != nil {
		company.Industry = *params.Industry
	}
	if company.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be cleared", ErrValidation)
	}
	company.UpdatedAt = now()
	_, err = s.db.ExecContext(ctx, `
UPDATE companies SET name = ?, domain = ?, industry = ?, updated_at = ? WHERE id = ?
`, company.Name, nullIfEmpty(company.Domain), nullIfEmpty(company.Industry), company.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return company, nil
}
