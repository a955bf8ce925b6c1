package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type CreateContactParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CompanyID string
}

func (s *Store) CreateContact(ctx context.Context, params CreateContactParams) (*Contact, error) {
	if params.FirstName == "" || params.Email == "" {
		return nil, fmt.Errorf("%w: first_name and email are required", ErrValidation)
	}
	if params.CompanyID != "" {
		if _, err := s.GetCompany(ctx, params.CompanyID); err != nil {
			return nil, err
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	ts := now()
	contact := &Contact{
		ID:        id.String(),
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Phone:     params.Phone,
		CompanyID: params.CompanyID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO contacts (id, first_name, last_name, email, phone, company_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, contact.ID, contact.FirstName, nullIfEmpty(contact.LastName), contact.Email, nullIfEmpty(contact.Phone), nullIfEmpty(contact.CompanyID), contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *Store) GetContact(ctx context.Context, id string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, email, phone, company_id, created_at, updated_at
FROM contacts WHERE id = ?
`, id)
	return scanContact(row)
}

func (s *Store) ListContacts(ctx context.Context, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, first_name, last_name, email, phone, company_id, created_at, updated_at
FROM contacts ORDER BY created_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func (s *Store) SearchContacts(ctx context.Context, query string, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT id, first_name, last_name, email, phone, company_id, created_at, updated_at
FROM contacts
WHERE first_name LIKE ? OR last_name LIKE ? OR email LIKE ?
ORDER BY created_at DESC LIMIT ?
`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

type UpdateContactParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	CompanyID *string
}

func (s *Store) UpdateContact(ctx context.Context, id string, params UpdateContactParams) (*Contact, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.FirstName != nil {
		contact.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		contact.LastName = *params.LastName
	}
	if params.Email != nil {
		contact.Email = *params.Email
	}
	if params.Phone != nil {
		contact.Phone = *params.Phone
	}
	if params.CompanyID != nil {
		contact.CompanyID = *params.CompanyID
	}
	if contact.FirstName == "" || contact.Email == "" {
		return nil, fmt.Errorf("%w: first_name and email cannot be cleared", ErrValidation)
	}
	contact.UpdatedAt = now()
	_, err = s.db.ExecContext(ctx, `
UPDATE contacts
SET first_name = ?, last_name = ?, email = ?, phone = ?, company_id = ?, updated_at = ?
WHERE id = ?
`, contact.FirstName, nullIfEmpty(contact.LastName), contact.Email, nullIfEmpty(contact.Phone), nullIfEmpty(contact.CompanyID), contact.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var contact Contact
	var lastName, phone, companyID sql.NullString
	if err := row.Scan(&contact.ID, &contact.FirstName, &lastName, &contact.Email, &phone, &companyID, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: contact", ErrNotFound)
		}
		return nil, err
	}
	contact.LastName = lastName.String
	contact.Phone = phone.String
	contact.CompanyID = companyID.String
	return &contact, nil
}

func collectContacts(rows *sql.Rows) ([]Contact, error) {
	var contacts []Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}
