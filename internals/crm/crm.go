// Package crm is the CRUD layer the agent's tools operate on. It owns the
// contacts, companies, deals, crm_tasks and pipelines tables.
package crm

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type Contact struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain,omitempty"`
	Industry  string `json:"industry,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Deal struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Amount     float64 `json:"amount"`
	Stage      string  `json:"stage"`
	PipelineID string  `json:"pipeline_id"`
	ContactID  string  `json:"contact_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DueAt     string `json:"due_at,omitempty"`
	Done      bool   `json:"done"`
	ContactID string `json:"contact_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Pipeline struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
