package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fluvex/internal/domain"
)

// CompanyRepository implements domain.CompanyRepository for PostgreSQL
type CompanyRepository struct {
	db *sql.DB
}

// NewCompanyRepository creates a new PostgreSQL company repository
func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	defer observe("select", "companies", time.Now())

	query := `
		SELECT id, name, created_at
		FROM companies
		WHERE id = $1
	`
	company := &domain.Company{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan company: %w", err)
	}
	return company, nil
}

// insertCompany adds a company inside an open transaction
func insertCompany(ctx context.Context, tx *sql.Tx, company *domain.Company) error {
	defer observe("insert", "companies", time.Now())

	query := `
		INSERT INTO companies (id, name)
		VALUES ($1, $2)
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, query, company.ID, company.Name).Scan(&company.CreatedAt); err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}
