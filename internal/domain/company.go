package domain

import (
	"context"
	"errors"
	"time"
)

var ErrCompanyNotFound = errors.New("company not found")

// Company is a tenant. Every user belongs to exactly one company.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyRepository defines the interface for company data access
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*Company, error)
}

// AccountRepository creates a company together with its first user
type AccountRepository interface {
	CreateCompanyWithOwner(ctx context.Context, company *Company, owner *User) error
}
