package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"fluvex/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// NewTestUser creates a test user with sensible defaults.
// The default PasswordHash is well formed but matches no password.
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{
		ID:           nextID("user"),
		CompanyID:    nextID("company"),
		Name:         fmt.Sprintf("Test User %d", idCounter.Load()),
		PasswordHash: "00000000000000000000000000000000:00",
		Role:         domain.RoleDispatcher,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Email == "" {
		o.Email = fmt.Sprintf("user%d@example.com", idCounter.Add(1))
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.User{
		ID:           o.ID,
		CompanyID:    o.CompanyID,
		Name:         o.Name,
		Email:        o.Email,
		PasswordHash: o.PasswordHash,
		Role:         o.Role,
		CreatedAt:    o.CreatedAt,
	}
}

// WithUserID sets the user ID
func WithUserID(id string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.ID = id
	}
}

// WithCompanyID sets the company the user belongs to
func WithCompanyID(id string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.CompanyID = id
	}
}

// WithEmail sets the email
func WithEmail(email string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Email = email
	}
}

// WithPasswordHash sets the stored credential
func WithPasswordHash(hash string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.PasswordHash = hash
	}
}

// WithRole sets the role
func WithRole(role string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Role = role
	}
}

// CompanyOptions allows customizing company fixture creation
type CompanyOptions struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewTestCompany creates a test company with sensible defaults
func NewTestCompany(opts ...func(*CompanyOptions)) *domain.Company {
	o := &CompanyOptions{
		ID:        nextID("company"),
		Name:      fmt.Sprintf("Test Fleet %d", idCounter.Load()),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Company{
		ID:        o.ID,
		Name:      o.Name,
		CreatedAt: o.CreatedAt,
	}
}

// NewTestAccount creates a company and an owner belonging to it and adds
// both to store.
func NewTestAccount(store *Store, opts ...func(*UserOptions)) (*domain.Company, *domain.User) {
	company := NewTestCompany()
	opts = append([]func(*UserOptions){WithCompanyID(company.ID), WithRole(domain.RoleOwner)}, opts...)
	user := NewTestUser(opts...)

	store.AddCompany(company)
	store.AddUser(user)
	return company, user
}
