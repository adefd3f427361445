// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the fluvex application.
package testutil

import (
	"context"
	"sync"
	"time"

	"fluvex/internal/domain"
)

// Store is an in-memory company and user store shared by the mock
// repositories, so an account created through MockAccountRepository is
// visible to MockUserRepository and MockCompanyRepository.
type Store struct {
	mu        sync.RWMutex
	Users     map[string]*domain.User
	Companies map[string]*domain.Company
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		Users:     make(map[string]*domain.User),
		Companies: make(map[string]*domain.Company),
	}
}

// AddUser stores user, replacing any user with the same ID
func (s *Store) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users[user.ID] = user
}

// AddCompany stores company, replacing any company with the same ID
func (s *Store) AddCompany(company *domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Companies[company.ID] = company
}

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	store *Store

	// Function overrides - set these to customize behavior
	GetByIDFunc        func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

// NewMockUserRepository creates a MockUserRepository backed by store
func NewMockUserRepository(store *Store) *MockUserRepository {
	return &MockUserRepository{store: store}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	if user, ok := m.store.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	for _, user := range m.store.Users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	user, ok := m.store.Users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// MockCompanyRepository implements domain.CompanyRepository for testing
type MockCompanyRepository struct {
	store *Store

	GetByIDFunc func(ctx context.Context, id string) (*domain.Company, error)
}

// NewMockCompanyRepository creates a MockCompanyRepository backed by store
func NewMockCompanyRepository(store *Store) *MockCompanyRepository {
	return &MockCompanyRepository{store: store}
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	if company, ok := m.store.Companies[id]; ok {
		return company, nil
	}
	return nil, domain.ErrCompanyNotFound
}

// MockAccountRepository implements domain.AccountRepository for testing
type MockAccountRepository struct {
	store *Store

	CreateCompanyWithOwnerFunc func(ctx context.Context, company *domain.Company, owner *domain.User) error
}

// NewMockAccountRepository creates a MockAccountRepository backed by store
func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) CreateCompanyWithOwner(ctx context.Context, company *domain.Company, owner *domain.User) error {
	if m.CreateCompanyWithOwnerFunc != nil {
		return m.CreateCompanyWithOwnerFunc(ctx, company, owner)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, u := range m.store.Users {
		if u.Email == owner.Email {
			return domain.ErrEmailExists
		}
	}

	now := time.Now()
	company.CreatedAt = now
	owner.CompanyID = company.ID
	owner.CreatedAt = now

	m.store.Companies[company.ID] = company
	m.store.Users[owner.ID] = owner
	return nil
}
