package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"fluvex/internal/domain"
	"fluvex/internal/observability"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 255

	dummyPassword = "fluvex-timing-equaliser"
)

// PasswordHasher derives and checks stored credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, candidate string) bool
}

// RegisterInput is the data needed to open a new company account
type RegisterInput struct {
	CompanyName string `json:"company_name"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// Identity is a user together with the company it belongs to
type Identity struct {
	User    *domain.User    `json:"user"`
	Company *domain.Company `json:"company"`
}

type AuthService struct {
	users     domain.UserRepository
	companies domain.CompanyRepository
	accounts  domain.AccountRepository
	hasher    PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users domain.UserRepository,
	companies domain.CompanyRepository,
	accounts domain.AccountRepository,
	hasher PasswordHasher,
) *AuthService {
	return &AuthService{
		users:     users,
		companies: companies,
		accounts:  accounts,
		hasher:    hasher,
	}
}

// Register creates a company and its owner.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Identity, error) {
	companyName := strings.TrimSpace(in.CompanyName)
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if n := utf8.RuneCountInString(companyName); n < 2 || n > 100 {
		return nil, domain.ErrInvalidInput
	}
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return nil, domain.ErrInvalidInput
	}
	if !validEmail(email) {
		return nil, domain.ErrInvalidInput
	}
	if !validPassword(in.Password) {
		return nil, domain.ErrInvalidInput
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrEmailExists
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	company := &domain.Company{
		ID:   uuid.NewString(),
		Name: companyName,
	}
	owner := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleOwner,
	}

	if err := s.accounts.CreateCompanyWithOwner(ctx, company, owner); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("company registered",
		"company_id", company.ID,
		"user_id", owner.ID,
	)

	return &Identity{User: owner, Company: company}, nil
}

// Login checks credentials. An unknown email and a wrong password produce
// the same error, and both cost one key derivation.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Identity, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			observability.LoginAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		s.verify(s.dummyCredential(), password)
		observability.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if !s.verify(user.PasswordHash, password) {
		observability.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	company, err := s.companies.GetByID(ctx, user.CompanyID)
	if err != nil {
		observability.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.LoginAttempts.WithLabelValues("success").Inc()
	return &Identity{User: user, Company: company}, nil
}

// CurrentIdentity loads the user and company named by a session.
func (s *AuthService) CurrentIdentity(ctx context.Context, userID, companyID string) (*Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CompanyID != companyID {
		return nil, domain.ErrTenantMismatch
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	return &Identity{User: user, Company: company}, nil
}

// ChangePassword replaces the credential of userID after checking the
// current password. Sessions already issued stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if !validPassword(next) {
		return domain.ErrInvalidInput
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.verify(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hash(next)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	observability.FromContext(ctx).Info("password changed", "user_id", userID)
	return nil
}

func (s *AuthService) hash(password string) (string, error) {
	start := time.Now()
	defer func() {
		observability.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Hash(password)
}

func (s *AuthService) verify(stored, candidate string) bool {
	start := time.Now()
	defer func() {
		observability.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Verify(stored, candidate)
}

// dummyCredential is derived once with the live cost parameters so that
// verifying against it takes as long as a real check.
func (s *AuthService) dummyCredential() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			observability.Error("dummy credential derivation failed", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return len(email) <= maxEmailLen && emailRegex.MatchString(email)
}

func validPassword(password string) bool {
	return len(password) >= minPasswordLen && len(password) <= maxPasswordLen
}
