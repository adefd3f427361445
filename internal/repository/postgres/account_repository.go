package postgres

import (
	"context"
	"database/sql"

	"fluvex/internal/domain"
)

// AccountRepository implements domain.AccountRepository for PostgreSQL
type AccountRepository struct {
	tx *TxManager
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{tx: NewTxManager(db)}
}

// CreateCompanyWithOwner inserts a company and its first user atomically.
// Neither row is kept if the email is already taken.
func (r *AccountRepository) CreateCompanyWithOwner(ctx context.Context, company *domain.Company, owner *domain.User) error {
	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertCompany(ctx, tx, company); err != nil {
			return err
		}
		owner.CompanyID = company.ID
		return insertUser(ctx, tx, owner)
	})
}
