package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// AccountWriteRepository handles account write operations.
type AccountWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewAccountWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *AccountWriteRepository {
	return &AccountWriteRepository{db: db, txGetter: txGetter}
}

func (r *AccountWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save inserts a new account. A conflicting account number yields
// sql.ErrNoRows, which the service maps to a duplicate-account failure.
func (r *AccountWriteRepository) Save(ctx context.Context, account models.AccountDB) error {
	query := `
		INSERT INTO accounts (account_id, account_number, owner_id, balance_encrypted, balance_legacy, opened_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6, NOW(), NOW())
		ON CONFLICT (account_number) DO NOTHING
		RETURNING account_id
	`

	var id uuid.UUID
	err := sqlx.GetContext(ctx, r.executor(ctx), &id, query,
		account.AccountID, account.AccountNumber, account.OwnerID,
		account.BalanceEncrypted, account.BalanceLegacy, account.Status)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{account.AccountNumber, account.OwnerID, account.Status},
		"error", err,
	)

	return err
}

// UpdateBalance rewrites the encrypted balance slot. The legacy column is
// never touched: migration is one-way.
func (r *AccountWriteRepository) UpdateBalance(ctx context.Context, accountID uuid.UUID, encrypted string) error {
	query := `
		UPDATE accounts
		SET balance_encrypted = $2, updated_at = NOW()
		WHERE account_id = $1
	`

	res, err := r.executor(ctx).ExecContext(ctx, query, accountID, encrypted)

	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{accountID},
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AccountReadRepository handles account read operations.
type AccountReadRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewAccountReadRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *AccountReadRepository {
	return &AccountReadRepository{db: db, txGetter: txGetter}
}

func (r *AccountReadRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

const accountColumns = `
	account_id, account_number, owner_id, balance_encrypted, balance_legacy, opened_at, status, created_at, updated_at
`

// GetByNumber returns the account with the given number, or nil when it
// does not exist.
func (r *AccountReadRepository) GetByNumber(ctx context.Context, number string) (*models.AccountDB, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	var account models.AccountDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &account, query, number)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{number},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByNumberForUpdate locks the account row for the remainder of the
// surrounding transaction, serializing concurrent balance mutations on
// the same account. Outside a transaction it degrades to a plain read.
func (r *AccountReadRepository) GetByNumberForUpdate(ctx context.Context, number string) (*models.AccountDB, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	executor := r.executor(ctx)
	if _, inTx := executor.(*sqlx.Tx); inTx {
		query += ` FOR UPDATE`
	}

	var account models.AccountDB
	err := sqlx.GetContext(ctx, executor, &account, query, number)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{number},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListByOwner returns all accounts owned by a user. Order is irrelevant
// to callers; opened_at descending keeps the listing stable.
func (r *AccountReadRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.AccountDB, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY opened_at DESC`

	var accounts []models.AccountDB
	err := sqlx.SelectContext(ctx, r.executor(ctx), &accounts, query, ownerID)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{ownerID},
		"result", len(accounts),
		"error", err,
	)

	return accounts, err
}
