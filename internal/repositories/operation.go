package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// OperationWriteRepository appends immutable monetary movements. There is
// deliberately no update or delete path: the operations table is
// append-only.
type OperationWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewOperationWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *OperationWriteRepository {
	return &OperationWriteRepository{db: db, txGetter: txGetter}
}

func (r *OperationWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save records one operation leg.
func (r *OperationWriteRepository) Save(ctx context.Context, op models.OperationDB) error {
	query := `
		INSERT INTO operations (operation_id, account_id, kind, direction, amount_encrypted, amount_legacy, counterparty_number, initiator, transfer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		op.OperationID, op.AccountID, op.Kind, op.Direction, op.AmountEncrypted, op.AmountLegacy,
		op.CounterpartyNumber, op.Initiator, op.TransferID, op.CreatedAt)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{op.OperationID, op.AccountID, op.Kind, op.CounterpartyNumber, op.TransferID},
		"error", err,
	)

	return err
}

// OperationReadRepository handles operation read operations.
type OperationReadRepository struct {
	db *sqlx.DB
}

func NewOperationReadRepository(db *sqlx.DB) *OperationReadRepository {
	return &OperationReadRepository{db: db}
}

// ListByAccount returns all operations filed under an account, newest
// first.
func (r *OperationReadRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.OperationDB, error) {
	query := `
		SELECT operation_id, account_id, kind, direction, amount_encrypted, amount_legacy, counterparty_number, initiator, transfer_id, created_at
		FROM operations
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	var ops []models.OperationDB
	err := r.db.SelectContext(ctx, &ops, query, accountID)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{accountID},
		"result", len(ops),
		"error", err,
	)

	return ops, err
}

// ListUnpairedTransfers returns transfer group ids older than the cutoff
// that do not have exactly two legs, for the reconciliation worker.
func (r *OperationReadRepository) ListUnpairedTransfers(ctx context.Context, cutoff string) ([]uuid.UUID, error) {
	query := `
		SELECT transfer_id
		FROM operations
		WHERE transfer_id IS NOT NULL
		  AND created_at < NOW() - $1::interval
		GROUP BY transfer_id
		HAVING COUNT(*) <> 2
	`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, cutoff)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{cutoff},
		"result", len(ids),
		"error", err,
	)

	return ids, err
}
