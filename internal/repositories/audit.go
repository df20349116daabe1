package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// AuditWriteRepository appends audit entries. It writes on the raw
// connection rather than the per-request transaction so that an audit
// failure can never roll back an already-committed financial mutation.
type AuditWriteRepository struct {
	db *sqlx.DB
}

func NewAuditWriteRepository(db *sqlx.DB) *AuditWriteRepository {
	return &AuditWriteRepository{db: db}
}

// Save appends one audit entry.
func (r *AuditWriteRepository) Save(ctx context.Context, entry models.AuditEntryDB) error {
	query := `
		INSERT INTO audit_entries (audit_id, action, actor, description, source_number, destination_number, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.AuditID, entry.Action, entry.Actor, entry.Description,
		entry.SourceNumber, entry.DestinationNumber, entry.Features, entry.CreatedAt)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{entry.AuditID, entry.Action, entry.Actor},
		"error", err,
	)

	return err
}

// AuditReadRepository serves the audit journal and the windowed fraud
// feature lookups. The counts run with no isolation from concurrent
// transfers; under bursts they are advisory, not exact.
type AuditReadRepository struct {
	db *sqlx.DB
}

func NewAuditReadRepository(db *sqlx.DB) *AuditReadRepository {
	return &AuditReadRepository{db: db}
}

// CountTransfersFromSourceSince counts Transfer entries from a source
// account with created_at >= since (entries older than exactly the window
// boundary are excluded).
func (r *AuditReadRepository) CountTransfersFromSourceSince(ctx context.Context, sourceNumber string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_entries
		WHERE action = $1 AND source_number = $2 AND created_at >= $3
	`

	var count int64
	err := r.db.GetContext(ctx, &count, query, models.ActionTransfer, sourceNumber, since)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{sourceNumber, since},
		"result", count,
		"error", err,
	)

	return count, err
}

// CountTransfersBetween counts all prior Transfer entries for an exact
// (source, destination) pair.
func (r *AuditReadRepository) CountTransfersBetween(ctx context.Context, sourceNumber, destinationNumber string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_entries
		WHERE action = $1 AND source_number = $2 AND destination_number = $3
	`

	var count int64
	err := r.db.GetContext(ctx, &count, query, models.ActionTransfer, sourceNumber, destinationNumber)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{sourceNumber, destinationNumber},
		"result", count,
		"error", err,
	)

	return count, err
}

// List returns the newest audit entries, up to limit.
func (r *AuditReadRepository) List(ctx context.Context, limit int) ([]models.AuditEntryDB, error) {
	query := `
		SELECT audit_id, action, actor, description, source_number, destination_number, features, created_at
		FROM audit_entries
		ORDER BY created_at DESC
		LIMIT $1
	`

	var entries []models.AuditEntryDB
	err := r.db.SelectContext(ctx, &entries, query, limit)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{limit},
		"result", len(entries),
		"error", err,
	)

	return entries, err
}

// Last returns the most recent audit entry, or nil when the journal is
// empty.
func (r *AuditReadRepository) Last(ctx context.Context) (*models.AuditEntryDB, error) {
	query := `
		SELECT audit_id, action, actor, description, source_number, destination_number, features, created_at
		FROM audit_entries
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry models.AuditEntryDB
	err := r.db.GetContext(ctx, &entry, query)

	logger.Log.Infow("query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
