package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// Placeholder fraud signals. Password-change tracking and geolocation are
// not wired to real telemetry yet; downstream consumers expect the full
// vector shape, so named constants are emitted instead of omitting the
// fields.
const (
	placeholderPasswordChangedRecently    = false
	placeholderMinutesSincePasswordChange = int64(525600)
	placeholderUnusualLocation            = false
)

// transferWindow is the trailing interval for the velocity count.
const transferWindow = time.Hour

// TransferDetails carries the context the feature extractor needs to
// compute the fraud vector for one committing transfer.
type TransferDetails struct {
	Amount            int64
	SourceNumber      string
	DestinationNumber string
	SourceOpenedAt    time.Time
	BalanceBefore     int64
}

// AuditEntryWriter appends audit entries to the journal.
type AuditEntryWriter interface {
	Save(ctx context.Context, entry models.AuditEntryDB) error
}

// FeatureCounter serves the windowed lookups behind the fraud vector.
type FeatureCounter interface {
	CountTransfersFromSourceSince(ctx context.Context, sourceNumber string, since time.Time) (int64, error)
	CountTransfersBetween(ctx context.Context, sourceNumber, destinationNumber string) (int64, error)
}

// JournalReader lists audit entries for the journal endpoints.
type JournalReader interface {
	List(ctx context.Context, limit int) ([]models.AuditEntryDB, error)
	Last(ctx context.Context) (*models.AuditEntryDB, error)
}

// AuditService is the sole writer of audit entries. Transfer actions are
// enriched with the fraud feature vector computed from the journal
// history at the instant the transfer commits.
type AuditService struct {
	writer  AuditEntryWriter
	counter FeatureCounter
	journal JournalReader
	now     func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(writer AuditEntryWriter, counter FeatureCounter, journal JournalReader) *AuditService {
	return &AuditService{
		writer:  writer,
		counter: counter,
		journal: journal,
		now:     time.Now,
	}
}

// Append writes one audit entry. When the action is a Transfer and details
// are supplied, the fraud feature vector is computed from the journal
// before the entry is inserted, so the pair count reflects strictly prior
// transfers.
func (s *AuditService) Append(ctx context.Context, action, actor, description string, details *TransferDetails) error {
	now := s.now()

	entry := models.AuditEntryDB{
		AuditID:     uuid.New(),
		Action:      action,
		Actor:       actor,
		Description: description,
		CreatedAt:   now,
	}

	if action == models.ActionTransfer && details != nil {
		features, err := s.computeFeatures(ctx, now, details)
		if err != nil {
			logger.Log.Errorw("failed to compute fraud features",
				"source", details.SourceNumber, "destination", details.DestinationNumber, "error", err)
			return err
		}

		payload, err := json.Marshal(features)
		if err != nil {
			return err
		}

		entry.SourceNumber = sql.NullString{String: details.SourceNumber, Valid: true}
		entry.DestinationNumber = sql.NullString{String: details.DestinationNumber, Valid: true}
		entry.Features = payload
	}

	if err := s.writer.Save(ctx, entry); err != nil {
		logger.Log.Errorw("failed to append audit entry", "action", action, "actor", actor, "error", err)
		return err
	}

	return nil
}

// computeFeatures derives the fixed fraud vector. The counts run as live
// queries with no isolation from concurrent transfers on the same source;
// under bursts they are advisory signals, not exact figures.
func (s *AuditService) computeFeatures(ctx context.Context, now time.Time, details *TransferDetails) (*models.FraudFeatures, error) {
	priorInWindow, err := s.counter.CountTransfersFromSourceSince(ctx, details.SourceNumber, now.Add(-transferWindow))
	if err != nil {
		return nil, err
	}

	priorToDestination, err := s.counter.CountTransfersBetween(ctx, details.SourceNumber, details.DestinationNumber)
	if err != nil {
		return nil, err
	}

	return &models.FraudFeatures{
		AccountAgeDays:              int64(now.Sub(details.SourceOpenedAt).Hours() / 24),
		Amount:                      details.Amount,
		HourOfDay:                   now.Local().Hour(),
		IsNewBeneficiary:            priorToDestination == 0,
		BalanceBeforeTransfer:       details.BalanceBefore,
		TransfersFromSourceLastHour: priorInWindow + 1, // the committing transfer counts itself
		PasswordChangedRecently:     placeholderPasswordChangedRecently,
		MinutesSincePasswordChange:  placeholderMinutesSincePasswordChange,
		UnusualLocation:             placeholderUnusualLocation,
		TransfersToSameDestination:  priorToDestination,
	}, nil
}

// ListEntries returns the newest audit entries, up to limit.
func (s *AuditService) ListEntries(ctx context.Context, limit int) ([]models.AuditEntryDB, error) {
	entries, err := s.journal.List(ctx, limit)
	if err != nil {
		logger.Log.Errorw("failed to list audit entries", "error", err)
		return nil, err
	}
	return entries, nil
}

// LastEntry returns the most recent audit entry, or nil when the journal
// is empty.
func (s *AuditService) LastEntry(ctx context.Context) (*models.AuditEntryDB, error) {
	entry, err := s.journal.Last(ctx)
	if err != nil {
		logger.Log.Errorw("failed to fetch last audit entry", "error", err)
		return nil, err
	}
	return entry, nil
}
