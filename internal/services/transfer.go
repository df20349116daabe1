package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bankguard/bankguard/internal/cryptofield"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

var (
	// ErrInvalidAmount is returned when an operation amount is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound is returned when the referenced account number does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSelfTransfer is returned when source and destination are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrNotOwner is returned when the requester does not own the source account.
	ErrNotOwner = errors.New("requester does not own the source account")

	// ErrInsufficientFunds is returned when the source balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNegativeBalance is returned when a mutation would drive a balance below zero.
	ErrNegativeBalance = errors.New("balance cannot become negative")
)

// Transfer request states, carried in log fields so a request's progress
// can be followed across records.
const (
	stateValidating  = "Validating"
	stateLocating    = "Locating"
	stateAuthorizing = "Authorizing"
	stateApplying    = "Applying"
	statePersisting  = "Persisting"
	stateAuditing    = "Auditing"
	stateDone        = "Done"
	stateRejected    = "Rejected"
	stateDegraded    = "Degraded"
)

// LockedAccountReader loads accounts with row locks so concurrent
// mutations of the same account serialize.
type LockedAccountReader interface {
	GetByNumberForUpdate(ctx context.Context, number string) (*models.AccountDB, error)
}

// BalanceWriter rewrites the encrypted balance slot of an account.
type BalanceWriter interface {
	UpdateBalance(ctx context.Context, accountID uuid.UUID, encrypted string) error
}

// OperationWriter appends operation legs.
type OperationWriter interface {
	Save(ctx context.Context, op models.OperationDB) error
}

// Auditor appends audit entries, enriching Transfer actions with the
// fraud feature vector.
type Auditor interface {
	Append(ctx context.Context, action, actor, description string, details *TransferDetails) error
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransferService orchestrates deposits, withdrawals, and two-sided
// transfers against codec-backed account balances, and hands every
// committed operation off to the audit/fraud extractor.
type TransferService struct {
	accounts    LockedAccountReader
	balances    BalanceWriter
	operations  OperationWriter
	auditor     Auditor
	codec       *cryptofield.Codec
	kafkaWriter KafkaWriter
	now         func() time.Time
}

// NewTransferService creates a new TransferService.
func NewTransferService(
	accounts LockedAccountReader,
	balances BalanceWriter,
	operations OperationWriter,
	auditor Auditor,
	codec *cryptofield.Codec,
	kafkaWriter KafkaWriter,
) *TransferService {
	return &TransferService{
		accounts:    accounts,
		balances:    balances,
		operations:  operations,
		auditor:     auditor,
		codec:       codec,
		kafkaWriter: kafkaWriter,
		now:         time.Now,
	}
}

// loadBalance resolves an account's current balance, applying the
// migrate-on-read rule: a legacy plaintext balance is re-encrypted and
// written back under the row lock so the next reader sees the envelope.
func (s *TransferService) loadBalance(ctx context.Context, account *models.AccountDB) (int64, error) {
	slots := cryptofield.Slots{Encrypted: account.BalanceEncrypted, Legacy: account.BalanceLegacy}

	migrated, changed, err := s.codec.MigrateSlots(slots)
	if err != nil {
		return 0, err
	}
	if changed {
		if err := s.balances.UpdateBalance(ctx, account.AccountID, migrated.Encrypted); err != nil {
			return 0, err
		}
		logger.Log.Infow("migrated legacy balance slot", "account", account.AccountNumber)
		account.BalanceEncrypted = migrated.Encrypted
	}

	return s.codec.FromStorage(migrated)
}

// applyDelta mutates an account balance by a signed delta, re-encoding
// the result. The caller must hold the account's row lock.
func (s *TransferService) applyDelta(ctx context.Context, account *models.AccountDB, balance, delta int64) (int64, error) {
	next := balance + delta
	if next < 0 {
		return 0, ErrNegativeBalance
	}

	slots, err := s.codec.ToStorage(next)
	if err != nil {
		return 0, err
	}

	if err := s.balances.UpdateBalance(ctx, account.AccountID, slots.Encrypted); err != nil {
		return 0, err
	}

	return next, nil
}

// Deposit credits an account and records one Deposit operation.
func (s *TransferService) Deposit(ctx context.Context, accountNumber string, amount int64, actor models.Identity) (int64, error) {
	log := logger.Log.With("kind", models.OperationDeposit, "account", accountNumber)

	if amount <= 0 {
		log.Warnw("rejected", "state", stateValidating, "amount", amount)
		return 0, ErrInvalidAmount
	}

	account, err := s.accounts.GetByNumberForUpdate(ctx, accountNumber)
	if err != nil {
		return 0, err
	}
	if account == nil {
		log.Warnw("rejected", "state", stateLocating)
		return 0, ErrAccountNotFound
	}

	balance, err := s.loadBalance(ctx, account)
	if err != nil {
		log.Errorw("balance decode failed", "state", stateApplying, "error", err)
		return 0, err
	}

	newBalance, err := s.applyDelta(ctx, account, balance, amount)
	if err != nil {
		return 0, err
	}

	if err := s.recordOperation(ctx, account, models.OperationDeposit, models.DirectionCredit, amount, "", actor, uuid.NullUUID{}); err != nil {
		return 0, err
	}

	s.audit(ctx, models.ActionDeposit, actor.Name,
		fmt.Sprintf("Deposit of %d on account %s", amount, accountNumber), nil, log)

	s.publishEvent(ctx, models.OperationEvent{
		EventID:       uuid.NewString(),
		Timestamp:     s.now().Unix(),
		Kind:          models.OperationDeposit,
		AccountNumber: accountNumber,
		Amount:        amount,
		Initiator:     actor.Name,
		Severity:      models.SeverityInfo,
	})

	log.Infow("completed", "state", stateDone, "balance", newBalance)
	return newBalance, nil
}

// Withdraw debits an account and records one Withdrawal operation. The
// balance check happens under the row lock, so a rejected withdrawal has
// no partial effect.
func (s *TransferService) Withdraw(ctx context.Context, accountNumber string, amount int64, actor models.Identity) (int64, error) {
	log := logger.Log.With("kind", models.OperationWithdrawal, "account", accountNumber)

	if amount <= 0 {
		log.Warnw("rejected", "state", stateValidating, "amount", amount)
		return 0, ErrInvalidAmount
	}

	account, err := s.accounts.GetByNumberForUpdate(ctx, accountNumber)
	if err != nil {
		return 0, err
	}
	if account == nil {
		log.Warnw("rejected", "state", stateLocating)
		return 0, ErrAccountNotFound
	}

	balance, err := s.loadBalance(ctx, account)
	if err != nil {
		log.Errorw("balance decode failed", "state", stateApplying, "error", err)
		return 0, err
	}

	if balance < amount {
		log.Warnw("rejected", "state", stateApplying, "reason", "insufficient funds")
		return 0, ErrInsufficientFunds
	}

	newBalance, err := s.applyDelta(ctx, account, balance, -amount)
	if err != nil {
		return 0, err
	}

	if err := s.recordOperation(ctx, account, models.OperationWithdrawal, models.DirectionDebit, amount, "", actor, uuid.NullUUID{}); err != nil {
		return 0, err
	}

	s.audit(ctx, models.ActionWithdrawal, actor.Name,
		fmt.Sprintf("Withdrawal of %d on account %s", amount, accountNumber), nil, log)

	s.publishEvent(ctx, models.OperationEvent{
		EventID:       uuid.NewString(),
		Timestamp:     s.now().Unix(),
		Kind:          models.OperationWithdrawal,
		AccountNumber: accountNumber,
		Amount:        amount,
		Initiator:     actor.Name,
		Severity:      models.SeverityInfo,
	})

	log.Infow("completed", "state", stateDone, "balance", newBalance)
	return newBalance, nil
}

// Transfer moves funds between two accounts. The source must belong to
// the requester; destination ownership is never checked, any account can
// receive. Two cross-referencing operation legs share a transfer id and a
// logical timestamp, and exactly one Transfer audit entry carries the
// fraud feature vector.
func (s *TransferService) Transfer(ctx context.Context, sourceNumber, destinationNumber string, amount int64, actor models.Identity) (int64, error) {
	log := logger.Log.With("kind", models.OperationTransfer, "source", sourceNumber, "destination", destinationNumber)

	if amount <= 0 {
		log.Warnw("rejected", "state", stateValidating, "amount", amount)
		return 0, ErrInvalidAmount
	}
	if sourceNumber == destinationNumber {
		log.Warnw("rejected", "state", stateValidating, "reason", "self transfer")
		return 0, ErrSelfTransfer
	}

	// Row locks are taken in account-number order regardless of transfer
	// direction, so opposing concurrent transfers cannot deadlock.
	lockOrder := []string{sourceNumber, destinationNumber}
	if lockOrder[1] < lockOrder[0] {
		lockOrder[0], lockOrder[1] = lockOrder[1], lockOrder[0]
	}
	locked := make(map[string]*models.AccountDB, 2)
	for _, number := range lockOrder {
		account, err := s.accounts.GetByNumberForUpdate(ctx, number)
		if err != nil {
			return 0, err
		}
		if account == nil {
			log.Warnw("rejected", "state", stateLocating, "missing", number)
			return 0, ErrAccountNotFound
		}
		locked[number] = account
	}
	source := locked[sourceNumber]
	destination := locked[destinationNumber]

	if source.OwnerID != actor.UserID {
		log.Warnw("rejected", "state", stateAuthorizing, "requester", actor.UserID)
		return 0, ErrNotOwner
	}

	sourceBalance, err := s.loadBalance(ctx, source)
	if err != nil {
		log.Errorw("source balance decode failed", "state", stateApplying, "error", err)
		return 0, err
	}
	destinationBalance, err := s.loadBalance(ctx, destination)
	if err != nil {
		log.Errorw("destination balance decode failed", "state", stateApplying, "error", err)
		return 0, err
	}

	if sourceBalance < amount {
		log.Warnw("rejected", "state", stateApplying, "reason", "insufficient funds")
		return 0, ErrInsufficientFunds
	}

	// Fixed ordering: source debit, destination credit, then the legs.
	newSourceBalance, err := s.applyDelta(ctx, source, sourceBalance, -amount)
	if err != nil {
		return 0, err
	}
	if _, err := s.applyDelta(ctx, destination, destinationBalance, amount); err != nil {
		return 0, err
	}

	transferID := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	if err := s.recordOperation(ctx, source, models.OperationTransfer, models.DirectionDebit, amount, destinationNumber, actor, transferID); err != nil {
		return 0, err
	}
	if err := s.recordOperation(ctx, destination, models.OperationTransfer, models.DirectionCredit, amount, sourceNumber, actor, transferID); err != nil {
		return 0, err
	}

	details := &TransferDetails{
		Amount:            amount,
		SourceNumber:      sourceNumber,
		DestinationNumber: destinationNumber,
		SourceOpenedAt:    source.OpenedAt,
		BalanceBefore:     sourceBalance,
	}
	s.audit(ctx, models.ActionTransfer, actor.Name,
		fmt.Sprintf("Transfer of %d from %s to %s", amount, sourceNumber, destinationNumber), details, log)

	s.publishEvent(ctx, models.OperationEvent{
		EventID:       uuid.NewString(),
		Timestamp:     s.now().Unix(),
		Kind:          models.OperationTransfer,
		AccountNumber: sourceNumber,
		Counterparty:  destinationNumber,
		Amount:        amount,
		Initiator:     actor.Name,
		Severity:      models.SeverityInfo,
	})

	log.Infow("completed", "state", stateDone, "balance", newSourceBalance)
	return newSourceBalance, nil
}

// recordOperation appends one operation leg with a shared logical
// timestamp per request.
func (s *TransferService) recordOperation(ctx context.Context, account *models.AccountDB, kind, direction string, amount int64, counterparty string, actor models.Identity, transferID uuid.NullUUID) error {
	slots, err := s.codec.ToStorage(amount)
	if err != nil {
		return err
	}

	op := models.OperationDB{
		OperationID:     uuid.New(),
		AccountID:       account.AccountID,
		Kind:            kind,
		Direction:       direction,
		AmountEncrypted: slots.Encrypted,
		Initiator:       sql.NullString{String: actor.Name, Valid: actor.Name != ""},
		TransferID:      transferID,
		CreatedAt:       s.now(),
	}
	if counterparty != "" {
		op.CounterpartyNumber = sql.NullString{String: counterparty, Valid: true}
	}

	return s.operations.Save(ctx, op)
}

// audit appends the audit entry for an already-applied mutation. Failure
// never reverses the financial outcome: the request ends Degraded, the
// failure is logged at high severity and pushed to the operations topic
// for follow-up, since for transfers it also means a missing fraud vector.
func (s *TransferService) audit(ctx context.Context, action, actor, description string, details *TransferDetails, log *zap.SugaredLogger) {
	if err := s.auditor.Append(ctx, action, actor, description, details); err != nil {
		log.Errorw("audit write failed after committed mutation", "state", stateDegraded, "error", err)
		s.publishEvent(ctx, models.OperationEvent{
			EventID:   uuid.NewString(),
			Timestamp: s.now().Unix(),
			Kind:      action,
			Severity:  models.SeverityDegraded,
			Detail:    fmt.Sprintf("audit write failed: %s", description),
		})
	}
}

// publishEvent publishes an operation event to Kafka. Publish failures
// are logged and never surfaced to the caller.
func (s *TransferService) publishEvent(ctx context.Context, event models.OperationEvent) {
	if s.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "event_id", event.EventID)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("failed to marshal operation event", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("failed to publish operation event", "event_id", event.EventID, "error", err)
	}
}
