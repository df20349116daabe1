package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bankguard/bankguard/internal/cryptofield"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// ErrDuplicateAccount is returned when the account number already exists.
var ErrDuplicateAccount = errors.New("account number already exists")

// AccountReader defines the read operations the account service needs.
type AccountReader interface {
	GetByNumber(ctx context.Context, number string) (*models.AccountDB, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.AccountDB, error)
}

// AccountWriter defines the write operations the account service needs.
type AccountWriter interface {
	Save(ctx context.Context, account models.AccountDB) error
	UpdateBalance(ctx context.Context, accountID uuid.UUID, encrypted string) error
}

// OperationReader lists the operations filed under an account.
type OperationReader interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.OperationDB, error)
}

// AccountView is an account with its decoded balance.
type AccountView struct {
	AccountNumber string
	Balance       int64
	Status        string
	OpenedAt      time.Time
}

// OperationView is one movement with its decoded amount.
type OperationView struct {
	OperationID  uuid.UUID
	Kind         string
	Direction    string
	Amount       int64
	Counterparty string
	Initiator    string
	Timestamp    time.Time
}

// MonthlyStatistics aggregates one calendar month of an account's movements.
type MonthlyStatistics struct {
	Month         string // YYYY-MM
	Deposits      int64
	Withdrawals   int64
	TransfersIn   int64
	TransfersOut  int64
	TotalCredited int64
	TotalDebited  int64
}

// AccountService owns account creation and the read-side surface:
// balances, listings, history, and monthly statistics.
type AccountService struct {
	reader     AccountReader
	writer     AccountWriter
	operations OperationReader
	auditor    Auditor
	codec      *cryptofield.Codec
}

// NewAccountService creates a new AccountService.
func NewAccountService(reader AccountReader, writer AccountWriter, operations OperationReader, auditor Auditor, codec *cryptofield.Codec) *AccountService {
	return &AccountService{
		reader:     reader,
		writer:     writer,
		operations: operations,
		auditor:    auditor,
		codec:      codec,
	}
}

// Create opens a new account with an encrypted initial balance.
func (s *AccountService) Create(ctx context.Context, accountNumber string, owner models.Identity, initialBalance int64) (*AccountView, error) {
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	slots, err := s.codec.ToStorage(initialBalance)
	if err != nil {
		return nil, err
	}

	account := models.AccountDB{
		AccountID:        uuid.New(),
		AccountNumber:    accountNumber,
		OwnerID:          owner.UserID,
		BalanceEncrypted: slots.Encrypted,
		Status:           models.AccountActive,
	}

	if err := s.writer.Save(ctx, account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Log.Warnw("duplicate account number", "account", accountNumber)
			return nil, ErrDuplicateAccount
		}
		logger.Log.Errorw("failed to create account", "account", accountNumber, "error", err)
		return nil, err
	}

	if err := s.auditor.Append(ctx, models.ActionCreation, owner.Name,
		fmt.Sprintf("Account %s created", accountNumber), nil); err != nil {
		logger.Log.Errorw("audit write failed for account creation", "account", accountNumber, "error", err)
	}

	return &AccountView{
		AccountNumber: accountNumber,
		Balance:       initialBalance,
		Status:        models.AccountActive,
	}, nil
}

// resolveBalance decodes an account balance, running the explicit
// migrate-on-load step for records that still only carry the legacy
// plaintext slot.
func (s *AccountService) resolveBalance(ctx context.Context, account *models.AccountDB) (int64, error) {
	slots := cryptofield.Slots{Encrypted: account.BalanceEncrypted, Legacy: account.BalanceLegacy}

	migrated, changed, err := s.codec.MigrateSlots(slots)
	if err != nil {
		return 0, err
	}
	if changed {
		if err := s.writer.UpdateBalance(ctx, account.AccountID, migrated.Encrypted); err != nil {
			logger.Log.Errorw("legacy balance migration failed", "account", account.AccountNumber, "error", err)
			return 0, err
		}
		logger.Log.Infow("migrated legacy balance slot", "account", account.AccountNumber)
	}

	return s.codec.FromStorage(migrated)
}

// GetBalance returns the decoded balance of an account.
func (s *AccountService) GetBalance(ctx context.Context, accountNumber string) (*AccountView, error) {
	account, err := s.reader.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	balance, err := s.resolveBalance(ctx, account)
	if err != nil {
		logger.Log.Errorw("balance decode failed", "account", accountNumber, "error", err)
		return nil, err
	}

	return &AccountView{
		AccountNumber: account.AccountNumber,
		Balance:       balance,
		Status:        account.Status,
		OpenedAt:      account.OpenedAt,
	}, nil
}

// ListForOwner returns all accounts of a user with decoded balances.
func (s *AccountService) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]AccountView, error) {
	accounts, err := s.reader.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(accounts))
	for i := range accounts {
		balance, err := s.resolveBalance(ctx, &accounts[i])
		if err != nil {
			logger.Log.Errorw("balance decode failed", "account", accounts[i].AccountNumber, "error", err)
			return nil, err
		}
		views = append(views, AccountView{
			AccountNumber: accounts[i].AccountNumber,
			Balance:       balance,
			Status:        accounts[i].Status,
			OpenedAt:      accounts[i].OpenedAt,
		})
	}

	return views, nil
}

// History returns the operations of an account, newest first, with
// decoded amounts. The access itself is journalized.
func (s *AccountService) History(ctx context.Context, accountNumber string, actor models.Identity) ([]OperationView, error) {
	account, err := s.reader.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	ops, err := s.operations.ListByAccount(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	views := make([]OperationView, 0, len(ops))
	for _, op := range ops {
		amount, err := s.codec.FromStorage(cryptofield.Slots{Encrypted: op.AmountEncrypted, Legacy: op.AmountLegacy})
		if err != nil {
			logger.Log.Errorw("operation amount decode failed", "operation", op.OperationID, "error", err)
			return nil, err
		}
		views = append(views, OperationView{
			OperationID:  op.OperationID,
			Kind:         op.Kind,
			Direction:    op.Direction,
			Amount:       amount,
			Counterparty: op.CounterpartyNumber.String,
			Initiator:    op.Initiator.String,
			Timestamp:    op.CreatedAt,
		})
	}

	if err := s.auditor.Append(ctx, models.ActionHistoryAccess, actor.Name,
		fmt.Sprintf("History of account %s consulted", accountNumber), nil); err != nil {
		logger.Log.Errorw("audit write failed for history access", "account", accountNumber, "error", err)
	}

	return views, nil
}

// Statistics computes per-month aggregates of an account's movements.
// Amounts are decoded in Go: ciphertext cannot be aggregated in SQL.
func (s *AccountService) Statistics(ctx context.Context, accountNumber string) ([]MonthlyStatistics, error) {
	account, err := s.reader.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	ops, err := s.operations.ListByAccount(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*MonthlyStatistics)
	for _, op := range ops {
		amount, err := s.codec.FromStorage(cryptofield.Slots{Encrypted: op.AmountEncrypted, Legacy: op.AmountLegacy})
		if err != nil {
			logger.Log.Errorw("operation amount decode failed", "operation", op.OperationID, "error", err)
			return nil, err
		}

		month := op.CreatedAt.Format("2006-01")
		stat, ok := byMonth[month]
		if !ok {
			stat = &MonthlyStatistics{Month: month}
			byMonth[month] = stat
		}

		switch {
		case op.Kind == models.OperationDeposit:
			stat.Deposits++
			stat.TotalCredited += amount
		case op.Kind == models.OperationWithdrawal:
			stat.Withdrawals++
			stat.TotalDebited += amount
		case op.Kind == models.OperationTransfer && op.Direction == models.DirectionCredit:
			stat.TransfersIn++
			stat.TotalCredited += amount
		case op.Kind == models.OperationTransfer && op.Direction == models.DirectionDebit:
			stat.TransfersOut++
			stat.TotalDebited += amount
		}
	}

	stats := make([]MonthlyStatistics, 0, len(byMonth))
	for _, stat := range byMonth {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month > stats[j].Month })

	return stats, nil
}
