package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Operation kinds. A transfer produces two Operation rows (one leg per
// account); deposits and withdrawals produce exactly one.
const (
	OperationDeposit    = "Deposit"
	OperationWithdrawal = "Withdrawal"
	OperationTransfer   = "Transfer"
)

// Operation directions. Credit increases the filed account's balance,
// debit decreases it.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// OperationDB represents one immutable monetary movement filed under a
// single account. Transfer legs share a TransferID and cross-reference the
// counterpart account number.
type OperationDB struct {
	OperationID        uuid.UUID      `db:"operation_id"`
	AccountID          uuid.UUID      `db:"account_id"`
	Kind               string         `db:"kind"`
	Direction          string         `db:"direction"`
	AmountEncrypted    string         `db:"amount_encrypted"`
	AmountLegacy       sql.NullInt64  `db:"amount_legacy"`
	CounterpartyNumber sql.NullString `db:"counterparty_number"`
	Initiator          sql.NullString `db:"initiator"`
	TransferID         uuid.NullUUID  `db:"transfer_id"`
	CreatedAt          time.Time      `db:"created_at"`
}
