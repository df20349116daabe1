package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Account statuses. Only Active is exercised by current logic; the other
// two are reserved for closure flows.
const (
	AccountActive    = "Active"
	AccountSuspended = "Suspended"
	AccountClosed    = "Closed"
)

// AccountDB represents a row of the accounts table. The balance is stored
// as an encrypted envelope with a legacy plaintext column kept for records
// created before field encryption.
type AccountDB struct {
	AccountID        uuid.UUID     `db:"account_id"`
	AccountNumber    string        `db:"account_number"`
	OwnerID          uuid.UUID     `db:"owner_id"`
	BalanceEncrypted string        `db:"balance_encrypted"`
	BalanceLegacy    sql.NullInt64 `db:"balance_legacy"`
	OpenedAt         time.Time     `db:"opened_at"`
	Status           string        `db:"status"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}
