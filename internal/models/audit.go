package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Audit actions written by the engine. Handlers and the auth service may
// append further categories (e.g. login outcomes) through the same writer.
const (
	ActionCreation      = "Creation"
	ActionDeposit       = "Deposit"
	ActionWithdrawal    = "Withdrawal"
	ActionTransfer      = "Transfer"
	ActionHistoryAccess = "HistoryAccess"
	ActionLogin         = "Login"
	ActionLoginFailure  = "LoginFailure"
)

// AuditEntryDB represents one append-only audit record. Transfer entries
// additionally carry the serialized fraud feature vector and the
// source/destination account numbers the windowed queries are indexed on.
type AuditEntryDB struct {
	AuditID           uuid.UUID      `db:"audit_id"`
	Action            string         `db:"action"`
	Actor             string         `db:"actor"`
	Description       string         `db:"description"`
	SourceNumber      sql.NullString `db:"source_number"`
	DestinationNumber sql.NullString `db:"destination_number"`
	Features          []byte         `db:"features"`
	CreatedAt         time.Time      `db:"created_at"`
}

// FraudFeatures is the fixed feature vector attached to Transfer audit
// entries for downstream risk scoring. The JSON field names are the
// columns the external scoring model expects.
type FraudFeatures struct {
	AccountAgeDays              int64 `json:"anciennete_jours"`
	Amount                      int64 `json:"montant"`
	HourOfDay                   int   `json:"heure"`
	IsNewBeneficiary            bool  `json:"nouveau_beneficiaire"`
	BalanceBeforeTransfer       int64 `json:"solde_avant"`
	TransfersFromSourceLastHour int64 `json:"nb_virements_1h"`
	PasswordChangedRecently     bool  `json:"changement_mdp"`
	MinutesSincePasswordChange  int64 `json:"minutes_depuis_chg_mdp"`
	UnusualLocation             bool  `json:"localisation"`
	TransfersToSameDestination  int64 `json:"nb_virements_vers_benef"`
}
