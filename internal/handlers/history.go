package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
	"github.com/bankguard/bankguard/internal/services"
)

// HistoryTokener defines only the methods needed by this handler.
type HistoryTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// HistoryReader defines the interface that the account service must implement.
type HistoryReader interface {
	History(ctx context.Context, accountNumber string, actor models.Identity) ([]services.OperationView, error)
	Statistics(ctx context.Context, accountNumber string) ([]services.MonthlyStatistics, error)
}

// OperationItem represents one operation in a history response
// swagger:model OperationItem
type OperationItem struct {
	// Operation id
	OperationID uuid.UUID `json:"operation_id"`

	// Operation kind
	// default: Transfer
	Kind string `json:"kind"`

	// Direction for the filed account
	// default: debit
	Direction string `json:"direction"`

	// Amount in minor units
	Amount int64 `json:"amount"`

	// Counterpart account number, transfers only
	Counterparty string `json:"counterparty,omitempty"`

	// Display name of the initiator
	Initiator string `json:"initiator,omitempty"`

	// Operation time
	Timestamp time.Time `json:"timestamp"`
}

// MonthlyStatisticsItem represents one month of aggregated movements
// swagger:model MonthlyStatisticsItem
type MonthlyStatisticsItem struct {
	// Month in YYYY-MM form
	// default: 2025-06
	Month string `json:"month"`

	// Deposit count
	Deposits int64 `json:"deposits"`

	// Withdrawal count
	Withdrawals int64 `json:"withdrawals"`

	// Incoming transfer count
	TransfersIn int64 `json:"transfers_in"`

	// Outgoing transfer count
	TransfersOut int64 `json:"transfers_out"`

	// Total credited in minor units
	TotalCredited int64 `json:"total_credited"`

	// Total debited in minor units
	TotalDebited int64 `json:"total_debited"`
}

// HistoryErrorResponse represents an error response for history requests
// swagger:model HistoryErrorResponse
type HistoryErrorResponse struct {
	// Error message
	// default: Account not found
	Error string `json:"error"`
}

// NewHistoryHandler returns an HTTP handler listing an account's operations.
// @Summary Account history
// @Description Returns the operations of an account, newest first. The access is journalized.
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {array} handlers.OperationItem "Operations"
// @Failure 401 {object} handlers.HistoryErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.HistoryErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/history [get]
// @Security BearerAuth
func NewHistoryHandler(svc HistoryReader, tokenGetter HistoryTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		views, err := svc.History(ctx, accountNumber, actor)
		if err != nil {
			if errors.Is(err, services.ErrAccountNotFound) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(HistoryErrorResponse{Error: "Account not found"})
				return
			}
			logger.Log.Errorw("failed to list history", "account", accountNumber, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(HistoryErrorResponse{Error: "Internal server error"})
			return
		}

		resp := make([]OperationItem, 0, len(views))
		for _, view := range views {
			resp = append(resp, OperationItem{
				OperationID:  view.OperationID,
				Kind:         view.Kind,
				Direction:    view.Direction,
				Amount:       view.Amount,
				Counterparty: view.Counterparty,
				Initiator:    view.Initiator,
				Timestamp:    view.Timestamp,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// NewStatisticsHandler returns an HTTP handler for per-month account statistics.
// @Summary Account statistics
// @Description Returns per-month aggregates of an account's movements, newest month first
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {array} handlers.MonthlyStatisticsItem "Monthly statistics"
// @Failure 401 {object} handlers.HistoryErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.HistoryErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/statistics [get]
// @Security BearerAuth
func NewStatisticsHandler(svc HistoryReader, tokenGetter HistoryTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, ok := identityFromRequest(ctx, w, r, tokenGetter); !ok {
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		stats, err := svc.Statistics(ctx, accountNumber)
		if err != nil {
			if errors.Is(err, services.ErrAccountNotFound) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(HistoryErrorResponse{Error: "Account not found"})
				return
			}
			logger.Log.Errorw("failed to compute statistics", "account", accountNumber, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(HistoryErrorResponse{Error: "Internal server error"})
			return
		}

		resp := make([]MonthlyStatisticsItem, 0, len(stats))
		for _, stat := range stats {
			resp = append(resp, MonthlyStatisticsItem{
				Month:         stat.Month,
				Deposits:      stat.Deposits,
				Withdrawals:   stat.Withdrawals,
				TransfersIn:   stat.TransfersIn,
				TransfersOut:  stat.TransfersOut,
				TotalCredited: stat.TotalCredited,
				TotalDebited:  stat.TotalDebited,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}
