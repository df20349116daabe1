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
	"github.com/bankguard/bankguard/internal/services"
)

// BalanceTokener defines only the methods needed by this handler.
type BalanceTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// BalanceReader defines the interface that the account service must implement.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountNumber string) (*services.AccountView, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]services.AccountView, error)
}

// AccountBalance represents one account with its decoded balance
// swagger:model AccountBalance
type AccountBalance struct {
	// Account number
	AccountNumber string `json:"account_number"`

	// Balance in minor units
	Balance int64 `json:"balance"`

	// Account status
	// default: Active
	Status string `json:"status"`

	// Opening time
	OpenedAt time.Time `json:"opened_at"`
}

// BalanceErrorResponse represents an error response when fetching balances
// swagger:model BalanceErrorResponse
type BalanceErrorResponse struct {
	// Error message
	// default: Account not found
	Error string `json:"error"`
}

// NewGetBalanceHandler returns an HTTP handler for fetching one account balance.
// @Summary Get account balance
// @Description Returns the decoded balance of a single account
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} handlers.AccountBalance "Account balance"
// @Failure 401 {object} handlers.BalanceErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.BalanceErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/balance [get]
// @Security BearerAuth
func NewGetBalanceHandler(svc BalanceReader, tokenGetter BalanceTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, ok := identityFromRequest(ctx, w, r, tokenGetter); !ok {
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		view, err := svc.GetBalance(ctx, accountNumber)
		if err != nil {
			if errors.Is(err, services.ErrAccountNotFound) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(BalanceErrorResponse{Error: "Account not found"})
				return
			}
			logger.Log.Errorw("failed to get balance", "account", accountNumber, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(BalanceErrorResponse{Error: "Internal server error"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(AccountBalance{
			AccountNumber: view.AccountNumber,
			Balance:       view.Balance,
			Status:        view.Status,
			OpenedAt:      view.OpenedAt,
		})
	}
}

// NewListAccountsHandler returns an HTTP handler listing the caller's accounts.
// @Summary List accounts
// @Description Returns all accounts of the authenticated user with decoded balances
// @Tags accounts
// @Produce json
// @Success 200 {array} handlers.AccountBalance "Accounts"
// @Failure 401 {object} handlers.BalanceErrorResponse "Unauthorized"
// @Router /accounts [get]
// @Security BearerAuth
func NewListAccountsHandler(svc BalanceReader, tokenGetter BalanceTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		views, err := svc.ListForOwner(ctx, actor.UserID)
		if err != nil {
			logger.Log.Errorw("failed to list accounts", "owner", actor.UserID, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(BalanceErrorResponse{Error: "Internal server error"})
			return
		}

		resp := make([]AccountBalance, 0, len(views))
		for _, view := range views {
			resp = append(resp, AccountBalance{
				AccountNumber: view.AccountNumber,
				Balance:       view.Balance,
				Status:        view.Status,
				OpenedAt:      view.OpenedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}
