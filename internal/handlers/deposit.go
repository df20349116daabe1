package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
	"github.com/bankguard/bankguard/internal/services"
)

// DepositTokener defines only the methods needed by this handler.
type DepositTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// Depositor defines the interface that the transfer service must implement.
type Depositor interface {
	Deposit(ctx context.Context, accountNumber string, amount int64, actor models.Identity) (int64, error)
}

// DepositRequest represents the JSON body for depositing funds
// swagger:model DepositRequest
type DepositRequest struct {
	// Amount in minor units
	// required: true
	// default: 10000
	Amount int64 `json:"amount"`
}

// DepositResponse represents a successful deposit response
// swagger:model DepositResponse
type DepositResponse struct {
	// Success message
	// default: Account credited successfully
	Message string `json:"message"`

	// New balance in minor units
	NewBalance int64 `json:"new_balance"`
}

// DepositErrorResponse represents an error response for deposit
// swagger:model DepositErrorResponse
type DepositErrorResponse struct {
	// Error message
	// default: Invalid amount
	Error string `json:"error"`
}

// NewDepositHandler returns an HTTP handler for depositing funds.
// @Summary Deposit funds
// @Description Credit an account. The amount must be strictly positive.
// @Tags operations
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body handlers.DepositRequest true "Deposit Request"
// @Success 200 {object} handlers.DepositResponse "Account credited successfully"
// @Failure 400 {object} handlers.DepositErrorResponse "Invalid amount"
// @Failure 401 {object} handlers.DepositErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.DepositErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/deposit [post]
// @Security BearerAuth
func NewDepositHandler(svc Depositor, tokenGetter DepositTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		var req DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(DepositErrorResponse{Error: "Invalid request body"})
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		newBalance, err := svc.Deposit(ctx, accountNumber, req.Amount, actor)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidAmount):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(DepositErrorResponse{Error: "Invalid amount"})
			case errors.Is(err, services.ErrAccountNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(DepositErrorResponse{Error: "Account not found"})
			default:
				logger.Log.Errorw("failed to deposit funds", "account", accountNumber, "amount", req.Amount, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(DepositErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(DepositResponse{
			Message:    "Account credited successfully",
			NewBalance: newBalance,
		})
	}
}
