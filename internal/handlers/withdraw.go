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

// WithdrawTokener defines only the methods needed by this handler.
type WithdrawTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// Withdrawer defines the interface that the transfer service must implement.
type Withdrawer interface {
	Withdraw(ctx context.Context, accountNumber string, amount int64, actor models.Identity) (int64, error)
}

// WithdrawRequest represents the JSON body for withdrawing funds
// swagger:model WithdrawRequest
type WithdrawRequest struct {
	// Amount in minor units
	// required: true
	// default: 5000
	Amount int64 `json:"amount"`
}

// WithdrawResponse represents a successful withdrawal response
// swagger:model WithdrawResponse
type WithdrawResponse struct {
	// Success message
	// default: Account debited successfully
	Message string `json:"message"`

	// New balance in minor units
	NewBalance int64 `json:"new_balance"`
}

// WithdrawErrorResponse represents an error response for withdrawal
// swagger:model WithdrawErrorResponse
type WithdrawErrorResponse struct {
	// Error message
	// default: Insufficient funds
	Error string `json:"error"`
}

// NewWithdrawHandler returns an HTTP handler for withdrawing funds.
// @Summary Withdraw funds
// @Description Debit an account. Withdrawing the exact balance is allowed; going below zero is not.
// @Tags operations
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body handlers.WithdrawRequest true "Withdraw Request"
// @Success 200 {object} handlers.WithdrawResponse "Account debited successfully"
// @Failure 400 {object} handlers.WithdrawErrorResponse "Invalid amount or insufficient funds"
// @Failure 401 {object} handlers.WithdrawErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.WithdrawErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/withdraw [post]
// @Security BearerAuth
func NewWithdrawHandler(svc Withdrawer, tokenGetter WithdrawTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		var req WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(WithdrawErrorResponse{Error: "Invalid request body"})
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		newBalance, err := svc.Withdraw(ctx, accountNumber, req.Amount, actor)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidAmount):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(WithdrawErrorResponse{Error: "Invalid amount"})
			case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrNegativeBalance):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(WithdrawErrorResponse{Error: "Insufficient funds"})
			case errors.Is(err, services.ErrAccountNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(WithdrawErrorResponse{Error: "Account not found"})
			default:
				logger.Log.Errorw("failed to withdraw funds", "account", accountNumber, "amount", req.Amount, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(WithdrawErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(WithdrawResponse{
			Message:    "Account debited successfully",
			NewBalance: newBalance,
		})
	}
}
