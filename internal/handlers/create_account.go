package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
	"github.com/bankguard/bankguard/internal/services"
)

// CreateAccountTokener defines only the methods needed by this handler.
type CreateAccountTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// AccountCreator defines the interface that the account service must implement.
type AccountCreator interface {
	Create(ctx context.Context, accountNumber string, owner models.Identity, initialBalance int64) (*services.AccountView, error)
}

// CreateAccountRequest represents the JSON body for opening an account
// swagger:model CreateAccountRequest
type CreateAccountRequest struct {
	// Account number
	// required: true
	// default: FR7630001007941234567890185
	AccountNumber string `json:"account_number"`

	// Initial balance in minor units
	// default: 0
	InitialBalance int64 `json:"initial_balance"`
}

// CreateAccountResponse represents a successful account creation response
// swagger:model CreateAccountResponse
type CreateAccountResponse struct {
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

// CreateAccountErrorResponse represents an error response for account creation
// swagger:model CreateAccountErrorResponse
type CreateAccountErrorResponse struct {
	// Error message
	// default: Account number already exists
	Error string `json:"error"`
}

// NewCreateAccountHandler returns an HTTP handler for opening a bank account.
// @Summary Open account
// @Description Open a new bank account for the authenticated user with an optional initial balance
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body handlers.CreateAccountRequest true "Create Account Request"
// @Success 201 {object} handlers.CreateAccountResponse "Account created"
// @Failure 400 {object} handlers.CreateAccountErrorResponse "Invalid request"
// @Failure 401 {object} handlers.CreateAccountErrorResponse "Unauthorized"
// @Failure 409 {object} handlers.CreateAccountErrorResponse "Account number already exists"
// @Router /accounts [post]
// @Security BearerAuth
func NewCreateAccountHandler(svc AccountCreator, tokenGetter CreateAccountTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		var req CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(CreateAccountErrorResponse{Error: "Invalid request body"})
			return
		}
		if req.AccountNumber == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(CreateAccountErrorResponse{Error: "Account number is required"})
			return
		}

		view, err := svc.Create(ctx, req.AccountNumber, actor, req.InitialBalance)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidAmount):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(CreateAccountErrorResponse{Error: "Initial balance cannot be negative"})
			case errors.Is(err, services.ErrDuplicateAccount):
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(CreateAccountErrorResponse{Error: "Account number already exists"})
			default:
				logger.Log.Errorw("failed to create account", "account", req.AccountNumber, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(CreateAccountErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateAccountResponse{
			AccountNumber: view.AccountNumber,
			Balance:       view.Balance,
			Status:        view.Status,
			OpenedAt:      view.OpenedAt,
		})
	}
}
