package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
	"github.com/bankguard/bankguard/internal/services"
)

// TransferTokener defines only the methods needed by this handler.
type TransferTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// Transferer defines the interface that the transfer service must implement.
type Transferer interface {
	Transfer(ctx context.Context, sourceNumber, destinationNumber string, amount int64, actor models.Identity) (int64, error)
}

// TransferRequest represents the JSON body for transferring funds
// swagger:model TransferRequest
type TransferRequest struct {
	// Source account number (must belong to the caller)
	// required: true
	SourceNumber string `json:"source_number"`

	// Destination account number
	// required: true
	DestinationNumber string `json:"destination_number"`

	// Amount in minor units
	// required: true
	// default: 1000
	Amount int64 `json:"amount"`
}

// TransferResponse represents a successful transfer response
// swagger:model TransferResponse
type TransferResponse struct {
	// Success message
	// default: Transfer completed successfully
	Message string `json:"message"`

	// New source balance in minor units
	NewBalance int64 `json:"new_balance"`
}

// TransferErrorResponse represents an error response for transfer
// swagger:model TransferErrorResponse
type TransferErrorResponse struct {
	// Error message
	// default: Insufficient funds
	Error string `json:"error"`
}

// NewTransferHandler returns an HTTP handler for transferring funds between accounts.
// @Summary Transfer funds
// @Description Move funds from a caller-owned source account to any destination account
// @Tags operations
// @Accept json
// @Produce json
// @Param request body handlers.TransferRequest true "Transfer Request"
// @Success 200 {object} handlers.TransferResponse "Transfer completed successfully"
// @Failure 400 {object} handlers.TransferErrorResponse "Invalid request"
// @Failure 401 {object} handlers.TransferErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.TransferErrorResponse "Source account not owned by caller"
// @Failure 404 {object} handlers.TransferErrorResponse "Account not found"
// @Router /transfers [post]
// @Security BearerAuth
func NewTransferHandler(svc Transferer, tokenGetter TransferTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
		if !ok {
			return
		}

		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Invalid request body"})
			return
		}

		newBalance, err := svc.Transfer(ctx, req.SourceNumber, req.DestinationNumber, req.Amount, actor)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidAmount):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Invalid amount"})
			case errors.Is(err, services.ErrSelfTransfer):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Cannot transfer to the same account"})
			case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrNegativeBalance):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Insufficient funds"})
			case errors.Is(err, services.ErrNotOwner):
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Source account not owned by caller"})
			case errors.Is(err, services.ErrAccountNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Account not found"})
			default:
				logger.Log.Errorw("failed to transfer funds",
					"source", req.SourceNumber, "destination", req.DestinationNumber, "amount", req.Amount, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(TransferErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TransferResponse{
			Message:    "Transfer completed successfully",
			NewBalance: newBalance,
		})
	}
}
