package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

const defaultJournalLimit = 100

// JournalTokener defines only the methods needed by this handler.
type JournalTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// JournalLister defines the interface that the audit service must implement.
type JournalLister interface {
	ListEntries(ctx context.Context, limit int) ([]models.AuditEntryDB, error)
	LastEntry(ctx context.Context) (*models.AuditEntryDB, error)
}

// AuditEntryItem represents one audit journal entry
// swagger:model AuditEntryItem
type AuditEntryItem struct {
	// Entry id
	AuditID uuid.UUID `json:"audit_id"`

	// Action category
	// default: Transfer
	Action string `json:"action"`

	// Display name of the actor
	Actor string `json:"actor"`

	// Human readable description
	Description string `json:"description"`

	// Source account number, transfers only
	SourceNumber string `json:"source_number,omitempty"`

	// Destination account number, transfers only
	DestinationNumber string `json:"destination_number,omitempty"`

	// Fraud feature vector, transfers only
	Features json.RawMessage `json:"features,omitempty"`

	// Entry time
	CreatedAt time.Time `json:"created_at"`
}

// JournalErrorResponse represents an error response for journal requests
// swagger:model JournalErrorResponse
type JournalErrorResponse struct {
	// Error message
	// default: Forbidden
	Error string `json:"error"`
}

func journalEntryItem(entry models.AuditEntryDB) AuditEntryItem {
	return AuditEntryItem{
		AuditID:           entry.AuditID,
		Action:            entry.Action,
		Actor:             entry.Actor,
		Description:       entry.Description,
		SourceNumber:      entry.SourceNumber.String,
		DestinationNumber: entry.DestinationNumber.String,
		Features:          entry.Features,
		CreatedAt:         entry.CreatedAt,
	}
}

// requireAdmin resolves the caller and rejects non-admin roles. On failure
// it has already written the response.
func requireAdmin(ctx context.Context, w http.ResponseWriter, r *http.Request, tokenGetter tokener) bool {
	actor, ok := identityFromRequest(ctx, w, r, tokenGetter)
	if !ok {
		return false
	}
	if actor.Role != models.RoleAdmin {
		logger.Log.Warnw("journal access denied", "actor", actor.Name, "role", actor.Role)
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(JournalErrorResponse{Error: "Forbidden"})
		return false
	}
	return true
}

// NewJournalListHandler returns an HTTP handler listing audit entries.
// @Summary List audit journal
// @Description Returns the newest audit entries. Admin role required.
// @Tags audit
// @Produce json
// @Param limit query int false "Maximum number of entries" default(100)
// @Success 200 {array} handlers.AuditEntryItem "Audit entries"
// @Failure 401 {object} handlers.JournalErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.JournalErrorResponse "Forbidden"
// @Router /audit [get]
// @Security BearerAuth
func NewJournalListHandler(svc JournalLister, tokenGetter JournalTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !requireAdmin(ctx, w, r, tokenGetter) {
			return
		}

		limit := defaultJournalLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(JournalErrorResponse{Error: "Invalid limit"})
				return
			}
			limit = parsed
		}

		entries, err := svc.ListEntries(ctx, limit)
		if err != nil {
			logger.Log.Errorw("failed to list audit entries", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(JournalErrorResponse{Error: "Internal server error"})
			return
		}

		resp := make([]AuditEntryItem, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, journalEntryItem(entry))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// NewJournalLastHandler returns an HTTP handler for the most recent audit entry.
// @Summary Last audit entry
// @Description Returns the most recent audit entry. Admin role required.
// @Tags audit
// @Produce json
// @Success 200 {object} handlers.AuditEntryItem "Last audit entry"
// @Failure 401 {object} handlers.JournalErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.JournalErrorResponse "Forbidden"
// @Failure 404 {object} handlers.JournalErrorResponse "Journal is empty"
// @Router /audit/last [get]
// @Security BearerAuth
func NewJournalLastHandler(svc JournalLister, tokenGetter JournalTokener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !requireAdmin(ctx, w, r, tokenGetter) {
			return
		}

		entry, err := svc.LastEntry(ctx)
		if err != nil {
			logger.Log.Errorw("failed to fetch last audit entry", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(JournalErrorResponse{Error: "Internal server error"})
			return
		}
		if entry == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(JournalErrorResponse{Error: "Journal is empty"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(journalEntryItem(*entry))
	}
}
