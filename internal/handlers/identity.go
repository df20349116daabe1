package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

// tokener is the subset of the jwt helper every authenticated handler needs.
type tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

type unauthorizedResponse struct {
	Error string `json:"error"`
}

// identityFromRequest resolves the authenticated caller from the bearer
// token. On failure it has already written the 401 response.
func identityFromRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, tokenGetter tokener) (models.Identity, bool) {
	tokenStr, err := tokenGetter.GetTokenFromRequest(ctx, r)
	if err != nil {
		logger.Log.Errorw("failed to get token from request", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(unauthorizedResponse{Error: "Unauthorized"})
		return models.Identity{}, false
	}

	claims, err := tokenGetter.GetClaims(ctx, tokenStr)
	if err != nil {
		logger.Log.Errorw("failed to get claims from token", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(unauthorizedResponse{Error: "Unauthorized"})
		return models.Identity{}, false
	}

	return models.Identity{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
	}, true
}
