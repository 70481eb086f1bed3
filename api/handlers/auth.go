package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/models"
)

// Auth issues access tokens in exchange for basic credentials
type Auth struct {
	Guard *api.Guard
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"_id"`
}

// CreateTokenHandler authenticates the basic credentials of the request and
// returns a signed bearer token
func (a Auth) CreateTokenHandler(w http.ResponseWriter, r *http.Request) {
	if !a.Guard.Enabled() {
		writeError(w, r, "cannot issue token", models.NewValidationError("authentication is disabled"))
		return
	}

	principal, err := a.Guard.AuthenticateBasic(r)
	if err != nil {
		zap.S().Infow("token request rejected", "requestId", api.RequestID(r.Context()))
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, nil)
		return
	}

	token, expires, err := a.Guard.IssueToken(principal)
	if err != nil {
		writeError(w, r, "failed to issue token", err)
		return
	}
	zap.S().Infow("token issued", "user", principal.ID)

	ok(w, "token issued", tokenResponse{Token: token, ExpiresAt: expires, UserID: principal.ID})
}

// tokenFromQuery copies ?token= into the Authorization header. Browsers cannot
// set headers on a websocket handshake.
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}
