// Package auth authenticates API requests by their bearer token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/metrics"
	"github.com/sipico/archive-api/internal/models"
)

// APIKeyHeader is accepted as an alternative to "Authorization: Bearer".
const APIKeyHeader = "X-ArchiveBox-API-Key"

// Error codes written by the middleware.
const (
	CodeMissingToken      = "missing_token"
	CodeInvalidToken      = "invalid_token"
	CodeCredentialExpired = "credential_expired"
	CodeInternalError     = "internal_error"
)

// Authenticator resolves a presented secret to a valid token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.APIToken, error)
}

// Middleware returns Chi-compatible middleware that requires a valid API token
// and stores it in the request context.
func Middleware(a Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := extractToken(r)
			if secret == "" {
				metrics.RecordAuthFailure("missing_token")
				writeJSONError(w, http.StatusUnauthorized, CodeMissingToken, "missing API token")
				return
			}

			token, err := a.Authenticate(r.Context(), secret)
			switch {
			case err == nil:
			case errors.Is(err, credential.ErrExpiredCredential):
				metrics.RecordAuthFailure("expired_token")
				logger.Info("expired API token presented", "remote_addr", r.RemoteAddr)
				writeJSONError(w, http.StatusUnauthorized, CodeCredentialExpired, "API token has expired")
				return
			case errors.Is(err, credential.ErrInvalidToken):
				metrics.RecordAuthFailure("invalid_token")
				logger.Warn("invalid API token attempt", "remote_addr", r.RemoteAddr)
				writeJSONError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid API token")
				return
			default:
				logger.Error("failed to authenticate request", "error", err)
				writeJSONError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
				return
			}

			logger.Debug("request authenticated", "token", token)
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
		})
	}
}

// extractToken gets the token from "Authorization: Bearer <token>" or the
// API key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are not critical for error responses
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message}) //nolint:errcheck
}
