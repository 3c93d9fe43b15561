package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sipico/archive-api/internal/auth"
	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/logging"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
)

// CreateTokenRequest is the request body for POST /api/tokens.
// A missing expiry issues a token that never expires.
type CreateTokenRequest struct {
	Expires *time.Time `json:"expires,omitempty"`
}

// SetExpiryRequest is the request body for PUT /api/tokens/{abid}/expiry.
// A null expiry makes the token non-expiring.
type SetExpiryRequest struct {
	Expires *time.Time `json:"expires"`
}

// maskedToken projects a token for listing: the secret is masked and the
// current validity is attached.
func (h *Handler) maskedToken(t *models.APIToken) (map[string]any, error) {
	now := h.issuer.Now()
	view, err := t.ExternalProjection(now)
	if err != nil {
		return nil, err
	}
	view["token"] = logging.MaskToken(t.Token)
	view["is_valid"] = t.IsValid(now)
	return view, nil
}

// ownedToken loads the token named by the {abid} URL parameter. Tokens owned
// by another user are reported as not found.
func (h *Handler) ownedToken(w http.ResponseWriter, r *http.Request) (*models.APIToken, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return nil, false
	}

	id := chi.URLParam(r, "abid")
	token, err := h.storage.GetAPITokenByABID(r.Context(), id)
	if err == nil && token.CreatedByID != principal {
		err = storage.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Token not found")
			return nil, false
		}
		h.logger.Error("failed to get token", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return nil, false
	}
	return token, true
}

// HandleListTokens returns the caller's tokens with secrets masked
// GET /api/tokens
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return
	}

	tokens, err := h.storage.ListAPITokensByUser(r.Context(), principal)
	if err != nil {
		h.logger.Error("failed to list tokens", "user_id", principal, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	response := make([]map[string]any, 0, len(tokens))
	for _, t := range tokens {
		view, err := h.maskedToken(t)
		if err != nil {
			h.logger.Error("failed to project token", "token", t, "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
			return
		}
		response = append(response, view)
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleCreateToken issues a new token for the caller. The secret is
// returned in plaintext only in this response.
// POST /api/tokens
// Body: {"expires": "2030-01-01T00:00:00Z"} (optional)
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return
	}

	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	if req.Expires != nil && req.Expires.Before(h.issuer.Now()) {
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeValidationFailed,
			"expires is in the past", "Omit expires for a token that never expires")
		return
	}

	token, err := h.issuer.Issue(r.Context(), principal, req.Expires)
	if err != nil {
		if errors.Is(err, credential.ErrIssuanceExhausted) {
			h.logger.Error("token issuance exhausted", "user_id", principal, "error", err)
			WriteErrorWithHint(w, http.StatusServiceUnavailable, ErrCodeIssuanceFailed,
				"Could not generate a unique token", "Retry the request")
			return
		}
		h.logger.Error("failed to issue token", "user_id", principal, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	view, err := token.ExternalProjection(h.issuer.Now())
	if err != nil {
		h.logger.Error("failed to project token", "token", token, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// HandleGetToken returns one of the caller's tokens with its secret masked
// GET /api/tokens/{abid}
func (h *Handler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	token, ok := h.ownedToken(w, r)
	if !ok {
		return
	}

	view, err := h.maskedToken(token)
	if err != nil {
		h.logger.Error("failed to project token", "token", token, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDeleteToken revokes one of the caller's tokens
// DELETE /api/tokens/{abid}
func (h *Handler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ownedToken(w, r); !ok {
		return
	}

	id := chi.URLParam(r, "abid")
	if err := h.issuer.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Token not found")
			return
		}
		h.logger.Error("failed to revoke token", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSetTokenExpiry changes or clears the expiry of one of the caller's tokens
// PUT /api/tokens/{abid}/expiry
// Body: {"expires": "2030-01-01T00:00:00Z"} or {"expires": null}
func (h *Handler) HandleSetTokenExpiry(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ownedToken(w, r); !ok {
		return
	}

	var req SetExpiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	id := chi.URLParam(r, "abid")
	updated, err := h.issuer.SetExpiry(r.Context(), id, req.Expires)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Token not found")
			return
		}
		h.logger.Error("failed to set token expiry", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	view, err := h.maskedToken(updated)
	if err != nil {
		h.logger.Error("failed to project token", "token", updated, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
