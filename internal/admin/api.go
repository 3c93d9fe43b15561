package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sipico/archive-api/internal/auth"
	"github.com/sipico/archive-api/internal/storage"
)

// SetLogLevelRequest is the request body for POST /api/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes runtime log level
// POST /api/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	var level slog.Level
	switch req.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid level", "Use one of: debug, info, warn, error")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "new_level", req.Level)

	writeJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}

// HandleWhoami returns the user and token the request authenticated as
// GET /api/whoami
func (h *Handler) HandleWhoami(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromContext(r.Context())
	if token == nil {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return
	}

	user, err := h.storage.GetUser(r.Context(), token.CreatedByID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
			return
		}
		h.logger.Error("failed to get user", "user_id", token.CreatedByID, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	userView, err := user.ExternalProjection(h.issuer.Now())
	if err != nil {
		h.logger.Error("failed to project user", "user_id", user.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}
	tokenView, err := h.maskedToken(token)
	if err != nil {
		h.logger.Error("failed to project token", "token", token, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  userView,
		"token": tokenView,
	})
}

// HandleListSchemaRefs lists the record types webhooks may reference
// GET /api/schema/refs
func (h *Handler) HandleListSchemaRefs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Kinds())
}
