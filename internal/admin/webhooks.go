package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sipico/archive-api/internal/auth"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
	"github.com/sipico/archive-api/internal/webhook"
)

// validationErrorResponse extends APIError with the rejected fields.
type validationErrorResponse struct {
	APIError
	Fields []webhook.FieldError `json:"fields"`
}

// SetEnabledRequest is the request body for PUT /api/webhooks/{abid}/enabled.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) writeWebhook(w http.ResponseWriter, status int, hook *models.OutboundWebhook) {
	view, err := hook.ExternalProjection(h.issuer.Now())
	if err != nil {
		h.logger.Error("failed to project webhook", "name", hook.Name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}
	writeJSON(w, status, view)
}

// ownedWebhook loads the registration named by the {abid} URL parameter.
// Registrations owned by another user are reported as not found.
func (h *Handler) ownedWebhook(w http.ResponseWriter, r *http.Request) (*models.OutboundWebhook, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return nil, false
	}

	id := chi.URLParam(r, "abid")
	hook, err := h.storage.GetWebhookByABID(r.Context(), id)
	if err == nil && hook.CreatedByID != principal {
		err = storage.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Webhook not found")
			return nil, false
		}
		h.logger.Error("failed to get webhook", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return nil, false
	}
	return hook, true
}

// HandleListWebhooks returns the caller's webhook registrations
// GET /api/webhooks
func (h *Handler) HandleListWebhooks(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return
	}

	hooks, err := h.storage.ListWebhooks(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhooks", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	now := h.issuer.Now()
	response := make([]map[string]any, 0, len(hooks))
	for _, hook := range hooks {
		if hook.CreatedByID != principal {
			continue
		}
		view, err := hook.ExternalProjection(now)
		if err != nil {
			h.logger.Error("failed to project webhook", "name", hook.Name, "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
			return
		}
		response = append(response, view)
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleCreateWebhook registers a webhook for the caller
// POST /api/webhooks
// Body: {"name": "...", "signal": "CREATE", "ref": "core.models.Snapshot", "endpoint": "https://..."}
func (h *Handler) HandleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Not authenticated")
		return
	}

	var req webhook.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	hook, err := h.hooks.Build(req, principal)
	if err != nil {
		var verr *webhook.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, validationErrorResponse{
				APIError: APIError{
					Error:   ErrCodeValidationFailed,
					Message: "Invalid webhook registration",
					Hint:    "GET /api/webhooks/fields and /api/schema/refs describe accepted values",
				},
				Fields: verr.Fields,
			})
			return
		}
		h.logger.Error("failed to build webhook", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	if err := h.storage.CreateWebhook(r.Context(), hook); err != nil {
		h.logger.Error("failed to create webhook", "name", hook.Name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("webhook registered", "name", hook.Name, "signal", hook.Signal, "ref", hook.Ref)
	h.writeWebhook(w, http.StatusCreated, hook)
}

// HandleWebhookFields describes the editable fields of a registration
// GET /api/webhooks/fields
func (h *Handler) HandleWebhookFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, webhook.Fields())
}

// HandleGetWebhook returns one of the caller's registrations
// GET /api/webhooks/{abid}
func (h *Handler) HandleGetWebhook(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}
	h.writeWebhook(w, http.StatusOK, hook)
}

// HandleDeleteWebhook removes one of the caller's registrations
// DELETE /api/webhooks/{abid}
func (h *Handler) HandleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	hook, ok := h.ownedWebhook(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "abid")
	if err := h.storage.DeleteWebhook(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Webhook not found")
			return
		}
		h.logger.Error("failed to delete webhook", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("webhook deleted", "abid", id, "name", hook.Name)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetWebhookEnabled enables or disables one of the caller's registrations
// PUT /api/webhooks/{abid}/enabled
// Body: {"enabled": false}
func (h *Handler) HandleSetWebhookEnabled(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ownedWebhook(w, r); !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		WriteError(w, http.StatusBadRequest, ErrCodeValidationFailed, "enabled is required")
		return
	}

	id := chi.URLParam(r, "abid")
	hook, err := h.storage.SetWebhookEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Webhook not found")
			return
		}
		h.logger.Error("failed to update webhook", "abid", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.writeWebhook(w, http.StatusOK, hook)
}
