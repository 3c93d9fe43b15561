// Package admin provides the JSON API for managing API tokens and webhook registrations.
package admin

import (
	"context"
	"log/slog"

	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/schema"
	"github.com/sipico/archive-api/internal/webhook"
)

// Handler provides admin endpoints
type Handler struct {
	storage  Storage
	issuer   *credential.Issuer
	hooks    *webhook.Validator
	registry *schema.Registry
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

// Storage interface for admin operations
type Storage interface {
	// Health check
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id int64) (*models.User, error)

	// Token reads; writes go through the issuer
	GetAPITokenByABID(ctx context.Context, id string) (*models.APIToken, error)
	ListAPITokensByUser(ctx context.Context, userID int64) ([]*models.APIToken, error)

	// Webhook registrations
	CreateWebhook(ctx context.Context, w *models.OutboundWebhook) error
	GetWebhookByABID(ctx context.Context, id string) (*models.OutboundWebhook, error)
	ListWebhooks(ctx context.Context) ([]*models.OutboundWebhook, error)
	SetWebhookEnabled(ctx context.Context, id string, enabled bool) (*models.OutboundWebhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// NewHandler creates an admin handler
func NewHandler(storage Storage, issuer *credential.Issuer, registry *schema.Registry, logLevel *slog.LevelVar, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}
	if registry == nil {
		registry = schema.Default()
	}

	hooks, err := webhook.NewValidator(registry)
	if err != nil {
		return nil, err
	}

	return &Handler{
		storage:  storage,
		issuer:   issuer,
		hooks:    hooks,
		registry: registry,
		logLevel: logLevel,
		logger:   logger,
	}, nil
}
