// Package mockstore provides a configurable mock implementation of the storage layer for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"
	"time"

	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
)

// MockStorage is a configurable mock of storage.SQLiteStorage.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	// User operations
	CreateUserFunc        func(ctx context.Context, username string) (*models.User, error)
	GetUserFunc           func(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	ListUsersFunc         func(ctx context.Context) ([]*models.User, error)
	DeleteUserFunc        func(ctx context.Context, id int64) error

	// API token operations
	CreateAPITokenFunc       func(ctx context.Context, t *models.APIToken) error
	GetAPITokenByTokenFunc   func(ctx context.Context, token string) (*models.APIToken, error)
	GetAPITokenByABIDFunc    func(ctx context.Context, id string) (*models.APIToken, error)
	ListAPITokensFunc        func(ctx context.Context) ([]*models.APIToken, error)
	ListAPITokensByUserFunc  func(ctx context.Context, userID int64) ([]*models.APIToken, error)
	UpdateAPITokenExpiryFunc func(ctx context.Context, id string, expires *time.Time) (*models.APIToken, error)
	DeleteAPITokenFunc       func(ctx context.Context, id string) error

	// Webhook operations
	CreateWebhookFunc     func(ctx context.Context, w *models.OutboundWebhook) error
	GetWebhookByABIDFunc  func(ctx context.Context, id string) (*models.OutboundWebhook, error)
	ListWebhooksFunc      func(ctx context.Context) ([]*models.OutboundWebhook, error)
	ListWebhooksForFunc   func(ctx context.Context, signal models.Signal, ref string) ([]*models.OutboundWebhook, error)
	SetWebhookEnabledFunc func(ctx context.Context, id string, enabled bool) (*models.OutboundWebhook, error)
	DeleteWebhookFunc     func(ctx context.Context, id string) error

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

// CreateUser creates a user.
func (m *MockStorage) CreateUser(ctx context.Context, username string) (*models.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, username)
	}
	return &models.User{ID: 1, Username: username, Created: time.Now().UTC()}, nil
}

// GetUser retrieves a user by id.
func (m *MockStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// GetUserByUsername retrieves a user by username.
func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetUserByUsernameFunc != nil {
		return m.GetUserByUsernameFunc(ctx, username)
	}
	return nil, storage.ErrNotFound
}

// ListUsers retrieves all users.
func (m *MockStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return make([]*models.User, 0), nil
}

// DeleteUser deletes a user.
func (m *MockStorage) DeleteUser(ctx context.Context, id int64) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

// CreateAPIToken persists a token.
func (m *MockStorage) CreateAPIToken(ctx context.Context, t *models.APIToken) error {
	if m.CreateAPITokenFunc != nil {
		return m.CreateAPITokenFunc(ctx, t)
	}
	return nil
}

// GetAPITokenByToken retrieves a token by its secret.
func (m *MockStorage) GetAPITokenByToken(ctx context.Context, token string) (*models.APIToken, error) {
	if m.GetAPITokenByTokenFunc != nil {
		return m.GetAPITokenByTokenFunc(ctx, token)
	}
	return nil, storage.ErrNotFound
}

// GetAPITokenByABID retrieves a token by its ABID.
func (m *MockStorage) GetAPITokenByABID(ctx context.Context, id string) (*models.APIToken, error) {
	if m.GetAPITokenByABIDFunc != nil {
		return m.GetAPITokenByABIDFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListAPITokens retrieves all tokens.
func (m *MockStorage) ListAPITokens(ctx context.Context) ([]*models.APIToken, error) {
	if m.ListAPITokensFunc != nil {
		return m.ListAPITokensFunc(ctx)
	}
	return make([]*models.APIToken, 0), nil
}

// ListAPITokensByUser retrieves the tokens of one user.
func (m *MockStorage) ListAPITokensByUser(ctx context.Context, userID int64) ([]*models.APIToken, error) {
	if m.ListAPITokensByUserFunc != nil {
		return m.ListAPITokensByUserFunc(ctx, userID)
	}
	return make([]*models.APIToken, 0), nil
}

// UpdateAPITokenExpiry changes a token's expiry.
func (m *MockStorage) UpdateAPITokenExpiry(ctx context.Context, id string, expires *time.Time) (*models.APIToken, error) {
	if m.UpdateAPITokenExpiryFunc != nil {
		return m.UpdateAPITokenExpiryFunc(ctx, id, expires)
	}
	return nil, storage.ErrNotFound
}

// DeleteAPIToken deletes a token.
func (m *MockStorage) DeleteAPIToken(ctx context.Context, id string) error {
	if m.DeleteAPITokenFunc != nil {
		return m.DeleteAPITokenFunc(ctx, id)
	}
	return nil
}

// CreateWebhook persists a webhook registration.
func (m *MockStorage) CreateWebhook(ctx context.Context, w *models.OutboundWebhook) error {
	if m.CreateWebhookFunc != nil {
		return m.CreateWebhookFunc(ctx, w)
	}
	return nil
}

// GetWebhookByABID retrieves a webhook registration.
func (m *MockStorage) GetWebhookByABID(ctx context.Context, id string) (*models.OutboundWebhook, error) {
	if m.GetWebhookByABIDFunc != nil {
		return m.GetWebhookByABIDFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListWebhooks retrieves all webhook registrations.
func (m *MockStorage) ListWebhooks(ctx context.Context) ([]*models.OutboundWebhook, error) {
	if m.ListWebhooksFunc != nil {
		return m.ListWebhooksFunc(ctx)
	}
	return make([]*models.OutboundWebhook, 0), nil
}

// ListWebhooksFor retrieves the enabled registrations for a signal and ref.
func (m *MockStorage) ListWebhooksFor(ctx context.Context, signal models.Signal, ref string) ([]*models.OutboundWebhook, error) {
	if m.ListWebhooksForFunc != nil {
		return m.ListWebhooksForFunc(ctx, signal, ref)
	}
	return make([]*models.OutboundWebhook, 0), nil
}

// SetWebhookEnabled toggles a webhook registration.
func (m *MockStorage) SetWebhookEnabled(ctx context.Context, id string, enabled bool) (*models.OutboundWebhook, error) {
	if m.SetWebhookEnabledFunc != nil {
		return m.SetWebhookEnabledFunc(ctx, id, enabled)
	}
	return nil, storage.ErrNotFound
}

// DeleteWebhook deletes a webhook registration.
func (m *MockStorage) DeleteWebhook(ctx context.Context, id string) error {
	if m.DeleteWebhookFunc != nil {
		return m.DeleteWebhookFunc(ctx, id)
	}
	return nil
}

// Ping checks database connectivity.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close closes the storage.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
