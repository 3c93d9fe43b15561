package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
)

// BootstrapState represents whether the bootstrap principal can already authenticate.
type BootstrapState int

const (
	// StateUnconfigured means the bootstrap user has no tokens yet.
	StateUnconfigured BootstrapState = iota

	// StateConfigured means the bootstrap user holds at least one token.
	StateConfigured
)

// String returns the string representation of the bootstrap state
func (s BootstrapState) String() string {
	switch s {
	case StateUnconfigured:
		return "UNCONFIGURED"
	case StateConfigured:
		return "CONFIGURED"
	default:
		return "UNKNOWN"
	}
}

// UserStore is the persistence bootstrapping needs on top of Store.
type UserStore interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListAPITokensByUser(ctx context.Context, userID int64) ([]*models.APIToken, error)
}

// Bootstrapper makes sure a fresh installation has one principal with one
// token, so the API is reachable at all.
type Bootstrapper struct {
	users  UserStore
	issuer *Issuer
}

// NewBootstrapper creates a Bootstrapper.
func NewBootstrapper(users UserStore, issuer *Issuer) *Bootstrapper {
	return &Bootstrapper{users: users, issuer: issuer}
}

// ensureUser returns the named user, creating it on first start.
func (b *Bootstrapper) ensureUser(ctx context.Context, username string) (*models.User, error) {
	u, err := b.users.GetUserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up bootstrap user: %w", err)
	}

	u, err = b.users.CreateUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap user: %w", err)
	}
	b.issuer.logger.Info("bootstrap user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// GetState reports whether user already holds a token.
func (b *Bootstrapper) GetState(ctx context.Context, user *models.User) (BootstrapState, error) {
	tokens, err := b.users.ListAPITokensByUser(ctx, user.ID)
	if err != nil {
		return StateUnconfigured, err
	}
	if len(tokens) > 0 {
		return StateConfigured, nil
	}
	return StateUnconfigured, nil
}

// Run creates the user if needed and, in StateUnconfigured, issues it a
// non-expiring token. The token is returned only when one was issued; the
// caller is responsible for showing it to the operator exactly once.
func (b *Bootstrapper) Run(ctx context.Context, username string) (*models.User, *models.APIToken, error) {
	u, err := b.ensureUser(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	state, err := b.GetState(ctx, u)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to determine bootstrap state: %w", err)
	}
	if state == StateConfigured {
		return u, nil, nil
	}

	t, err := b.issuer.issue(ctx, u.ID, nil, "bootstrap")
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}
