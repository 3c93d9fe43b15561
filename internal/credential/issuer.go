package credential

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sipico/archive-api/internal/metrics"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 10 * time.Millisecond
)

// Store is the persistence the issuer needs.
type Store interface {
	CreateAPIToken(ctx context.Context, t *models.APIToken) error
	GetAPITokenByToken(ctx context.Context, token string) (*models.APIToken, error)
	UpdateAPITokenExpiry(ctx context.Context, id string, expires *time.Time) (*models.APIToken, error)
	DeleteAPIToken(ctx context.Context, id string) error
}

// Options tunes an Issuer. Zero values select the defaults.
type Options struct {
	// MaxAttempts bounds how many secrets are generated for one Issue call.
	MaxAttempts int
	// Backoff is the pause between attempts after a collision.
	Backoff time.Duration
	Logger  *slog.Logger
	// Now is the clock used for creation and validity checks.
	Now func() time.Time

	// entropy replaces crypto/rand in tests.
	entropy io.Reader
}

// Issuer creates and validates API tokens.
type Issuer struct {
	store       Store
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	now         func() time.Time
	entropy     io.Reader
}

// NewIssuer creates an Issuer backed by store.
func NewIssuer(store Store, opts Options) *Issuer {
	i := &Issuer{
		store:       store,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		now:         opts.Now,
		entropy:     opts.entropy,
	}
	if i.maxAttempts <= 0 {
		i.maxAttempts = DefaultMaxAttempts
	}
	if i.backoff <= 0 {
		i.backoff = DefaultBackoff
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.now == nil {
		i.now = time.Now
	}
	if i.entropy == nil {
		i.entropy = rand.Reader
	}
	return i
}

// Issue creates a token for principalID. A nil expires means the token never
// expires. When a generated secret collides with an existing token the
// record is discarded and a new secret is drawn, up to the configured number
// of attempts; exhaustion returns ErrIssuanceExhausted wrapping
// ErrDuplicateToken.
func (i *Issuer) Issue(ctx context.Context, principalID int64, expires *time.Time) (*models.APIToken, error) {
	return i.issue(ctx, principalID, expires, "api")
}

func (i *Issuer) issue(ctx context.Context, principalID int64, expires *time.Time, origin string) (*models.APIToken, error) {
	var (
		issued   *models.APIToken
		attempts int
	)

	backoff := retry.WithMaxRetries(uint64(i.maxAttempts-1), retry.NewConstant(i.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		secret, err := generateToken(i.entropy)
		if err != nil {
			return err
		}

		t := &models.APIToken{
			ID:          uuid.New(),
			CreatedByID: principalID,
			Token:       secret,
			Created:     i.now().UTC(),
			Expires:     expires,
		}
		if err := i.store.CreateAPIToken(ctx, t); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				metrics.RecordTokenIssueConflict()
				i.logger.Warn("generated token collided with an existing token",
					"user_id", principalID,
					"attempt", attempts,
					"max_attempts", i.maxAttempts)
				return retry.RetryableError(ErrDuplicateToken)
			}
			return err
		}

		issued = t
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateToken) {
			i.logger.Error("token issuance exhausted", "user_id", principalID, "attempts", attempts)
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrIssuanceExhausted, attempts, err)
		}
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.RecordTokenIssued(origin)
	i.logger.Info("api token issued", "token", issued)
	return issued, nil
}

// Authenticate resolves a presented bearer token. Unknown tokens return
// ErrInvalidToken and expired ones ErrExpiredCredential.
func (i *Issuer) Authenticate(ctx context.Context, token string) (*models.APIToken, error) {
	if len(token) != models.TokenLength {
		return nil, ErrInvalidToken
	}

	t, err := i.store.GetAPITokenByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if !t.IsValid(i.now()) {
		return nil, ErrExpiredCredential
	}
	return t, nil
}

// SetExpiry changes when the token identified by id expires. A nil expires
// makes it valid indefinitely.
func (i *Issuer) SetExpiry(ctx context.Context, id string, expires *time.Time) (*models.APIToken, error) {
	t, err := i.store.UpdateAPITokenExpiry(ctx, id, expires)
	if err != nil {
		return nil, err
	}
	i.logger.Info("api token expiry changed", "token", t, "expires", t.ExpiresDisplay(i.now()))
	return t, nil
}

// Revoke deletes the token identified by id.
func (i *Issuer) Revoke(ctx context.Context, id string) error {
	if err := i.store.DeleteAPIToken(ctx, id); err != nil {
		return err
	}
	i.logger.Info("api token revoked", "abid", id)
	return nil
}

// Now returns the issuer's current time.
func (i *Issuer) Now() time.Time {
	return i.now()
}
