package auth

import (
	"context"

	"github.com/sipico/archive-api/internal/models"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const (
	tokenKey ctxKey = iota // stores *models.APIToken
)

// TokenFromContext retrieves the authenticated token from context.
// Returns nil if the request was not authenticated.
func TokenFromContext(ctx context.Context) *models.APIToken {
	if v := ctx.Value(tokenKey); v != nil {
		if token, ok := v.(*models.APIToken); ok {
			return token
		}
	}
	return nil
}

// PrincipalFromContext returns the id of the user the request acts as.
func PrincipalFromContext(ctx context.Context) (int64, bool) {
	token := TokenFromContext(ctx)
	if token == nil {
		return 0, false
	}
	return token.CreatedByID, true
}

// WithToken adds a token to the context.
func WithToken(ctx context.Context, token *models.APIToken) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}
