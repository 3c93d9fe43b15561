package credential

import "errors"

var (
	// ErrDuplicateToken is returned when a generated secret collides with an existing token.
	ErrDuplicateToken = errors.New("credential: token already exists")

	// ErrIssuanceExhausted is returned when every issuance attempt collided.
	ErrIssuanceExhausted = errors.New("credential: issuance attempts exhausted")

	// ErrInvalidToken is returned when a presented token does not exist.
	ErrInvalidToken = errors.New("credential: invalid token")

	// ErrExpiredCredential is returned when a presented token exists but has expired.
	ErrExpiredCredential = errors.New("credential: token expired")
)
