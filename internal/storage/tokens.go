package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sipico/archive-api/internal/abid"
	"github.com/sipico/archive-api/internal/models"
)

// CreateAPIToken persists t. A zero ID or Created is filled in before the
// token's ABID is computed and bound, so the stored ABID always matches the
// stored fields.
// Returns ErrDuplicate if the secret (or id/abid) is already in use and
// ErrUnknownOwner if CreatedByID does not name a user.
func (s *SQLiteStorage) CreateAPIToken(ctx context.Context, t *models.APIToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Created = s.timestamp(t.Created)

	id, err := t.ABID()
	if err != nil {
		return fmt.Errorf("failed to compute token abid: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (id, abid, created_by_id, token, created, expires)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID.String(), id.String(), t.CreatedByID, t.Token, t.Created, nullTime(t.Expires))
	if err != nil {
		if c := classify(err); c != err {
			return c
		}
		return fmt.Errorf("failed to create api token: %w", err)
	}

	return nil
}

const apiTokenColumns = "id, abid, created_by_id, token, created, expires"

func scanAPIToken(row interface{ Scan(...any) error }) (*models.APIToken, error) {
	var (
		t       models.APIToken
		rawID   string
		stored  string
		expires sql.NullTime
	)
	if err := row.Scan(&rawID, &stored, &t.CreatedByID, &t.Token, &t.Created, &expires); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid token id %q: %w", rawID, err)
	}
	t.ID = id
	t.Created = t.Created.UTC()
	t.Expires = timePtr(expires)
	t.RestoreABID(abid.ABID(stored))

	return &t, nil
}

// GetAPITokenByToken retrieves a token by its secret value.
// This is used during authentication to look up the presented bearer token.
// Returns ErrNotFound if no token matches.
func (s *SQLiteStorage) GetAPITokenByToken(ctx context.Context, token string) (*models.APIToken, error) {
	t, err := scanAPIToken(s.db.QueryRowContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE token = ?", token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api token: %w", err)
	}
	return t, nil
}

// GetAPITokenByABID retrieves a token by its ABID.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStorage) GetAPITokenByABID(ctx context.Context, id string) (*models.APIToken, error) {
	t, err := scanAPIToken(s.db.QueryRowContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE abid = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api token by abid: %w", err)
	}
	return t, nil
}

// ListAPITokens returns all tokens, oldest first.
// Returns empty slice if no tokens exist.
func (s *SQLiteStorage) ListAPITokens(ctx context.Context) ([]*models.APIToken, error) {
	return s.queryAPITokens(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens ORDER BY abid ASC")
}

// ListAPITokensByUser returns the tokens issued to one user, oldest first.
// Returns empty slice if the user has no tokens.
func (s *SQLiteStorage) ListAPITokensByUser(ctx context.Context, userID int64) ([]*models.APIToken, error) {
	return s.queryAPITokens(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE created_by_id = ? ORDER BY abid ASC", userID)
}

func (s *SQLiteStorage) queryAPITokens(ctx context.Context, query string, args ...any) ([]*models.APIToken, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query api tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	tokens := make([]*models.APIToken, 0)
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api tokens: %w", err)
	}

	return tokens, nil
}

// UpdateAPITokenExpiry sets (or with nil, clears) a token's expiry and
// returns the updated token. The ABID does not depend on the expiry, so it
// is unchanged.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStorage) UpdateAPITokenExpiry(ctx context.Context, id string, expires *time.Time) (*models.APIToken, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_tokens SET expires = ? WHERE abid = ?", nullTime(expires), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update api token expiry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetAPITokenByABID(ctx, id)
}

// DeleteAPIToken deletes a token by its ABID.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStorage) DeleteAPIToken(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_tokens WHERE abid = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete api token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
