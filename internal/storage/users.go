package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sipico/archive-api/internal/abid"
	"github.com/sipico/archive-api/internal/models"
)

// CreateUser creates a principal. The user's ABID depends on its row id, so
// it is computed and stored in the same transaction as the insert.
// Returns ErrDuplicate if the username is taken.
func (s *SQLiteStorage) CreateUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	u := &models.User{Username: username, Created: s.timestamp(s.now())}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, created) VALUES (?, ?)",
		u.Username, u.Created)
	if err != nil {
		if c := classify(err); errors.Is(c, ErrDuplicate) {
			return nil, c
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	u.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	id, err := u.ABID()
	if err != nil {
		return nil, fmt.Errorf("failed to compute user abid: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET abid = ? WHERE id = ?", id.String(), u.ID); err != nil {
		return nil, fmt.Errorf("failed to store user abid: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	return u, nil
}

const userColumns = "id, abid, username, created"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u      models.User
		stored sql.NullString
	)
	if err := row.Scan(&u.ID, &stored, &u.Username, &u.Created); err != nil {
		return nil, err
	}
	u.Created = u.Created.UTC()
	if stored.Valid {
		u.RestoreABID(abid.ABID(stored.String))
	}
	return &u, nil
}

// GetUser retrieves a user by row id.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by id.
// Returns empty slice if no users exist.
func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// DeleteUser deletes a user by id.
// Cascades to the user's API tokens and webhook registrations.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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
