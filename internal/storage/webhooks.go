package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sipico/archive-api/internal/abid"
	"github.com/sipico/archive-api/internal/models"
)

// CreateWebhook persists a webhook registration. A zero ID, Created or
// Modified is filled in before the ABID is computed and bound.
// Returns ErrUnknownOwner if CreatedByID does not name a user and
// ErrConstraint if the signal is not one of CREATE, UPDATE or DELETE.
func (s *SQLiteStorage) CreateWebhook(ctx context.Context, w *models.OutboundWebhook) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.Created = s.timestamp(w.Created)
	if w.Modified.IsZero() {
		w.Modified = w.Created
	}
	w.Modified = w.Modified.UTC()

	id, err := w.ABID()
	if err != nil {
		return fmt.Errorf("failed to compute webhook abid: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbound_webhooks
		 (id, abid, created_by_id, name, signal, ref, endpoint, enabled, created, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID.String(), id.String(), w.CreatedByID, w.Name, string(w.Signal),
		w.Ref, w.Endpoint, w.Enabled, w.Created, w.Modified)
	if err != nil {
		if c := classify(err); c != err {
			return c
		}
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

const webhookColumns = "id, abid, created_by_id, name, signal, ref, endpoint, enabled, created, modified"

func scanWebhook(row interface{ Scan(...any) error }) (*models.OutboundWebhook, error) {
	var (
		w      models.OutboundWebhook
		rawID  string
		stored string
		signal string
	)
	err := row.Scan(&rawID, &stored, &w.CreatedByID, &w.Name, &signal,
		&w.Ref, &w.Endpoint, &w.Enabled, &w.Created, &w.Modified)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook id %q: %w", rawID, err)
	}
	w.ID = id
	w.Signal = models.Signal(signal)
	w.Created = w.Created.UTC()
	w.Modified = w.Modified.UTC()
	w.RestoreABID(abid.ABID(stored))

	return &w, nil
}

// GetWebhookByABID retrieves a webhook registration by its ABID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStorage) GetWebhookByABID(ctx context.Context, id string) (*models.OutboundWebhook, error) {
	w, err := scanWebhook(s.db.QueryRowContext(ctx,
		"SELECT "+webhookColumns+" FROM outbound_webhooks WHERE abid = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

// ListWebhooks returns all registrations, oldest first.
// Returns empty slice if none exist.
func (s *SQLiteStorage) ListWebhooks(ctx context.Context) ([]*models.OutboundWebhook, error) {
	return s.queryWebhooks(ctx,
		"SELECT "+webhookColumns+" FROM outbound_webhooks ORDER BY abid ASC")
}

// ListWebhooksFor returns the enabled registrations that fire for signal on
// records of type ref, oldest first.
func (s *SQLiteStorage) ListWebhooksFor(ctx context.Context, signal models.Signal, ref string) ([]*models.OutboundWebhook, error) {
	return s.queryWebhooks(ctx,
		"SELECT "+webhookColumns+` FROM outbound_webhooks
		 WHERE signal = ? AND ref = ? AND enabled
		 ORDER BY abid ASC`,
		string(signal), ref)
}

func (s *SQLiteStorage) queryWebhooks(ctx context.Context, query string, args ...any) ([]*models.OutboundWebhook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	hooks := make([]*models.OutboundWebhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook row: %w", err)
		}
		hooks = append(hooks, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhooks: %w", err)
	}

	return hooks, nil
}

// SetWebhookEnabled toggles a registration and bumps its modified time.
// Returns the updated registration, or ErrNotFound if it doesn't exist.
func (s *SQLiteStorage) SetWebhookEnabled(ctx context.Context, id string, enabled bool) (*models.OutboundWebhook, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE outbound_webhooks SET enabled = ?, modified = ? WHERE abid = ?",
		enabled, s.now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetWebhookByABID(ctx, id)
}

// DeleteWebhook deletes a registration by its ABID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStorage) DeleteWebhook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM outbound_webhooks WHERE abid = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
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
