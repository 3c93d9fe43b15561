// Package storage persists users, API tokens and webhook registrations in SQLite.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// users: principals that own tokens and webhooks
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			abid TEXT UNIQUE,
			username TEXT NOT NULL UNIQUE,
			created TIMESTAMP NOT NULL
		)`,

		// api_tokens: bearer credentials, deleted with their owner
		`CREATE TABLE IF NOT EXISTS api_tokens (
			id TEXT PRIMARY KEY,
			abid TEXT NOT NULL UNIQUE,
			created_by_id INTEGER NOT NULL,
			token TEXT NOT NULL UNIQUE CHECK (length(token) = 32),
			created TIMESTAMP NOT NULL,
			expires TIMESTAMP,
			FOREIGN KEY (created_by_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_api_tokens_created_by ON api_tokens(created_by_id)`,

		// outbound_webhooks: what to notify for which signal on which record type
		`CREATE TABLE IF NOT EXISTS outbound_webhooks (
			id TEXT PRIMARY KEY,
			abid TEXT NOT NULL UNIQUE,
			created_by_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			signal TEXT NOT NULL CHECK (signal IN ('CREATE', 'UPDATE', 'DELETE')),
			ref TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created TIMESTAMP NOT NULL,
			modified TIMESTAMP NOT NULL,
			FOREIGN KEY (created_by_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_outbound_webhooks_match ON outbound_webhooks(signal, ref)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
