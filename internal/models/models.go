// Package models defines the persisted record types and the ABID descriptor
// each of them declares.
package models

import (
	"time"

	"github.com/sipico/archive-api/internal/abid"
)

// Record is implemented by every ABID-bearing record type.
type Record interface {
	// TypeName is the "TYPE" tag of the external projection.
	TypeName() string
	ABID() (abid.ABID, error)
	ULID() (string, error)
	ExternalProjection(now time.Time) (map[string]any, error)
}

// Compile-time checks.
var (
	_ Record = (*User)(nil)
	_ Record = (*APIToken)(nil)
	_ Record = (*OutboundWebhook)(nil)
)

// formatTime renders t the way external projections expose instants.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ulidOf(r interface{ ABID() (abid.ABID, error) }) (string, error) {
	id, err := r.ABID()
	if err != nil {
		return "", err
	}
	u, err := id.ULID()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
