package models

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sipico/archive-api/internal/abid"
	"github.com/sipico/archive-api/internal/logging"
)

// TokenLength is the length of every APIToken secret: 16 random bytes, hex encoded.
const TokenLength = 32

// displayHorizon is how far in the future ExpiresDisplay places tokens that
// never expire.
const displayHorizon = 100 // years

// APIToken is a secret bearer credential issued to a user for authenticating
// REST API requests.
type APIToken struct {
	ID          uuid.UUID
	CreatedByID int64
	Token       string
	Created     time.Time
	Expires     *time.Time // nil means the token never expires

	abid abid.Lazy
}

// APITokenDescriptor: apt_<created>_<hash(token)>_<hash(created_by_id)>_<id>.
var APITokenDescriptor = abid.Descriptor[*APIToken]{
	Prefix:    "apt_",
	Timestamp: abid.Field("self.created", func(t *APIToken) any { return t.Created }),
	Content:   abid.Field("self.token", func(t *APIToken) any { return t.Token }),
	Subtype:   abid.Field("self.created_by_id", func(t *APIToken) any { return t.CreatedByID }),
	Random:    abid.Field("self.id", func(t *APIToken) any { return t.ID }),
}

// TypeName implements Record.
func (t *APIToken) TypeName() string { return "APIToken" }

// ABID returns the token's identifier, computing it on first use.
func (t *APIToken) ABID() (abid.ABID, error) {
	return t.abid.Get(func() (abid.ABID, error) { return APITokenDescriptor.Compute(t) })
}

// RestoreABID binds an identifier that was computed earlier and persisted.
func (t *APIToken) RestoreABID(id abid.ABID) { t.abid.Restore(id) }

// ULID implements Record.
func (t *APIToken) ULID() (string, error) { return ulidOf(t) }

// IsValid reports whether the token may be used at now. Only an expiry
// strictly before now invalidates it; a token without expiry is always valid.
func (t *APIToken) IsValid(now time.Time) bool {
	if t.Expires != nil && t.Expires.Before(now) {
		return false
	}
	return true
}

// ExpiresDisplay renders the expiry as ISO 8601. Tokens without an expiry
// show now + 100 years. That value is for display only: it is never stored
// and IsValid does not look at it.
func (t *APIToken) ExpiresDisplay(now time.Time) string {
	expiry := now.AddDate(displayHorizon, 0, 0)
	if t.Expires != nil {
		expiry = *t.Expires
	}
	return formatTime(expiry)
}

// ExternalProjection implements Record. It includes the secret and must only
// be sent to the token's owner.
func (t *APIToken) ExternalProjection(now time.Time) (map[string]any, error) {
	id, err := t.ABID()
	if err != nil {
		return nil, err
	}
	u, err := t.ULID()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"TYPE":          t.TypeName(),
		"id":            t.ID.String(),
		"abid":          id.String(),
		"ulid":          u,
		"created_by_id": strconv.FormatInt(t.CreatedByID, 10),
		"token":         t.Token,
		"created":       formatTime(t.Created),
		"expires":       t.ExpiresDisplay(now),
	}, nil
}

// String renders the token with its secret masked.
func (t *APIToken) String() string {
	return fmt.Sprintf("<APIToken user=%d token=%s>", t.CreatedByID, logging.MaskToken(t.Token))
}

// GoString keeps %#v from printing the secret.
func (t *APIToken) GoString() string { return t.String() }

// LogValue implements slog.LogValuer.
func (t *APIToken) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", t.ID.String()),
		slog.Int64("created_by_id", t.CreatedByID),
		slog.String("token", logging.MaskToken(t.Token)),
	}
	if id := t.abid.Peek(); !id.IsZero() {
		attrs = append(attrs, slog.String("abid", id.String()))
	}
	return slog.GroupValue(attrs...)
}
