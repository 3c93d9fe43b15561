package models

import (
	"strconv"
	"time"

	"github.com/sipico/archive-api/internal/abid"
)

// User is the principal that owns credentials and webhook registrations.
type User struct {
	ID       int64
	Username string
	Created  time.Time

	abid abid.Lazy
}

// UserDescriptor derives a user's ABID from its creation time, username and
// row id. Users have integer keys, so the random segment is a hash of the id.
var UserDescriptor = abid.Descriptor[*User]{
	Prefix:    "usr_",
	Timestamp: abid.Field("self.created", func(u *User) any { return u.Created }),
	Content:   abid.Field("self.username", func(u *User) any { return u.Username }),
	Subtype:   abid.Field("self.type_name", func(u *User) any { return u.TypeName() }),
	Random:    abid.Field("self.id", func(u *User) any { return u.ID }),
}

// TypeName implements Record.
func (u *User) TypeName() string { return "User" }

// ABID returns the user's identifier, computing it on first use.
func (u *User) ABID() (abid.ABID, error) {
	return u.abid.Get(func() (abid.ABID, error) { return UserDescriptor.Compute(u) })
}

// RestoreABID binds an identifier that was computed earlier and persisted.
func (u *User) RestoreABID(id abid.ABID) { u.abid.Restore(id) }

// ULID implements Record.
func (u *User) ULID() (string, error) { return ulidOf(u) }

// ExternalProjection implements Record.
func (u *User) ExternalProjection(_ time.Time) (map[string]any, error) {
	id, err := u.ABID()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"TYPE":     u.TypeName(),
		"id":       strconv.FormatInt(u.ID, 10),
		"abid":     id.String(),
		"username": u.Username,
		"created":  formatTime(u.Created),
	}, nil
}
