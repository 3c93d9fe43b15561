package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sipico/archive-api/internal/abid"
)

// Signal is the kind of record event a webhook fires for.
type Signal string

const (
	SignalCreate Signal = "CREATE"
	SignalUpdate Signal = "UPDATE"
	SignalDelete Signal = "DELETE"
)

// Signals lists every supported signal in display order.
var Signals = []Signal{SignalCreate, SignalUpdate, SignalDelete}

// ParseSignal accepts a signal name in any case.
func ParseSignal(s string) (Signal, error) {
	sig := Signal(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Signals {
		if sig == known {
			return sig, nil
		}
	}
	return "", fmt.Errorf("unknown signal %q (want one of CREATE, UPDATE, DELETE)", s)
}

// OutboundWebhook registers an external endpoint to notify when a signal
// fires for records of the referenced type. Delivery is handled elsewhere;
// this record only describes what to deliver and where.
type OutboundWebhook struct {
	ID          uuid.UUID
	CreatedByID int64
	Name        string
	Signal      Signal
	Ref         string // record type reference, e.g. "core.models.Snapshot"
	Endpoint    string
	Enabled     bool
	Created     time.Time
	Modified    time.Time

	abid abid.Lazy
}

// OutboundWebhookDescriptor: whk_<created>_<hash(endpoint)>_<hash(ref)>_<id>.
var OutboundWebhookDescriptor = abid.Descriptor[*OutboundWebhook]{
	Prefix:    "whk_",
	Timestamp: abid.Field("self.created", func(w *OutboundWebhook) any { return w.Created }),
	Content:   abid.Field("self.endpoint", func(w *OutboundWebhook) any { return w.Endpoint }),
	Subtype:   abid.Field("self.ref", func(w *OutboundWebhook) any { return w.Ref }),
	Random:    abid.Field("self.id", func(w *OutboundWebhook) any { return w.ID }),
}

// TypeName implements Record.
func (w *OutboundWebhook) TypeName() string { return "OutboundWebhook" }

// ABID returns the registration's identifier, computing it on first use.
func (w *OutboundWebhook) ABID() (abid.ABID, error) {
	return w.abid.Get(func() (abid.ABID, error) { return OutboundWebhookDescriptor.Compute(w) })
}

// RestoreABID binds an identifier that was computed earlier and persisted.
func (w *OutboundWebhook) RestoreABID(id abid.ABID) { w.abid.Restore(id) }

// ULID implements Record.
func (w *OutboundWebhook) ULID() (string, error) { return ulidOf(w) }

// ExternalProjection implements Record.
func (w *OutboundWebhook) ExternalProjection(_ time.Time) (map[string]any, error) {
	id, err := w.ABID()
	if err != nil {
		return nil, err
	}
	u, err := w.ULID()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"TYPE":          w.TypeName(),
		"id":            w.ID.String(),
		"abid":          id.String(),
		"ulid":          u,
		"created_by_id": strconv.FormatInt(w.CreatedByID, 10),
		"name":          w.Name,
		"signal":        string(w.Signal),
		"ref":           w.Ref,
		"endpoint":      w.Endpoint,
		"enabled":       w.Enabled,
		"created":       formatTime(w.Created),
		"modified":      formatTime(w.Modified),
	}, nil
}
