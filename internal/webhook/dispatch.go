package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/sipico/archive-api/internal/logging"
	"github.com/sipico/archive-api/internal/models"
)

// Matches reports whether hook should fire for signal on a record of type ref.
func Matches(hook *models.OutboundWebhook, signal models.Signal, ref string) bool {
	return hook.Enabled && hook.Signal == signal && hook.Ref == ref
}

// Payload is the body delivered to a webhook endpoint.
type Payload struct {
	Webhook string         `json:"webhook"`
	Name    string         `json:"name"`
	Signal  models.Signal  `json:"signal"`
	Ref     string         `json:"ref"`
	SentAt  string         `json:"sent_at"`
	Data    map[string]any `json:"data"`
}

// BuildPayload renders the notification hook sends for record. Secrets in
// the record's projection are masked since the endpoint is not the owner.
func BuildPayload(hook *models.OutboundWebhook, signal models.Signal, record models.Record, now time.Time) (*Payload, error) {
	if hook == nil || record == nil {
		return nil, errors.New("webhook and record are required")
	}

	id, err := hook.ABID()
	if err != nil {
		return nil, fmt.Errorf("failed to identify webhook: %w", err)
	}

	data, err := record.ExternalProjection(now)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s: %w", record.TypeName(), err)
	}
	if secret, ok := data["token"].(string); ok {
		data["token"] = logging.MaskToken(secret)
	}

	return &Payload{
		Webhook: id.String(),
		Name:    hook.Name,
		Signal:  signal,
		Ref:     hook.Ref,
		SentAt:  now.UTC().Format(time.RFC3339Nano),
		Data:    data,
	}, nil
}
