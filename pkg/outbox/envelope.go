package outbox

import (
	"encoding/json"
	"time"
)

// PayloadEnvelope wraps event payloads stored in outbox_events. The shape is
// versioned so the reconciler can keep decoding rows written by older builds.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}
