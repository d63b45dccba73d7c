package realtime

import (
	"encoding/json"
	"strconv"
	"time"
)

// GlobalChannel is subscribed by every connection at registration time.
// Events published to it reach every connected consumer.
const GlobalChannel = "global"

// ConnectedEvent is the synthetic event queued as the first delivery on a
// fresh connection. Its payload carries the connection id so the consumer
// can confirm the session before issuing subscription calls.
const ConnectedEvent = "system:connected"

// OwnerChannel returns the per-user channel name for an owner id.
func OwnerChannel(owner int64) string {
	return "user:" + strconv.FormatInt(owner, 10)
}

// Event is one immutable published fact. The broker never inspects Payload;
// it is carried opaquely from publisher to consumers.
type Event struct {
	Channel   string          `json:"channel"`
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
