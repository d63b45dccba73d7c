// Package events is the publishing facade used by business-logic
// collaborators (horse CRUD, document uploads, task workers) to emit domain
// events without touching broker internals.
package events

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/stablehq/stablecast/internal/realtime"
)

var (
	// ErrEmptyModule is returned when the module name is missing.
	ErrEmptyModule = errors.New("events: empty module name")
	// ErrEmptyAction is returned when the action name is missing.
	ErrEmptyAction = errors.New("events: empty action name")
)

// Publisher builds event names from module and action and routes them to
// the right channel.
type Publisher struct {
	broker *realtime.Broker
}

// NewPublisher creates a Publisher.
func NewPublisher(b *realtime.Broker) *Publisher {
	return &Publisher{broker: b}
}

// PublishModuleEvent emits a `<module>:<action>` event. When ownerID is
// given the event goes to that user's channel, otherwise to the channel
// named after the module.
func (p *Publisher) PublishModuleEvent(module, action string, payload json.RawMessage, ownerID *int64) (realtime.Event, error) {
	if module == "" {
		return realtime.Event{}, ErrEmptyModule
	}
	if action == "" {
		return realtime.Event{}, ErrEmptyAction
	}

	name := module + ":" + action
	channel := module
	if ownerID != nil {
		channel = realtime.OwnerChannel(*ownerID)
	}

	evt, err := p.broker.Publish(channel, name, payload)
	if err != nil {
		return realtime.Event{}, err
	}

	slog.Info("event published",
		"channel", evt.Channel,
		"event", evt.Name,
		"size", len(payload),
	)
	return evt, nil
}

// PublishGlobal emits an event on the broadcast channel seen by every
// connection.
func (p *Publisher) PublishGlobal(event string, payload json.RawMessage) (realtime.Event, error) {
	evt, err := p.broker.Publish(realtime.GlobalChannel, event, payload)
	if err != nil {
		return realtime.Event{}, err
	}

	slog.Info("event published", "channel", evt.Channel, "event", evt.Name, "size", len(payload))
	return evt, nil
}
