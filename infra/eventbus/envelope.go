package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/eventbus"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	return json.Marshal(envelope{Type: event.Type(), Payload: data})
}

// decodeEnvelope returns the event type and the decoded event. An unknown
// type yields a nil event and no error so callers can route it to a DLQ.
func decodeEnvelope(raw []byte) (events.EventType, events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		return events.EventType(env.Type), nil, nil
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return events.EventType(env.Type), nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return events.EventType(env.Type), evt, nil
}

// runHandlers calls every handler and reports whether all of them succeeded.
// A panicking handler counts as a failure.
func runHandlers(
	ctx context.Context,
	logger *slog.Logger,
	event events.Event,
	handlers []eventbus.HandlerFunc,
) bool {
	ok := true
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered in event handler", "type", event.Type(), "panic", r)
					ok = false
				}
			}()
			if err := handler(ctx, event); err != nil {
				logger.Error("failed to process event", "type", event.Type(), "error", err)
				ok = false
			}
		}()
	}
	return ok
}
