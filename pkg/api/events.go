// Event bridge — wires the domain event bus into the WebSocket hub for
// real-time monitoring. Every message-flow, conversation, and backend event
// fans out to all connected WebSocket clients.
package api

import (
	"context"

	"github.com/smartkrishi/smsgate/pkg/domain"
	"github.com/smartkrishi/smsgate/pkg/logger"
)

// EventBridge connects the domain event bus to the WebSocket hub.
type EventBridge struct {
	bus domain.EventBus
	hub *WSHub
}

// NewEventBridge creates a bridge that forwards domain events to WebSocket
// clients.
func NewEventBridge(eventBus domain.EventBus, hub *WSHub) *EventBridge {
	return &EventBridge{bus: eventBus, hub: hub}
}

// Run subscribes the bridge to every domain event. The subscription lives
// for the process lifetime; ctx only gates whether events are still
// forwarded.
func (eb *EventBridge) Run(ctx context.Context) {
	logger.InfoC("events", "Event bridge started — forwarding domain events to WebSocket")

	eb.bus.SubscribeAll(func(event domain.Event) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		eb.hub.Broadcast(string(event.EventType()), map[string]interface{}{
			"aggregate_id": event.AggregateID().String(),
			"occurred_at":  event.OccurredAt(),
			"payload":      event.Payload(),
		})
	})
}
