// Package events publishes order lifecycle notifications to downstream consumers.
package events

import (
	"context"
	"time"
)

const (
	TypeOrdersImported = "orders.imported"
	TypeOrderCompleted = "orders.completed"
	TypeOrderReopened  = "orders.reopened"
)

// Event is the JSON envelope written to the broker.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
