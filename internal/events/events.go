package events

import (
	"context"
	"log/slog"
	"time"
)

// Kind names a listing lifecycle change. It doubles as the routing key.
type Kind string

const (
	Created Kind = "listing.created"
	Updated Kind = "listing.updated"
	Deleted Kind = "listing.deleted"
)

type ListingChanged struct {
	Kind     Kind      `json:"kind"`
	CustomID string    `json:"custom_id"`
	Fields   []string  `json:"fields,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt ListingChanged) error
}

// InMemory buffers events for in-process subscribers and drops them when
// the buffer is full.
type InMemory struct {
	ch chan ListingChanged
}

func NewInMemory(buffer int) *InMemory {
	if buffer <= 0 {
		buffer = 256
	}
	return &InMemory{ch: make(chan ListingChanged, buffer)}
}

func (m *InMemory) Publish(_ context.Context, evt ListingChanged) error {
	select {
	case m.ch <- evt:
	default:
	}
	return nil
}

func (m *InMemory) Subscribe() <-chan ListingChanged { return m.ch }

// Drain logs in-process events until ctx is done.
func Drain(ctx context.Context, m *InMemory, log *slog.Logger) {
	sub := m.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			log.Debug("listing event", "kind", string(evt.Kind), "custom_id", evt.CustomID, "fields", evt.Fields, "at", evt.At.Format(time.RFC3339))
		}
	}
}
