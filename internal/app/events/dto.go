package events

import (
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

// EventDTO is the serializable form of a dispatched event sent to feed
// observers.
type EventDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Data      []any  `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewEventDTO(ev domain.Event) EventDTO {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return EventDTO{
		ID:        ev.ID,
		Kind:      ev.Kind.String(),
		Data:      ev.Data,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// StatusDTO reports a bridge status transition.
type StatusDTO struct {
	State       string `json:"state"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

func NewStatusDTO(state, description string) StatusDTO {
	return StatusDTO{
		State:       state,
		Description: description,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}
