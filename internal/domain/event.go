package domain

import (
	"encoding/json"
	"time"
)

// EventType identifies a ticket lifecycle event.
type EventType string

const (
	EventTicketCreated  EventType = "TICKET_CREATED"
	EventTicketUpdated  EventType = "TICKET_UPDATED"
	EventTicketArchived EventType = "TICKET_ARCHIVED"
	EventTicketOverdue  EventType = "TICKET_OVERDUE"
	EventActiveCleared  EventType = "ACTIVE_CLEARED"
)

// TicketEvent is an immutable notification about a ticket. Ticket holds the
// state after the change.
type TicketEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	TicketID   string    `json:"ticket_id,omitempty"`
	Action     Action    `json:"action,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Message    string    `json:"message,omitempty"`
	Side       string    `json:"side,omitempty"` // overdue side
	Ticket     *Ticket   `json:"ticket,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToJSON converts the event to JSON bytes.
func (e TicketEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
