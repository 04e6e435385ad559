package domain

import (
	"errors"
	"fmt"
)

// ErrTicketNotFound is returned when no active ticket matches the given id.
// Archived tickets are immutable and also produce this error on update.
var ErrTicketNotFound = errors.New("ticket not found")

// MixerBusyError rejects a ticket for a mixer already held by an active ticket.
type MixerBusyError struct {
	Mixer    string
	HolderID string
}

func (e *MixerBusyError) Error() string {
	return fmt.Sprintf("mixer %s is busy with ticket %s", e.Mixer, e.HolderID)
}

// TransitionError rejects an action or status that the lifecycle does not
// allow from the current status.
type TransitionError struct {
	TicketID string
	From     Status
	Action   Action
	To       Status
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition from %s via %s", e.From, e.Action)
	if e.To != "" {
		msg += fmt.Sprintf(" to %s", e.To)
	}
	if e.TicketID != "" {
		msg = e.TicketID + ": " + msg
	}
	return msg
}
