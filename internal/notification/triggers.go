package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/report"
)

// Triggers turns ticket events into group notifications.
type Triggers struct {
	sender Sender
	labels report.Labels
}

// NewTriggers creates a new notification trigger service.
func NewTriggers(sender Sender, labels report.Labels) *Triggers {
	return &Triggers{sender: sender, labels: labels}
}

// Register subscribes the triggers to every ticket event.
func (t *Triggers) Register(d *domain.EventDispatcher) {
	d.Register(t.Handle)
}

// Handle renders and sends the notification for one event.
func (t *Triggers) Handle(ctx context.Context, ev *domain.TicketEvent) error {
	msg := Message{Type: ev.EventType, TicketID: ev.TicketID, Event: ev}

	switch ev.EventType {
	case domain.EventTicketCreated, domain.EventTicketUpdated, domain.EventTicketArchived:
		if ev.Ticket == nil {
			return fmt.Errorf("event %s carries no ticket", ev.EventID)
		}
		msg.Text = FormatTicketMessage(*ev.Ticket, t.labels)
		if ev.Action == domain.ActionCorrectionRequired && ev.Ticket.CorrectionNote != "" {
			msg.Text += fmt.Sprintf("%s: %s\n", t.labels.MsgNote, ev.Ticket.CorrectionNote)
		}
	case domain.EventTicketOverdue:
		if ev.Ticket == nil {
			return fmt.Errorf("event %s carries no ticket", ev.EventID)
		}
		headline := t.labels.MsgOverdue[ev.Side]
		if headline == "" {
			headline = ev.Message
		}
		msg.Text = headline + "\n" + FormatTicketMessage(*ev.Ticket, t.labels)
	default:
		msg.Text = ev.Message
	}

	if err := t.sender.Send(ctx, msg); err != nil {
		logger.Error("failed to send ticket notification",
			zap.String("event_type", string(ev.EventType)),
			logger.TicketID(ev.TicketID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
