package notification

import (
	"fmt"
	"strings"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/report"
)

// FormatTicketMessage renders the group message for a ticket.
func FormatTicketMessage(t domain.Ticket, labels report.Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labels.MsgTicket, t.TicketID)
	fmt.Fprintf(&b, "%s: %s | %s\n", labels.MsgProduct, t.Product, t.Brand)
	fmt.Fprintf(&b, "%s: %s\n", labels.MsgMixer, t.Mixer)
	fmt.Fprintf(&b, "%s: %s\n", labels.MsgStatus, labels.Status(string(t.Status)))

	user := t.Username
	if user == "" {
		user = "N/A"
	}
	fmt.Fprintf(&b, "%s: %s\n", labels.MsgResponsible, user)

	if t.CurrentStep != "" {
		fmt.Fprintf(&b, "%s: %s\n", labels.MsgStep, labels.Step(t.CurrentStep))
	}
	if n := len(t.CorrectionsHistory); n > 0 {
		fmt.Fprintf(&b, "%s: %d\n", labels.MsgCorrections, n)
	}
	return b.String()
}
