// Package monitor flags tickets that have waited too long since their last
// recorded action. It is advisory: nothing here changes ticket state.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/pkg/timeutil"
)

// Side names the party a ticket is waiting on.
type Side string

const (
	SideProduction Side = "production"
	SideLab        Side = "lab"
)

// Thresholds are the overdue limits per side.
type Thresholds struct {
	Production time.Duration
	Lab        time.Duration
}

// Result is the outcome of a timeout check.
type Result struct {
	TimedOut       bool   `json:"timed_out"`
	Side           Side   `json:"side,omitempty"`
	Message        string `json:"message,omitempty"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
}

// Overdue messages.
const (
	MessageProductionOverdue = "OVERDUE: production did not send the sample in time"
	MessageLabOverdue        = "OVERDUE: the lab did not finish the analysis in time"
)

// CheckTimeout measures the time since the ticket's most recent history entry
// and compares it with the threshold for the side the status belongs to.
// Statuses outside both sides never time out.
func CheckTimeout(t domain.Ticket, now time.Time, th Thresholds) Result {
	last, ok := t.LastAction()
	if !ok {
		return Result{}
	}
	elapsed := now.Sub(last.Timestamp)
	res := Result{ElapsedMinutes: timeutil.ElapsedMinutes(last.Timestamp, now)}

	switch t.Status {
	case domain.StatusAwaitingSample, domain.StatusCorrectionRequired:
		if elapsed > th.Production {
			res.TimedOut = true
			res.Side = SideProduction
			res.Message = MessageProductionOverdue
		}
	case domain.StatusSampleReceived, domain.StatusAnalysisInProgress:
		if elapsed > th.Lab {
			res.TimedOut = true
			res.Side = SideLab
			res.Message = MessageLabOverdue
		}
	}
	return res
}

// Source lists the tickets to scan.
type Source interface {
	Active() []domain.Ticket
	Now() time.Time
}

// AlertFunc receives each newly overdue ticket.
type AlertFunc func(ctx context.Context, t domain.Ticket, res Result)

// Monitor scans active tickets and alerts once per ticket per last action.
type Monitor struct {
	source     Source
	thresholds Thresholds
	alert      AlertFunc

	mu       sync.Mutex
	notified map[string]time.Time // ticket id → timestamp of the action alerted on
}

// New creates a Monitor. alert may be nil.
func New(source Source, th Thresholds, alert AlertFunc) *Monitor {
	return &Monitor{
		source:     source,
		thresholds: th,
		alert:      alert,
		notified:   make(map[string]time.Time),
	}
}

// Scan checks every active ticket and returns the overdue ones. A ticket is
// alerted again only after it records a new action and becomes overdue anew.
func (m *Monitor) Scan(ctx context.Context) []domain.Ticket {
	now := m.source.Now()
	tickets := m.source.Active()

	m.mu.Lock()
	seen := make(map[string]struct{}, len(tickets))
	var overdue []domain.Ticket
	var fresh []pending
	for _, t := range tickets {
		seen[t.TicketID] = struct{}{}
		res := CheckTimeout(t, now, m.thresholds)
		if !res.TimedOut {
			continue
		}
		overdue = append(overdue, t)

		last, _ := t.LastAction()
		if at, ok := m.notified[t.TicketID]; ok && at.Equal(last.Timestamp) {
			continue
		}
		m.notified[t.TicketID] = last.Timestamp
		fresh = append(fresh, pending{ticket: t, result: res})
	}
	for id := range m.notified {
		if _, ok := seen[id]; !ok {
			delete(m.notified, id)
		}
	}
	m.mu.Unlock()

	for _, p := range fresh {
		logger.Warn("Ticket overdue",
			logger.TicketID(p.ticket.TicketID),
			logger.Mixer(p.ticket.Mixer),
			zap.String("status", string(p.ticket.Status)),
			zap.String("side", string(p.result.Side)),
			zap.Int("elapsed_minutes", p.result.ElapsedMinutes),
		)
		if m.alert != nil {
			m.alert(ctx, p.ticket, p.result)
		}
	}

	logger.Debug("Timeout scan finished",
		zap.Int("active", len(tickets)),
		zap.Int("overdue", len(overdue)),
		zap.Int("alerted", len(fresh)),
	)
	return overdue
}

type pending struct {
	ticket domain.Ticket
	result Result
}
