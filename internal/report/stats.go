// Package report derives read-only views from ticket snapshots: aggregate
// statistics, shift statistics, the dashboard summary and spreadsheet export.
package report

import (
	"time"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/timeutil"
	"batchtrack.io/tracker/internal/store"
)

// Summary aggregates every known ticket.
type Summary struct {
	Total              int            `json:"total"`
	Active             int            `json:"active"`
	Completed          int            `json:"completed"`
	CorrectionRequired int            `json:"correction_required"`
	Products           map[string]int `json:"products"`
	Technologies       map[string]int `json:"technologies"`
	Brands             map[string]int `json:"brands"`
	Mixers             map[string]int `json:"mixers"`
	// AvgProductionMinutes averages archived tickets with a recorded duration;
	// zero when there are none.
	AvgProductionMinutes int    `json:"avg_production_minutes"`
	AvgProductionTime    string `json:"avg_production_time"`
}

// Summarize counts tickets across both collections.
func Summarize(snap store.Snapshot) Summary {
	s := Summary{
		Total:        len(snap.Active) + len(snap.Archive),
		Completed:    len(snap.Archive),
		Products:     map[string]int{},
		Technologies: map[string]int{},
		Brands:       map[string]int{},
		Mixers:       map[string]int{},
	}

	for _, t := range snap.Active {
		if t.IsActive() {
			s.Active++
		}
		if t.Status == domain.StatusCorrectionRequired {
			s.CorrectionRequired++
		}
	}

	for _, list := range [][]domain.Ticket{snap.Active, snap.Archive} {
		for _, t := range list {
			s.Products[string(t.Product)]++
			s.Technologies[string(t.Technology)]++
			s.Brands[string(t.Brand)]++
			s.Mixers[t.Mixer]++
		}
	}

	var sum, n int
	for _, t := range snap.Archive {
		if t.TotalProductionTimeMinutes != nil && *t.TotalProductionTimeMinutes > 0 {
			sum += *t.TotalProductionTimeMinutes
			n++
		}
	}
	if n > 0 {
		s.AvgProductionMinutes = sum / n
		s.AvgProductionTime = timeutil.FormatMinutes(s.AvgProductionMinutes)
	}
	return s
}

// ShiftStats counts tickets created during the current shift.
type ShiftStats struct {
	Shift      timeutil.Shift `json:"shift"`
	Start      time.Time      `json:"start"`
	Total      int            `json:"total"`
	Production int            `json:"production"`
	Lab        int            `json:"lab"`
	Completed  int            `json:"completed"`
}

// CurrentShiftStats buckets tickets whose creation is at or after the start
// of the shift containing now.
func CurrentShiftStats(tickets []domain.Ticket, now time.Time, sched timeutil.Schedule) ShiftStats {
	start := sched.Start(now)
	st := ShiftStats{Shift: sched.Current(now), Start: start.UTC()}
	for _, t := range tickets {
		if t.CreatedAt.Before(start) {
			continue
		}
		st.Total++
		switch {
		case t.Status.ProductionSide():
			st.Production++
		case t.Status.LabSide():
			st.Lab++
		case t.Status == domain.StatusCompleted:
			st.Completed++
		}
	}
	return st
}

// TicketView is an active ticket decorated for display.
type TicketView struct {
	domain.Ticket
	StatusLabel string `json:"status_label"`
	StepLabel   string `json:"step_label"`
	// LastUpdate is the time since the latest history entry, or "N/A".
	LastUpdate string `json:"last_update"`
}

// MixerView is a mixer state decorated for display.
type MixerView struct {
	store.MixerState
	StatusLabel string `json:"status_label"`
	StepLabel   string `json:"step_label,omitempty"`
	TimeElapsed string `json:"time_elapsed,omitempty"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	TotalTickets       int            `json:"total_tickets"`
	ProductionTickets  int            `json:"production_tickets"`
	LabTickets         int            `json:"lab_tickets"`
	CompletedTickets   int            `json:"completed_tickets"`
	ActiveTicketsCount int            `json:"active_tickets_count"`
	ShiftStats         ShiftStats     `json:"shift_stats"`
	CurrentShift       timeutil.Shift `json:"current_shift"`
	CurrentShiftLabel  string         `json:"current_shift_label"`
	Tickets            []TicketView   `json:"active_tickets"`
	Mixers             []MixerView    `json:"mixers"`
}

// DashboardStats builds the dashboard from a snapshot and the mixer states.
// Shift statistics cover both collections.
func DashboardStats(snap store.Snapshot, mixers []store.MixerState, now time.Time, sched timeutil.Schedule, labels Labels) Dashboard {
	d := Dashboard{
		TotalTickets: len(snap.Active),
		CurrentShift: sched.Current(now),
		Tickets:      []TicketView{},
		Mixers:       make([]MixerView, 0, len(mixers)),
	}
	d.CurrentShiftLabel = labels.Shift(d.CurrentShift == timeutil.ShiftDay)

	lastUpdate := make(map[string]string, len(snap.Active))
	for _, t := range snap.Active {
		switch {
		case t.Status == domain.StatusCompleted:
			d.CompletedTickets++
		case t.Status.ProductionSide():
			d.ProductionTickets++
		case t.Status.LabSide():
			d.LabTickets++
		}
		if !t.IsActive() {
			continue
		}
		d.ActiveTicketsCount++

		view := TicketView{
			Ticket:      t,
			StatusLabel: labels.Status(string(t.Status)),
			StepLabel:   labels.Step(t.CurrentStep),
			LastUpdate:  "N/A",
		}
		if last, ok := t.LastAction(); ok {
			view.LastUpdate = timeutil.FormatMinutes(timeutil.ElapsedMinutes(last.Timestamp, now))
		}
		lastUpdate[t.TicketID] = view.LastUpdate
		d.Tickets = append(d.Tickets, view)
	}

	for _, m := range mixers {
		v := MixerView{MixerState: m, StatusLabel: labels.Status(StatusFree)}
		if m.Busy {
			v.StatusLabel = labels.Status(string(m.Status))
			v.StepLabel = labels.Step(m.Step)
			v.TimeElapsed = lastUpdate[m.TicketID]
		}
		d.Mixers = append(d.Mixers, v)
	}

	all := make([]domain.Ticket, 0, len(snap.Active)+len(snap.Archive))
	all = append(all, snap.Active...)
	all = append(all, snap.Archive...)
	d.ShiftStats = CurrentShiftStats(all, now, sched)
	return d
}
