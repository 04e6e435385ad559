// Package domain provides the ticket model and lifecycle rules of the batch
// tracker.
//
// Import Path: batchtrack.io/tracker/internal/domain
package domain

import (
	"strings"
	"time"
)

// Product is a manufactured product line.
type Product string

const (
	ProductGel         Product = "Gel"
	ProductDishware    Product = "Dishware"
	ProductAS          Product = "AS"
	ProductConditioner Product = "Conditioner"
)

// Products lists every known product in display order.
var Products = []Product{ProductGel, ProductDishware, ProductAS, ProductConditioner}

// Technology is the mixer generation a batch is produced on.
type Technology string

const (
	TechnologyLegacy Technology = "legacy"
	TechnologyNew    Technology = "new"
)

// Technologies lists both technology variants.
var Technologies = []Technology{TechnologyLegacy, TechnologyNew}

// Brand is the label a batch is produced for.
type Brand string

const (
	BrandAOS       Brand = "AOS"
	BrandSorti     Brand = "Sorti"
	BrandBiolan    Brand = "Biolan"
	BrandFreetime  Brand = "Freetime"
	BrandUnbranded Brand = "Unbranded"
)

// Brands lists every known brand in display order.
var Brands = []Brand{BrandAOS, BrandSorti, BrandBiolan, BrandFreetime, BrandUnbranded}

// ParseProduct matches s against the known products, ignoring case.
func ParseProduct(s string) (Product, bool) {
	for _, p := range Products {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// ParseTechnology matches s against the technology variants, ignoring case.
func ParseTechnology(s string) (Technology, bool) {
	for _, t := range Technologies {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// ParseBrand matches s against the known brands, ignoring case.
func ParseBrand(s string) (Brand, bool) {
	for _, b := range Brands {
		if strings.EqualFold(string(b), s) {
			return b, true
		}
	}
	return "", false
}

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusProductionStarted  Status = "production_started"
	StatusAwaitingSample     Status = "awaiting_sample"
	StatusSampleSent         Status = "sample_sent"
	StatusSampleReceived     Status = "sample_received"
	StatusAnalysisInProgress Status = "analysis_in_progress"
	StatusCorrectionRequired Status = "correction_required"
	StatusAwaitingDischarge  Status = "awaiting_discharge"
	StatusCompleted          Status = "completed" // terminal
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusProductionStarted,
	StatusAwaitingSample,
	StatusSampleSent,
	StatusSampleReceived,
	StatusAnalysisInProgress,
	StatusCorrectionRequired,
	StatusAwaitingDischarge,
	StatusCompleted,
}

// Terminal reports whether s ends the lifecycle.
func (s Status) Terminal() bool { return s == StatusCompleted }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// ProductionSide reports whether the batch is waiting on the production floor.
func (s Status) ProductionSide() bool {
	switch s {
	case StatusProductionStarted, StatusAwaitingSample, StatusCorrectionRequired, StatusAwaitingDischarge:
		return true
	}
	return false
}

// LabSide reports whether the batch is waiting on the laboratory.
func (s Status) LabSide() bool {
	switch s {
	case StatusSampleSent, StatusSampleReceived, StatusAnalysisInProgress:
		return true
	}
	return false
}

// Step is the display substep paired with a status.
type Step string

const (
	StepAwaitingSample       Step = "awaiting_sample"
	StepAwaitingLabReception Step = "awaiting_lab_reception"
	StepAnalysisInProgress   Step = "analysis_in_progress"
	StepAwaitingDischarge    Step = "awaiting_discharge"
	StepAwaitingCorrection   Step = "awaiting_correction"
	StepCompleted            Step = "completed"
	StepManuallyClosed       Step = "manually_closed"
)

// Action names the event recorded in a ticket's history.
type Action string

const (
	ActionTicketCreated       Action = "ticket_created"
	ActionSampleSentToLab     Action = "sample_sent_to_lab"
	ActionSampleReceivedByLab Action = "sample_received_by_lab"
	ActionAnalysisApproved    Action = "analysis_approved"
	ActionCorrectionRequired  Action = "correction_required"
	ActionMixerDischarged     Action = "mixer_discharged"
	ActionAdminForcedClose    Action = "admin_forced_close"
	// ActionStatusChanged is recorded when the caller supplies no action.
	ActionStatusChanged Action = "status_changed"
)

// AnalysisResultApproved is the only analysis outcome that is recorded.
const AnalysisResultApproved = "approved"

// HistoryEntry is one append-only lifecycle record.
type HistoryEntry struct {
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Details   string    `json:"details,omitempty"`
}

// AnalysisRecord is an approved lab analysis.
type AnalysisRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	User           string    `json:"user"`
	Result         string    `json:"result"`
	Details        string    `json:"details,omitempty"`
	AnalysisNumber int       `json:"analysis_number"`
}

// CorrectionRecord is a lab-initiated rework request.
type CorrectionRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	User           string    `json:"user"`
	Note           string    `json:"note"`
	AnalysisNumber int       `json:"analysis_number"`
}

// Ticket is one manufacturing batch.
type Ticket struct {
	TicketID    string     `json:"ticket_id"`
	Status      Status     `json:"status"`
	CurrentStep Step       `json:"current_step"`
	Product     Product    `json:"product"`
	Brand       Brand      `json:"brand"`
	Technology  Technology `json:"technology"`
	Mixer       string     `json:"mixer"`
	// Username is the actor of the most recent transition.
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// TotalProductionTimeMinutes is set once at archival.
	TotalProductionTimeMinutes *int `json:"total_production_time_minutes,omitempty"`

	History            []HistoryEntry     `json:"history"`
	AnalysesHistory    []AnalysisRecord   `json:"analyses_history"`
	CorrectionsHistory []CorrectionRecord `json:"corrections_history"`
	CorrectionNote     string             `json:"correction_note,omitempty"`
}

// IsActive reports whether the ticket still holds its mixer.
func (t *Ticket) IsActive() bool { return !t.Status.Terminal() }

// LastAction returns the history entry with the greatest timestamp. Entries
// with equal timestamps resolve to the one appended later.
func (t *Ticket) LastAction() (HistoryEntry, bool) {
	if len(t.History) == 0 {
		return HistoryEntry{}, false
	}
	last := t.History[0]
	for _, h := range t.History[1:] {
		if !h.Timestamp.Before(last.Timestamp) {
			last = h
		}
	}
	return last, true
}

// Clone returns a deep copy.
func (t *Ticket) Clone() Ticket {
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.TotalProductionTimeMinutes != nil {
		v := *t.TotalProductionTimeMinutes
		c.TotalProductionTimeMinutes = &v
	}
	c.History = append([]HistoryEntry(nil), t.History...)
	c.AnalysesHistory = append([]AnalysisRecord(nil), t.AnalysesHistory...)
	c.CorrectionsHistory = append([]CorrectionRecord(nil), t.CorrectionsHistory...)
	return c
}

// Normalize fills absent collections with empty ones. Records written by
// older releases may omit them.
func (t *Ticket) Normalize() {
	if t.History == nil {
		t.History = []HistoryEntry{}
	}
	if t.AnalysesHistory == nil {
		t.AnalysesHistory = []AnalysisRecord{}
	}
	if t.CorrectionsHistory == nil {
		t.CorrectionsHistory = []CorrectionRecord{}
	}
}

// NewTicket is the input for creating a ticket.
type NewTicket struct {
	Product    Product    `json:"product"`
	Brand      Brand      `json:"brand"`
	Technology Technology `json:"technology"`
	Mixer      string     `json:"mixer"`
	Username   string     `json:"username"`
	Details    string     `json:"details,omitempty"`
}

// Patch describes one update to an active ticket.
//
// Action drives the transition. When Action is empty and Status is set, the
// transition is resolved from the current status and Status, and history
// records ActionStatusChanged. When both are empty the update only annotates.
// When both are set, Status must agree with the transition table.
type Patch struct {
	Action         Action `json:"action,omitempty"`
	Status         Status `json:"status,omitempty"`
	Username       string `json:"username"`
	Details        string `json:"details,omitempty"`
	CorrectionNote string `json:"correction_note,omitempty"`
}
