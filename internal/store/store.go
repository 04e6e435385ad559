// Package store owns the canonical ticket collections and enforces the
// ticket lifecycle.
//
// All mutations are serialized by one mutex: the store clones its state,
// applies the change, persists the whole snapshot through a Backend and only
// then publishes the new state. A failed write leaves memory untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/mixer"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/pkg/timeutil"
)

// IDPrefix precedes the sequence number in ticket ids.
const IDPrefix = "TK"

// Snapshot is the persisted state: both collections and the id sequence.
type Snapshot struct {
	Active   []domain.Ticket
	Archive  []domain.Ticket
	Sequence int
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Active:   cloneAll(s.Active),
		Archive:  cloneAll(s.Archive),
		Sequence: s.Sequence,
	}
}

// Backend persists whole snapshots.
type Backend interface {
	// Load returns the persisted snapshot. Unreadable collections load empty.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// MixerState is the derived occupancy of one mixer.
type MixerState struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Busy   bool   `json:"busy"`

	TicketID       string         `json:"ticket_id,omitempty"`
	Status         domain.Status  `json:"status,omitempty"`
	Product        domain.Product `json:"product,omitempty"`
	Brand          domain.Brand   `json:"brand,omitempty"`
	Step           domain.Step    `json:"current_step,omitempty"`
	Username       string         `json:"username,omitempty"`
	ElapsedMinutes int            `json:"elapsed_minutes,omitempty"`
}

// Store is the single serialization point for ticket state.
type Store struct {
	mu      sync.RWMutex
	state   Snapshot
	backend Backend
	policy  *mixer.Policy
	clock   clockwork.Clock
}

// Open loads the persisted snapshot from backend. A nil clock uses the real
// clock.
func Open(ctx context.Context, backend Backend, policy *mixer.Policy, clock clockwork.Clock) (*Store, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	snap = reconcile(snap)

	logger.Info("Ticket store loaded",
		zap.Int("active", len(snap.Active)),
		zap.Int("archive", len(snap.Archive)),
		zap.Int("sequence", snap.Sequence),
	)

	return &Store{
		state:   snap,
		backend: backend,
		policy:  policy,
		clock:   clock,
	}, nil
}

// reconcile repairs a loaded snapshot: absent collections become empty, a
// ticket present in both collections stays archived, and the sequence is
// raised past every id already issued.
func reconcile(snap Snapshot) Snapshot {
	archived := make(map[string]struct{}, len(snap.Archive))
	for i := range snap.Archive {
		snap.Archive[i].Normalize()
		archived[snap.Archive[i].TicketID] = struct{}{}
	}

	active := make([]domain.Ticket, 0, len(snap.Active))
	for _, t := range snap.Active {
		if _, dup := archived[t.TicketID]; dup {
			logger.Warn("Ticket found in both collections, keeping archived copy", logger.TicketID(t.TicketID))
			continue
		}
		t.Normalize()
		active = append(active, t)
	}
	snap.Active = active
	if snap.Archive == nil {
		snap.Archive = []domain.Ticket{}
	}

	if n := len(snap.Active) + len(snap.Archive); snap.Sequence < n {
		snap.Sequence = n
	}
	for _, list := range [][]domain.Ticket{snap.Active, snap.Archive} {
		for _, t := range list {
			if n, ok := parseSequence(t.TicketID); ok && n > snap.Sequence {
				snap.Sequence = n
			}
		}
	}
	return snap
}

func parseSequence(id string) (int, bool) {
	s, ok := strings.CutPrefix(id, IDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatID(seq int) string {
	return fmt.Sprintf("%s%04d", IDPrefix, seq)
}

// commit persists next and publishes it. Callers hold the write lock.
func (s *Store) commit(ctx context.Context, next Snapshot) error {
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("persist tickets: %w", err)
	}
	s.state = next
	return nil
}

// fork copies the collection slices. Tickets are values that are replaced,
// never mutated in place, so sharing them is safe.
func (s *Store) fork() Snapshot {
	return Snapshot{
		Active:   append([]domain.Ticket(nil), s.state.Active...),
		Archive:  append([]domain.Ticket(nil), s.state.Archive...),
		Sequence: s.state.Sequence,
	}
}

// Create opens a ticket on a free mixer. It fails with *domain.MixerBusyError
// when an active ticket holds the mixer.
func (s *Store) Create(ctx context.Context, nt domain.NewTicket) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if holder, ok := s.holder(nt.Mixer); ok {
		return domain.Ticket{}, &domain.MixerBusyError{Mixer: nt.Mixer, HolderID: holder.TicketID}
	}

	next := s.fork()
	next.Sequence++
	now := s.clock.Now().UTC()

	t := domain.Ticket{
		TicketID:    formatID(next.Sequence),
		Status:      domain.InitialStatus,
		CurrentStep: domain.InitialStep,
		Product:     nt.Product,
		Brand:       nt.Brand,
		Technology:  nt.Technology,
		Mixer:       nt.Mixer,
		Username:    nt.Username,
		CreatedAt:   now,
		History: []domain.HistoryEntry{{
			Action:    domain.ActionTicketCreated,
			Timestamp: now,
			User:      nt.Username,
			Details:   nt.Details,
		}},
		AnalysesHistory:    []domain.AnalysisRecord{},
		CorrectionsHistory: []domain.CorrectionRecord{},
	}
	next.Active = append(next.Active, t)

	if err := s.commit(ctx, next); err != nil {
		return domain.Ticket{}, err
	}

	logger.Info("Ticket created",
		logger.TicketID(t.TicketID),
		logger.Mixer(t.Mixer),
		logger.Actor(t.Username),
		zap.String("product", string(t.Product)),
	)
	return t.Clone(), nil
}

// Update applies p to an active ticket. It fails with domain.ErrTicketNotFound
// when id is not active and *domain.TransitionError when the lifecycle forbids
// the change. Reaching the terminal status archives the ticket.
func (s *Store) Update(ctx context.Context, id string, p domain.Patch) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.activeIndex(id)
	if idx < 0 {
		return domain.Ticket{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, id)
	}
	cur := s.state.Active[idx]

	action, to, step, err := domain.Apply(cur.Status, cur.CurrentStep, p)
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			te.TicketID = id
		}
		return domain.Ticket{}, err
	}

	now := s.clock.Now().UTC()
	t := cur.Clone()
	t.Status = to
	t.CurrentStep = step
	if p.Username != "" {
		t.Username = p.Username
	}
	t.History = append(t.History, domain.HistoryEntry{
		Action:    action,
		Timestamp: now,
		User:      p.Username,
		Details:   p.Details,
	})

	switch action {
	case domain.ActionAnalysisApproved:
		t.AnalysesHistory = append(t.AnalysesHistory, domain.AnalysisRecord{
			Timestamp:      now,
			User:           p.Username,
			Result:         domain.AnalysisResultApproved,
			Details:        p.Details,
			AnalysisNumber: len(t.AnalysesHistory) + 1,
		})
	case domain.ActionCorrectionRequired:
		// The note always belongs to the latest correction request.
		t.CorrectionNote = p.CorrectionNote
		if p.CorrectionNote != "" {
			t.CorrectionsHistory = append(t.CorrectionsHistory, domain.CorrectionRecord{
				Timestamp:      now,
				User:           p.Username,
				Note:           p.CorrectionNote,
				AnalysisNumber: len(t.AnalysesHistory) + 1,
			})
		}
	}

	next := s.fork()
	if to.Terminal() {
		t.CompletedAt = &now
		minutes := timeutil.ElapsedMinutes(t.CreatedAt, now)
		t.TotalProductionTimeMinutes = &minutes
		next.Active = append(next.Active[:idx:idx], next.Active[idx+1:]...)
		next.Archive = append(next.Archive, t)
	} else {
		next.Active[idx] = t
	}

	if err := s.commit(ctx, next); err != nil {
		return domain.Ticket{}, err
	}

	fields := []zap.Field{
		logger.TicketID(id),
		logger.Actor(p.Username),
		zap.String("action", string(action)),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(to)),
	}
	if to.Terminal() {
		logger.Info("Ticket archived", append(fields, zap.Intp("total_minutes", t.TotalProductionTimeMinutes))...)
	} else {
		logger.Info("Ticket updated", fields...)
	}
	return t.Clone(), nil
}

// Get looks up a ticket in the active collection, then in the archive.
func (s *Store) Get(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, list := range [][]domain.Ticket{s.state.Active, s.state.Archive} {
		for i := range list {
			if list[i].TicketID == id {
				return list[i].Clone(), true
			}
		}
	}
	return domain.Ticket{}, false
}

// IsMixerBusy reports whether an active ticket holds the named mixer.
func (s *Store) IsMixerBusy(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.holder(name)
	return ok
}

// holder returns the active ticket holding name. Callers hold the lock.
func (s *Store) holder(name string) (*domain.Ticket, bool) {
	name = mixer.Canonical(name)
	for i := range s.state.Active {
		t := &s.state.Active[i]
		if mixer.Canonical(t.Mixer) == name && t.IsActive() {
			return t, true
		}
	}
	return nil, false
}

func (s *Store) activeIndex(id string) int {
	for i := range s.state.Active {
		if s.state.Active[i].TicketID == id {
			return i
		}
	}
	return -1
}

// Active returns every active ticket in creation order.
func (s *Store) Active() []domain.Ticket {
	return s.filter(func(*domain.Ticket) bool { return true })
}

// ByStatus returns active tickets in status.
func (s *Store) ByStatus(status domain.Status) []domain.Ticket {
	return s.filter(func(t *domain.Ticket) bool { return t.Status == status })
}

// Production returns active tickets waiting on the production floor.
func (s *Store) Production() []domain.Ticket {
	return s.filter(func(t *domain.Ticket) bool { return t.Status.ProductionSide() })
}

// Lab returns active tickets waiting on the laboratory.
func (s *Store) Lab() []domain.Ticket {
	return s.filter(func(t *domain.Ticket) bool { return t.Status.LabSide() })
}

func (s *Store) filter(keep func(*domain.Ticket) bool) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Ticket{}
	for i := range s.state.Active {
		t := &s.state.Active[i]
		if t.IsActive() && keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Archive returns every archived ticket in archival order.
func (s *Store) Archive() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.state.Archive)
}

// MixerStatus reports every configured mixer as free or busy, ascending by
// number.
func (s *Store) MixerStatus() []MixerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	universe := s.policy.Universe()
	out := make([]MixerState, 0, len(universe))
	for _, n := range universe {
		st := MixerState{Number: n, Name: mixer.Name(n)}
		if t, ok := s.holder(st.Name); ok {
			st.Busy = true
			st.TicketID = t.TicketID
			st.Status = t.Status
			st.Product = t.Product
			st.Brand = t.Brand
			st.Step = t.CurrentStep
			st.Username = t.Username
			st.ElapsedMinutes = timeutil.ElapsedMinutes(t.CreatedAt, now)
		}
		out = append(out, st)
	}
	return out
}

// ClearActive drops every active ticket and returns how many were removed.
// The archive and the id sequence are kept.
func (s *Store) ClearActive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.fork()
	n := len(next.Active)
	next.Active = []domain.Ticket{}
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}

	logger.Warn("Active tickets cleared", zap.Int("count", n))
	return n, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Now returns the store clock's current time in UTC.
func (s *Store) Now() time.Time {
	return s.clock.Now().UTC()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func cloneAll(in []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
