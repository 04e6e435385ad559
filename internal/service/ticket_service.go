// Package service orchestrates ticket operations for the presentation
// adapters: it validates input, calls the store, maps domain failures to
// application errors and publishes ticket events.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/mixer"
	"batchtrack.io/tracker/internal/monitor"
	apperrors "batchtrack.io/tracker/internal/pkg/errors"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/pkg/worker"
	"batchtrack.io/tracker/internal/store"
)

// TicketService is the entry point for ticket lifecycle operations.
type TicketService struct {
	store      *store.Store
	policy     *mixer.Policy
	events     *domain.EventDispatcher
	pools      *worker.Pools
	thresholds monitor.Thresholds
}

// NewTicketService creates a TicketService. With nil pools events are
// dispatched synchronously.
func NewTicketService(st *store.Store, policy *mixer.Policy, events *domain.EventDispatcher, pools *worker.Pools, th monitor.Thresholds) *TicketService {
	return &TicketService{
		store:      st,
		policy:     policy,
		events:     events,
		pools:      pools,
		thresholds: th,
	}
}

// CreateInput is a raw create request.
type CreateInput struct {
	Product    string `json:"product"`
	Brand      string `json:"brand"`
	Technology string `json:"technology"`
	Mixer      string `json:"mixer"`
	Username   string `json:"username"`
	Details    string `json:"details"`
}

// Create validates in and opens a ticket.
func (s *TicketService) Create(ctx context.Context, in CreateInput) (domain.Ticket, error) {
	nt, err := s.validateCreate(in)
	if err != nil {
		return domain.Ticket{}, err
	}

	t, err := s.store.Create(ctx, nt)
	if err != nil {
		var busy *domain.MixerBusyError
		if errors.As(err, &busy) {
			return domain.Ticket{}, apperrors.ErrMixerBusyf(busy.Mixer, busy.HolderID)
		}
		return domain.Ticket{}, apperrors.Wrap(err, apperrors.CodeTicketCreateFail, "ticket creation failed", 500)
	}

	s.publish(domain.EventTicketCreated, &t, domain.ActionTicketCreated, t.Username)
	return t, nil
}

func (s *TicketService) validateCreate(in CreateInput) (domain.NewTicket, error) {
	product, ok := domain.ParseProduct(strings.TrimSpace(in.Product))
	if !ok {
		return domain.NewTicket{}, apperrors.BadRequest(apperrors.CodeUnknownProduct, "unknown product").
			WithParams(map[string]interface{}{"product": in.Product})
	}
	brand, ok := domain.ParseBrand(strings.TrimSpace(in.Brand))
	if !ok {
		return domain.NewTicket{}, apperrors.BadRequest(apperrors.CodeUnknownBrand, "unknown brand").
			WithParams(map[string]interface{}{"brand": in.Brand})
	}
	tech, ok := domain.ParseTechnology(strings.TrimSpace(in.Technology))
	if !ok {
		return domain.NewTicket{}, apperrors.BadRequest(apperrors.CodeUnknownTechnology, "unknown technology").
			WithParams(map[string]interface{}{"technology": in.Technology})
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.NewTicket{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "username is required")
	}
	name := mixer.Canonical(strings.TrimSpace(in.Mixer))
	if !s.policy.IsEligible(product, tech, name) {
		return domain.NewTicket{}, apperrors.ErrMixerNotEligiblef(name, string(product), string(tech))
	}

	return domain.NewTicket{
		Product:    product,
		Brand:      brand,
		Technology: tech,
		Mixer:      name,
		Username:   username,
		Details:    in.Details,
	}, nil
}

// Update applies a patch to an active ticket. Every history record names its
// author, so a username is required.
func (s *TicketService) Update(ctx context.Context, id string, p domain.Patch) (domain.Ticket, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return domain.Ticket{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "username is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return domain.Ticket{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown status").
			WithParams(map[string]interface{}{"status": p.Status})
	}

	t, err := s.store.Update(ctx, id, p)
	if err != nil {
		return domain.Ticket{}, mapStoreError(id, err)
	}

	action := p.Action
	if action == "" {
		action = domain.ActionStatusChanged
	}
	eventType := domain.EventTicketUpdated
	if !t.IsActive() {
		eventType = domain.EventTicketArchived
	}
	s.publish(eventType, &t, action, p.Username)
	return t, nil
}

func mapStoreError(id string, err error) error {
	var te *domain.TransitionError
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		return apperrors.ErrTicketNotFoundf(id)
	case errors.As(err, &te):
		action := string(te.Action)
		if te.To != "" {
			action = fmt.Sprintf("%s->%s", te.Action, te.To)
		}
		return apperrors.ErrIllegalTransitionf(id, string(te.From), action)
	default:
		return apperrors.Wrap(err, apperrors.CodeTicketUpdateFail, "ticket update failed", 500)
	}
}

// Get returns a ticket from either collection.
func (s *TicketService) Get(id string) (domain.Ticket, error) {
	t, ok := s.store.Get(id)
	if !ok {
		return domain.Ticket{}, apperrors.ErrTicketNotFoundf(id)
	}
	return t, nil
}

// Active returns every active ticket.
func (s *TicketService) Active() []domain.Ticket { return s.store.Active() }

// ByStatus returns active tickets in status.
func (s *TicketService) ByStatus(status string) ([]domain.Ticket, error) {
	st := domain.Status(status)
	if !st.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown status").
			WithParams(map[string]interface{}{"status": status})
	}
	return s.store.ByStatus(st), nil
}

// Production returns tickets waiting on the production floor.
func (s *TicketService) Production() []domain.Ticket { return s.store.Production() }

// Lab returns tickets waiting on the laboratory.
func (s *TicketService) Lab() []domain.Ticket { return s.store.Lab() }

// Archive returns archived tickets.
func (s *TicketService) Archive() []domain.Ticket { return s.store.Archive() }

// IsMixerBusy reports whether the named mixer is held by an active ticket.
func (s *TicketService) IsMixerBusy(name string) bool { return s.store.IsMixerBusy(name) }

// MixerStatus reports every configured mixer.
func (s *TicketService) MixerStatus() []store.MixerState { return s.store.MixerStatus() }

// AvailableMixers lists the eligible mixers for raw product and technology
// names. Unknown names yield an empty list.
func (s *TicketService) AvailableMixers(product, technology string) []string {
	p, ok := domain.ParseProduct(product)
	if !ok {
		return []string{}
	}
	t, ok := domain.ParseTechnology(technology)
	if !ok {
		return []string{}
	}
	return s.policy.AvailableMixers(p, t)
}

// Snapshot returns a deep copy of both collections for reporting.
func (s *TicketService) Snapshot() store.Snapshot { return s.store.Snapshot() }

// Now returns the store clock in UTC.
func (s *TicketService) Now() time.Time { return s.store.Now() }

// CheckTimeout evaluates the overdue state of an active ticket.
func (s *TicketService) CheckTimeout(id string) (monitor.Result, error) {
	t, err := s.Get(id)
	if err != nil {
		return monitor.Result{}, err
	}
	return monitor.CheckTimeout(t, s.store.Now(), s.thresholds), nil
}

// NotifyOverdue publishes an overdue event. It is the monitor's alert hook.
func (s *TicketService) NotifyOverdue(ctx context.Context, t domain.Ticket, res monitor.Result) {
	ev := s.newEvent(domain.EventTicketOverdue, &t, "", "")
	ev.Side = string(res.Side)
	ev.Message = res.Message
	s.dispatch(ev)
}

func (s *TicketService) newEvent(typ domain.EventType, t *domain.Ticket, action domain.Action, actor string) *domain.TicketEvent {
	ev := &domain.TicketEvent{
		EventID:    uuid.NewString(),
		EventType:  typ,
		Action:     action,
		Actor:      actor,
		Ticket:     t,
		OccurredAt: time.Now().UTC(),
	}
	if t != nil {
		ev.TicketID = t.TicketID
	}
	return ev
}

func (s *TicketService) publish(typ domain.EventType, t *domain.Ticket, action domain.Action, actor string) {
	s.dispatch(s.newEvent(typ, t, action, actor))
}

// dispatch delivers ev off the request path. Notification failures never
// fail the ticket operation.
func (s *TicketService) dispatch(ev *domain.TicketEvent) {
	if s.events == nil {
		return
	}
	if s.pools == nil {
		_ = s.events.Dispatch(context.Background(), ev)
		return
	}
	err := s.pools.SubmitDetached(worker.PoolNotify, func(ctx context.Context) {
		_ = s.events.Dispatch(ctx, ev)
	})
	if err != nil {
		logger.Warn("Ticket event dropped",
			zap.String("event_type", string(ev.EventType)),
			logger.TicketID(ev.TicketID),
			zap.Error(err),
		)
	}
}
