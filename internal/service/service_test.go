package service

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/monitor"
	apperrors "batchtrack.io/tracker/internal/pkg/errors"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/store"
	"batchtrack.io/tracker/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

var epoch = time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)

var thresholds = monitor.Thresholds{Production: 70 * time.Minute, Lab: 60 * time.Minute}

type eventLog struct {
	mu     sync.Mutex
	events []domain.TicketEvent
}

func (l *eventLog) handle(_ context.Context, ev *domain.TicketEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *ev)
	return nil
}

func (l *eventLog) types() []domain.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fixture struct {
	clock   *clockwork.FakeClock
	store   *store.Store
	tickets *TicketService
	admin   *AdminService
	events  *eventLog
	dir     string
}

func newFixture(t *testing.T, secret SecretChecker) *fixture {
	t.Helper()
	dir := t.TempDir()
	policy := testutil.MixerPolicy(t)

	clock := clockwork.NewFakeClockAt(epoch)
	backend := store.NewFileBackend(
		filepath.Join(dir, "tickets.json"),
		filepath.Join(dir, "archive_tickets.json"),
		filepath.Join(dir, "tickets_meta.json"),
	)
	st, err := store.Open(context.Background(), backend, policy, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	events := &eventLog{}
	d := domain.NewEventDispatcher()
	d.Register(events.handle)

	tickets := NewTicketService(st, policy, d, nil, thresholds)
	admin := NewAdminService(st, tickets, secret, filepath.Join(dir, "backups"), time.FixedZone("UTC+3", 3*3600))
	return &fixture{clock: clock, store: st, tickets: tickets, admin: admin, events: events, dir: dir}
}

func createInput(m string) CreateInput {
	return CreateInput{Product: "Gel", Brand: "AOS", Technology: "legacy", Mixer: m, Username: "ivanov"}
}

func requireAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func TestTicketService_Create(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_3"))
	require.NoError(t, err)
	assert.Equal(t, "TK0001", tk.TicketID)
	assert.Equal(t, domain.ProductGel, tk.Product)
	assert.Equal(t, []domain.EventType{domain.EventTicketCreated}, f.events.types())

	_, err = f.tickets.Create(ctx, createInput("Mixer_3"))
	appErr := requireAppError(t, err, apperrors.CodeMixerBusy, http.StatusConflict)
	assert.Equal(t, "TK0001", appErr.Params["ticket_id"])
}

func TestTicketService_CreateMixerSpelling(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_03"))
	require.NoError(t, err)
	assert.Equal(t, "Mixer_3", tk.Mixer)

	for _, alias := range []string{"Mixer_3", "Mixer_03", " Mixer_003 "} {
		_, err = f.tickets.Create(ctx, createInput(alias))
		appErr := requireAppError(t, err, apperrors.CodeMixerBusy, http.StatusConflict)
		assert.Equal(t, "TK0001", appErr.Params["ticket_id"], "mixer %q", alias)
	}

	_, err = f.tickets.Create(ctx, createInput("Mixer_+3"))
	requireAppError(t, err, apperrors.CodeMixerNotEligible, http.StatusBadRequest)

	assert.Len(t, f.store.Active(), 1)
	assert.True(t, f.tickets.IsMixerBusy("Mixer_03"))
	for _, st := range f.tickets.MixerStatus() {
		if st.Name == "Mixer_3" {
			assert.True(t, st.Busy)
			assert.Equal(t, "TK0001", st.TicketID)
		}
	}
}

func TestTicketService_CreateValidation(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
		code string
	}{
		{"unknown product", CreateInput{Product: "Soap", Brand: "AOS", Technology: "legacy", Mixer: "Mixer_1", Username: "u"}, apperrors.CodeUnknownProduct},
		{"unknown brand", CreateInput{Product: "Gel", Brand: "Acme", Technology: "legacy", Mixer: "Mixer_1", Username: "u"}, apperrors.CodeUnknownBrand},
		{"unknown technology", CreateInput{Product: "Gel", Brand: "AOS", Technology: "quantum", Mixer: "Mixer_1", Username: "u"}, apperrors.CodeUnknownTechnology},
		{"missing username", CreateInput{Product: "Gel", Brand: "AOS", Technology: "legacy", Mixer: "Mixer_1"}, apperrors.CodeValidationFailed},
		{"mixer of other product", CreateInput{Product: "Gel", Brand: "AOS", Technology: "legacy", Mixer: "Mixer_4", Username: "u"}, apperrors.CodeMixerNotEligible},
		{"wrong generation", CreateInput{Product: "Gel", Brand: "AOS", Technology: "new", Mixer: "Mixer_1", Username: "u"}, apperrors.CodeMixerNotEligible},
		{"excluded combination", CreateInput{Product: "Dishware", Brand: "AOS", Technology: "new", Mixer: "Mixer_4", Username: "u"}, apperrors.CodeMixerNotEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tickets.Create(ctx, tt.in)
			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
	assert.Empty(t, f.store.Active())
	assert.Empty(t, f.events.types())
}

func TestTicketService_Lifecycle(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)

	steps := []domain.Patch{
		{Action: domain.ActionSampleSentToLab, Username: "ivanov"},
		{Action: domain.ActionSampleReceivedByLab, Username: "petrova"},
		{Action: domain.ActionCorrectionRequired, Username: "petrova", CorrectionNote: "add 2kg thickener"},
		{Action: domain.ActionSampleSentToLab, Username: "ivanov"},
		{Action: domain.ActionSampleReceivedByLab, Username: "petrova"},
		{Action: domain.ActionAnalysisApproved, Username: "petrova"},
		{Action: domain.ActionMixerDischarged, Username: "ivanov"},
	}
	for _, p := range steps {
		f.clock.Advance(10 * time.Minute)
		tk, err = f.tickets.Update(ctx, tk.TicketID, p)
		require.NoError(t, err, "action %s", p.Action)
	}

	assert.Equal(t, domain.StatusCompleted, tk.Status)
	require.NotNil(t, tk.TotalProductionTimeMinutes)
	assert.Equal(t, 70, *tk.TotalProductionTimeMinutes)
	assert.Len(t, tk.CorrectionsHistory, 1)
	assert.Len(t, tk.AnalysesHistory, 1)
	assert.False(t, f.tickets.IsMixerBusy("Mixer_1"))

	types := f.events.types()
	require.Len(t, types, 8)
	assert.Equal(t, domain.EventTicketArchived, types[7])

	got, err := f.tickets.Get(tk.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Action: domain.ActionAdminForcedClose, Username: "admin"})
	requireAppError(t, err, apperrors.CodeTicketNotFound, http.StatusNotFound)
}

func TestTicketService_UpdateErrors(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_2"))
	require.NoError(t, err)

	_, err = f.tickets.Update(ctx, "TK9999", domain.Patch{Action: domain.ActionSampleSentToLab, Username: "ivanov"})
	requireAppError(t, err, apperrors.CodeTicketNotFound, http.StatusNotFound)

	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Action: domain.ActionMixerDischarged, Username: "ivanov"})
	appErr := requireAppError(t, err, apperrors.CodeIllegalTransition, http.StatusConflict)
	assert.Equal(t, string(domain.StatusProductionStarted), appErr.Params["status"])

	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Status: "melted", Username: "ivanov"})
	requireAppError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Status: domain.StatusCompleted, Username: "ivanov"})
	requireAppError(t, err, apperrors.CodeIllegalTransition, http.StatusConflict)

	for _, user := range []string{"", "   "} {
		_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Action: domain.ActionSampleSentToLab, Username: user})
		requireAppError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	}

	got, err := f.tickets.Get(tk.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProductionStarted, got.Status)
	assert.Len(t, got.History, 1)
}

func TestTicketService_Queries(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	a, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)
	_, err = f.tickets.Create(ctx, createInput("Mixer_2"))
	require.NoError(t, err)
	_, err = f.tickets.Update(ctx, a.TicketID, domain.Patch{Action: domain.ActionSampleSentToLab, Username: "ivanov"})
	require.NoError(t, err)

	assert.Len(t, f.tickets.Active(), 2)
	assert.Len(t, f.tickets.Production(), 1)
	assert.Len(t, f.tickets.Lab(), 1)
	assert.Empty(t, f.tickets.Archive())

	sent, err := f.tickets.ByStatus("sample_sent")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, a.TicketID, sent[0].TicketID)

	_, err = f.tickets.ByStatus("bogus")
	requireAppError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	assert.Equal(t, []string{"Mixer_9", "Mixer_10"}, f.tickets.AvailableMixers("gel", "new"))
	assert.Empty(t, f.tickets.AvailableMixers("Dishware", "new"))
	assert.Empty(t, f.tickets.AvailableMixers("Soap", "legacy"))
	assert.NotNil(t, f.tickets.AvailableMixers("Soap", "legacy"))

	busy := 0
	for _, m := range f.tickets.MixerStatus() {
		if m.Busy {
			busy++
		}
	}
	assert.Equal(t, 2, busy)
}

func TestTicketService_CheckTimeout(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)
	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Action: domain.ActionSampleSentToLab, Username: "ivanov"})
	require.NoError(t, err)
	_, err = f.tickets.Update(ctx, tk.TicketID, domain.Patch{Action: domain.ActionSampleReceivedByLab, Username: "petrova"})
	require.NoError(t, err)

	f.clock.Advance(60 * time.Minute)
	res, err := f.tickets.CheckTimeout(tk.TicketID)
	require.NoError(t, err)
	assert.False(t, res.TimedOut)

	f.clock.Advance(time.Minute)
	res, err = f.tickets.CheckTimeout(tk.TicketID)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, monitor.SideLab, res.Side)
	assert.Equal(t, 61, res.ElapsedMinutes)

	_, err = f.tickets.CheckTimeout("TK0404")
	requireAppError(t, err, apperrors.CodeTicketNotFound, http.StatusNotFound)
}

func TestTicketService_NotifyOverdue(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)

	f.tickets.NotifyOverdue(ctx, tk, monitor.Result{TimedOut: true, Side: monitor.SideProduction, Message: monitor.MessageProductionOverdue})

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 2)
	ev := f.events.events[1]
	assert.Equal(t, domain.EventTicketOverdue, ev.EventType)
	assert.Equal(t, "production", ev.Side)
	assert.Equal(t, tk.TicketID, ev.TicketID)
	assert.NotEmpty(t, ev.EventID)
}

func TestSecretChecker(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name      string
		checker   SecretChecker
		candidate string
		want      bool
	}{
		{"plain match", NewSecretChecker("s3cret", ""), "s3cret", true},
		{"plain mismatch", NewSecretChecker("s3cret", ""), "S3cret", false},
		{"plain prefix", NewSecretChecker("s3cret", ""), "s3cre", false},
		{"empty secret never matches", NewSecretChecker("", ""), "", false},
		{"hash match", NewSecretChecker("", string(hash)), "hashed", true},
		{"hash wins over plain", NewSecretChecker("s3cret", string(hash)), "s3cret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker.Match(tt.candidate))
		})
	}
}

func TestAdminService_ClearActive(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)
	_, err = f.tickets.Create(ctx, createInput("Mixer_2"))
	require.NoError(t, err)

	res, err := f.admin.ClearActive(ctx, "wrong", "admin")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Len(t, f.tickets.Active(), 2)

	res, err = f.admin.ClearActive(ctx, "s3cret", "admin")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Cleared)
	assert.Empty(t, f.tickets.Active())
	assert.Contains(t, f.events.types(), domain.EventActiveCleared)

	tk, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)
	assert.Equal(t, "TK0003", tk.TicketID)
}

func TestAdminService_ForceClose(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	tk, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)

	_, err = f.admin.ForceClose(ctx, tk.TicketID, "")
	requireAppError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	f.clock.Advance(15 * time.Minute)
	closed, err := f.admin.ForceClose(ctx, tk.TicketID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, closed.Status)
	assert.Equal(t, domain.StepManuallyClosed, closed.CurrentStep)
	require.NotNil(t, closed.TotalProductionTimeMinutes)
	assert.Equal(t, 15, *closed.TotalProductionTimeMinutes)
	last, ok := closed.LastAction()
	require.True(t, ok)
	assert.Equal(t, domain.ActionAdminForcedClose, last.Action)
	assert.False(t, f.tickets.IsMixerBusy("Mixer_1"))
}

func TestAdminService_Backup(t *testing.T) {
	f := newFixture(t, NewSecretChecker("s3cret", ""))
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, createInput("Mixer_1"))
	require.NoError(t, err)

	path, err := f.admin.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup_tickets_2024-03-10_08-00.json", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc store.Backup
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.ActiveRecords)
	assert.Equal(t, 0, doc.ArchiveRecords)
}
