package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func testConfig(dir, backend string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Store: config.StoreConfig{
			Backend:     backend,
			ActivePath:  filepath.Join(dir, "tickets.json"),
			ArchivePath: filepath.Join(dir, "archive_tickets.json"),
			MetaPath:    filepath.Join(dir, "tickets_meta.json"),
			SQLitePath:  filepath.Join(dir, "tickets.db"),
			BackupDir:   filepath.Join(dir, "backups"),
		},
		Worker:   config.WorkerConfig{GeneralPoolSize: 4, NotifyPoolSize: 2},
		Timeouts: config.TimeoutConfig{Production: 70 * time.Minute, Lab: 60 * time.Minute},
		Shift:    config.ShiftConfig{DayStartHour: 7, NightStartHour: 19, UTCOffsetHours: 3},
		Monitor:  config.MonitorConfig{Enabled: true, Interval: 5 * time.Minute},
		Backup:   config.BackupConfig{Enabled: true, At: "06:55"},
		Admin:    config.AdminConfig{Secret: "s3cret"},
		Display:  config.DisplayConfig{Locale: "en"},
		Mixers:   config.MixersConfig{Products: config.DefaultMixerTable()},
		Notify:   config.NotifyConfig{Enabled: true},
	}
}

func newTestApp(t *testing.T, backend string) *Application {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC))
	app, err := bootstrap(context.Background(), testConfig(t.TempDir(), backend), clock)
	require.NoError(t, err)
	t.Cleanup(app.Shutdown)
	return app
}

func do(t *testing.T, app *Application, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func TestBootstrap_UnknownMixerProduct(t *testing.T) {
	cfg := testConfig(t.TempDir(), config.BackendFile)
	cfg.Mixers.Products = map[string][]int{"Soap": {1}}

	app, err := Bootstrap(context.Background(), cfg)
	require.Error(t, err, "Bootstrap should reject an unknown product")
	assert.Nil(t, app, "Application should be nil on bootstrap failure")
}

func TestBootstrap_RegistersJobs(t *testing.T) {
	app := newTestApp(t, config.BackendFile)

	names := map[string]bool{}
	for _, j := range app.Scheduler.Jobs() {
		names[j.Name] = true
	}
	assert.True(t, names["overdue_scan"])
	assert.True(t, names["daily_backup"])
	assert.Len(t, app.Modules, 3)
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	app := &Application{}

	assert.NotPanics(t, func() {
		app.Shutdown()
	}, "Shutdown on empty Application should not panic")
}

func TestApplication_TicketFlow(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			app := newTestApp(t, backend)
			require.NoError(t, app.Start(context.Background()))

			w := do(t, app, http.MethodPost, "/api/v1/tickets", map[string]string{
				"product": "Gel", "brand": "AOS", "technology": "legacy", "mixer": "Mixer_3", "username": "ivanov",
			})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			var tk domain.Ticket
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tk))
			assert.Equal(t, "TK0001", tk.TicketID)

			w = do(t, app, http.MethodPost, "/api/v1/tickets", map[string]string{
				"product": "Gel", "brand": "AOS", "technology": "legacy", "mixer": "Mixer_3", "username": "sidorov",
			})
			assert.Equal(t, http.StatusConflict, w.Code)

			w = do(t, app, http.MethodGet, "/api/v1/mixers/Mixer_3/busy", nil)
			assert.JSONEq(t, `{"mixer":"Mixer_3","busy":true}`, w.Body.String())

			for _, action := range []string{"sample_sent_to_lab", "sample_received_by_lab", "analysis_approved", "mixer_discharged"} {
				w = do(t, app, http.MethodPost, "/api/v1/tickets/TK0001/actions", map[string]string{
					"action": action, "username": "ivanov",
				})
				require.Equal(t, http.StatusOK, w.Code, "%s: %s", action, w.Body.String())
			}

			w = do(t, app, http.MethodGet, "/api/v1/archive", nil)
			require.Equal(t, http.StatusOK, w.Code)
			var archive struct {
				Items []domain.Ticket `json:"items"`
				Total int             `json:"total"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archive))
			assert.Equal(t, 1, archive.Total)

			w = do(t, app, http.MethodGet, "/api/v1/export/xlsx", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Disposition"), "production_tickets_10-03-2024_08-00.xlsx")
		})
	}
}

func TestApplication_Health(t *testing.T) {
	app := newTestApp(t, config.BackendFile)

	w := do(t, app, http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, app, http.MethodGet, "/api/v1/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string                 `json:"status"`
		Pools  map[string]interface{} `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, body.Pools, "notify")

	w = do(t, app, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
