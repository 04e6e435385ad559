package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchtrack.io/tracker/internal/api/middleware"
	"batchtrack.io/tracker/internal/config"
)

func TestBuildCORSConfig(t *testing.T) {
	tests := []struct {
		name        string
		server      config.ServerConfig
		wantAll     bool
		wantCreds   bool
		wantOrigins []string
	}{
		{
			name:        "empty origins fall back to dashboard dev servers",
			server:      config.ServerConfig{AllowCredentials: true},
			wantCreds:   true,
			wantOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		{
			name:        "wildcard and blanks are dropped",
			server:      config.ServerConfig{AllowedOrigins: []string{"*", " ", " https://plant.example "}},
			wantOrigins: []string{"https://plant.example"},
		},
		{
			name:    "unsafe mode allows all and drops credentials",
			server:  config.ServerConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true, UnsafeAllowAllOrigins: true},
			wantAll: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildCORSConfig(&config.Config{Server: tt.server})
			assert.Equal(t, tt.wantAll, got.AllowAllOrigins)
			assert.Equal(t, tt.wantCreds, got.AllowCredentials)
			assert.Equal(t, tt.wantOrigins, got.AllowOrigins)

			assert.Contains(t, got.AllowHeaders, middleware.RequestIDHeader)
			assert.Contains(t, got.ExposeHeaders, middleware.RequestIDHeader)
			assert.Contains(t, got.ExposeHeaders, "Content-Disposition", "export download needs the filename")
			assert.Contains(t, got.AllowMethods, http.MethodPut, "log level is changed with PUT")
		})
	}
}

func serve(app *Application, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func TestRouter_CORS(t *testing.T) {
	app := newTestApp(t, config.BackendFile)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tickets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Request-ID")
	w := serve(app, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "x-request-id")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = serve(app, req)
	assert.Equal(t, http.StatusOK, w.Code)
	exposed := strings.ToLower(w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, exposed, "content-disposition")
	assert.Contains(t, exposed, "x-request-id")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w = serve(app, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_TicketRoutes(t *testing.T) {
	app := newTestApp(t, config.BackendFile)

	w := do(t, app, http.MethodPost, "/api/v1/tickets", map[string]string{
		"product": "AS", "brand": "Biolan", "technology": "new", "mixer": "Mixer_11", "username": "ivanov",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Named listings resolve before the :id parameter.
	for path, want := range map[string]int{
		"/api/v1/tickets/production": 1,
		"/api/v1/tickets/lab":        0,
		"/api/v1/tickets":            1,
	} {
		w = do(t, app, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		var list struct {
			Items []json.RawMessage `json:"items"`
			Total int               `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list), path)
		assert.Equal(t, want, list.Total, path)
		assert.NotNil(t, list.Items, path)
	}

	w = do(t, app, http.MethodGet, "/api/v1/tickets/TK0001", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, app, http.MethodGet, "/api/v1/tickets/TK9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TICKET_NOT_FOUND")
}

func TestRouter_NoRoute(t *testing.T) {
	app := newTestApp(t, config.BackendFile)

	w := do(t, app, http.MethodGet, "/api/v1/batches", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":"NOT_FOUND","message":"route not found"}`, w.Body.String())
}
