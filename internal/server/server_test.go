package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/core"
	"github.com/deeptube/deeptube/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, withLedger bool) *Server {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	opts := []core.ServiceOption{
		core.WithClock(func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }),
	}
	if withLedger {
		l, err := core.OpenLedger(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), "pass", 1)
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })
		opts = append(opts, core.WithLedger(l))
	}

	return New(core.NewService(cat, opts...), zap.NewNop(), Options{})
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetCatalog(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CatalogResponse](t, rec)
	assert.Equal(t, "DEEPTUBE", resp.Title)
	assert.Equal(t, 17, resp.Countries)
	assert.Equal(t, model.FilterFor(model.ZoneOS), resp.Defaults.Zone)
	require.Len(t, resp.Filters, 4)
	assert.Equal(t, model.ZoneAll, resp.Filters[0].Filter)
	assert.Len(t, resp.Filters[0].Notes, 1)
	assert.Len(t, resp.Filters[1].Notes, 2)
	assert.False(t, resp.Filters[3].Listed)
}

func TestListCountries(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name   string
		target string
		code   int
		count  int
	}{
		{"all", "/api/v1/countries", http.StatusOK, 17},
		{"zone", "/api/v1/countries?zone=" + url.QueryEscape("НЗВ"), http.StatusOK, 2},
		{"status", "/api/v1/countries?status=active", http.StatusOK, 4},
		{"query", "/api/v1/countries?q=" + url.QueryEscape("империя"), http.StatusOK, 2},
		{"limit", "/api/v1/countries?limit=5", http.StatusOK, 5},
		{"bad zone", "/api/v1/countries?zone=EU", http.StatusBadRequest, 0},
		{"bad status", "/api/v1/countries?status=gone", http.StatusBadRequest, 0},
		{"bad limit", "/api/v1/countries?limit=many", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
				return
			}
			resp := decode[CountriesResponse](t, rec)
			assert.Equal(t, tt.count, resp.Count)
			assert.Len(t, resp.Data, tt.count)
		})
	}
}

func TestGetCountry(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/countries/5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CountryResponse](t, rec)
	assert.Equal(t, "Кхмерэн", resp.Country.Name)
	require.NotNil(t, resp.Label)
	assert.Equal(t, "С 1 января 2026", resp.Label.Text)
	assert.False(t, resp.Pickable)
	assert.True(t, resp.InFilter)
	assert.Equal(t, core.KindDeferred, resp.Outcome.Kind)

	rec = do(t, s, http.MethodGet, "/api/v1/countries/2?zone=" + url.QueryEscape("ОСЬ"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CountryResponse](t, rec).InFilter)

	rec = do(t, s, http.MethodGet, "/api/v1/countries/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirm(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name     string
		body     string
		code     int
		kind     core.OutcomeKind
		severity model.Severity
	}{
		{"accepted", `{"zone":"ОСЬ","country_id":"1"}`, http.StatusOK, core.KindAccepted, model.SeveritySuccess},
		{"rejected", `{"country_id":"6"}`, http.StatusOK, core.KindRejected, model.SeverityError},
		{"deferred", `{"country_id":"5"}`, http.StatusOK, core.KindDeferred, model.SeverityWarning},
		{"no selection", `{"country_id":"404"}`, http.StatusOK, core.KindNoSelection, model.SeverityInfo},
		{"defaults", `{}`, http.StatusOK, core.KindAccepted, model.SeveritySuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/confirm", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())

			resp := decode[ConfirmResponse](t, rec)
			assert.Equal(t, tt.kind, resp.Outcome.Kind)
			assert.Equal(t, tt.severity, resp.Notification.Severity)
			assert.Nil(t, resp.Record)
		})
	}
}

func TestConfirm_BadRequests(t *testing.T) {
	s := newTestServer(t, false)

	for name, body := range map[string]string{
		"malformed":     `{"country_id":`,
		"unknown field": `{"country":"1"}`,
		"bad zone":      `{"zone":"EU","country_id":"1"}`,
		"bad account":   `{"account":"a/b","country_id":"1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/confirm", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, s, http.MethodPost, "/api/v1/confirm", `{"account":"a/b"}`)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Contains(t, resp.Details, "fields")
}

func TestConfirm_WithLedger(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/api/v1/accounts/alice/selection", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/confirm", `{"account":"alice","country_id":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ConfirmResponse](t, rec)
	assert.True(t, resp.Recorded)
	require.NotNil(t, resp.Record)

	rec = do(t, s, http.MethodPost, "/api/v1/confirm", `{"account":"alice","zone":"НЗВ","country_id":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ConfirmResponse](t, rec)
	assert.Equal(t, core.KindAccepted, resp.Outcome.Kind)
	assert.Equal(t, model.SeverityWarning, resp.Notification.Severity)
	assert.False(t, resp.Recorded)

	rec = do(t, s, http.MethodGet, "/api/v1/accounts/alice/selection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[model.SelectionRecord](t, rec)
	assert.Equal(t, "1", current.CountryID)
	assert.Equal(t, model.RecordStateCurrent, current.State)

	rec = do(t, s, http.MethodGet, "/api/v1/accounts/alice/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(t, s, http.MethodGet, "/api/v1/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	o := decode[core.Overview](t, rec)
	assert.True(t, o.LedgerEnabled)
	require.NotNil(t, o.Ledger)
	assert.Equal(t, 1, o.Ledger.Current)
}

func TestSelection_LedgerDisabled(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/accounts/alice/selection", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRecovery(t *testing.T) {
	h := recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
