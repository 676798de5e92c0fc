package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/couchcryptid/meteorite-playback/internal/adapter/excel"
	httpadapter "github.com/couchcryptid/meteorite-playback/internal/adapter/http"
	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- mocks ---

type mockPlayback struct {
	readyErr error
	intents  []playback.Intent
	err      error
	records  []domain.LandingRecord
}

func (m *mockPlayback) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockPlayback) Dispatch(in playback.Intent) error {
	m.intents = append(m.intents, in)
	return m.err
}

func (m *mockPlayback) Status() playback.Status {
	return playback.Status{State: playback.Paused, Year: 1950, Span: domain.Span{Min: 1900, Max: 2013}}
}

func (m *mockPlayback) Records() []domain.LandingRecord { return m.records }

// --- helpers ---

func newTestServer(pb httpadapter.Playback) *httpadapter.Server {
	stream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return httpadapter.NewServer(":0", pb, stream, slog.Default())
}

func do(t *testing.T, srv *httpadapter.Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// --- tests ---

func TestHealthzReturns200(t *testing.T) {
	rec, body := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec, body := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	pb := &mockPlayback{readyErr: errors.New("playback has not rendered a frame yet")}
	rec, body := do(t, newTestServer(pb), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "playback has not rendered a frame yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWebSocketRouteDelegatesToStream(t *testing.T) {
	rec, _ := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/ws")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStatus(t *testing.T) {
	rec, body := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/api/playback")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", body["state"])
	assert.InDelta(t, 1950, body["year"], 0)
}

func TestIntentRouting(t *testing.T) {
	year := func(y int) *int { return &y }
	tests := []struct {
		name   string
		method string
		target string
		want   playback.Intent
	}{
		{"start default", http.MethodPost, "/api/playback/start", playback.Intent{Type: playback.IntentStart}},
		{"start at year", http.MethodPost, "/api/playback/start?year=1950", playback.Intent{Type: playback.IntentStart, Year: year(1950)}},
		{"pause", http.MethodPost, "/api/playback/pause", playback.Intent{Type: playback.IntentPause}},
		{"resume", http.MethodPost, "/api/playback/resume", playback.Intent{Type: playback.IntentResume}},
		{"toggle", http.MethodPost, "/api/playback/toggle", playback.Intent{Type: playback.IntentToggle}},
		{"seek", http.MethodPost, "/api/playback/seek?year=1800", playback.Intent{Type: playback.IntentSeek, Year: year(1800)}},
		{"release", http.MethodPost, "/api/playback/release", playback.Intent{Type: playback.IntentRelease}},
		{"focus normalizes", http.MethodPost, "/api/playback/focus?region=New%20Mexico", playback.Intent{Type: playback.IntentFocus, Region: "new-mexico"}},
		{"focus non-us", http.MethodPost, "/api/playback/focus?region=non-us", playback.Intent{Type: playback.IntentFocus, Region: domain.NonUSRegion}},
		{"clear focus", http.MethodDelete, "/api/playback/focus", playback.Intent{Type: playback.IntentClearFocus}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := &mockPlayback{}
			rec, body := do(t, newTestServer(pb), tt.method, tt.target)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "paused", body["state"])
			require.Len(t, pb.intents, 1)
			assert.Equal(t, tt.want, pb.intents[0])
		})
	}
}

func TestIntentErrors(t *testing.T) {
	t.Run("unknown intent", func(t *testing.T) {
		pb := &mockPlayback{}
		rec, body := do(t, newTestServer(pb), http.MethodPost, "/api/playback/rewind")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "unknown playback intent", body["error"])
		assert.Empty(t, pb.intents)
	})

	t.Run("bad year", func(t *testing.T) {
		pb := &mockPlayback{}
		rec, body := do(t, newTestServer(pb), http.MethodPost, "/api/playback/seek?year=soon")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "year must be an integer", body["error"])
		assert.Empty(t, pb.intents)
	})

	t.Run("rejected by controller", func(t *testing.T) {
		pb := &mockPlayback{err: errors.New("focus intent: region is required")}
		rec, body := do(t, newTestServer(pb), http.MethodPost, "/api/playback/focus")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "focus intent: region is required", body["error"])
	})

	t.Run("wrong method", func(t *testing.T) {
		rec, _ := do(t, newTestServer(&mockPlayback{}), http.MethodGet, "/api/playback/start")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestBreakdown(t *testing.T) {
	pb := &mockPlayback{records: []domain.LandingRecord{
		{ID: "1", Region: "texas", Superclass: "Stony"},
		{ID: "2", Region: "texas", Superclass: "Iron"},
		{ID: "3", Region: "texas", Superclass: "Stony"},
		{ID: "4", Region: domain.NonUSRegion, Superclass: "Stony"},
	}}
	srv := newTestServer(pb)

	rec, body := do(t, srv, http.MethodGet, "/api/breakdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 4, body["total"], 0)
	assert.NotContains(t, body, "region")

	rec, body = do(t, srv, http.MethodGet, "/api/breakdown?region=Texas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "texas", body["region"])
	assert.InDelta(t, 3, body["total"], 0)
	shares, ok := body["shares"].([]any)
	require.True(t, ok)
	require.Len(t, shares, 2)
	first := shares[0].(map[string]any)
	assert.Equal(t, "Stony", first["superclass"])
	assert.InDelta(t, 66.67, first["percent"], 0.001)

	rec, body = do(t, srv, http.MethodGet, "/api/breakdown?region=wyoming")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0, body["total"], 0)
	assert.Empty(t, body["shares"])
}

func TestBreakdownWorkbook(t *testing.T) {
	pb := &mockPlayback{records: []domain.LandingRecord{
		{ID: "1", Year: 1950, Region: "texas", Superclass: "Stony"},
	}}
	rec, _ := do(t, newTestServer(pb), http.MethodGet, "/api/breakdown?format=xlsx&region=texas")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "breakdown.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(excel.SheetBreakdown)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stony", "1", "100"}, rows[1])
}

func TestControllerEndToEnd(t *testing.T) {
	records := domain.BuildIndex([]domain.LandingRecord{
		{ID: "a", Year: 1900, Mass: 10, Region: "texas"},
		{ID: "b", Year: 1905, Mass: 50, Region: "kansas"},
	}).Records()
	c, err := playback.New(records, domain.Span{Min: 1900, Max: 1910},
		playback.RendererFunc(func(playback.Frame) error { return nil }),
		slog.Default(), observability.NewMetricsForTesting(),
		playback.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	srv := httpadapter.NewServer(":0", c, nil, slog.Default())

	rec, _ := do(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, body := do(t, srv, http.MethodPost, "/api/playback/seek?year=1905")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", body["state"])
	assert.InDelta(t, 1905, body["year"], 0)
	assert.InDelta(t, 2, body["visible"], 0)

	rec, body = do(t, srv, http.MethodPost, "/api/playback/focus?region=Kansas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kansas", body["focus"])

	rec, _ = do(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/ws")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
