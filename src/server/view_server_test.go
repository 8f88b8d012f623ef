package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-sync/src/config"
	"market-sync/src/logger"
	"market-sync/src/models"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fake session
// -----------------------------------------------------------------------------

type fakeSession struct {
	mu     sync.Mutex
	view   models.MViewState
	prices []models.PriceEntry
	series map[string][]models.Candle
	navs   []models.MViewState
}

func (f *fakeSession) Navigate(_ context.Context, view models.MViewState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = view
	f.navs = append(f.navs, view)
	return nil
}

func (f *fakeSession) Update(_ context.Context, change models.ViewChange) (models.MViewState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = change(f.view)
	f.navs = append(f.navs, f.view)
	return f.view, nil
}

func (f *fakeSession) CurrentView() models.MViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSession) Prices() []models.PriceEntry {
	return append([]models.PriceEntry(nil), f.prices...)
}

func (f *fakeSession) Series(symbol, interval string) ([]models.Candle, bool) {
	points, ok := f.series[symbol+"/"+interval]
	return points, ok
}

func (f *fakeSession) Metrics() models.MSyncMetrics {
	return models.MSyncMetrics{TicksApplied: 7, ActiveSubscriptions: 3}
}

func (f *fakeSession) navigations() []models.MViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MViewState(nil), f.navs...)
}

// -----------------------------------------------------------------------------

func testConfig() *config.Config {
	return &config.Config{MConfig: &models.MConfig{
		Name:     "market-sync",
		Host:     "127.0.0.1",
		Port:     8000,
		LogLevel: "INFO",
		Backend:  models.MBackendConfig{SeriesCapacity: 100},
		View: models.MViewConfig{
			DefaultSymbols:  []string{"BTCUSDT", "ETHUSDT"},
			DefaultSymbol:   "BTCUSDT",
			DefaultInterval: "1h",
			Intervals:       []string{"1m", "5m", "1h"},
		},
	}}
}

func price(sym, p string, at int64) models.PriceEntry {
	return models.PriceEntry{Symbol: sym, LastPrice: decimal.RequireFromString(p), LastUpdatedAt: time.UnixMilli(at)}
}

func newTestServer() (*ViewServer, *fakeSession) {
	sess := &fakeSession{
		view: models.MViewState{Page: "dashboard", Symbols: []string{"BTCUSDT"}, Symbol: "BTCUSDT", Interval: "1h", Theme: "light"},
		prices: []models.PriceEntry{
			price("BTCUSDT", "43251.5", 1),
			price("ETHUSDT", "2500", 2),
			price("PEPEUSDT", "0.00001", 3),
			price("ETHBTC", "0.05", 4),
		},
		series: map[string][]models.Candle{
			"BTCUSDT/1h": {
				{Time: 1, Open: decimal.NewFromInt(100), High: decimal.NewFromInt(120), Low: decimal.NewFromInt(90), Close: decimal.NewFromInt(110), Volume: decimal.NewFromInt(1)},
			},
		},
	}
	s := NewViewServer(testConfig(), logger.Nop())
	s.SetSession(sess)
	return s, sess
}

func do(t *testing.T, s *ViewServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// -----------------------------------------------------------------------------
// REST
// -----------------------------------------------------------------------------

func Test_Health(t *testing.T) {
	s, _ := newTestServer()
	w := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func Test_Metrics(t *testing.T) {
	s, _ := newTestServer()
	w := do(t, s, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var m models.MSyncMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, int64(7), m.TicksApplied)
	assert.Equal(t, 3, m.ActiveSubscriptions)
}

func Test_Config(t *testing.T) {
	s, _ := newTestServer()
	w := do(t, s, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"intervals":["1m","5m","1h"]`)
}

func Test_NoSession(t *testing.T) {
	s := NewViewServer(testConfig(), logger.Nop())
	w := do(t, s, http.MethodGet, "/api/prices", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func Test_Prices_FilterAndSort(t *testing.T) {
	s, _ := newTestServer()

	type response struct {
		Prices []priceRow `json:"prices"`
		Count  int        `json:"count"`
	}
	symbols := func(w *httptest.ResponseRecorder) []string {
		var r response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
		out := make([]string, 0, len(r.Prices))
		for _, p := range r.Prices {
			out = append(out, p.Symbol)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all by symbol", "", []string{"BTCUSDT", "ETHBTC", "ETHUSDT", "PEPEUSDT"}},
		{"search", "?search=eth", []string{"ETHBTC", "ETHUSDT"}},
		{"major", "?filter=major", []string{"BTCUSDT", "ETHUSDT"}},
		{"usd", "?filter=usd", []string{"BTCUSDT", "ETHUSDT", "PEPEUSDT"}},
		{"price desc", "?sort=price&order=desc", []string{"BTCUSDT", "ETHUSDT", "ETHBTC", "PEPEUSDT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/api/prices"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, symbols(w))
		})
	}

	w := do(t, s, http.MethodGet, "/api/prices?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_Prices_Display(t *testing.T) {
	s, _ := newTestServer()
	w := do(t, s, http.MethodGet, "/api/prices?search=btcusdt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display":"$43,251.5"`)
}

func Test_Series(t *testing.T) {
	s, _ := newTestServer()

	w := do(t, s, http.MethodGet, "/api/series/btcusdt?interval=1h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"change_percent":"10"`)

	// Interval defaults to the current view's.
	w = do(t, s, http.MethodGet, "/api/series/BTCUSDT", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/series/BTCUSDT?interval=5m", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_View_GetAndPost(t *testing.T) {
	s, sess := newTestServer()

	w := do(t, s, http.MethodGet, "/api/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"page":"dashboard"`)

	w = do(t, s, http.MethodPost, "/api/view", models.MViewCommand{Page: "detail", Symbol: "ethusdt", Interval: "5m"})
	require.Equal(t, http.StatusOK, w.Code)

	navs := sess.navigations()
	require.Len(t, navs, 1)
	assert.Equal(t, "detail", navs[0].Page)
	assert.Equal(t, "ETHUSDT", navs[0].Symbol)
	assert.Equal(t, "5m", navs[0].Interval)
	assert.Equal(t, []string{"BTCUSDT"}, navs[0].Symbols)
	assert.Equal(t, "light", navs[0].Theme)

	// Symbol without interval falls back to the default interval.
	w = do(t, s, http.MethodPost, "/api/view", models.MViewCommand{Symbol: "SOLUSDT", Symbols: []string{"sol", "SOL", ""}})
	require.Equal(t, http.StatusOK, w.Code)
	navs = sess.navigations()
	assert.Equal(t, "1h", navs[1].Interval)
	assert.Equal(t, []string{"SOL"}, navs[1].Symbols)

	w = do(t, s, http.MethodPost, "/api/view", models.MViewCommand{Symbol: "BTCUSDT", Interval: "3d"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, sess.navigations(), 2)
}

func Test_ThemeToggle(t *testing.T) {
	s, sess := newTestServer()

	w := do(t, s, http.MethodPost, "/api/theme/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"theme":"dark"}`, w.Body.String())
	assert.Equal(t, "dark", sess.CurrentView().Theme)

	w = do(t, s, http.MethodPost, "/api/theme/toggle", nil)
	assert.JSONEq(t, `{"theme":"light"}`, w.Body.String())
}

// -----------------------------------------------------------------------------
// WebSocket hub
// -----------------------------------------------------------------------------

func dialHub(t *testing.T, s *ViewServer) *websocket.Conn {
	t.Helper()
	go s.handleWebsockets()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Stop()
		srv.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) models.MViewUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u models.MViewUpdate
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func Test_Hub_InitialStateAndBroadcast(t *testing.T) {
	s, _ := newTestServer()
	conn := dialHub(t, s)

	// Four prices then the chart snapshot.
	types := map[string]int{}
	for i := 0; i < 5; i++ {
		types[readUpdate(t, conn).Type]++
	}
	assert.Equal(t, 4, types[models.UpdateTick])
	assert.Equal(t, 1, types[models.UpdateSnapshot])

	p := decimal.NewFromInt(5)
	s.Broadcast(&models.MViewUpdate{Type: models.UpdateTick, Symbol: "BTCUSDT", Price: &p, Direction: "up", Timestamp: 42})
	u := readUpdate(t, conn)
	assert.Equal(t, "up", u.Direction)
	assert.Equal(t, int64(42), u.Timestamp)
}

func Test_Hub_NavigateCommand(t *testing.T) {
	s, sess := newTestServer()
	conn := dialHub(t, s)

	require.NoError(t, conn.WriteJSON(models.MViewCommand{Command: "navigate", Page: "detail", Symbol: "ETHUSDT", Interval: "1m"}))
	assert.Eventually(t, func() bool {
		navs := sess.navigations()
		return len(navs) == 1 && navs[0].Symbol == "ETHUSDT"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(models.MViewCommand{Command: "navigate", Symbol: "ETHUSDT", Interval: "2w"}))
	for {
		u := readUpdate(t, conn)
		if u.Type == models.UpdateError {
			assert.Contains(t, u.Message, "unsupported interval")
			break
		}
	}
}
