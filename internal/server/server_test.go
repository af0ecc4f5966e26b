package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fillbot/gofill/internal/domain"
	"github.com/fillbot/gofill/internal/processor"
	"github.com/fillbot/gofill/internal/source"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestServer(t *testing.T) (*Server, *source.MockSource) {
	t.Helper()
	src := source.NewMockSource(
		domain.Fill{SequenceNumber: 1, Timestamp: 1701386700, Direction: domain.DirectionBuy, Price: dec(t, "100.0"), Quantity: dec(t, "1.5")},
		domain.Fill{SequenceNumber: 1, Timestamp: 1701386750, Direction: domain.DirectionBuy, Price: dec(t, "101.0"), Quantity: dec(t, "0.5")},
		domain.Fill{SequenceNumber: 2, Timestamp: 1701386800, Direction: domain.DirectionSell, Price: dec(t, "102.0"), Quantity: dec(t, "2.0")},
	)
	proc, err := processor.New(processor.DefaultConfig(), src)
	require.NoError(t, err)
	return New(proc), src
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	}
	return w.Code, payload
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestQueryPost(t *testing.T) {
	srv, src := newTestServer(t)
	router := srv.Router()

	code, payload := doJSON(t, router, http.MethodPost, "/api/v1/query",
		`{"kind":"count","start":1701386700,"end":1701386800}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "2", payload["answer"])
	require.NotEmpty(t, payload["id"])

	code, payload = doJSON(t, router, http.MethodPost, "/api/v1/query",
		`{"kind":"volume","start":1701386700,"end":1701386800}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "404.5", payload["answer"])

	// Both queries cover the same bucket, one fetch suffices.
	require.Equal(t, 1, src.FetchCalls())
}

func TestQueryGet(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	code, payload := doJSON(t, router, http.MethodGet,
		"/api/v1/query?kind=S&start=1701386700&end=1701386800", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "1", payload["answer"])
	require.Equal(t, "sell-count", payload["kind"])
}

func TestQueryValidation(t *testing.T) {
	srv, src := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"bad json", http.MethodPost, "/api/v1/query", `{"kind":`},
		{"unknown kind", http.MethodPost, "/api/v1/query", `{"kind":"median","start":0,"end":10}`},
		{"range too wide", http.MethodPost, "/api/v1/query", `{"kind":"count","start":0,"end":3601}`},
		{"non-integer start", http.MethodGet, "/api/v1/query?kind=count&start=x&end=10", ""},
		{"missing end", http.MethodGet, "/api/v1/query?kind=count&start=0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, payload := doJSON(t, router, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, code)
			require.Contains(t, payload, "error")
		})
	}

	// Rejected queries must not reach the source.
	require.Equal(t, 0, src.FetchCalls())
}

func TestQuerySourceFailure(t *testing.T) {
	srv, src := newTestServer(t)
	src.ErrorOnNext["Fetch"] = errors.New("fills api down")
	router := srv.Router()

	code, payload := doJSON(t, router, http.MethodPost, "/api/v1/query",
		`{"kind":"count","start":1701386700,"end":1701386800}`)
	require.Equal(t, http.StatusBadGateway, code)
	require.Contains(t, payload, "error")
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	_, _ = doJSON(t, router, http.MethodPost, "/api/v1/query",
		`{"kind":"count","start":1701386700,"end":1701386800}`)

	code, payload := doJSON(t, router, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, code)

	require.EqualValues(t, 200, payload["cache_cap"])
	require.GreaterOrEqual(t, payload["cache_len"].(float64), 1.0)

	counters, ok := payload["counters"].(map[string]any)
	require.True(t, ok)
	require.GreaterOrEqual(t, counters["adapter_calls"].(float64), 1.0)
	require.GreaterOrEqual(t, counters["queries_total"].(float64), 1.0)
}

func TestStatsStream(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var stats Stats
	require.NoError(t, conn.ReadJSON(&stats))
	require.Equal(t, 200, stats.CacheCap)
	require.Contains(t, stats.Counters, "queries_total")
}
