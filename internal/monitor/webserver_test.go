package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/samplegrid/internal/samplegrid"
	"github.com/banshee-data/samplegrid/internal/timeutil"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestServer(t *testing.T) (*WebServer, *httptest.Server) {
	t.Helper()
	g := testGrid(t)
	g.SyncAll()
	ws := NewWebServer(WebServerConfig{
		Grid:  g,
		RunID: "run-test",
		Clock: timeutil.NewMockClock(testNow),
	})
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)
	return ws, srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb bytes.Buffer
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestHandleHealth(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "samplegrid", got["service"])
	assert.Equal(t, "run-test", got["run_id"])
	assert.Equal(t, "2026-03-14T09:26:53Z", got["timestamp"])
}

func TestHandleGrid(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/grid")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got GridResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "run-test", got.RunID)
	assert.True(t, got.Timestamp.Equal(testNow))
	require.NotNil(t, got.Grid)
	assert.Equal(t, 5, got.Grid.Width)
	assert.Len(t, got.Grid.States, 25)
	assert.Equal(t, 14, got.Stats.TruthOpenCells)
	assert.Equal(t, 0, got.Stats.Mismatches)

	_, body = get(t, srv.URL+"/api/grid?stats_only=true")
	got = GridResponse{}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Nil(t, got.Grid)
	assert.Equal(t, 14, got.Stats.OpenCells)
}

func TestHandleCell(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		query  string
		status int
	}{
		{"x=4&y=0", http.StatusOK},
		{"x=a&y=0", http.StatusBadRequest},
		{"x=0", http.StatusBadRequest},
		{"x=5&y=0", http.StatusNotFound},
		{"x=-1&y=0", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, _ := get(t, srv.URL+"/api/grid/cell?"+tt.query)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	_, body := get(t, srv.URL+"/api/grid/cell?x=0&y=1")
	var cell CellResponse
	require.NoError(t, json.Unmarshal([]byte(body), &cell))
	assert.Equal(t, CellResponse{X: 0, Y: 1, State: 0, Covariance: 1, Open: false, Truth: false}, cell)
}

func TestHandleText(t *testing.T) {
	_, srv := newTestServer(t)
	mapStr := "@....\n@@...\n@@@..\n@@@..\n@@...\n"

	resp, body := get(t, srv.URL+"/api/grid/realization")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, mapStr, body)

	_, body = get(t, srv.URL+"/api/grid/truth")
	assert.Equal(t, mapStr, body)
}

func TestHandleHeatmap(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/debug/grid/heatmap")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "Belief")
}

func TestNoGrid(t *testing.T) {
	var nilGrid *samplegrid.Grid
	for name, cfg := range map[string]WebServerConfig{
		"unset":     {},
		"typed nil": {Grid: nilGrid},
	} {
		t.Run(name, func(t *testing.T) {
			ws := NewWebServer(cfg)
			srv := httptest.NewServer(ws.Handler())
			defer srv.Close()

			for _, p := range []string{"/api/grid", "/api/grid/cell?x=0&y=0", "/api/grid/realization", "/api/grid/truth", "/debug/grid/heatmap"} {
				resp, _ := get(t, srv.URL+p)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
			}
			resp, _ := get(t, srv.URL+"/health")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/grid", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, []string{"GET", "HEAD"}, resp.Header.Values("Allow"))
}

func TestNewWebServer_GeneratesRunID(t *testing.T) {
	a := NewWebServer(WebServerConfig{})
	b := NewWebServer(WebServerConfig{})
	assert.Len(t, a.RunID(), 36)
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	ws := NewWebServer(WebServerConfig{Address: "127.0.0.1:0", Grid: testGrid(t)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ws.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_ListenError(t *testing.T) {
	ws := NewWebServer(WebServerConfig{Address: "not-an-address"})
	err := ws.Start(context.Background())
	assert.Error(t, err)
}
