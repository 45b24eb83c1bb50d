// Package monitor exposes a belief grid for inspection: PNG plots through
// gonum/plot, HTML heatmaps through go-echarts and a small HTTP server.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/samplegrid/internal/httputil"
	"github.com/banshee-data/samplegrid/internal/monitoring"
	"github.com/banshee-data/samplegrid/internal/samplegrid"
	"github.com/banshee-data/samplegrid/internal/timeutil"
	"github.com/banshee-data/samplegrid/internal/version"
)

// GridSource is the read side of a grid. *samplegrid.Grid implements it.
type GridSource interface {
	Snapshot() *samplegrid.Snapshot
	RealizationString() string
	GroundTruthString() string
}

// WebServer serves the state of one grid over HTTP.
type WebServer struct {
	address string
	grid    GridSource
	runID   string
	clock   timeutil.Clock
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Grid    GridSource // nil serves 404 on the grid routes
	RunID   string         // generated when empty
	Clock   timeutil.Clock // defaults to the real clock
}

// GridResponse is the body of /api/grid.
type GridResponse struct {
	RunID     string               `json:"run_id"`
	Timestamp time.Time            `json:"timestamp"`
	Stats     samplegrid.Stats     `json:"stats"`
	Grid      *samplegrid.Snapshot `json:"grid,omitempty"`
}

// CellResponse is the body of /api/grid/cell.
type CellResponse struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	State      float64 `json:"state"`
	Covariance float64 `json:"covariance"`
	Open       bool    `json:"open"`
	Truth      bool    `json:"truth"`
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		grid:    config.Grid,
		runID:   config.RunID,
		clock:   config.Clock,
	}
	if g, ok := ws.grid.(*samplegrid.Grid); ok && g == nil {
		ws.grid = nil
	}
	if ws.runID == "" {
		ws.runID = uuid.NewString()
	}
	if ws.clock == nil {
		ws.clock = timeutil.RealClock{}
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// RunID returns the identifier reported by every response.
func (ws *WebServer) RunID() string { return ws.runID }

// Start serves until ctx is cancelled, then shuts the server down. It
// returns early with the listen error if the server cannot start.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// Handler returns the route table. Exposed for httptest.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/grid", ws.handleGrid)
	mux.HandleFunc("/api/grid/cell", ws.handleCell)
	mux.HandleFunc("/api/grid/realization", ws.handleRealization)
	mux.HandleFunc("/api/grid/truth", ws.handleTruth)
	mux.HandleFunc("/debug/grid/heatmap", ws.handleHeatmap)
	return getOnly(mux)
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httputil.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "samplegrid",
		"version":   version.Version,
		"run_id":    ws.runID,
		"timestamp": ws.clock.Now().UTC().Format(time.RFC3339),
	})
}

// handleGrid returns stats and, unless stats_only=true, the full snapshot.
func (ws *WebServer) handleGrid(w http.ResponseWriter, r *http.Request) {
	if ws.grid == nil {
		httputil.NotFound(w, "no grid loaded")
		return
	}
	snap := ws.grid.Snapshot()
	resp := GridResponse{
		RunID:     ws.runID,
		Timestamp: ws.clock.Now().UTC(),
		Stats:     snap.Stats(),
	}
	if statsOnly, _ := strconv.ParseBool(r.URL.Query().Get("stats_only")); !statsOnly {
		resp.Grid = snap
	}
	httputil.WriteJSONOK(w, resp)
}

func (ws *WebServer) handleCell(w http.ResponseWriter, r *http.Request) {
	if ws.grid == nil {
		httputil.NotFound(w, "no grid loaded")
		return
	}
	q := r.URL.Query()
	x, err := strconv.Atoi(q.Get("x"))
	if err != nil {
		httputil.BadRequest(w, "x must be an integer")
		return
	}
	y, err := strconv.Atoi(q.Get("y"))
	if err != nil {
		httputil.BadRequest(w, "y must be an integer")
		return
	}

	snap := ws.grid.Snapshot()
	if x < 0 || y < 0 || x >= snap.Width || y >= snap.Height {
		httputil.NotFound(w, "cell outside grid")
		return
	}
	i := snap.Idx(x, y)
	httputil.WriteJSONOK(w, CellResponse{
		X:          x,
		Y:          y,
		State:      snap.States[i],
		Covariance: snap.Covariances[i],
		Open:       snap.Realization[i],
		Truth:      snap.GroundTruth[i],
	})
}

func (ws *WebServer) handleRealization(w http.ResponseWriter, r *http.Request) {
	if ws.grid == nil {
		httputil.NotFound(w, "no grid loaded")
		return
	}
	httputil.WriteText(w, ws.grid.RealizationString())
}

func (ws *WebServer) handleTruth(w http.ResponseWriter, r *http.Request) {
	if ws.grid == nil {
		httputil.NotFound(w, "no grid loaded")
		return
	}
	httputil.WriteText(w, ws.grid.GroundTruthString())
}

// handleHeatmap renders the belief and covariance heatmaps with go-echarts.
// Debugging only, no auth.
func (ws *WebServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if ws.grid == nil {
		httputil.NotFound(w, "no grid loaded")
		return
	}
	var buf bytes.Buffer
	if err := RenderHeatmapHTML(&buf, ws.grid.Snapshot()); err != nil {
		httputil.InternalServerError(w, "failed to render chart: "+err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
