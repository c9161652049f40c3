package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/proximity.report/internal/chart"
	"github.com/banshee-data/proximity.report/internal/config"
	"github.com/banshee-data/proximity.report/internal/db"
	"github.com/banshee-data/proximity.report/internal/httputil"
	"github.com/banshee-data/proximity.report/internal/hub"
	"github.com/banshee-data/proximity.report/internal/monitoring"
	"github.com/banshee-data/proximity.report/internal/pipeline"
	"github.com/banshee-data/proximity.report/internal/timeutil"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the capture pipeline, session store, and live chart over
// HTTP. It is the only writer of the current-session and current-chart
// state; event callbacks read them under the same lock.
type Server struct {
	pipeline *pipeline.Pipeline
	db       *db.DB
	hub      *hub.Hub
	cfg      *config.TuningConfig
	clock    timeutil.Clock

	mu        sync.Mutex
	chart     *chart.Rolling
	sessionID string
}

// NewServer wires the API over the given pipeline, store, and hub. A nil
// clock falls back to the real one.
func NewServer(p *pipeline.Pipeline, database *db.DB, h *hub.Hub, cfg *config.TuningConfig, clock timeutil.Clock) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		pipeline: p,
		db:       database,
		hub:      h,
		cfg:      cfg,
		clock:    clock,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/capture/start", s.startCapture)
	mux.HandleFunc("/api/capture/stop", s.stopCapture)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/config", s.showConfig)

	mux.HandleFunc("/api/calibrate", s.calibrate)
	mux.HandleFunc("/api/calibrate/refine", s.refineScale)
	mux.HandleFunc("/api/scale", s.setScale)
	mux.HandleFunc("/api/gamma", s.setGamma)
	mux.HandleFunc("/api/threshold", s.setThreshold)

	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)

	mux.HandleFunc("/chart", s.showChart)
	mux.HandleFunc("/api/chart/data", s.showChartData)
	mux.HandleFunc("/ws", s.hub.ServeWS)

	return mux
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	status := struct {
		pipeline.Status
		SessionID string `json:"session_id,omitempty"`
		Units     string `json:"units"`
	}{
		Status:    s.pipeline.Snapshot(),
		SessionID: sessionID,
		Units:     s.cfg.GetUnits(),
	}
	httputil.WriteJSONOK(w, status)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":            s.cfg.GetUnits(),
		"camera_device":    s.cfg.GetCameraDevice(),
		"model_path":       s.cfg.GetModelPath(),
		"score_threshold":  s.cfg.GetScoreThreshold(),
		"reading_interval": s.cfg.GetReadingInterval().String(),
		"chart_interval":   s.cfg.GetChartInterval().String(),
		"chart_capacity":   s.cfg.GetChartCapacity(),
	})
}
