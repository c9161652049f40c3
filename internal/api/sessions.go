package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/proximity.report/internal/httputil"
	"github.com/banshee-data/proximity.report/internal/monitoring"
	"github.com/banshee-data/proximity.report/internal/report"
	"github.com/banshee-data/proximity.report/internal/stats"
)

// handleSessions serves the session collection: GET lists all sessions,
// POST starts recording a new one.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.db.ListSessions()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
			return
		}
		httputil.WriteJSONOK(w, sessions)

	case http.MethodPost:
		s.startSession(w, r)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if req.Name == "" {
		httputil.BadRequest(w, "missing 'name'")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != "" {
		httputil.Conflict(w, "a session is already recording")
		return
	}

	session, err := s.db.StartSession(req.Name, s.clock.Now())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to start session: %v", err))
		return
	}
	s.sessionID = session.ID

	httputil.WriteJSON(w, http.StatusCreated, session)
}

// handleSessionByID routes /api/sessions/{id} and its sub-resources.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		httputil.NotFound(w, "missing session id")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.sessionResource(w, r, id)
	case "end":
		s.endSession(w, r, id)
	case "readings":
		s.listSessionReadings(w, r, id)
	case "summary":
		s.sessionSummary(w, r, id)
	case "plot.png":
		s.sessionPlot(w, r, id)
	default:
		httputil.NotFound(w, fmt.Sprintf("unknown session resource %q", action))
	}
}

func (s *Server) sessionResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		session, err := s.db.GetSession(id)
		if err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, session)

	case http.MethodDelete:
		s.mu.Lock()
		if s.sessionID == id {
			s.sessionID = ""
		}
		s.mu.Unlock()

		if err := s.db.DeleteSession(id); err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": id})

	default:
		httputil.MethodNotAllowed(w)
	}
}

// endSession stops recording and stamps the session with whatever
// calibration the pipeline holds right now.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	snap := s.pipeline.Snapshot()
	var scale, gamma *float64
	if snap.Calibrated {
		sc, g := snap.Scale, snap.Gamma
		scale, gamma = &sc, &g
	}

	if err := s.db.EndSession(id, s.clock.Now(), scale, gamma, snap.ReferencePixels, snap.ReferenceDistance); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}

	s.mu.Lock()
	if s.sessionID == id {
		s.sessionID = ""
	}
	s.mu.Unlock()

	session, err := s.db.GetSession(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, session)
}

func (s *Server) listSessionReadings(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	if _, err := s.db.GetSession(id); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	readings, err := s.db.ListReadings(id, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list readings: %v", err))
		return
	}
	httputil.WriteJSONOK(w, readings)
}

func (s *Server) sessionSummary(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	if _, err := s.db.GetSession(id); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	normalized, err := s.db.NormalizedValues(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	distance, err := s.db.DistanceValues(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSONOK(w, stats.ForSession(id, normalized, distance))
}

func (s *Server) sessionPlot(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	session, err := s.db.GetSession(id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	readings, err := s.db.ListReadings(id, 0)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(readings) == 0 {
		httputil.NotFound(w, "session has no readings")
		return
	}

	var buf bytes.Buffer
	if err := report.WritePNG(&buf, session, readings); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		monitoring.Logf("api: failed to write session plot: %v", err)
	}
}
