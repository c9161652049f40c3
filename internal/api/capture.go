package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/proximity.report/internal/chart"
	"github.com/banshee-data/proximity.report/internal/httputil"
	"github.com/banshee-data/proximity.report/internal/hub"
	"github.com/banshee-data/proximity.report/internal/monitoring"
	"github.com/banshee-data/proximity.report/internal/pipeline"
	"github.com/banshee-data/proximity.report/internal/proximity"
	"github.com/banshee-data/proximity.report/internal/units"
)

// startCapture (re)starts the capture pipeline. Starting while a run is
// active tears the old run down first, so this doubles as restart.
func (s *Server) startCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	rolling := chart.NewRolling(chart.Config{
		Capacity: s.cfg.GetChartCapacity(),
		Title:    "Live proximity",
	})

	events := pipeline.Events{
		OnReading:   s.onReading,
		OnDistance:  s.onDistance,
		OnThreshold: s.onThreshold,
	}

	if err := s.pipeline.Start(events, rolling); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	s.mu.Lock()
	s.chart = rolling
	s.mu.Unlock()

	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

func (s *Server) stopCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	s.pipeline.Stop()

	s.mu.Lock()
	s.chart = nil
	s.mu.Unlock()

	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

// onReading handles a throttled host notification: push it to connected
// dashboards and persist it when a session is recording.
func (s *Server) onReading(value float64) {
	now := s.clock.Now()
	if err := s.hub.BroadcastEvent(hub.EventReading, value, now); err != nil {
		monitoring.Logf("api: failed to broadcast reading: %v", err)
	}

	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()
	if sessionID == "" {
		return
	}

	var distance *float64
	if snap := s.pipeline.Snapshot(); snap.Calibrated && snap.LastDistance != nil {
		distance = snap.LastDistance
	}
	if err := s.db.AddReading(sessionID, now, value, distance); err != nil {
		monitoring.Logf("api: failed to store reading: %v", err)
	}
}

func (s *Server) onDistance(value float64) {
	converted := units.ConvertDistance(value, s.cfg.GetUnits())
	if err := s.hub.BroadcastEvent(hub.EventDistance, converted, s.clock.Now()); err != nil {
		monitoring.Logf("api: failed to broadcast distance: %v", err)
	}
}

func (s *Server) onThreshold(value float64) {
	if err := s.hub.BroadcastEvent(hub.EventThreshold, value, s.clock.Now()); err != nil {
		monitoring.Logf("api: failed to broadcast threshold crossing: %v", err)
	}
}

// valueRequest is the body of every calibration-style POST.
type valueRequest struct {
	Value *float64 `json:"value"`
}

func decodeValue(r *http.Request) (*float64, error) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req.Value, nil
}

// calibrate anchors the model. With only "distance" it uses the most recent
// measurement; with "reference_pixels" as well it sets the reference pair
// directly.
func (s *Server) calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req struct {
		Distance        *float64 `json:"distance"`
		ReferencePixels *float64 `json:"reference_pixels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if req.Distance == nil {
		httputil.BadRequest(w, "missing 'distance'")
		return
	}

	var err error
	if req.ReferencePixels != nil {
		err = s.pipeline.SetCalibration(*req.ReferencePixels, *req.Distance)
	} else {
		err = s.pipeline.CalibrateNow(*req.Distance)
	}
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

func (s *Server) refineScale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	value, err := decodeValue(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if value == nil {
		httputil.BadRequest(w, "missing 'value'")
		return
	}

	if err := s.pipeline.RefineScale(*value); err != nil {
		s.writeCommandError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

func (s *Server) setScale(w http.ResponseWriter, r *http.Request) {
	s.applyValueCommand(w, r, s.pipeline.SetScale, "missing 'value'")
}

func (s *Server) setGamma(w http.ResponseWriter, r *http.Request) {
	s.applyValueCommand(w, r, s.pipeline.SetGamma, "missing 'value'")
}

// setThreshold sets or clears the crossing level. A null or absent value
// clears it, matching the model's treatment of invalid thresholds.
func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	value, err := decodeValue(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	threshold := -1.0 // out of range clears
	if value != nil {
		threshold = *value
	}
	if err := s.pipeline.SetThreshold(threshold); err != nil {
		s.writeCommandError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

func (s *Server) applyValueCommand(w http.ResponseWriter, r *http.Request, command func(float64) error, missingMsg string) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	value, err := decodeValue(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if value == nil {
		httputil.BadRequest(w, missingMsg)
		return
	}

	if err := command(*value); err != nil {
		s.writeCommandError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.pipeline.Snapshot())
}

func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNotRunning):
		httputil.Conflict(w, "capture is not running")
	case errors.Is(err, proximity.ErrNoMeasurement):
		httputil.Conflict(w, "no measurement seen yet")
	default:
		httputil.BadRequest(w, err.Error())
	}
}
