package api

import (
	"net/http"

	"github.com/banshee-data/proximity.report/internal/chart"
	"github.com/banshee-data/proximity.report/internal/httputil"
	"github.com/banshee-data/proximity.report/internal/monitoring"
)

func (s *Server) currentChart() *chart.Rolling {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chart
}

// showChart serves the live chart page. 404 when capture is not running.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rolling := s.currentChart()
	if rolling == nil {
		httputil.NotFound(w, "capture is not running")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rolling.RenderHTML(w); err != nil {
		monitoring.Logf("api: failed to render chart: %v", err)
	}
}

// showChartData returns the rolling window values as JSON for clients that
// draw their own chart.
func (s *Server) showChartData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rolling := s.currentChart()
	if rolling == nil {
		httputil.NotFound(w, "capture is not running")
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"distance_mode": rolling.DistanceMode(),
		"values":        rolling.Snapshot(),
	})
}
