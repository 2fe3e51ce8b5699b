// Package api serves the threat watch HTTP endpoints.
package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/db"
	"github.com/eervaisa/FMI-Gliders/internal/httputil"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
	"github.com/eervaisa/FMI-Gliders/internal/units"
	"github.com/eervaisa/FMI-Gliders/internal/version"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// DefaultRecencyCutoff is used by /api/threats/recent when no cutoff is given.
const DefaultRecencyCutoff = 15 * time.Minute

type Server struct {
	controller    *db.ThreatController
	db            *db.DB
	gatherer      prometheus.Gatherer
	recencyCutoff time.Duration
}

// NewServer returns a server for the controller's worker and database.
// A nil gatherer leaves /metrics unmounted.
func NewServer(controller *db.ThreatController, gatherer prometheus.Gatherer, recencyCutoff time.Duration) *Server {
	if recencyCutoff <= 0 {
		recencyCutoff = DefaultRecencyCutoff
	}
	return &Server{
		controller:    controller,
		db:            controller.Worker().DB,
		gatherer:      gatherer,
		recencyCutoff: recencyCutoff,
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
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/trigger", s.triggerRun)
	mux.HandleFunc("/api/enabled", s.setEnabled)
	mux.HandleFunc("/api/threats", s.listThreats)
	mux.HandleFunc("/api/threats/recent", s.listRecentThreats)
	mux.HandleFunc("/api/vessels", s.listVessels)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/version", s.showVersion)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, s.controller.GetStatus())
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.controller.IsEnabled() {
		httputil.WriteJSONError(w, http.StatusConflict, "threat worker is disabled")
		return
	}
	queued := s.controller.TriggerManualRun()
	httputil.WriteJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) setEnabled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	enabled, err := strconv.ParseBool(r.URL.Query().Get("value"))
	if err != nil {
		httputil.BadRequest(w, "'value' must be true or false")
		return
	}
	s.controller.SetEnabled(enabled)
	httputil.WriteJSONOK(w, map[string]bool{"enabled": enabled})
}

func (s *Server) listThreats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	since, err := httputil.TimeParam(r, "since")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := httputil.IntParam(r, "limit", 500)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	u, err := speedUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	records, err := s.db.Threats(r.Context(), db.ThreatFilter{
		Glider: r.URL.Query().Get("glider"),
		Since:  since,
		Limit:  limit,
	})
	if err != nil {
		httputil.InternalServerError(w, "failed to load threats: "+err.Error())
		return
	}
	if records == nil {
		records = []threat.Record{}
	}
	for i := range records {
		records[i].SOG = convertSOG(records[i].SOG, u)
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) listRecentThreats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	cutoff, err := httputil.DurationParam(r, "cutoff", s.recencyCutoff)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	now := s.controller.Worker().Clock.Now()
	records, err := s.db.RecentThreats(r.Context(), now.Add(-cutoff))
	if err != nil {
		httputil.InternalServerError(w, "failed to load recent threats: "+err.Error())
		return
	}
	mmsis := make([]int64, 0, len(records))
	for _, rec := range records {
		mmsis = append(mmsis, rec.MMSI)
	}
	if records == nil {
		records = []threat.Record{}
	}
	httputil.WriteJSONOK(w, map[string]any{
		"cutoff":  cutoff.String(),
		"mmsi":    mmsis,
		"threats": records,
	})
}

// speedUnits reads the optional units parameter. Speeds are stored in knots.
func speedUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return units.Knots, nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid units %q, want one of %v", u, units.ValidUnits)
	}
	return u, nil
}

func convertSOG(m ais.Measurement, u string) ais.Measurement {
	if !m.Valid {
		return m
	}
	return ais.Known(units.ConvertSpeed(m.Value, u))
}

type vesselsResponse struct {
	RunID    string                    `json:"run_id,omitempty"`
	Observed time.Time                 `json:"observed_at,omitempty"`
	Vessels  []threat.ClassifiedVessel `json:"vessels"`
	Rejected []threat.Rejection        `json:"rejected,omitempty"`
}

func (s *Server) listVessels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	u, err := speedUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	resp := vesselsResponse{Vessels: []threat.ClassifiedVessel{}}
	if last := s.controller.Worker().LastRun(); last != nil && last.Result != nil {
		resp.RunID = last.ID
		resp.Observed = last.StartedAt
		resp.Rejected = last.Result.Rejected
		// Copy so the conversion never touches the worker's result.
		resp.Vessels = append(resp.Vessels, last.Result.Vessels...)
		for i := range resp.Vessels {
			resp.Vessels[i].SOG = convertSOG(resp.Vessels[i].SOG, u)
		}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	limit, err := httputil.IntParam(r, "limit", 20)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runs, err := s.db.RecentRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to load runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.RunRecord{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}
