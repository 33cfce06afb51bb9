package api

import (
	"net/http"
	"strconv"

	"github.com/DanielTwellmann/benchlink/internal/httputil"
	"github.com/DanielTwellmann/benchlink/internal/store"
)

func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

// handleReadings handles GET /api/readings?limit=N for the info panel.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	readings, err := s.store.RecentReadings(parseLimit(r))
	if err != nil {
		httputil.InternalServerError(w, "failed to load readings")
		return
	}
	if readings == nil {
		readings = []store.Reading{}
	}
	httputil.WriteJSONOK(w, readings)
}

// handleConnEvents handles GET /api/conn-events?limit=N.
func (s *Server) handleConnEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	events, err := s.store.RecentConnEvents(parseLimit(r))
	if err != nil {
		httputil.InternalServerError(w, "failed to load connection events")
		return
	}
	if events == nil {
		events = []store.ConnEvent{}
	}
	httputil.WriteJSONOK(w, events)
}
