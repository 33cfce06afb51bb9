package api

import (
	"fmt"
	"net/http"

	"github.com/DanielTwellmann/benchlink/internal/httputil"
)

// handleTail handles GET /api/tail: a Server-Sent Events stream of device
// output lines, one event per line, for the GUI's live view.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, c := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	// Initial ping so the client sees the stream is up before any data.
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case line, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
