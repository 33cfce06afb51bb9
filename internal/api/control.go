package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielTwellmann/benchlink/internal/httputil"
	"github.com/DanielTwellmann/benchlink/internal/monitoring"
	"github.com/DanielTwellmann/benchlink/internal/serialconn"
)

// ConnectRequest is the body of POST /api/connect.
type ConnectRequest struct {
	Port string `json:"port"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	if err := s.conn.Connect(req.Port); err != nil {
		s.recordConnEvent("connect_failed", req.Port)
		switch {
		case errors.Is(err, serialconn.ErrEmptyPort):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, serialconn.ErrUnavailable):
			httputil.ServiceUnavailable(w, err.Error())
		default:
			// Device open failures are the device's fault, not the API's.
			httputil.BadGateway(w, err.Error())
		}
		return
	}

	s.recordConnEvent("connected", req.Port)
	httputil.WriteJSONOK(w, StatusResponseOf(s.conn))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	port := s.conn.PortName()
	s.conn.Disconnect()
	if port != "" {
		s.recordConnEvent("disconnected", port)
	}
	httputil.WriteJSONOK(w, StatusResponseOf(s.conn))
}

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Data string `json:"data"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.Data == "" {
		httputil.BadRequest(w, "missing data")
		return
	}

	if err := s.mux.Send(req.Data); err != nil {
		if errors.Is(err, serialconn.ErrNotConnected) {
			httputil.Conflict(w, "not connected")
			return
		}
		httputil.BadGateway(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"sent": true})
}

func (s *Server) recordConnEvent(event, port string) {
	if s.store == nil {
		return
	}
	if err := s.store.RecordConnEvent(event, port); err != nil {
		monitoring.Logf("api: failed to record connection event: %v", err)
	}
}
