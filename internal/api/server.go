// Package api exposes the serial connection to the measurement GUI over a
// localhost HTTP surface: device discovery, connect/disconnect, raw command
// send, recent readings, and a live tail of device output.
package api

import (
	"net/http"

	"github.com/DanielTwellmann/benchlink/internal/devicemux"
	"github.com/DanielTwellmann/benchlink/internal/httputil"
	"github.com/DanielTwellmann/benchlink/internal/serialconn"
	"github.com/DanielTwellmann/benchlink/internal/store"
	"github.com/DanielTwellmann/benchlink/internal/version"
)

// Server holds the handler dependencies.
type Server struct {
	conn  *serialconn.Conn
	mux   *devicemux.Mux
	store *store.Store
}

// NewServer creates an API server around the shared connection, line mux,
// and store.
func NewServer(conn *serialconn.Conn, mux *devicemux.Mux, st *store.Store) *Server {
	return &Server{
		conn:  conn,
		mux:   mux,
		store: st,
	}
}

// ServeMux returns the route table. The caller mounts it under /api/.
func (s *Server) ServeMux() *http.ServeMux {
	m := http.NewServeMux()
	m.HandleFunc("/devices", s.handleDevices)
	m.HandleFunc("/connect", s.handleConnect)
	m.HandleFunc("/disconnect", s.handleDisconnect)
	m.HandleFunc("/status", s.handleStatus)
	m.HandleFunc("/send", s.handleSend)
	m.HandleFunc("/readings", s.handleReadings)
	m.HandleFunc("/conn-events", s.handleConnEvents)
	m.HandleFunc("/tail", s.handleTail)
	m.HandleFunc("/version", s.handleVersion)
	return m
}

// StatusResponse reports the connection state the GUI renders in its header.
type StatusResponse struct {
	Available bool               `json:"available"`
	Connected bool               `json:"connected"`
	Port      string             `json:"port,omitempty"`
	Options   serialconn.Options `json:"options"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, StatusResponseOf(s.conn))
}

// StatusResponseOf snapshots the connection state.
func StatusResponseOf(conn *serialconn.Conn) StatusResponse {
	return StatusResponse{
		Available: conn.Available(),
		Connected: conn.IsConnected(),
		Port:      conn.PortName(),
		Options:   conn.Options(),
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
