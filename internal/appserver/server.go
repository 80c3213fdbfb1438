// Package appserver composes the local API and its websocket feed
// into the single HTTP handler the process listens on.
package appserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"crewdesk/cli/internal/localapi"
)

type Deps struct {
	LocalAPI       localapi.Deps
	LocalAPIHandle http.Handler
}

type Server struct {
	local http.Handler
}

func NewServer(deps Deps) *Server {
	local := deps.LocalAPIHandle
	if local == nil {
		local = localapi.NewServer(deps.LocalAPI).Handler()
	}
	return &Server{local: local}
}

func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	switch {
	case p == "/ws" || p == "/healthz" || strings.HasPrefix(p, "/api/v1/"):
		s.local.ServeHTTP(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"ok":    false,
			"error": map[string]any{"code": "NOT_FOUND", "message": "route not found"},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
