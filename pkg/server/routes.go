package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/", s.healthHandler)
	router.GET("/healthz", s.healthHandler)
	router.GET("/status", s.statusHandler)
	router.GET("/ws", s.connectionHandler)
	if s.cfg.Metrics {
		router.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.cfg.StaticDir != "" {
		router.ServeFiles("/app/*filepath", http.Dir(s.cfg.StaticDir))
	}
	return router
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "Lobby Server is Running!")
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(stats)
}

// connectionHandler upgrades new HTTP requests from clients to websockets,
// reading in further messages from those clients.
func (s *Server) connectionHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	socket, err := s.socketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ERROR upgrading connection", zap.Error(err))
		return
	}

	conn := newConnection(s.log, socket, s.cfg.SendBufferSize)
	if !s.submit(Request{kind: registerRequest, Connection: conn}) {
		conn.Close()
		return
	}

	go conn.writePump(s)
	// Forever handle messages from this new client
	conn.readPump(s)
}
