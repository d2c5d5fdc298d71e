package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/config"
	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/lobby"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrStopped is returned when a request reaches a server whose event loop
// has exited.
var ErrStopped = errors.New("server stopped")

// Stats is a point-in-time view of the server's state.
type Stats struct {
	Lobbies          int `json:"lobbies"`
	BoundConnections int `json:"boundConnections"`
	OpenConnections  int `json:"openConnections"`
}

// Server stores all connection dependencies for the websocket server. Lobby
// state, bindings and rooms are only touched by the Run goroutine, so each
// request is processed to completion before the next.
type Server struct {
	log            *zap.Logger
	cfg            *config.Config
	socketUpgrader websocket.Upgrader

	requests chan Request
	done     chan struct{}

	dispatcher *lobby.Dispatcher
	rooms      *Rooms
	metrics    *Metrics
}

// NewServer constructs a new Server instance.
func NewServer(log *zap.Logger, cfg *config.Config, checkOriginFunc func(r *http.Request) bool) *Server {
	metrics := NewMetrics()
	return &Server{
		log:            log,
		cfg:            cfg,
		socketUpgrader: websocket.Upgrader{CheckOrigin: checkOriginFunc},
		requests:       make(chan Request),
		done:           make(chan struct{}),
		dispatcher:     lobby.NewDispatcher(log, cfg.DefaultTargetScore),
		rooms:          NewRooms(log, metrics),
		metrics:        metrics,
	}
}

// Run processes requests until ctx is cancelled, then closes every client
// connection. It must be called exactly once.
func (s *Server) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.rooms.CloseAll()
			return
		case req := <-s.requests:
			s.handle(req)
		}
	}
}

func (s *Server) handle(req Request) {
	switch req.kind {
	case registerRequest:
		s.rooms.Add(req.Connection)
		req.Connection.log.Info("New connection")

	case messageRequest:
		s.metrics.observeEvent(req.Message.Type)
		lobby.Apply(s.rooms, s.dispatcher.Handle(req.Connection.ID, req.Message))

	case disconnectRequest:
		lobby.Apply(s.rooms, s.dispatcher.Disconnect(req.Connection.ID))
		s.rooms.Remove(req.Connection.ID)
		req.Connection.log.Info("Connection closed")

	case statsRequest:
		req.reply <- s.stats()
		return
	}
	s.metrics.observeState(s.stats())
}

func (s *Server) stats() Stats {
	return Stats{
		Lobbies:          s.dispatcher.Store().Len(),
		BoundConnections: s.dispatcher.Registry().Len(),
		OpenConnections:  len(s.rooms.conns),
	}
}

// submit hands req to the event loop, reporting false if the loop has
// exited.
func (s *Server) submit(req Request) bool {
	select {
	case s.requests <- req:
		return true
	case <-s.done:
		return false
	}
}

// Stats asks the event loop for a snapshot of its state.
func (s *Server) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case s.requests <- Request{kind: statsRequest, reply: reply}:
	case <-s.done:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Start runs the event loop and serves HTTP on the configured port until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.Run(ctx)

	httpServer := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.ListenAndServe()
	}()
	s.log.Info("Started server", zap.String("port", s.cfg.Port))

	select {
	case err := <-errs:
		return fmt.Errorf("server failed during ListenAndServe: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-s.done
	return nil
}
