// Package web exposes the operator HTTP interface: a dashboard page, the
// JSON status endpoint, and the mode/relay/config commands. Malformed
// requests are rejected here and never reach the controller.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// Backend is the controller surface the HTTP layer drives.
type Backend interface {
	Status() control.Snapshot
	SetMode(control.Mode) (control.Snapshot, []control.Event)
	SetManualRelay(control.Channel, bool) (control.Snapshot, []control.Event, error)
	UpdateThresholds(control.ThresholdPatch) (control.Snapshot, error)
}

// ConnectionStatus reports broker connectivity for display.
type ConnectionStatus interface {
	IsConnected() bool
}

// Notify is called after a state-changing request completes, with the
// resulting snapshot and any transition events. Wiring uses it to publish
// events, persist configuration, and update telemetry without coupling
// this package to those concerns.
type Notify func(snap control.Snapshot, events []control.Event)

// Config is daemon configuration shown on the dashboard.
type Config struct {
	Broker   string
	HTTPAddr string
	PollMs   int64
}

// Options carries the optional collaborators of the server.
type Options struct {
	Config  Config
	Conn    ConnectionStatus // may be nil
	Notify  Notify           // may be nil
	Metrics http.Handler     // mounted at /metrics when set
}

// Server serves the operator interface.
type Server struct {
	httpServer *http.Server
	backend    Backend
	opts       Options
}

// New creates a Server around the given backend.
func New(addr string, backend Backend, opts Options) *Server {
	s := &Server{backend: backend, opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/api/mode", s.handleMode).Methods(http.MethodPost)
	r.HandleFunc("/api/relay", s.handleRelay).Methods(http.MethodPost)
	r.HandleFunc("/api/config", s.handleConfig).Methods(http.MethodPost)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr: addr,
		Handler: handlers.RecoveryHandler()(
			handlers.LoggingHandler(log.Writer(), r)),
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) notify(snap control.Snapshot, events []control.Event) {
	if s.opts.Notify != nil {
		s.opts.Notify(snap, events)
	}
}

func (s *Server) connected() bool {
	return s.opts.Conn != nil && s.opts.Conn.IsConnected()
}
