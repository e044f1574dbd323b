package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/exgaso/armory-http/pkg/utils"
	"github.com/exgaso/armory-http/progress"
)

type Server struct {
	cfg      *Config
	progress progress.Factory
	events   chan ServerEvent

	mu    sync.RWMutex
	state ServerState

	httpSrv *http.Server
}

func New(cfg *Config, reporter progress.Factory) (*Server, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = progress.Discard{}
	}

	return &Server{
		cfg:      cfg,
		progress: reporter,
		events:   make(chan ServerEvent, 64),
		state: ServerState{
			Dir:   cfg.Root,
			Conns: make(map[string]*Conn),
		},
	}, nil
}

// Events exposes the server's event stream for the TUI. Events are dropped
// when nobody drains the channel, so a headless run costs nothing.
func (s *Server) Events() <-chan ServerEvent {
	return s.events
}

func (s *Server) Root() string {
	return s.cfg.Root
}

func (s *Server) UploadDir() string {
	return s.cfg.UploadDir
}

// GetState returns a snapshot safe to read while handlers keep mutating
// the live state.
func (s *Server) GetState() ServerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state
	snapshot.Conns = make(map[string]*Conn, len(s.state.Conns))
	for id, conn := range s.state.Conns {
		c := *conn
		snapshot.Conns[id] = &c
	}
	return snapshot
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /", s.handleDownload)
	return mux
}

// Start binds the listener and serves until ctx is cancelled. In-flight
// transfers are not drained on shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	host, err := utils.GetLocalIP()
	if err != nil {
		slog.Warn("Failed to determine local IP", "error", err)
		host = "localhost"
	}
	displayAddr := fmt.Sprintf("http://%s:%d", host, s.cfg.Port)

	s.mu.Lock()
	s.state.Addr = &displayAddr
	s.mu.Unlock()
	s.publish(EventAddrUpdated{Addr: displayAddr, Time: time.Now()})

	slog.Info("Serving",
		"addr", displayAddr,
		"root", s.cfg.Root,
		"uploadDir", s.cfg.UploadDir)

	s.httpSrv = &http.Server{Handler: s.routes()}

	go func() {
		<-ctx.Done()
		s.httpSrv.Close()
	}()

	if err := s.httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// publish folds the event into the tracked state and forwards it to the
// event channel without ever blocking a handler.
func (s *Server) publish(ev ServerEvent) {
	s.apply(ev)

	select {
	case s.events <- ev:
	default:
	}
}

func (s *Server) apply(ev ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case EventConnOpen:
		s.state.Conns[e.ConnID] = &Conn{
			ID:        e.ConnID,
			Client:    e.Client,
			UpdatedAt: time.Now(),
		}
	case EventConnClose:
		delete(s.state.Conns, e.ConnID)
	case EventDownloadStart:
		if conn, ok := s.state.Conns[e.ConnID]; ok {
			conn.Filename = e.FileName
			conn.TotalSize = e.TotalSize
			conn.Direction = progress.Outbound
			conn.UpdatedAt = time.Now()
		}
	case EventUploadStart:
		if conn, ok := s.state.Conns[e.ConnID]; ok {
			conn.Filename = e.FileName
			conn.TotalSize = progress.UnknownTotal
			conn.Direction = progress.Inbound
			conn.UpdatedAt = time.Now()
		}
	case EventFileProgress:
		if conn, ok := s.state.Conns[e.ConnID]; ok {
			now := time.Now()
			if dt := now.Sub(conn.UpdatedAt).Seconds(); dt > 0 {
				conn.CurSpeed = int64(float64(e.Sent-conn.TotalSent) / dt)
			}
			conn.TotalSent = e.Sent
			conn.UpdatedAt = now
		}
	}
}
